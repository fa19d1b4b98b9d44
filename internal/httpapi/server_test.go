package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/bridge"
	"github.com/ZaguanLabs/wordpop/source"
	"github.com/ZaguanLabs/wordpop/store"
)

type testEnv struct {
	server   *Server
	outbox   *bridge.Outbox
	settings *store.Settings
	worker   *bridge.Worker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	settings := store.NewSettings(store.NewMemoryStore())
	outbox := bridge.NewOutbox(0)
	translator := wordpop.NewTranslator(
		wordpop.WithFetcher(source.NewMock(wordpop.DictionaryPrimary)),
		wordpop.WithSettings(settings),
	)
	worker := bridge.NewWorker(translator, settings, outbox)
	t.Cleanup(worker.Close)

	coordinator := bridge.NewCoordinator(bridge.StaticHost{Handler: worker}, settings, outbox)
	t.Cleanup(coordinator.Wait)

	return &testEnv{
		server:   NewServer(coordinator, outbox, zerolog.Nop(), Options{}),
		outbox:   outbox,
		settings: settings,
		worker:   worker,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleMessage_Translate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/v1/messages", `{"type":"translate","text":"\"hello\"","timeout":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res wordpop.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !res.OK() || res.Translation != "int. 你好\nn. 招呼" {
		t.Errorf("Unexpected result %+v", res)
	}
	if res.Source == nil || *res.Source != wordpop.DictionaryPrimary {
		t.Errorf("Expected dictionaryPrimary, got %v", res.Source)
	}
	if res.Timeout.Seconds() != 4 {
		t.Errorf("Expected 4s timeout, got %v", res.Timeout)
	}
	if !strings.Contains(rec.Body.String(), `"source":"dictionaryPrimary"`) {
		t.Errorf("Expected source name on the wire, got %s", rec.Body.String())
	}
}

func TestHandleMessage_TranslateNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/v1/messages", `{"type":"translate","text":"zzyzx"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var res wordpop.Result
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Status != wordpop.StatusFailure || res.Translation != wordpop.MsgNotFound {
		t.Errorf("Expected not found failure, got %+v", res)
	}
}

func TestHandleMessage_SelectionQueuesPush(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/v1/messages",
		`{"type":"selection","text":"hello","sender":{"tabId":5,"url":"https://example.com/a"}}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	rec = env.do(http.MethodGet, "/v1/tabs/5/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(body.Items) == 0 {
		t.Fatal("Expected the pending push to be queued")
	}

	first, err := bridge.Decode(body.Items[0])
	if err != nil {
		t.Fatalf("Decode push failed: %v", err)
	}
	push, ok := first.Message.(bridge.Translate)
	if !ok || push.Result == nil || push.Result.Status != wordpop.StatusPending {
		t.Errorf("Expected a pending translate push, got %+v", first.Message)
	}
}

func TestHandleMessage_Current(t *testing.T) {
	env := newTestEnv(t)
	env.settings.SetCurrentSelection(context.Background(), "picked")

	rec := env.do(http.MethodPost, "/v1/messages", `{"type":"current"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `"picked"` {
		t.Errorf("Expected \"picked\", got %s", got)
	}
}

func TestHandleMessage_NoReplyKinds(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"type":"linkInspect","enabled":true}`,
		`{"type":"pageHiding","cached":true,"sender":{"tabId":1}}`,
		`{"type":"translate","text":"hello","__bridged":true}`,
	} {
		if rec := env.do(http.MethodPost, "/v1/messages", body); rec.Code != http.StatusNoContent {
			t.Errorf("%s: Expected 204, got %d", body, rec.Code)
		}
	}
}

func TestHandleMessage_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown type", `{"type":"explode"}`, "Unknown message type"},
		{"malformed", `{"type":`, "Malformed message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/v1/messages", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("Expected %q in %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandleTabMessages_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(http.MethodGet, "/v1/tabs/abc/messages", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestHandleTabMessages_Empty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/v1/tabs/9/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"items":[]}` {
		t.Errorf("Expected empty items, got %s", got)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
}

func TestStart_NotInitialized(t *testing.T) {
	s := NewServer(nil, nil, zerolog.Nop(), Options{})
	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error for an uninitialized server")
	}
}

func TestNewServer_WriteTimeoutOutlastsWatchdog(t *testing.T) {
	s := NewServer(nil, nil, zerolog.Nop(), Options{
		WriteTimeout:      30 * time.Second,
		TranslateWatchdog: 60 * time.Second,
	})
	if s.opts.WriteTimeout <= 60*time.Second {
		t.Errorf("Expected write timeout past the 60s watchdog, got %v", s.opts.WriteTimeout)
	}

	s = NewServer(nil, nil, zerolog.Nop(), Options{WriteTimeout: 30 * time.Second})
	if s.opts.WriteTimeout != 30*time.Second {
		t.Errorf("Expected 30s to be kept under the default watchdog, got %v", s.opts.WriteTimeout)
	}
}
