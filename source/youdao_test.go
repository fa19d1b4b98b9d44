package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZaguanLabs/wordpop"
)

const youdaoDesktopFixture = `<html><body>
<div id="phrsListTab">
  <div class="baav">
    <span class="pronounce">英 <span class="phonetic">[test]</span></span>
  </div>
  <div class="trans-container">
    <ul>
      <li>n. 试验；检验</li>
      <li>vt. 试验；测试</li>
      <li>VOA 慢速英语</li>
    </ul>
  </div>
</div>
</body></html>`

const youdaoMobileFixture = `<html><body>
<div id="ec">
  <span class="phonetic">/test/</span>
  <div class="trans-container"><ul><li>n. 测试</li></ul></div>
</div>
</body></html>`

func TestYoudao_Desktop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/w/eng/test/" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != wordpop.UserAgent() {
			t.Errorf("Unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(youdaoDesktopFixture))
	}))
	defer server.Close()

	y := NewYoudao(Config{BaseURL: server.URL})
	if y.Source() != wordpop.DictionaryPrimary {
		t.Errorf("Expected dictionaryPrimary, got %v", y.Source())
	}

	out, err := y.Fetch(context.Background(), "test")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if out.Body != "n. 试验；检验\nvt. 试验；测试" {
		t.Errorf("Unexpected body %q", out.Body)
	}
	if out.Phonetic != "[test]" {
		t.Errorf("Unexpected phonetic %q", out.Phonetic)
	}
}

func TestYoudao_Mobile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dict" || r.URL.Query().Get("q") != "test" || r.URL.Query().Get("le") != "eng" {
			t.Errorf("Unexpected request %q", r.URL.String())
		}
		w.Write([]byte(youdaoMobileFixture))
	}))
	defer server.Close()

	y := NewYoudaoMobile(Config{BaseURL: server.URL})
	if y.Source() != wordpop.DictionaryMobile {
		t.Errorf("Expected dictionaryMobile, got %v", y.Source())
	}

	out, err := y.Fetch(context.Background(), "test")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if out.Body != "n. 测试" || out.Phonetic != "/test/" {
		t.Errorf("Unexpected outcome %+v", out)
	}
}

func TestYoudao_PhoneticOptional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div id="ec"><div class="trans-container"><ul><li>n. 测试</li></ul></div></div>`))
	}))
	defer server.Close()

	out, err := NewYoudao(Config{BaseURL: server.URL}).Fetch(context.Background(), "test")
	if err != nil {
		t.Fatalf("Missing phonetic must not fail the fetch: %v", err)
	}
	if out.Phonetic != "" {
		t.Errorf("Expected empty phonetic, got %q", out.Phonetic)
	}
}

func TestYoudao_MarkupDrift(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="redesigned">n. 测试</div></body></html>`))
	}))
	defer server.Close()

	_, err := NewYoudao(Config{BaseURL: server.URL}).Fetch(context.Background(), "test")

	var sourceErr *wordpop.SourceError
	if !errors.As(err, &sourceErr) {
		t.Fatalf("Expected SourceError, got %v", err)
	}
	if !errors.Is(err, wordpop.ErrNoContent) {
		t.Errorf("Expected ErrNoContent, got %v", err)
	}
}

func TestYoudao_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewYoudao(Config{BaseURL: server.URL}).Fetch(context.Background(), "test")

	var sourceErr *wordpop.SourceError
	if !errors.As(err, &sourceErr) {
		t.Fatalf("Expected SourceError, got %v", err)
	}
	if !sourceErr.Retryable {
		t.Error("503 should be retryable")
	}
}

func TestYoudao_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := NewYoudao(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}).Fetch(context.Background(), "test")

	var sourceErr *wordpop.SourceError
	if !errors.As(err, &sourceErr) {
		t.Fatalf("Expected SourceError, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Fetch outlived its deadline")
	}
}
