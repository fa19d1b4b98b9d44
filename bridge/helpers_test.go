package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/store"
)

type push struct {
	tabID int
	msg   Translate
}

type recordTabs struct {
	pushes chan push
	err    error
}

func newRecordTabs() *recordTabs {
	return &recordTabs{pushes: make(chan push, 100)}
}

func (r *recordTabs) Send(ctx context.Context, tabID int, msg Translate) error {
	r.pushes <- push{tabID: tabID, msg: msg}
	return r.err
}

func (r *recordTabs) next(t *testing.T) push {
	t.Helper()
	select {
	case p := <-r.pushes:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a push")
		return push{}
	}
}

func (r *recordTabs) none(t *testing.T) {
	t.Helper()
	select {
	case p := <-r.pushes:
		t.Fatalf("unexpected push %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

type translatorFunc func(ctx context.Context, req wordpop.Request) wordpop.Result

func (f translatorFunc) Translate(ctx context.Context, req wordpop.Request) wordpop.Result {
	return f(ctx, req)
}

func echoTranslator() translatorFunc {
	return func(ctx context.Context, req wordpop.Request) wordpop.Result {
		src := wordpop.DictionaryPrimary
		timeout := req.Timeout
		if timeout <= 0 {
			timeout = wordpop.DefaultTimeout
		}
		return wordpop.Result{
			Status:      wordpop.StatusSuccess,
			Text:        req.Text,
			Translation: "n. " + req.Text,
			Source:      &src,
			Timeout:     timeout,
		}
	}
}

// replies collects every value passed to a Reply.
type replies struct {
	mu     sync.Mutex
	values []any
	err    error
}

func (r *replies) reply(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
	return r.err
}

func (r *replies) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func (r *replies) result(t *testing.T) wordpop.Result {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) != 1 {
		t.Fatalf("Expected exactly one reply, got %d", len(r.values))
	}
	res, ok := r.values[0].(wordpop.Result)
	if !ok {
		t.Fatalf("Expected wordpop.Result, got %T", r.values[0])
	}
	return res
}

func newSettings() *store.Settings {
	return store.NewSettings(store.NewMemoryStore())
}
