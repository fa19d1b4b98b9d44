package toast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/bridge"
	"github.com/ZaguanLabs/wordpop/store"
	"github.com/jonboulle/clockwork"
)

type event struct {
	op string
	h  Handle
}

type fakeSurface struct {
	mu     sync.Mutex
	toasts []Toast
	events chan event
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{events: make(chan event, 100)}
}

func (f *fakeSurface) add(h Handle, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, Toast{Handle: h, Text: text})
}

// detach removes a toast without recording an event, like the page's own
// close button does.
func (f *fakeSurface) detach(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.toasts {
		if t.Handle == h {
			f.toasts = append(f.toasts[:i], f.toasts[i+1:]...)
			return
		}
	}
}

func (f *fakeSurface) Toasts() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Toast(nil), f.toasts...)
}

func (f *fakeSurface) Contains(h Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.toasts {
		if t.Handle == h {
			return true
		}
	}
	return false
}

func (f *fakeSurface) FadeOut(h Handle) { f.events <- event{"fadeOut", h} }
func (f *fakeSurface) FadeIn(h Handle)  { f.events <- event{"fadeIn", h} }
func (f *fakeSurface) Hide(h Handle)    { f.events <- event{"hide", h} }

func (f *fakeSurface) Remove(h Handle) {
	f.detach(h)
	f.events <- event{"remove", h}
}

func (f *fakeSurface) next(t *testing.T) event {
	t.Helper()
	select {
	case e := <-f.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a surface event")
		return event{}
	}
}

func (f *fakeSurface) none(t *testing.T) {
	t.Helper()
	select {
	case e := <-f.events:
		t.Fatalf("unexpected surface event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func expect(t *testing.T, got event, op string, h Handle) {
	t.Helper()
	if got.op != op || got.h != h {
		t.Errorf("Expected %s(%s), got %s(%s)", op, h, got.op, got.h)
	}
}

func TestScheduler_RemovalAnchoredToFirstShown(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	surface := newFakeSurface()
	s := NewScheduler(surface, nil, WithClock(clock))
	defer s.Close()

	start := clock.Now()
	pending := wordpop.Result{Status: wordpop.StatusPending, Text: "word", Timeout: 3 * time.Second}
	if !s.OnMessage(ctx, bridge.Translate{Text: "word", Timeout: 3 * time.Second, Result: &pending}) {
		t.Fatal("Expected pending push to render")
	}

	surface.add("t1", "word")
	s.OnInserted(ctx, "t1", "word")

	b, ok := s.Binding("t1")
	if !ok {
		t.Fatal("Expected t1 to be bound")
	}
	if b.Timeout != 3*time.Second || !b.RemoveAt.Equal(start.Add(3*time.Second)) {
		t.Errorf("Unexpected binding %+v", b)
	}

	// The final result lands two seconds later.
	clock.Advance(2 * time.Second)
	final := wordpop.Result{Status: wordpop.StatusSuccess, Text: "word", Translation: "n. 单词", Timeout: 3 * time.Second}
	s.OnMessage(ctx, bridge.Translate{Text: "word", Timeout: 3 * time.Second, Result: &final})
	expect(t, surface.next(t), "fadeIn", "t1")

	if b2, _ := s.Binding("t1"); !b2.RemoveAt.Equal(b.RemoveAt) {
		t.Errorf("Removal deadline moved from %v to %v", b.RemoveAt, b2.RemoveAt)
	}

	clock.Advance(999 * time.Millisecond)
	surface.none(t)

	clock.Advance(time.Millisecond)
	expect(t, surface.next(t), "fadeOut", "t1")

	clock.Advance(FadeDuration)
	expect(t, surface.next(t), "remove", "t1")

	if _, ok := s.Binding("t1"); ok {
		t.Error("Binding should be gone after removal")
	}
}

func TestScheduler_RecentlyClosedSuppression(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	surface := newFakeSurface()
	s := NewScheduler(surface, nil, WithClock(clock))
	defer s.Close()

	surface.add("t1", "Word")
	s.OnInserted(ctx, "t1", "Word")

	s.OnCloseClicked("t1")
	surface.detach("t1")

	if s.OnMessage(ctx, bridge.Translate{Text: "word"}) {
		t.Error("A recently closed text must not render again")
	}

	// A duplicate toast appearing inside the window is dropped at once.
	surface.add("t2", "word  n. 单词")
	s.OnInserted(ctx, "t2", "word  n. 单词")
	expect(t, surface.next(t), "hide", "t2")
	expect(t, surface.next(t), "remove", "t2")
	if _, ok := s.Binding("t2"); ok {
		t.Error("Suppressed toast must not be bound")
	}

	clock.Advance(RecentlyClosedWindow)
	if !s.OnMessage(ctx, bridge.Translate{Text: "word"}) {
		t.Error("Suppression should end after the window")
	}

	// The close cancelled the removal timer of t1.
	clock.Advance(time.Minute)
	surface.none(t)
}

func TestScheduler_UnmatchedUsesStoredTimeout(t *testing.T) {
	ctx := context.Background()
	settings := store.NewSettings(store.NewMemoryStore())
	settings.SetNotifyTimeout(ctx, 4*time.Second)

	s := NewScheduler(newFakeSurface(), settings, WithClock(clockwork.NewFakeClock()))
	defer s.Close()

	s.OnInserted(ctx, "t1", "unrelated")

	b, ok := s.Binding("t1")
	if !ok || b.Timeout != 4*time.Second {
		t.Errorf("Expected stored timeout 4s, got %+v", b)
	}
}

func TestScheduler_NoStoreFallsBackToDefault(t *testing.T) {
	s := NewScheduler(newFakeSurface(), nil, WithClock(clockwork.NewFakeClock()))
	defer s.Close()

	s.OnInserted(context.Background(), "t1", "anything")

	if b, _ := s.Binding("t1"); b.Timeout != wordpop.DefaultTimeout {
		t.Errorf("Expected %v, got %v", wordpop.DefaultTimeout, b.Timeout)
	}
}

func TestScheduler_PrefersNewestMatchingRecord(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler(newFakeSurface(), nil, WithClock(clockwork.NewFakeClock()))
	defer s.Close()

	s.OnMessage(ctx, bridge.Translate{Text: "alpha", Timeout: 2 * time.Second})
	s.OnMessage(ctx, bridge.Translate{Text: "beta", Timeout: 3 * time.Second})
	s.OnMessage(ctx, bridge.Translate{Text: "Alpha", Timeout: 5 * time.Second})

	s.OnInserted(ctx, "a", "alpha  n. first letter")
	if b, _ := s.Binding("a"); b.Timeout != 5*time.Second {
		t.Errorf("Expected newest alpha record (5s), got %v", b.Timeout)
	}

	s.OnInserted(ctx, "b", "beta")
	if b, _ := s.Binding("b"); b.Timeout != 3*time.Second {
		t.Errorf("Expected beta record (3s), got %v", b.Timeout)
	}

	if s.Pending() != 1 {
		t.Errorf("Expected the older alpha record to remain, got %d", s.Pending())
	}
}

func TestScheduler_TimeoutFromResult(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler(newFakeSurface(), nil, WithClock(clockwork.NewFakeClock()))
	defer s.Close()

	res := wordpop.Result{Status: wordpop.StatusPending, Timeout: 7 * time.Second}
	s.OnMessage(ctx, bridge.Translate{Text: "word", Result: &res})
	s.OnInserted(ctx, "t1", "word")

	if b, _ := s.Binding("t1"); b.Timeout != 7*time.Second {
		t.Errorf("Expected 7s from the result, got %v", b.Timeout)
	}
}

func TestScheduler_RebindIsNoop(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := NewScheduler(newFakeSurface(), nil, WithClock(clock))
	defer s.Close()

	s.OnInserted(ctx, "t1", "word")
	first, _ := s.Binding("t1")

	clock.Advance(time.Second)
	s.OnMessage(ctx, bridge.Translate{Text: "word", Timeout: 30 * time.Second})
	s.OnInserted(ctx, "t1", "word")

	again, _ := s.Binding("t1")
	if !again.FirstShownAt.Equal(first.FirstShownAt) || again.Timeout != first.Timeout {
		t.Errorf("Rebinding changed the schedule: %+v -> %+v", first, again)
	}
}

func TestScheduler_HideFadesLatestMatch(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	surface := newFakeSurface()
	s := NewScheduler(surface, nil, WithClock(clock))
	defer s.Close()

	surface.add("t1", "word")
	surface.add("t2", "other")
	surface.add("t3", "word again")
	s.OnInserted(ctx, "t3", "word again")

	if s.OnMessage(ctx, bridge.Translate{Text: "word", Hide: true}) {
		t.Error("Hide pushes never render")
	}
	expect(t, surface.next(t), "fadeOut", "t3")

	clock.Advance(FadeDuration)
	expect(t, surface.next(t), "remove", "t3")

	if _, ok := s.Binding("t3"); ok {
		t.Error("Hidden toast should lose its binding")
	}

	// The cancelled removal timer never fires.
	clock.Advance(wordpop.DefaultTimeout)
	surface.none(t)
}

func TestScheduler_ExpiredAlreadyRemoved(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	surface := newFakeSurface()
	s := NewScheduler(surface, nil, WithClock(clock))
	defer s.Close()

	surface.add("t1", "word")
	s.OnInserted(ctx, "t1", "word")
	surface.detach("t1")

	clock.Advance(wordpop.DefaultTimeout)
	surface.none(t)
}

func TestScheduler_FinalResultForBoundToastQueuesNothing(t *testing.T) {
	ctx := context.Background()
	surface := newFakeSurface()
	s := NewScheduler(surface, nil, WithClock(clockwork.NewFakeClock()))
	defer s.Close()

	pending := wordpop.Result{Status: wordpop.StatusPending, Text: "word"}
	s.OnMessage(ctx, bridge.Translate{Text: "word", Timeout: 3 * time.Second, Result: &pending})
	surface.add("t1", "word")
	s.OnInserted(ctx, "t1", "word")
	if s.Pending() != 0 {
		t.Fatalf("Expected the record to be consumed by t1, got %d", s.Pending())
	}

	final := wordpop.Result{Status: wordpop.StatusSuccess, Text: "word", Translation: "n. 单词"}
	for i := 0; i < maxPending+8; i++ {
		s.OnMessage(ctx, bridge.Translate{Text: "word", Timeout: 3 * time.Second, Result: &final})
	}
	expect(t, surface.next(t), "fadeIn", "t1")

	if s.Pending() != 0 {
		t.Errorf("Expected no records for an already bound toast, got %d", s.Pending())
	}

	// A later, unrelated toast must not inherit the old timeout.
	surface.add("t2", "password")
	s.OnInserted(ctx, "t2", "password")
	if b, _ := s.Binding("t2"); b.Timeout != wordpop.DefaultTimeout {
		t.Errorf("Expected %v, got %v", wordpop.DefaultTimeout, b.Timeout)
	}
}
