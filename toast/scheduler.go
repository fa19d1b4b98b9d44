package toast

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/bridge"
	"github.com/ZaguanLabs/wordpop/store"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// maxPending bounds the records waiting for a toast; the oldest are dropped.
const maxPending = 32

type pendingRecord struct {
	text    string // normalized
	timeout time.Duration
}

type bound struct {
	Binding
	timer clockwork.Timer
}

// Scheduler owns the toast bindings of one page.
type Scheduler struct {
	surface  Surface
	settings *store.Settings
	clock    clockwork.Clock
	logger   zerolog.Logger

	fade        time.Duration
	closeWindow time.Duration

	mu       sync.Mutex
	pending  []pendingRecord
	bindings map[Handle]*bound
	closed   map[string]time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for removal timers.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithFade overrides FadeDuration.
func WithFade(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.fade = d
		}
	}
}

// NewScheduler creates a Scheduler. settings may be nil, in which case the
// fallback timeout is wordpop.DefaultTimeout.
func NewScheduler(surface Surface, settings *store.Settings, opts ...Option) *Scheduler {
	s := &Scheduler{
		surface:     surface,
		settings:    settings,
		clock:       clockwork.NewRealClock(),
		logger:      zerolog.Nop(),
		fade:        FadeDuration,
		closeWindow: RecentlyClosedWindow,
		bindings:    make(map[Handle]*bound),
		closed:      make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OnMessage handles a translate push for this page. It reports whether the
// push should be rendered.
func (s *Scheduler) OnMessage(ctx context.Context, msg bridge.Translate) bool {
	text := wordpop.NormalizeKey(msg.Text)

	if msg.Hide {
		s.hideLatest(text)
		return false
	}

	if s.recentlyClosed(text) {
		s.logger.Debug().Str("text", text).Msg("suppressing recently closed toast")
		return false
	}

	timeout := msg.Timeout
	if timeout <= 0 && msg.Result != nil {
		timeout = msg.Result.Timeout
	}
	if timeout <= 0 {
		timeout = s.defaultTimeout(ctx)
	}

	final := msg.Result != nil && msg.Result.Status != wordpop.StatusPending

	s.mu.Lock()
	// A final result for a toast that is already bound only updates its status.
	if !final || !s.boundLocked(text) {
		s.pending = append(s.pending, pendingRecord{text: text, timeout: timeout})
		if len(s.pending) > maxPending {
			s.pending = s.pending[len(s.pending)-maxPending:]
		}
	}
	s.mu.Unlock()

	// The toast may already be on the page.
	if toasts := s.surface.Toasts(); len(toasts) > 0 {
		newest := toasts[len(toasts)-1]
		s.bind(ctx, newest.Handle, newest.Text)
	}

	if final {
		s.settle(text, msg.Result.Status)
	}

	return true
}

// OnInserted handles a toast element appearing on the page.
func (s *Scheduler) OnInserted(ctx context.Context, h Handle, text string) {
	if s.recentlyClosed(wordpop.NormalizeKey(text)) {
		s.surface.Hide(h)
		s.surface.Remove(h)
		return
	}
	s.bind(ctx, h, text)
}

// OnCloseClicked records an explicit close of h. The page's own close
// behavior is left alone.
func (s *Scheduler) OnCloseClicked(h Handle) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	text := ""
	if b, ok := s.bindings[h]; ok {
		text = b.MatchedText
		b.timer.Stop()
		delete(s.bindings, h)
	} else {
		for _, t := range s.surface.Toasts() {
			if t.Handle == h {
				text = wordpop.NormalizeKey(t.Text)
				break
			}
		}
	}

	if text != "" {
		s.closed[text] = now
	}
}

// OnStatus records the status shown by h. A toast moving from pending to a
// final status replays its enter transition. The removal deadline is
// unchanged.
func (s *Scheduler) OnStatus(h Handle, status wordpop.Status) {
	s.mu.Lock()
	b, ok := s.bindings[h]
	if !ok {
		s.mu.Unlock()
		return
	}
	reveal := b.Status == wordpop.StatusPending && status != wordpop.StatusPending
	b.Status = status
	s.mu.Unlock()

	if reveal {
		s.surface.FadeIn(h)
	}
}

// Binding returns the schedule attached to h.
func (s *Scheduler) Binding(h Handle) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bindings[h]
	if !ok {
		return Binding{}, false
	}
	return b.Binding, true
}

// Pending returns the number of queued records not yet bound to a toast.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops every removal timer.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, b := range s.bindings {
		b.timer.Stop()
		delete(s.bindings, h)
	}
}

func (s *Scheduler) bind(ctx context.Context, h Handle, text string) {
	key := wordpop.NormalizeKey(text)

	s.mu.Lock()
	if _, ok := s.bindings[h]; ok {
		s.mu.Unlock()
		return
	}
	timeout, matched := s.takePending(key)
	s.mu.Unlock()

	if !matched {
		timeout = s.defaultTimeout(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Bound while the store was read.
	if _, ok := s.bindings[h]; ok {
		return
	}

	now := s.clock.Now()
	b := &bound{Binding: Binding{
		Handle:       h,
		MatchedText:  key,
		Timeout:      timeout,
		FirstShownAt: now,
		RemoveAt:     now.Add(timeout),
		Status:       wordpop.StatusPending,
	}}
	b.timer = s.clock.AfterFunc(timeout, func() { s.expire(h) })
	s.bindings[h] = b

	s.logger.Debug().Str("toast", string(h)).Dur("timeout", timeout).Bool("matched", matched).Msg("toast bound")
}

// boundLocked reports whether a bound toast matches text. Callers hold s.mu.
func (s *Scheduler) boundLocked(text string) bool {
	for _, b := range s.bindings {
		if matches(b.MatchedText, text) {
			return true
		}
	}
	return false
}

// takePending removes and returns the newest pending record matching key.
// Callers hold s.mu.
func (s *Scheduler) takePending(key string) (time.Duration, bool) {
	for i := len(s.pending) - 1; i >= 0; i-- {
		p := s.pending[i]
		if p.text == "" || matches(key, p.text) {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return p.timeout, true
		}
	}
	return 0, false
}

// settle marks the newest bound toast matching text with a final status.
func (s *Scheduler) settle(text string, status wordpop.Status) {
	var target Handle
	toasts := s.surface.Toasts()
	for i := len(toasts) - 1; i >= 0; i-- {
		if text == "" || matches(wordpop.NormalizeKey(toasts[i].Text), text) {
			target = toasts[i].Handle
			break
		}
	}
	if target != "" {
		s.OnStatus(target, status)
	}
}

func (s *Scheduler) expire(h Handle) {
	s.mu.Lock()
	delete(s.bindings, h)
	s.mu.Unlock()

	// The page may have removed it already.
	if !s.surface.Contains(h) {
		return
	}
	s.fadeOutAndRemove(h)
}

// hideLatest fades out the newest toast whose text contains text.
func (s *Scheduler) hideLatest(text string) {
	toasts := s.surface.Toasts()
	for i := len(toasts) - 1; i >= 0; i-- {
		t := toasts[i]
		if text != "" && !strings.Contains(wordpop.NormalizeKey(t.Text), text) {
			continue
		}

		s.mu.Lock()
		if b, ok := s.bindings[t.Handle]; ok {
			b.timer.Stop()
			delete(s.bindings, t.Handle)
		}
		s.mu.Unlock()

		s.fadeOutAndRemove(t.Handle)
		return
	}
}

func (s *Scheduler) fadeOutAndRemove(h Handle) {
	s.clock.AfterFunc(s.fade, func() {
		s.surface.Remove(h)
	})
	s.surface.FadeOut(h)
}

// recentlyClosed reports whether text matches a toast closed within the
// window. Expired entries are dropped.
func (s *Scheduler) recentlyClosed(text string) bool {
	if text == "" {
		return false
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	hit := false
	for closedText, at := range s.closed {
		if now.Sub(at) >= s.closeWindow {
			delete(s.closed, closedText)
			continue
		}
		if matches(text, closedText) {
			hit = true
		}
	}
	return hit
}

func (s *Scheduler) defaultTimeout(ctx context.Context) time.Duration {
	if s.settings == nil {
		return wordpop.DefaultTimeout
	}
	timeout, err := s.settings.NotifyTimeout(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reading notify timeout")
	}
	if timeout <= 0 {
		return wordpop.DefaultTimeout
	}
	return timeout
}

// matches reports whether either normalized text contains the other.
func matches(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
