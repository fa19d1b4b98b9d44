package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/store"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Translator is the part of *wordpop.Translator the worker needs.
type Translator interface {
	Translate(ctx context.Context, req wordpop.Request) wordpop.Result
}

// Worker is the fetch-capable context. It answers bridged translate and
// current requests, and drives the toast of a bridged selection: a hide push
// at the display deadline and the final result as soon as it is known.
type Worker struct {
	translator Translator
	settings   *store.Settings
	tabs       Tabs
	classifier *wordpop.Classifier
	clock      clockwork.Clock
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	timers map[clockwork.Timer]struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerClock sets the clock used for hide timers.
func WithWorkerClock(clock clockwork.Clock) WorkerOption {
	return func(w *Worker) {
		w.clock = clock
	}
}

// WithWorkerClassifier sets the classifier deciding which bridged selections
// get a toast. It should match the coordinator's.
func WithWorkerClassifier(cl *wordpop.Classifier) WorkerOption {
	return func(w *Worker) {
		w.classifier = cl
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(logger zerolog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a Worker.
func NewWorker(translator Translator, settings *store.Settings, tabs Tabs, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		translator: translator,
		settings:   settings,
		tabs:       tabs,
		classifier: wordpop.NewClassifier(wordpop.MaxWordTokens),
		clock:      clockwork.NewRealClock(),
		logger:     zerolog.Nop(),
		ctx:        ctx,
		cancel:     cancel,
		timers:     make(map[clockwork.Timer]struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Serve implements Handler.
func (w *Worker) Serve(ctx context.Context, sender Sender, env Envelope) (any, error) {
	switch m := env.Message.(type) {
	case Translate:
		return w.translator.Translate(ctx, wordpop.Request{
			Text:           m.Text,
			IsWordHint:     w.classifier.Classify(m.Text) == wordpop.WordLike,
			EnabledSources: m.Sources,
			Timeout:        m.Timeout,
			RequestID:      env.RequestID,
		}), nil
	case Current:
		return w.settings.CurrentSelection(ctx)
	case Selection:
		w.selection(ctx, sender, env.RequestID, m)
		return nil, nil
	default:
		return nil, nil
	}
}

func (w *Worker) selection(ctx context.Context, sender Sender, requestID string, m Selection) {
	shown := m.DisplayText
	if shown == "" {
		shown = m.Text
	}
	visible := wordpop.StripInvisible(shown)

	if err := w.settings.SetCurrentSelection(ctx, visible); err != nil {
		w.logger.Warn().Err(err).Msg("recording selection")
	}

	if w.classifier.Classify(visible) != wordpop.WordLike || sender.Tab == nil {
		return
	}
	tabID := sender.Tab.ID

	timeout := m.Timeout
	if timeout <= 0 {
		stored, err := w.settings.NotifyTimeout(ctx)
		if err != nil {
			w.logger.Warn().Err(err).Msg("reading notify timeout")
		}
		timeout = stored
	}

	start := w.clock.Now()
	log := w.logger.With().Str("request_id", requestID).Int("tab", tabID).Logger()

	// Anchor the hide to the moment the toast was first shown.
	w.schedule(timeout, func() {
		if err := w.tabs.Send(w.ctx, tabID, Translate{Text: visible, Hide: true}); err != nil {
			log.Warn().Err(err).Msg("pushing hide")
		}
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		res := w.translator.Translate(w.ctx, wordpop.Request{
			Text:       visible,
			IsWordHint: true,
			Timeout:    timeout,
			RequestID:  requestID,
		})
		if res.Timeout <= 0 {
			res.Timeout = timeout
		}

		// A result that lands after the toast expired must not bring it back.
		late := w.clock.Since(start) >= res.Timeout-HideSlack
		msg := Translate{Text: visible, Timeout: res.Timeout, Result: &res, Hide: late}
		if err := w.tabs.Send(w.ctx, tabID, msg); err != nil {
			log.Warn().Err(err).Msg("pushing result")
		}
	}()
}

func (w *Worker) schedule(d time.Duration, fn func()) {
	registered := make(chan struct{})

	var t clockwork.Timer
	t = w.clock.AfterFunc(d, func() {
		<-registered
		w.mu.Lock()
		delete(w.timers, t)
		w.mu.Unlock()
		fn()
	})

	w.mu.Lock()
	w.timers[t] = struct{}{}
	w.mu.Unlock()
	close(registered)
}

// Close stops pending hide timers and waits for in-flight translations.
func (w *Worker) Close() {
	w.mu.Lock()
	for t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[clockwork.Timer]struct{})
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

var _ Handler = (*Worker)(nil)
