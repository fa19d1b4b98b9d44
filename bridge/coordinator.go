package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Coordinator receives messages from pages, answers the cheap ones itself
// and forwards translation work to the worker.
type Coordinator struct {
	host       WorkerHost
	settings   *store.Settings
	tabs       Tabs
	classifier *wordpop.Classifier
	clock      clockwork.Clock
	logger     zerolog.Logger

	translateWatchdog time.Duration
	currentWatchdog   time.Duration
	debounce          time.Duration

	mu        sync.Mutex
	lastShown map[string]time.Time // "tab|lowercase(text)" -> last pending push

	wg sync.WaitGroup
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock sets the clock used for watchdogs and debouncing.
func WithClock(clock clockwork.Clock) CoordinatorOption {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithClassifier replaces the default word classifier.
func WithClassifier(cl *wordpop.Classifier) CoordinatorOption {
	return func(c *Coordinator) {
		c.classifier = cl
	}
}

// WithWatchdogs overrides the translate and current watchdog durations.
func WithWatchdogs(translate, current time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if translate > 0 {
			c.translateWatchdog = translate
		}
		if current > 0 {
			c.currentWatchdog = current
		}
	}
}

// WithDebounce overrides the identical-selection debounce window.
func WithDebounce(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(host WorkerHost, settings *store.Settings, tabs Tabs, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		host:              host,
		settings:          settings,
		tabs:              tabs,
		classifier:        wordpop.NewClassifier(wordpop.MaxWordTokens),
		clock:             clockwork.NewRealClock(),
		logger:            zerolog.Nop(),
		translateWatchdog: TranslateWatchdog,
		currentWatchdog:   CurrentWatchdog,
		debounce:          SelectionDebounce,
		lastShown:         make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Handle processes one message. For kinds that expect a reply, reply is
// called exactly once before Handle returns; for the others it is never
// called. Bridged envelopes are ignored.
func (c *Coordinator) Handle(ctx context.Context, sender Sender, env Envelope, reply Reply) {
	if env.Bridged {
		return
	}

	switch m := env.Message.(type) {
	case Selection:
		c.selection(ctx, sender, m)
	case Translate:
		c.deliver(reply, c.translate(ctx, sender, m))
	case Current:
		c.deliver(reply, c.current(ctx))
	case PageHiding:
		if sender.Tab != nil {
			c.forgetTab(sender.Tab.ID)
		}
	case LinkInspect:
		// Nothing to do in this context.
	}
}

// Wait blocks until fire-and-forget forwards have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) deliver(reply Reply, v any) {
	if reply == nil {
		return
	}
	if err := reply(v); err != nil {
		c.logger.Warn().Err(&wordpop.ChannelError{Op: "reply", Message: "channel closed", Cause: err}).
			Msg("dropping reply")
	}
}

func (c *Coordinator) selection(ctx context.Context, sender Sender, m Selection) {
	text := wordpop.StripPairedPunctuation(m.Text)

	if err := c.settings.SetCurrentSelection(ctx, text); err != nil {
		c.logger.Warn().Err(err).Msg("recording selection")
	}

	if text == "" || c.classifier.Classify(text) != wordpop.WordLike {
		return
	}
	if sender.Tab == nil {
		return
	}
	tab := *sender.Tab

	if !c.admit(tab.ID, text) {
		c.logger.Debug().Int("tab", tab.ID).Str("text", text).Msg("selection debounced")
		return
	}

	enabled, err := c.settings.SiteEnabled(ctx, store.HostOf(tab.URL))
	if err != nil {
		c.logger.Warn().Err(err).Msg("reading site rules")
	}
	if !enabled {
		return
	}

	timeout, err := c.settings.NotifyTimeout(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("reading notify timeout")
	}

	pending := wordpop.Result{Status: wordpop.StatusPending, Text: text, Timeout: timeout}
	if err := c.tabs.Send(ctx, tab.ID, Translate{Text: text, Timeout: timeout, Result: &pending}); err != nil {
		c.logger.Warn().Err(err).Int("tab", tab.ID).Msg("pushing pending toast")
	}

	env := Envelope{
		Message:   Selection{Text: text, DisplayText: m.DisplayText, Timeout: timeout},
		Bridged:   true,
		RequestID: uuid.NewString(),
	}

	// The page expects no reply; the worker pushes results to the tab itself.
	fctx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.forward(fctx, sender, env); err != nil {
			c.logger.Warn().Err(err).Str("request_id", env.RequestID).Msg("forwarding selection")
		}
	}()
}

// admit applies the per-tab debounce for identical selections.
func (c *Coordinator) admit(tabID int, text string) bool {
	key := fmt.Sprintf("%d|%s", tabID, strings.ToLower(text))
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.lastShown[key]; ok && now.Sub(last) < c.debounce {
		return false
	}

	// Entries past the window no longer debounce anything.
	for k, last := range c.lastShown {
		if now.Sub(last) >= c.debounce {
			delete(c.lastShown, k)
		}
	}

	c.lastShown[key] = now
	return true
}

// debounced returns how many selections are currently remembered.
func (c *Coordinator) debounced() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lastShown)
}

func (c *Coordinator) forgetTab(tabID int) {
	prefix := fmt.Sprintf("%d|", tabID)

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.lastShown {
		if strings.HasPrefix(key, prefix) {
			delete(c.lastShown, key)
		}
	}
}

type outcome struct {
	value any
	err   error
}

// translate forwards a bridged copy to the worker and races it against the
// watchdog. It always returns a wordpop.Result.
func (c *Coordinator) translate(ctx context.Context, sender Sender, m Translate) wordpop.Result {
	text := m.Text

	stored, err := c.settings.NotifyTimeout(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("reading notify timeout")
	}
	if m.Timeout <= 0 && sender.Tab != nil {
		m.Timeout = stored
	}
	display := m.Timeout
	if display <= 0 {
		display = stored
	}

	env := Envelope{Message: m, Bridged: true, RequestID: uuid.NewString()}
	log := c.logger.With().Str("request_id", env.RequestID).Logger()

	// Stops a forward the watchdog already answered for.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		v, err := c.forward(ctx, sender, env)
		done <- outcome{value: v, err: err}
	}()

	watchdog := c.clock.NewTimer(c.translateWatchdog)
	defer watchdog.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			log.Warn().Err(o.err).Msg("translate forward failed")
			return wordpop.Failure(text, failureMessage(o.err)).WithTimeout(display)
		}
		res, ok := o.value.(wordpop.Result)
		if !ok {
			log.Error().Type("value", o.value).Msg("worker answered with unexpected type")
			return wordpop.Failure(text, wordpop.MsgHandlerFailed).WithTimeout(display)
		}
		return res
	case <-watchdog.Chan():
		log.Warn().Dur("after", c.translateWatchdog).Msg("translate watchdog fired")
		return wordpop.Failure(text, wordpop.MsgTimedOut).WithTimeout(display)
	case <-ctx.Done():
		return wordpop.Failure(text, wordpop.MsgDeliveryFailed).WithTimeout(display)
	}
}

// current reads the last selection with its own watchdog. It answers "" when
// the store is slow or failing.
func (c *Coordinator) current(ctx context.Context) string {
	done := make(chan string, 1)
	go func() {
		text, err := c.settings.CurrentSelection(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("reading current selection")
		}
		done <- text
	}()

	watchdog := c.clock.NewTimer(c.currentWatchdog)
	defer watchdog.Stop()

	select {
	case text := <-done:
		return text
	case <-watchdog.Chan():
		return ""
	case <-ctx.Done():
		return ""
	}
}

// forward makes sure the worker runs and hands it the envelope. Worker panics
// are turned into errors.
func (c *Coordinator) forward(ctx context.Context, sender Sender, env Envelope) (v any, err error) {
	handler, err := c.host.Ensure(ctx)
	if err != nil {
		return nil, &wordpop.ChannelError{Op: "ensure", Message: "worker unavailable", Cause: err}
	}

	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()

	return handler.Serve(ctx, sender, env)
}

func failureMessage(err error) string {
	var chErr *wordpop.ChannelError
	if errors.As(err, &chErr) {
		if chErr.Op == "ensure" {
			return wordpop.MsgWorkerUnavailable
		}
		return wordpop.MsgDeliveryFailed
	}
	return wordpop.MsgHandlerFailed
}
