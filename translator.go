package wordpop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFetchTimeout bounds a single upstream call.
const DefaultFetchTimeout = 3 * time.Second

// DefaultEnabledSources is the source set used when neither the request nor
// the settings name one.
var DefaultEnabledSources = []SourceID{
	DictionaryPrimary,
	DictionaryMobile,
	TranslateMobile,
	TranslateFallback,
}

// Fetcher is the interface for upstream dictionary and translation sources.
type Fetcher interface {
	Source() SourceID
	Fetch(ctx context.Context, text string) (*Outcome, error)
}

// TranslationCache is the interface for outcome caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Settings is the read side of the persisted configuration the translator
// consults on every request.
type Settings interface {
	NotifyTimeout(ctx context.Context) (time.Duration, error)
	EnabledSources(ctx context.Context) ([]SourceID, error)
}

// Translator dispatches a request to its fetchers in priority order.
type Translator struct {
	fetchers     map[SourceID]Fetcher
	settings     Settings
	cache        TranslationCache
	classifier   *Classifier
	fetchTimeout time.Duration
	timeouts     map[SourceID]time.Duration
	targetLang   string
	logger       zerolog.Logger
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithFetcher registers a fetcher under its own SourceID, replacing any
// fetcher previously registered for that source.
func WithFetcher(f Fetcher) TranslatorOption {
	return func(t *Translator) {
		t.fetchers[f.Source()] = f
	}
}

// WithSettings sets the configuration reader.
func WithSettings(s Settings) TranslatorOption {
	return func(t *Translator) {
		t.settings = s
	}
}

// WithCache sets the outcome cache.
func WithCache(cache TranslationCache) TranslatorOption {
	return func(t *Translator) {
		t.cache = cache
	}
}

// WithClassifier replaces the default MaxWordTokens classifier.
func WithClassifier(c *Classifier) TranslatorOption {
	return func(t *Translator) {
		t.classifier = c
	}
}

// WithFetchTimeout sets the per-source deadline.
func WithFetchTimeout(d time.Duration) TranslatorOption {
	return func(t *Translator) {
		if d > 0 {
			t.fetchTimeout = d
		}
	}
}

// WithSourceTimeout overrides the per-fetch deadline for one source, for
// engines that are slower than a page scrape.
func WithSourceTimeout(id SourceID, d time.Duration) TranslatorOption {
	return func(t *Translator) {
		if d > 0 {
			t.timeouts[id] = d
		}
	}
}

// WithTargetLang records the target language the translation engines were
// configured with, so their cached outcomes are keyed per language.
func WithTargetLang(lang string) TranslatorOption {
	return func(t *Translator) {
		t.targetLang = NormalizeLocale(lang)
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) TranslatorOption {
	return func(t *Translator) {
		t.logger = logger
	}
}

// NewTranslator creates a new Translator.
func NewTranslator(opts ...TranslatorOption) *Translator {
	t := &Translator{
		fetchers:     make(map[SourceID]Fetcher),
		timeouts:     make(map[SourceID]time.Duration),
		classifier:   defaultClassifier,
		fetchTimeout: DefaultFetchTimeout,
		logger:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Translate resolves req into exactly one Result. It never panics and never
// returns an error: every failure is a Failure result with a short message.
func (t *Translator) Translate(ctx context.Context, req Request) Result {
	text := StripPairedPunctuation(StripInvisible(req.Text))

	var res Result
	if text == "" {
		res = Failure(text, MsgNotFound)
	} else {
		res = t.dispatch(ctx, req, text)
	}

	return res.WithTimeout(t.displayTimeout(ctx, req))
}

func (t *Translator) dispatch(ctx context.Context, req Request, text string) Result {
	pinned := req.EnabledSources != nil
	enabled := t.enabledSources(ctx, req.EnabledSources)
	kind := t.classifier.Classify(text)

	log := t.logger.With().
		Str("request_id", req.RequestID).
		Stringer("kind", kind).
		Logger()

	var res Result
	switch kind {
	case WordLike:
		candidates := filterSources(enabled, SourceID.WordCapable)
		if len(candidates) == 0 {
			return Failure(text, MsgSelectSource)
		}
		res = t.firstSuccess(ctx, log, text, candidates)
	default:
		if !containsSource(enabled, TranslateMobile) && !containsSource(enabled, TranslateFallback) {
			return Failure(text, MsgSentenceDisabled)
		}
		var chain []SourceID
		if containsSource(enabled, TranslateMobile) {
			chain = append(chain, TranslateMobile)
		}
		chain = append(chain, TranslateFallback)
		res = t.firstSuccess(ctx, log, text, chain)
	}

	if !res.OK() || res.Source == nil {
		return res
	}

	// The configuration may have changed while fetching.
	if !pinned {
		enabled = t.enabledSources(ctx, nil)
	}
	if !containsSource(enabled, *res.Source) {
		log.Warn().Stringer("source", *res.Source).Msg("result from disabled source dropped")
		return Failure(text, MsgSourceDisabled)
	}

	return res
}

// firstSuccess tries sources strictly in order and stops at the first success.
func (t *Translator) firstSuccess(ctx context.Context, log zerolog.Logger, text string, sources []SourceID) Result {
	for _, id := range sources {
		if ctx.Err() != nil {
			break
		}

		out, err := t.lookup(ctx, id, text)
		if err != nil {
			log.Debug().Err(err).Stringer("source", id).Msg("source unavailable")
			continue
		}

		source := id
		return Result{
			Status:      StatusSuccess,
			Text:        text,
			Translation: out.Body,
			Phonetic:    out.Phonetic,
			Source:      &source,
		}
	}

	return Failure(text, MsgNotFound)
}

// Lookup queries a single source directly, through the cache.
func (t *Translator) Lookup(ctx context.Context, id SourceID, text string) (*Outcome, error) {
	return t.lookup(ctx, id, StripPairedPunctuation(StripInvisible(text)))
}

func (t *Translator) lookup(ctx context.Context, id SourceID, text string) (*Outcome, error) {
	f, ok := t.fetchers[id]
	if !ok {
		return nil, &SourceError{Source: id, Message: "no fetcher registered"}
	}

	key := t.cacheKey(id, text)
	if t.cache != nil {
		if raw, ok := t.cache.Get(key); ok {
			var cached Outcome
			if err := json.Unmarshal([]byte(raw), &cached); err == nil && cached.Body != "" {
				return &cached, nil
			}
		}
	}

	out, err := t.safeFetch(ctx, f, text)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Body == "" {
		return nil, &SourceError{Source: id, Message: "empty outcome", Cause: ErrNoContent}
	}

	if t.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := t.cache.Set(key, string(raw)); err != nil {
				t.logger.Debug().Err(err).Stringer("source", id).Msg("cache set failed")
			}
		}
	}

	return out, nil
}

func (t *Translator) fetchTimeoutFor(id SourceID) time.Duration {
	if d, ok := t.timeouts[id]; ok {
		return d
	}
	return t.fetchTimeout
}

// cacheKey keys sentence engine outcomes by target language; dictionary
// pages are the same for every target.
func (t *Translator) cacheKey(id SourceID, text string) string {
	hash := HashText(text)
	if t.targetLang != "" && id.PassageCapable() {
		return CacheKeyExtended(id, hash, t.targetLang)
	}
	return CacheKey(id, hash)
}

// safeFetch runs one fetch under its own deadline and turns panics into errors.
func (t *Translator) safeFetch(ctx context.Context, f Fetcher, text string) (out *Outcome, err error) {
	ctx, cancel := context.WithTimeout(ctx, t.fetchTimeoutFor(f.Source()))
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &SourceError{Source: f.Source(), Message: fmt.Sprintf("fetcher panic: %v", r)}
		}
	}()

	return f.Fetch(ctx, text)
}

func (t *Translator) enabledSources(ctx context.Context, requested []SourceID) []SourceID {
	sources := requested
	if sources == nil {
		sources = DefaultEnabledSources
		if t.settings != nil {
			configured, err := t.settings.EnabledSources(ctx)
			if err != nil {
				t.logger.Warn().Err(err).Msg("reading enabled sources")
			} else {
				sources = configured
			}
		}
	}
	return withFallbackFamily(sources)
}

func (t *Translator) displayTimeout(ctx context.Context, req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if t.settings != nil {
		d, err := t.settings.NotifyTimeout(ctx)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// Sources returns the registered sources in default priority order.
func (t *Translator) Sources() []SourceID {
	var ids []SourceID
	for _, id := range AllSources {
		if _, ok := t.fetchers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// withFallbackFamily adds TranslateFallback right after TranslateMobile: the
// fallback engine belongs to the sentence translation family.
func withFallbackFamily(sources []SourceID) []SourceID {
	if !containsSource(sources, TranslateMobile) || containsSource(sources, TranslateFallback) {
		return sources
	}
	out := make([]SourceID, 0, len(sources)+1)
	for _, id := range sources {
		out = append(out, id)
		if id == TranslateMobile {
			out = append(out, TranslateFallback)
		}
	}
	return out
}

func filterSources(sources []SourceID, keep func(SourceID) bool) []SourceID {
	var out []SourceID
	for _, id := range sources {
		if keep(id) && !containsSource(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func containsSource(sources []SourceID, id SourceID) bool {
	for _, s := range sources {
		if s == id {
			return true
		}
	}
	return false
}
