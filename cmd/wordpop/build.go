package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/cache"
	"github.com/ZaguanLabs/wordpop/internal/config"
	"github.com/ZaguanLabs/wordpop/source"
	"github.com/ZaguanLabs/wordpop/store"
)

// app holds the components shared by every command.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	settings   *store.Settings
	translator *wordpop.Translator
	closers    []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, mock bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	st, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.settings = store.NewSettings(st)
	if err := a.settings.EnsureDefaults(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("writing default settings: %w", err)
	}

	opts := []wordpop.TranslatorOption{
		wordpop.WithSettings(a.settings),
		wordpop.WithClassifier(wordpop.NewClassifier(cfg.Sources.MaxWordTokens)),
		wordpop.WithFetchTimeout(cfg.Sources.FetchTimeout),
		wordpop.WithTargetLang(cfg.Sources.TargetLang),
		wordpop.WithLogger(logger),
	}
	if cfg.Sources.FallbackEngine == config.EngineOpenAI && !mock {
		opts = append(opts, wordpop.WithSourceTimeout(wordpop.TranslateFallback, cfg.OpenAI.Timeout))
	}
	for _, f := range a.fetchers(mock) {
		opts = append(opts, wordpop.WithFetcher(f))
	}

	c, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c != nil {
		opts = append(opts, wordpop.WithCache(c))
	}

	a.translator = wordpop.NewTranslator(opts...)
	return a, nil
}

// Close releases connections opened by newApp.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func (a *app) fetchers(mock bool) []wordpop.Fetcher {
	if mock {
		fetchers := make([]wordpop.Fetcher, 0, len(wordpop.AllSources))
		for _, id := range wordpop.AllSources {
			fetchers = append(fetchers, source.NewMock(id))
		}
		return fetchers
	}

	src := source.Config{
		Timeout:    a.cfg.Sources.FetchTimeout,
		TargetLang: a.cfg.Sources.TargetLang,
		Logger:     &a.logger,
	}

	var fallback wordpop.Fetcher = source.NewGoogle(src)
	if a.cfg.Sources.FallbackEngine == config.EngineOpenAI {
		fallback = source.NewOpenAI(source.OpenAIConfig{
			APIKey:      a.cfg.OpenAI.APIKey,
			Model:       a.cfg.OpenAI.Model,
			Temperature: a.cfg.OpenAI.Temperature,
			BaseURL:     a.cfg.OpenAI.BaseURL,
			TargetLang:  a.cfg.Sources.TargetLang,
			Timeout:     a.cfg.OpenAI.Timeout,
			MaxRetries:  a.cfg.OpenAI.MaxRetries,
		})
	}

	fetchers := []wordpop.Fetcher{
		source.NewYoudao(src),
		source.NewYoudaoMobile(src),
		source.NewYoudaoTranslate(src),
		source.NewBing(src),
		fallback,
	}

	if rpm := a.cfg.Sources.RequestsPerMinute; rpm > 0 {
		for i, f := range fetchers {
			fetchers[i] = wordpop.NewRateLimitedFetcher(f, wordpop.RateLimitConfig{RequestsPerMinute: rpm})
		}
	}
	return fetchers
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	if a.cfg.Store.RedisURL == "" {
		return store.NewMemoryStore(), nil
	}

	opts, err := redis.ParseURL(a.cfg.Store.RedisURL)
	if err != nil {
		return nil, &wordpop.ConfigError{Message: "invalid store.redis_url", Cause: err}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting settings store: %w", err)
	}

	a.closers = append(a.closers, client.Close)
	return store.NewRedisStore(client, a.cfg.Store.Prefix), nil
}

func (a *app) openCache(ctx context.Context) (wordpop.TranslationCache, error) {
	ttl := int(a.cfg.Cache.TTL.Seconds())

	if a.cfg.Cache.RedisURL != "" {
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:    a.cfg.Cache.RedisURL,
			TTL:    ttl,
			Logger: &a.logger,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	}

	if ttl <= 0 {
		return nil, nil
	}
	return cache.NewInMemoryCache(ttl, cache.WithMaxEntries(a.cfg.Cache.MaxEntries)), nil
}
