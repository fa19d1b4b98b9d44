package wordpop

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-upstream rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Maximum requests per minute
	BurstSize         int // Maximum burst size (default: same as RPM)
}

// NewRateLimiter creates a token bucket limiter from cfg.
func NewRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	rpm := float64(cfg.RequestsPerMinute)
	if rpm <= 0 {
		rpm = 60 // Default: 60 RPM
	}

	burst := cfg.BurstSize
	if burst <= 0 {
		burst = int(rpm)
	}

	return rate.NewLimiter(rate.Limit(rpm/60.0), burst)
}

// RateLimitedFetcher wraps a Fetcher so that it never exceeds the configured
// request rate against its upstream.
type RateLimitedFetcher struct {
	fetcher Fetcher
	limiter *rate.Limiter
}

// NewRateLimitedFetcher creates a new rate-limited fetcher.
func NewRateLimitedFetcher(fetcher Fetcher, cfg RateLimitConfig) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		fetcher: fetcher,
		limiter: NewRateLimiter(cfg),
	}
}

// Source implements Fetcher.
func (f *RateLimitedFetcher) Source() SourceID {
	return f.fetcher.Source()
}

// Fetch implements Fetcher. A wait that would outlast the context fails
// immediately as a non-retryable SourceError.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, text string) (*Outcome, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &SourceError{
			Source:  f.fetcher.Source(),
			Message: "rate limit wait cancelled",
			Cause:   err,
		}
	}

	return f.fetcher.Fetch(ctx, text)
}

// Limiter returns the underlying rate limiter for inspection.
func (f *RateLimitedFetcher) Limiter() *rate.Limiter {
	return f.limiter
}
