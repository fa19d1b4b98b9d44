package config

import (
	"fmt"
	"strings"
)

// Fallback engines.
const (
	EngineGoogle = "google"
	EngineOpenAI = "openai"
)

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	if err := c.Sources.validate(); err != nil {
		return fmt.Errorf("sources: %w", err)
	}

	if c.Sources.FallbackEngine == EngineOpenAI && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when sources.fallback_engine is %q", EngineOpenAI)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0 (got %v)", c.Cache.TTL)
	}

	if c.Bridge.TranslateWatchdog <= 0 || c.Bridge.CurrentWatchdog <= 0 {
		return fmt.Errorf("bridge watchdogs must be > 0")
	}
	// A translate reply is written only after the watchdog at the latest.
	if c.Server.WriteTimeout <= c.Bridge.TranslateWatchdog {
		return fmt.Errorf("server.write_timeout (%v) must exceed bridge.translate_watchdog (%v)",
			c.Server.WriteTimeout, c.Bridge.TranslateWatchdog)
	}

	return nil
}

func (s *SourcesConfig) validate() error {
	s.FallbackEngine = strings.ToLower(strings.TrimSpace(s.FallbackEngine))
	switch s.FallbackEngine {
	case EngineGoogle, EngineOpenAI:
	default:
		return fmt.Errorf("fallback_engine must be %q or %q (got %q)", EngineGoogle, EngineOpenAI, s.FallbackEngine)
	}

	if s.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be > 0 (got %v)", s.FetchTimeout)
	}
	if s.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be >= 0 (got %d)", s.RequestsPerMinute)
	}
	if s.MaxWordTokens < 1 {
		return fmt.Errorf("max_word_tokens must be >= 1 (got %d)", s.MaxWordTokens)
	}
	return nil
}
