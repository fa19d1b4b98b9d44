// Package config loads daemon and CLI configuration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Sources SourcesConfig `yaml:"sources"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

// ServerConfig holds HTTP daemon settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"WORDPOP_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"WORDPOP_PORT"             env-default:"8787"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"WORDPOP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"WORDPOP_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"WORDPOP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowedOrigins  string        `yaml:"allowed_origins"  env:"WORDPOP_ALLOWED_ORIGINS"  env-default:"*"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `yaml:"level"       env:"LOG_LEVEL"   env-default:"info"`
	Environment string `yaml:"environment" env:"WORDPOP_ENV" env-default:"local"`
}

// SourcesConfig controls the upstream fetchers.
type SourcesConfig struct {
	TargetLang        string        `yaml:"target_lang"         env:"WORDPOP_TARGET_LANG"         env-default:"zh_CN"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"       env:"WORDPOP_FETCH_TIMEOUT"       env-default:"3s"`
	FallbackEngine    string        `yaml:"fallback_engine"     env:"WORDPOP_FALLBACK_ENGINE"     env-default:"google"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"WORDPOP_REQUESTS_PER_MINUTE" env-default:"60"`
	MaxWordTokens     int           `yaml:"max_word_tokens"     env:"WORDPOP_MAX_WORD_TOKENS"     env-default:"3"`
}

// OpenAIConfig configures the OpenAI-compatible fallback engine. Timeout
// replaces sources.fetch_timeout for this engine.
type OpenAIConfig struct {
	APIKey      string        `yaml:"api_key"     env:"OPENAI_API_KEY"`
	Model       string        `yaml:"model"       env:"OPENAI_MODEL"       env-default:"gpt-4o-mini"`
	BaseURL     string        `yaml:"base_url"    env:"OPENAI_BASE_URL"`
	Temperature float32       `yaml:"temperature" env:"OPENAI_TEMPERATURE" env-default:"0.3"`
	Timeout     time.Duration `yaml:"timeout"     env:"OPENAI_TIMEOUT"     env-default:"10s"`
	MaxRetries  int           `yaml:"max_retries" env:"OPENAI_MAX_RETRIES" env-default:"2"`
}

// CacheConfig configures the outcome cache. An empty RedisURL selects the
// in-memory cache; a zero TTL disables caching.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"         env:"WORDPOP_CACHE_TTL"         env-default:"1h"`
	MaxEntries int           `yaml:"max_entries" env:"WORDPOP_CACHE_MAX_ENTRIES" env-default:"4096"`
	RedisURL   string        `yaml:"redis_url"   env:"WORDPOP_CACHE_REDIS_URL"`
}

// StoreConfig selects the settings store. An empty RedisURL keeps settings
// in memory.
type StoreConfig struct {
	RedisURL string `yaml:"redis_url" env:"WORDPOP_STORE_REDIS_URL"`
	Prefix   string `yaml:"prefix"    env:"WORDPOP_STORE_PREFIX"    env-default:"wordpop:settings:"`
}

// BridgeConfig tunes the message bridge.
type BridgeConfig struct {
	TranslateWatchdog time.Duration `yaml:"translate_watchdog" env:"WORDPOP_TRANSLATE_WATCHDOG" env-default:"15s"`
	CurrentWatchdog   time.Duration `yaml:"current_watchdog"   env:"WORDPOP_CURRENT_WATCHDOG"   env-default:"5s"`
	Debounce          time.Duration `yaml:"debounce"           env:"WORDPOP_DEBOUNCE"           env-default:"650ms"`
	OutboxDepth       int           `yaml:"outbox_depth"       env:"WORDPOP_OUTBOX_DEPTH"       env-default:"64"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
