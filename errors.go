package wordpop

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned by fetchers when the upstream answered but no
// usable content could be extracted.
var ErrNoContent = errors.New("no usable content in response")

// SourceError indicates one upstream source failed (network error, timeout,
// markup miss). The orchestrator recovers by advancing to the next source.
type SourceError struct {
	Source    SourceID
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("source %s: %s", e.Source, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// ChannelError indicates a cross-context delivery failure: the worker could not
// be started, never answered, or the originating channel was already closed.
type ChannelError struct {
	Op        string // "ensure", "forward", "reply"
	Message   string
	Cause     error
	Retryable bool
}

func (e *ChannelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("channel error (%s): %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("channel error (%s): %s", e.Op, e.Message)
}

func (e *ChannelError) Unwrap() error {
	return e.Cause
}

// ConfigError indicates invalid or inconsistent configuration.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}
