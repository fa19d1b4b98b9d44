package bridge

import (
	"context"
	"sync"

	"github.com/ZaguanLabs/wordpop"
)

// StartFunc creates the worker.
type StartFunc func(ctx context.Context) (Handler, error)

// LocalHost runs the worker in-process. The worker is started lazily on the
// first Ensure and reused afterwards; a failed start is retried with backoff.
type LocalHost struct {
	start StartFunc
	retry wordpop.RetryConfig

	mu      sync.Mutex
	handler Handler
}

// NewLocalHost creates a host that starts the worker with start.
func NewLocalHost(start StartFunc, retry wordpop.RetryConfig) *LocalHost {
	return &LocalHost{start: start, retry: retry}
}

// Ensure implements WorkerHost.
func (h *LocalHost) Ensure(ctx context.Context) (Handler, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.handler != nil {
		return h.handler, nil
	}

	handler, err := wordpop.WithRetry(ctx, h.retry, func() (Handler, error) {
		handler, err := h.start(ctx)
		if err != nil {
			return nil, &wordpop.ChannelError{
				Op:        "ensure",
				Message:   "starting worker",
				Cause:     err,
				Retryable: true,
			}
		}
		return handler, nil
	})
	if err != nil {
		return nil, err
	}

	h.handler = handler
	return handler, nil
}

// Running reports whether the worker has been started.
func (h *LocalHost) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handler != nil
}

// StaticHost is a WorkerHost for an already running handler.
type StaticHost struct {
	Handler Handler
}

// Ensure implements WorkerHost.
func (h StaticHost) Ensure(ctx context.Context) (Handler, error) {
	return h.Handler, nil
}

var (
	_ WorkerHost = (*LocalHost)(nil)
	_ WorkerHost = StaticHost{}
)
