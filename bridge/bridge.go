// Package bridge carries messages between the three contexts of the
// extension: pages, the coordinator and the fetch-capable worker.
//
// Every request that expects a reply gets exactly one: the worker's answer,
// a failure describing why the worker could not answer, or a watchdog
// timeout, whichever comes first. Contexts are goroutines; the coordinator
// and the worker own their state and guard it with a mutex.
package bridge

import (
	"context"
	"time"
)

// Timing defaults.
const (
	TranslateWatchdog = 15 * time.Second
	CurrentWatchdog   = 5 * time.Second
	SelectionDebounce = 650 * time.Millisecond
	// HideSlack lets a result that lands just before the hide deadline count
	// as late.
	HideSlack = 50 * time.Millisecond
)

// Tab identifies the page a message came from.
type Tab struct {
	ID  int
	URL string
}

// Sender describes the origin of a message. Tab is nil for non-page senders
// such as the popup or the CLI.
type Sender struct {
	Tab *Tab
}

// FromTab returns a Sender for a page.
func FromTab(id int, url string) Sender {
	return Sender{Tab: &Tab{ID: id, URL: url}}
}

// Reply delivers the single response to a request. It returns an error when
// the originating channel is already closed.
type Reply func(v any) error

// Tabs pushes messages to pages.
type Tabs interface {
	Send(ctx context.Context, tabID int, msg Translate) error
}

// Handler answers envelopes. The worker is a Handler.
type Handler interface {
	Serve(ctx context.Context, sender Sender, env Envelope) (any, error)
}

// WorkerHost owns the lifecycle of the worker.
type WorkerHost interface {
	// Ensure starts the worker if needed and returns it.
	Ensure(ctx context.Context) (Handler, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, sender Sender, env Envelope) (any, error)

// Serve calls f.
func (f HandlerFunc) Serve(ctx context.Context, sender Sender, env Envelope) (any, error) {
	return f(ctx, sender, env)
}
