package bridge

import (
	"context"
	"sync"
)

// DefaultOutboxDepth bounds the pushes queued for one tab.
const DefaultOutboxDepth = 64

// Outbox queues pushes per tab until the page polls for them.
type Outbox struct {
	mu     sync.Mutex
	depth  int
	queues map[int][]Translate
}

// NewOutbox creates an Outbox keeping at most depth pushes per tab.
func NewOutbox(depth int) *Outbox {
	if depth <= 0 {
		depth = DefaultOutboxDepth
	}
	return &Outbox{depth: depth, queues: make(map[int][]Translate)}
}

// Send implements Tabs. When a queue is full the oldest push is dropped.
func (o *Outbox) Send(ctx context.Context, tabID int, msg Translate) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	q := append(o.queues[tabID], msg)
	if len(q) > o.depth {
		q = q[len(q)-o.depth:]
	}
	o.queues[tabID] = q
	return nil
}

// Drain returns and clears the pushes queued for tabID.
func (o *Outbox) Drain(tabID int) []Translate {
	o.mu.Lock()
	defer o.mu.Unlock()

	q := o.queues[tabID]
	delete(o.queues, tabID)
	return q
}

// Pending returns how many pushes are queued for tabID.
func (o *Outbox) Pending(tabID int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queues[tabID])
}

var _ Tabs = (*Outbox)(nil)
