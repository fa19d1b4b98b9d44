// Package toast schedules the lifetime of on-page result toasts.
//
// A toast is bound once, when it first appears, to the newest queued result
// whose text it matches. Its removal deadline is fixed at that moment and is
// never moved by later updates for the same text. Toasts the user closed are
// remembered briefly so a late duplicate delivery cannot reopen them.
package toast

import (
	"time"

	"github.com/ZaguanLabs/wordpop"
)

// Timing defaults.
const (
	// FadeDuration is the time between starting the fade-out and detaching.
	FadeDuration = 500 * time.Millisecond
	// RecentlyClosedWindow is how long an explicitly closed text is suppressed.
	RecentlyClosedWindow = 1500 * time.Millisecond
)

// Handle identifies one toast element.
type Handle string

// Toast is a toast currently attached to the page.
type Toast struct {
	Handle Handle
	Text   string
}

// Surface is the page the toasts live on.
type Surface interface {
	// Toasts lists the attached toasts, oldest first.
	Toasts() []Toast
	Contains(h Handle) bool
	// FadeOut starts the leave transition.
	FadeOut(h Handle)
	// FadeIn replays the enter transition, used when a pending toast
	// receives its final status.
	FadeIn(h Handle)
	// Hide makes the toast invisible immediately.
	Hide(h Handle)
	Remove(h Handle)
}

// Binding is the schedule attached to one toast.
type Binding struct {
	Handle       Handle
	MatchedText  string // normalized
	Timeout      time.Duration
	FirstShownAt time.Time
	RemoveAt     time.Time
	Status       wordpop.Status
}
