// Package store persists the small set of configuration keys shared by every
// context: display timeout, per-site rules, enabled sources and the last
// selection.
//
// Values are stored as JSON. There is no multi-key transaction: each write is
// a single key update and readers tolerate eventually consistent reads.
package store

import (
	"context"
	"errors"
)

// Persisted keys.
const (
	KeyNotifyTimeout      = "notifyTimeout"
	KeySiteRules          = "siteRules"
	KeyTranslationSources = "translationSources"
	KeyCurrentSelection   = "__currentSelection"
)

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("store: key not found")

// Store is a flat key-value store of JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
