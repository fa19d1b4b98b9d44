package source

import (
	"context"
	"sync"

	"github.com/ZaguanLabs/wordpop"
)

// Mock is an in-memory fetcher for testing.
type Mock struct {
	ID      wordpop.SourceID
	Entries map[string]Outcome // Map of text to outcome
	Err     error              // Returned for every call when set

	mu        sync.Mutex
	callCount int
	lastText  string
}

// NewMock creates a mock fetcher with a few default entries.
func NewMock(id wordpop.SourceID) *Mock {
	return &Mock{
		ID: id,
		Entries: map[string]Outcome{
			"hello":           {Body: "int. 你好\nn. 招呼", Phonetic: "[həˈləʊ]"},
			"world":           {Body: "n. 世界", Phonetic: "[wɜːld]"},
			"This is a test.": {Body: "这是一个测试。"},
		},
	}
}

// Source implements wordpop.Fetcher.
func (m *Mock) Source() wordpop.SourceID {
	return m.ID
}

// Fetch returns the configured entry or a no-content SourceError.
func (m *Mock) Fetch(ctx context.Context, text string) (*Outcome, error) {
	m.mu.Lock()
	m.callCount++
	m.lastText = text
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, &wordpop.SourceError{Source: m.ID, Message: "cancelled", Cause: err}
	}

	out, ok := m.Entries[text]
	if !ok {
		return nil, &wordpop.SourceError{Source: m.ID, Message: "not found", Cause: wordpop.ErrNoContent}
	}
	return &out, nil
}

// CallCount returns the number of Fetch calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastText returns the text of the most recent Fetch call.
func (m *Mock) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastText
}

// Reset resets the call count and last text.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastText = ""
}

// Verify Mock implements Fetcher
var _ Fetcher = (*Mock)(nil)
