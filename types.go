package wordpop

import (
	"encoding/json"
	"fmt"
	"time"
)

// SourceID identifies one upstream dictionary or translation provider.
type SourceID int

const (
	// DictionaryPrimary is the desktop dictionary page (richest markup).
	DictionaryPrimary SourceID = iota + 1
	// DictionaryMobile is the mobile dictionary page, a structural fallback for DictionaryPrimary.
	DictionaryMobile
	// TranslateMobile is the mobile sentence translation endpoint.
	TranslateMobile
	// DictionaryThirdParty is an independent dictionary site, word branch only.
	DictionaryThirdParty
	// TranslateFallback is the generic machine translation engine.
	TranslateFallback
)

var sourceNames = map[SourceID]string{
	DictionaryPrimary:    "dictionaryPrimary",
	DictionaryMobile:     "dictionaryMobile",
	TranslateMobile:      "translateMobile",
	DictionaryThirdParty: "dictionaryThirdParty",
	TranslateFallback:    "translateFallback",
}

// AllSources lists every source in default priority order.
var AllSources = []SourceID{
	DictionaryPrimary,
	DictionaryMobile,
	DictionaryThirdParty,
	TranslateMobile,
	TranslateFallback,
}

func (s SourceID) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// ParseSourceID converts a source name back to its SourceID.
func ParseSourceID(name string) (SourceID, error) {
	for id, n := range sourceNames {
		if n == name {
			return id, nil
		}
	}
	return 0, &ConfigError{Message: fmt.Sprintf("unknown source %q", name)}
}

// MarshalText implements encoding.TextMarshaler.
func (s SourceID) MarshalText() ([]byte, error) {
	if _, ok := sourceNames[s]; !ok {
		return nil, &ConfigError{Message: fmt.Sprintf("unknown source id %d", int(s))}
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SourceID) UnmarshalText(b []byte) error {
	id, err := ParseSourceID(string(b))
	if err != nil {
		return err
	}
	*s = id
	return nil
}

// WordCapable reports whether the source may serve the word branch.
func (s SourceID) WordCapable() bool {
	switch s {
	case DictionaryPrimary, DictionaryMobile, DictionaryThirdParty, TranslateFallback:
		return true
	}
	return false
}

// PassageCapable reports whether the source may serve the passage branch.
func (s SourceID) PassageCapable() bool {
	return s == TranslateMobile || s == TranslateFallback
}

// Status is the outcome of a translation request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	// StatusPending marks the placeholder pushed to a page before the real result exists.
	StatusPending Status = "pending"
)

// TextKind is the classifier verdict for a piece of text.
type TextKind int

const (
	// Passage is any text that is not WordLike; it is routed to sentence translation only.
	Passage TextKind = iota
	// WordLike is a short Latin-script span eligible for dictionary lookup.
	WordLike
)

func (k TextKind) String() string {
	if k == WordLike {
		return "word"
	}
	return "passage"
}

// Request is a single translation request.
type Request struct {
	Text       string
	IsWordHint bool // Caller's own classification; informational only

	// EnabledSources is the ordered set of sources to try.
	// Nil means "read the current configuration".
	EnabledSources []SourceID

	Timeout   time.Duration // Display timeout; zero means unset
	RequestID string        // Correlation token, unique per request
}

// Outcome is a fetcher's normalized success value. Failures are errors.
type Outcome struct {
	Body     string `json:"body"`
	Phonetic string `json:"phonetic,omitempty"`
}

// Result is the single response produced for every Request.
type Result struct {
	Status      Status
	Text        string
	Translation string
	Phonetic    string
	Source      *SourceID
	Timeout     time.Duration
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// WithTimeout returns a copy of r carrying the given display timeout.
func (r Result) WithTimeout(d time.Duration) Result {
	r.Timeout = d
	return r
}

// resultJSON is the wire shape shared with the extension:
// { status, translation, text, timeout, phonetic?, source? } with timeout in seconds.
type resultJSON struct {
	Status      Status    `json:"status"`
	Translation string    `json:"translation"`
	Text        string    `json:"text"`
	Timeout     float64   `json:"timeout"`
	Phonetic    string    `json:"phonetic,omitempty"`
	Source      *SourceID `json:"source,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Status:      r.Status,
		Translation: r.Translation,
		Text:        r.Text,
		Timeout:     r.Timeout.Seconds(),
		Phonetic:    r.Phonetic,
		Source:      r.Source,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(b []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Result{
		Status:      raw.Status,
		Translation: raw.Translation,
		Text:        raw.Text,
		Timeout:     Seconds(raw.Timeout),
		Phonetic:    raw.Phonetic,
		Source:      raw.Source,
	}
	return nil
}

// Seconds converts a wire timeout in (possibly fractional) seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// DefaultTimeout is the display timeout used when neither the request nor the
// configuration provides one.
const DefaultTimeout = 10 * time.Second

// User-facing failure messages.
const (
	MsgNotFound          = "no definition found"
	MsgSelectSource      = "select at least one source"
	MsgSentenceDisabled  = "sentence translation source not enabled"
	MsgSourceDisabled    = "result came from a disabled source"
	MsgTimedOut          = "translation timed out"
	MsgDeliveryFailed    = "message delivery failed"
	MsgWorkerUnavailable = "translation worker unavailable"
	MsgHandlerFailed     = "translation handler failed"
)

// Failure builds a failure result for text with a user-facing message.
func Failure(text, msg string) Result {
	return Result{Status: StatusFailure, Text: text, Translation: msg}
}
