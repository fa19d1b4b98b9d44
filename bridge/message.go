package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/store"
)

// Kind discriminates the message variants.
type Kind string

const (
	KindSelection   Kind = "selection"
	KindTranslate   Kind = "translate"
	KindCurrent     Kind = "current"
	KindLinkInspect Kind = "linkInspect"
	KindPageHiding  Kind = "pageHiding"
)

// ErrUnknownKind is returned by Decode for an unrecognized type field.
var ErrUnknownKind = errors.New("bridge: unknown message type")

// Message is one variant of the tagged union.
type Message interface {
	Kind() Kind
}

// Selection reports a new text selection on a page. It has no reply.
type Selection struct {
	Text        string
	DisplayText string        // Text as shown, may carry invisible markers
	Timeout     time.Duration // Zero means unset
}

// Translate asks for a translation, and is also the push a page receives with
// a pending or final result.
type Translate struct {
	Text    string
	Timeout time.Duration      // Zero means unset
	Sources []wordpop.SourceID // Nil means read from the store
	Result  *wordpop.Result    // Set on pushes to a page
	Hide    bool               // Set on pushes that should fade the toast out
}

// Current asks for the last recorded selection.
type Current struct{}

// LinkInspect toggles a page affordance. It has no reply.
type LinkInspect struct {
	Enabled bool
}

// PageHiding announces that a page enters the back/forward cache. It has no reply.
type PageHiding struct {
	Cached bool
}

func (Selection) Kind() Kind   { return KindSelection }
func (Translate) Kind() Kind   { return KindTranslate }
func (Current) Kind() Kind     { return KindCurrent }
func (LinkInspect) Kind() Kind { return KindLinkInspect }
func (PageHiding) Kind() Kind  { return KindPageHiding }

// Envelope carries a message between contexts.
type Envelope struct {
	Message Message
	// Bridged marks a copy forwarded by the coordinator. A bridged envelope
	// is never forwarded again.
	Bridged bool
	// RequestID correlates a bridged copy with exactly one reply.
	RequestID string
}

// Expects reports whether the message kind is answered with a reply.
func (e Envelope) Expects() bool {
	switch e.Message.(type) {
	case Translate, Current:
		return true
	}
	return false
}

type wireMessage struct {
	Type        Kind            `json:"type"`
	Text        string          `json:"text,omitempty"`
	DisplayText string          `json:"displayText,omitempty"`
	Timeout     float64         `json:"timeout,omitempty"`
	Sources     json.RawMessage `json:"translationSources,omitempty"`
	Result      *wordpop.Result `json:"result,omitempty"`
	Hide        bool            `json:"hide,omitempty"`
	Enabled     bool            `json:"enabled,omitempty"`
	Cached      bool            `json:"cached,omitempty"`
	Bridged     bool            `json:"__bridged,omitempty"`
	RequestID   string          `json:"requestId,omitempty"`
}

// Encode converts an envelope to its JSON wire form.
func Encode(e Envelope) ([]byte, error) {
	if e.Message == nil {
		return nil, fmt.Errorf("bridge: encode: %w", ErrUnknownKind)
	}

	w := wireMessage{
		Type:      e.Message.Kind(),
		Bridged:   e.Bridged,
		RequestID: e.RequestID,
	}

	switch m := e.Message.(type) {
	case Selection:
		w.Text = m.Text
		w.DisplayText = m.DisplayText
		w.Timeout = m.Timeout.Seconds()
	case Translate:
		w.Text = m.Text
		w.Timeout = m.Timeout.Seconds()
		w.Result = m.Result
		w.Hide = m.Hide
		if m.Sources != nil {
			raw, err := json.Marshal(m.Sources)
			if err != nil {
				return nil, fmt.Errorf("bridge: encode sources: %w", err)
			}
			w.Sources = raw
		}
	case LinkInspect:
		w.Enabled = m.Enabled
	case PageHiding:
		w.Cached = m.Cached
	}

	return json.Marshal(w)
}

// Decode parses the JSON wire form into a typed envelope.
func Decode(data []byte) (Envelope, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("bridge: decode: %w", err)
	}

	env := Envelope{Bridged: w.Bridged, RequestID: w.RequestID}
	timeout := time.Duration(0)
	if w.Timeout > 0 {
		timeout = wordpop.Seconds(w.Timeout)
	}

	switch w.Type {
	case KindSelection:
		env.Message = Selection{Text: w.Text, DisplayText: w.DisplayText, Timeout: timeout}
	case KindTranslate:
		sources, err := decodeSources(w.Sources)
		if err != nil {
			return Envelope{}, err
		}
		env.Message = Translate{
			Text:    w.Text,
			Timeout: timeout,
			Sources: sources,
			Result:  w.Result,
			Hide:    w.Hide,
		}
	case KindCurrent:
		env.Message = Current{}
	case KindLinkInspect:
		env.Message = LinkInspect{Enabled: w.Enabled}
	case KindPageHiding:
		env.Message = PageHiding{Cached: w.Cached}
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownKind, w.Type)
	}

	return env, nil
}

// decodeSources accepts either a list of source names or the persisted
// translationSources toggle object.
func decodeSources(raw json.RawMessage) ([]wordpop.SourceID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '{' {
		toggles := store.DefaultSourceToggles()
		if err := json.Unmarshal(raw, &toggles); err != nil {
			return nil, fmt.Errorf("bridge: decode translationSources: %w", err)
		}
		return toggles.Sources(), nil
	}

	sources := []wordpop.SourceID{}
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("bridge: decode translationSources: %w", err)
	}
	return sources, nil
}
