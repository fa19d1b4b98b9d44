package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/ZaguanLabs/wordpop"
	"github.com/tidwall/gjson"
)

const googleURL = "https://translate.googleapis.com"

// Google queries the public gtx endpoint (TranslateFallback).
type Google struct {
	client
	targetLang string
}

// NewGoogle creates the generic fallback translation engine.
func NewGoogle(cfg Config) *Google {
	return &Google{
		client:     newClient(wordpop.TranslateFallback, cfg, googleURL),
		targetLang: wordpop.ToGoogleLang(cfg.TargetLang),
	}
}

// Fetch implements wordpop.Fetcher.
func (g *Google) Fetch(ctx context.Context, text string) (*Outcome, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", g.targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	data, err := g.get(ctx, g.baseURL+"/translate_a/single?"+q.Encode())
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, g.fail("malformed response", nil, false)
	}

	translation := ParseGoogle(data)
	if translation == "" {
		return nil, g.empty("no segments in response")
	}
	return &Outcome{Body: translation}, nil
}

// ParseGoogle concatenates the translated segments of a gtx response. The
// first element of the outer array holds segment tuples whose first element
// is the translated text.
func ParseGoogle(data []byte) string {
	var b strings.Builder
	for _, seg := range gjson.GetBytes(data, "0.#.0").Array() {
		if seg.Type == gjson.String {
			b.WriteString(seg.String())
		}
	}
	return b.String()
}

var _ Fetcher = (*Google)(nil)
