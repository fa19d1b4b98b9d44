package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/ZaguanLabs/wordpop"
)

// segmentSeparator joins translated paragraphs with a blank line.
const segmentSeparator = "\n\n"

// YoudaoTranslate posts text to the youdao mobile translate form
// (TranslateMobile).
type YoudaoTranslate struct {
	client
}

// NewYoudaoTranslate creates the mobile sentence translator.
func NewYoudaoTranslate(cfg Config) *YoudaoTranslate {
	return &YoudaoTranslate{client: newClient(wordpop.TranslateMobile, cfg, youdaoMobileURL)}
}

// Fetch implements wordpop.Fetcher.
func (y *YoudaoTranslate) Fetch(ctx context.Context, text string) (*Outcome, error) {
	form := url.Values{}
	form.Set("inputtext", text)
	form.Set("type", "AUTO")

	data, err := y.postForm(ctx, y.baseURL+"/translate", form)
	if err != nil {
		return nil, err
	}

	doc, err := y.document(data)
	if err != nil {
		return nil, err
	}

	segments := nodeTexts(doc.Find("#translateResult li"))
	if len(segments) == 0 {
		return nil, y.empty("no translate result")
	}

	return &Outcome{Body: strings.Join(segments, segmentSeparator)}, nil
}

var _ Fetcher = (*YoudaoTranslate)(nil)
