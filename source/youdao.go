package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/wordpop"
)

const (
	youdaoDesktopURL = "https://dict.youdao.com"
	youdaoMobileURL  = "https://mobile.youdao.com"
)

var (
	youdaoRoots    = []string{"#phrsListTab", "#ec_contentWrp", "#ec"}
	youdaoPhonetic = []string{".pronounce .phonetic", ".baav .phonetic", ".phonetic"}
)

// Youdao scrapes a youdao dictionary page. The desktop page has the richest
// markup; the mobile page shares the same extraction chain and is only a
// structural fallback.
type Youdao struct {
	client
	mobile bool
}

// NewYoudao creates the desktop dictionary fetcher (DictionaryPrimary).
func NewYoudao(cfg Config) *Youdao {
	return &Youdao{client: newClient(wordpop.DictionaryPrimary, cfg, youdaoDesktopURL)}
}

// NewYoudaoMobile creates the mobile dictionary fetcher (DictionaryMobile).
func NewYoudaoMobile(cfg Config) *Youdao {
	return &Youdao{
		client: newClient(wordpop.DictionaryMobile, cfg, youdaoMobileURL),
		mobile: true,
	}
}

// Fetch implements wordpop.Fetcher.
func (y *Youdao) Fetch(ctx context.Context, word string) (*Outcome, error) {
	data, err := y.get(ctx, y.url(word))
	if err != nil {
		return nil, err
	}

	doc, err := y.document(data)
	if err != nil {
		return nil, err
	}

	out := extractYoudao(doc)
	if out == nil {
		return nil, y.empty("no definitions in markup")
	}
	return out, nil
}

func (y *Youdao) url(word string) string {
	if y.mobile {
		return y.baseURL + "/dict?le=eng&q=" + url.QueryEscape(word)
	}
	return y.baseURL + "/w/eng/" + url.PathEscape(word) + "/"
}

// extractYoudao returns nil when no root holds a usable meaning list.
func extractYoudao(doc *goquery.Document) *Outcome {
	rs := findRoots(doc, youdaoRoots...)

	var items []string
	for _, root := range rs {
		if items = nodeTexts(root.Find(".trans-container ul li")); len(items) > 0 {
			break
		}
	}

	lines := FilterDefinitions(items)
	if len(lines) == 0 {
		return nil
	}

	return &Outcome{
		Body:     strings.Join(lines, "\n"),
		Phonetic: firstText(rs, youdaoPhonetic...),
	}
}

// Verify Youdao implements Fetcher
var _ Fetcher = (*Youdao)(nil)
