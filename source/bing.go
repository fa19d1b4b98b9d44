package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/wordpop"
)

const bingURL = "https://cn.bing.com"

// Bing scrapes the bing dictionary (DictionaryThirdParty). It is only
// consulted for word-like selections.
type Bing struct {
	client
}

// NewBing creates the third-party dictionary fetcher.
func NewBing(cfg Config) *Bing {
	return &Bing{client: newClient(wordpop.DictionaryThirdParty, cfg, bingURL)}
}

// Fetch implements wordpop.Fetcher.
func (b *Bing) Fetch(ctx context.Context, word string) (*Outcome, error) {
	data, err := b.get(ctx, b.baseURL+"/dict/search?q="+url.QueryEscape(word))
	if err != nil {
		return nil, err
	}

	doc, err := b.document(data)
	if err != nil {
		return nil, err
	}

	lines := FilterDefinitions(bingMeanings(doc))
	if len(lines) == 0 {
		return nil, b.empty("no definitions in markup")
	}

	return &Outcome{
		Body:     strings.Join(lines, "\n"),
		Phonetic: firstText([]*goquery.Selection{doc.Selection}, ".hd_prUS", ".hd_pr"),
	}, nil
}

func bingMeanings(doc *goquery.Document) []string {
	var items []string
	doc.Find(".qdef ul li").Each(func(_ int, li *goquery.Selection) {
		pos := nodeText(li.Find(".pos").First())
		def := nodeText(li.Find(".def").First())
		switch {
		case def == "":
			if t := nodeText(li); t != "" {
				items = append(items, t)
			}
		case pos == "":
			items = append(items, def)
		default:
			items = append(items, pos+" "+def)
		}
	})
	if len(items) > 0 {
		return items
	}
	return nodeTexts(doc.Find(".content .def"))
}

var _ Fetcher = (*Bing)(nil)
