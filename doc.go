// Package wordpop provides the translation dispatcher behind a select-to-translate
// browser extension.
//
// Wordpop classifies selected text as a short word-like span or a longer passage,
// tries the enabled dictionary and translation sources in priority order, and
// always produces exactly one Result per request.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "fmt"
//
//	    "github.com/ZaguanLabs/wordpop"
//	    "github.com/ZaguanLabs/wordpop/cache"
//	    "github.com/ZaguanLabs/wordpop/source"
//	)
//
//	func main() {
//	    t := wordpop.NewTranslator(
//	        wordpop.WithFetcher(source.NewYoudao(source.Config{})),
//	        wordpop.WithFetcher(source.NewGoogle(source.Config{})),
//	        wordpop.WithCache(cache.NewInMemoryCache(3600)),
//	    )
//
//	    result := t.Translate(context.Background(), wordpop.Request{
//	        Text:           "serendipity",
//	        EnabledSources: []wordpop.SourceID{wordpop.DictionaryPrimary, wordpop.TranslateFallback},
//	    })
//	    fmt.Println(result.Translation)
//	}
//
// The bridge and toast subpackages coordinate how requests travel between the
// page, the coordinator and the fetch worker, and how long results stay on screen.
package wordpop
