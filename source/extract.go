package source

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// MaxDefinitionLines caps the lines kept from one dictionary entry.
	MaxDefinitionLines = 12
	// LeadingWindow is how many non part-of-speech lines may survive.
	LeadingWindow = 8
	// MaxLineLength drops run-on lines, usually example sentences.
	MaxLineLength = 120
)

var (
	boilerplate = regexp.MustCompile(`(?i)VOA|youdao|\bexample\b|例句`)
	posPrefix   = regexp.MustCompile(`(?i)^(n|v|vi|vt|adj|adv|prep|pron|conj|art|num|int|abbr)\.`)
)

// Inline elements whose boundaries do not separate words.
var inline = map[atom.Atom]bool{
	atom.A:      true,
	atom.B:      true,
	atom.Em:     true,
	atom.Font:   true,
	atom.I:      true,
	atom.Mark:   true,
	atom.Strong: true,
	atom.Sub:    true,
	atom.Sup:    true,
	atom.U:      true,
}

// FilterDefinitions keeps the concise lines of a dictionary entry. It drops
// attribution and example boilerplate and over-long lines, keeps
// part-of-speech lines anywhere but other lines only inside the leading
// window, then caps the result at MaxDefinitionLines.
func FilterDefinitions(lines []string) []string {
	var candidates []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || boilerplate.MatchString(line) {
			continue
		}
		if utf8.RuneCountInString(line) > MaxLineLength {
			continue
		}
		candidates = append(candidates, line)
	}

	var out []string
	for i, line := range candidates {
		if !HasPartOfSpeech(line) && i >= LeadingWindow {
			continue
		}
		out = append(out, line)
		if len(out) == MaxDefinitionLines {
			break
		}
	}
	return out
}

// HasPartOfSpeech reports whether line starts with a part-of-speech abbreviation.
func HasPartOfSpeech(line string) bool {
	return posPrefix.MatchString(line)
}

// nodeText returns the visible text of a selection with block boundaries turned
// into single spaces.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}

	gap := n.Type == html.ElementNode && !inline[n.DataAtom]
	if gap {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if gap {
		b.WriteByte(' ')
	}
}

// nodeTexts returns the non-empty text of every element in sel.
func nodeTexts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := nodeText(s); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// firstText returns the text of the first selector in chain that matches
// inside any of roots.
func firstText(roots []*goquery.Selection, chain ...string) string {
	for _, root := range roots {
		for _, selector := range chain {
			if t := nodeText(root.Find(selector).First()); t != "" {
				return t
			}
		}
	}
	return ""
}

// findRoots returns the matching elements for each selector, in order.
func findRoots(doc *goquery.Document, selectors ...string) []*goquery.Selection {
	var out []*goquery.Selection
	for _, selector := range selectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			out = append(out, sel)
		}
	}
	return out
}
