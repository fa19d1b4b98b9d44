package wordpop

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxWordTokens is the largest number of whitespace-separated tokens a
// selection may have and still be looked up in a dictionary.
// Hyphenated compounds ("mother-in-law") count as one token.
const MaxWordTokens = 3

const wordToken = `[A-Za-z]+(?:[-'][A-Za-z]+)*`

var (
	// Characters removed before classification only.
	detectionNoise = strings.NewReplacer(
		"\u00a0", "", // NBSP
		"\u00ad", "", // soft hyphen
		"\u200b", "",
		"\u200c", "",
		"\u200d", "",
		"\ufeff", "",
	)

	leadingPaired  = regexp.MustCompile(`^['"“”‘’()\[\]{}«»《》【】]+`)
	trailingPaired = regexp.MustCompile(`['"“”‘’()\[\]{}«»《》【】.,!?;:，。！？；：、·…\x{2014}]+$`)

	// Request-level cleanup: only quotes and brackets, the way the selection arrives.
	leadingQuote  = regexp.MustCompile(`^['"“”‘’(\[{]+`)
	trailingQuote = regexp.MustCompile(`['"“”‘’)\]}]+$`)

	invisibleMarkers = regexp.MustCompile(`[\x{200B}-\x{200F}\x{202A}-\x{202E}\x{2060}-\x{206F}\x{FEFF}]+`)
)

// Classifier decides whether text is WordLike or a Passage.
type Classifier struct {
	maxTokens int
	pattern   *regexp.Regexp
}

// NewClassifier creates a classifier accepting up to maxTokens tokens.
// Values below 1 fall back to MaxWordTokens.
func NewClassifier(maxTokens int) *Classifier {
	if maxTokens < 1 {
		maxTokens = MaxWordTokens
	}
	expr := fmt.Sprintf(`^%s(?:\s+%s){0,%d}$`, wordToken, wordToken, maxTokens-1)
	return &Classifier{
		maxTokens: maxTokens,
		pattern:   regexp.MustCompile(expr),
	}
}

var defaultClassifier = NewClassifier(MaxWordTokens)

// Classify returns the classification of text using MaxWordTokens.
func Classify(text string) TextKind {
	return defaultClassifier.Classify(text)
}

// IsWord reports whether text is WordLike.
func IsWord(text string) bool {
	return Classify(text) == WordLike
}

// Classify normalizes text and returns WordLike or Passage. It never fails.
func (c *Classifier) Classify(text string) TextKind {
	t := NormalizeSelection(text)
	if t == "" {
		return Passage
	}
	if c.pattern.MatchString(t) {
		return WordLike
	}
	return Passage
}

// MaxTokens returns the token threshold of the classifier.
func (c *Classifier) MaxTokens() int {
	return c.maxTokens
}

// NormalizeSelection prepares text for classification: strips NBSP, soft
// hyphens and zero-width marks, trims, then strips one run of leading and
// trailing paired punctuation.
func NormalizeSelection(text string) string {
	t := detectionNoise.Replace(text)
	t = strings.TrimSpace(t)
	t = leadingPaired.ReplaceAllString(t, "")
	t = trailingPaired.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// StripPairedPunctuation trims text and strips one run of surrounding quotes
// and brackets.
func StripPairedPunctuation(text string) string {
	t := strings.TrimSpace(text)
	t = leadingQuote.ReplaceAllString(t, "")
	t = trailingQuote.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// StripInvisible removes zero-width and bidi control characters.
func StripInvisible(text string) string {
	return invisibleMarkers.ReplaceAllString(text, "")
}

// NormalizeKey folds text into the form used for matching and deduplication.
func NormalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(StripInvisible(text)))
}
