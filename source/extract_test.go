package source

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestFilterDefinitions(t *testing.T) {
	lines := []string{
		"n. 测试；试验",
		"  ",
		"VOA slow english",
		"more from youdao",
		"see example below",
		"例句：这是一个测试",
		"vt. 测试；检验",
		strings.Repeat("x", 121),
		"adj. 测试的",
	}

	got := FilterDefinitions(lines)
	want := []string{"n. 测试；试验", "vt. 测试；检验", "adj. 测试的"}

	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestFilterDefinitions_LeadingWindow(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, "plain line")
	}
	lines = append(lines, "n. kept after window")

	got := FilterDefinitions(lines)

	if len(got) != LeadingWindow+1 {
		t.Fatalf("Expected %d lines, got %d: %v", LeadingWindow+1, len(got), got)
	}
	if got[len(got)-1] != "n. kept after window" {
		t.Errorf("Expected POS line to survive past window, got %q", got[len(got)-1])
	}
}

func TestFilterDefinitions_Cap(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "v. line")
	}

	if got := FilterDefinitions(lines); len(got) != MaxDefinitionLines {
		t.Errorf("Expected cap of %d, got %d", MaxDefinitionLines, len(got))
	}
}

func TestHasPartOfSpeech(t *testing.T) {
	for _, line := range []string{"n. a", "ADJ. b", "abbr. c", "vt. d"} {
		if !HasPartOfSpeech(line) {
			t.Errorf("Expected %q to have a part of speech", line)
		}
	}
	for _, line := range []string{"noun a", "n a", "网络 释义"} {
		if HasPartOfSpeech(line) {
			t.Errorf("Expected %q to have no part of speech", line)
		}
	}
}

func TestNodeText_Spacing(t *testing.T) {
	html := `<ul><li><span class="pos">n.</span><span class="def">测试</span></li>` +
		`<li>te<b>st</b><script>var x;</script></li></ul>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	got := nodeTexts(doc.Find("li"))
	if len(got) != 2 {
		t.Fatalf("Expected 2 items, got %v", got)
	}
	if got[0] != "n. 测试" {
		t.Errorf("Expected block boundary to become a space, got %q", got[0])
	}
	if got[1] != "test" {
		t.Errorf("Expected inline boundary to be joined, got %q", got[1])
	}
}
