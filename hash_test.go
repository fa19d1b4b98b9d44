package wordpop

import "testing"

func TestHashText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple text",
			input:    "hello world",
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
		{
			name:     "text with surrounding whitespace",
			input:    "  hello world  ",
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
		{
			name:     "mixed case",
			input:    "Hello World",
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
		{
			name:     "zero width marker",
			input:    "hello\u200b world",
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
		{
			name:  "empty string",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HashText(tt.input)
			if tt.expected != "" && result != tt.expected {
				t.Errorf("HashText(%q) = %q, want %q", tt.input, result, tt.expected)
			}
			// Verify hash length (SHA-256 = 64 hex chars)
			if len(result) != 64 {
				t.Errorf("HashText(%q) length = %d, want 64", tt.input, len(result))
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	hash := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

	result := CacheKey(DictionaryPrimary, hash)
	expected := "dictionaryPrimary:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

	if result != expected {
		t.Errorf("CacheKey() = %q, want %q", result, expected)
	}
}

func TestCacheKeyExtended(t *testing.T) {
	result := CacheKeyExtended(TranslateFallback, "abc123", "zh-CN")
	expected := "translateFallback:abc123:zh-CN"

	if result != expected {
		t.Errorf("CacheKeyExtended() = %q, want %q", result, expected)
	}
}
