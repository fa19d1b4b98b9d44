package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ZaguanLabs/wordpop"
	"github.com/sashabaranov/go-openai"
)

// OpenAI is an alternative TranslateFallback engine backed by any
// OpenAI-compatible chat completion API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	targetLang  string
	timeout     time.Duration
	retry       wordpop.RetryConfig
}

// OpenAIConfig holds configuration for the OpenAI engine.
type OpenAIConfig struct {
	APIKey      string        // API key (required; the client does not read the environment)
	Model       string        // Model to use (default: "gpt-4o-mini")
	Temperature float32       // Temperature for generation (default: 0.3)
	BaseURL     string        // Custom base URL (optional)
	TargetLang  string        // Target language (default: zh_CN)
	Timeout     time.Duration // Deadline for one Fetch including retries (default: 3s)
	MaxRetries  int           // Retries on transient errors (default: 1)
}

// NewOpenAI creates a new OpenAI-backed fallback engine.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	targetLang := cfg.TargetLang
	if targetLang == "" {
		targetLang = wordpop.DefaultTargetLang
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = wordpop.DefaultFetchTimeout
	}

	retry := wordpop.DefaultRetryConfig()
	retry.MaxRetries = 1
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		targetLang:  targetLang,
		timeout:     timeout,
		retry:       retry,
	}
}

// Source implements wordpop.Fetcher.
func (p *OpenAI) Source() wordpop.SourceID {
	return wordpop.TranslateFallback
}

// Fetch implements wordpop.Fetcher.
func (p *OpenAI) Fetch(ctx context.Context, text string) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(wordpop.IsWord(text))},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	content, err := wordpop.WithRetry(ctx, p.retry, func() (string, error) {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", &wordpop.SourceError{
				Source:    wordpop.TranslateFallback,
				Message:   "chat completion failed",
				Cause:     err,
				Retryable: isRetryableError(err),
			}
		}
		if len(resp.Choices) == 0 {
			return "", &wordpop.SourceError{
				Source:    wordpop.TranslateFallback,
				Message:   "no choices in response",
				Retryable: true,
			}
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return nil, err
	}

	return p.parseResponse(content)
}

func (p *OpenAI) buildSystemPrompt(word bool) string {
	targetName := wordpop.GetLanguageName(p.targetLang)

	task := fmt.Sprintf("Translate the user's text into natural %s. Keep paragraph breaks.", targetName)
	if word {
		task = fmt.Sprintf(`The user's text is an English word or short phrase. Give its dictionary meanings in %s, one line per part of speech, each line starting with the abbreviation ("n.", "v.", "adj.", ...). Give at most 6 lines. Put the IPA transcription in "phonetic" when you know it.`, targetName)
	}

	return fmt.Sprintf(`# Role
You are a concise bilingual dictionary and translator.

# Task
%s

# Format
Return a valid JSON object: { "translation": "...", "phonetic": "..." }
- "phonetic" may be empty.
- Do NOT wrap in Markdown code blocks.`, task)
}

func (p *OpenAI) parseResponse(content string) (*Outcome, error) {
	var obj struct {
		Translation string `json:"translation"`
		Phonetic    string `json:"phonetic"`
	}
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, &wordpop.SourceError{
			Source:  wordpop.TranslateFallback,
			Message: "invalid response format",
			Cause:   err,
		}
	}

	body := strings.TrimSpace(obj.Translation)
	if body == "" {
		return nil, &wordpop.SourceError{
			Source:  wordpop.TranslateFallback,
			Message: "empty translation",
			Cause:   wordpop.ErrNoContent,
		}
	}

	return &Outcome{Body: body, Phonetic: strings.TrimSpace(obj.Phonetic)}, nil
}

func isRetryableError(err error) bool {
	// Check for common retryable conditions
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"temporary",
		"503",
		"502",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAI implements Fetcher
var _ Fetcher = (*OpenAI)(nil)
