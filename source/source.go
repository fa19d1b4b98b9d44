// Package source implements the upstream dictionary and translation fetchers.
//
// Every fetcher scrapes a public endpoint whose markup may change at any
// time. Extraction walks an ordered list of selector chains and degrades to a
// *wordpop.SourceError when none of them match; it never panics on drift.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/wordpop"
	"github.com/rs/zerolog"
)

// Fetcher is an alias to the main package interface for convenience.
type Fetcher = wordpop.Fetcher

// Outcome is an alias to the main package type.
type Outcome = wordpop.Outcome

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 2 << 20

// Config holds settings shared by the HTTP fetchers.
type Config struct {
	BaseURL    string        // Override the upstream base URL (tests, mirrors)
	Timeout    time.Duration // Per-fetch deadline (default: 3s)
	HTTPClient *http.Client  // Custom client (default: http.DefaultClient)
	TargetLang string        // Target language for translation engines (default: zh_CN)
	UserAgent  string        // User-Agent header (default: wordpop.UserAgent())
	Logger     *zerolog.Logger
}

// client is the HTTP plumbing embedded by every scraping fetcher.
type client struct {
	source    wordpop.SourceID
	baseURL   string
	timeout   time.Duration
	http      *http.Client
	userAgent string
	logger    zerolog.Logger
}

func newClient(id wordpop.SourceID, cfg Config, defaultBaseURL string) client {
	c := client{
		source:    id,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		timeout:   cfg.Timeout,
		http:      cfg.HTTPClient,
		userAgent: cfg.UserAgent,
		logger:    zerolog.Nop(),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = wordpop.DefaultFetchTimeout
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.userAgent == "" {
		c.userAgent = wordpop.UserAgent()
	}
	if cfg.Logger != nil {
		c.logger = cfg.Logger.With().Stringer("source", id).Logger()
	}
	return c
}

// Source implements wordpop.Fetcher.
func (c *client) Source() wordpop.SourceID {
	return c.source
}

// get performs a GET bounded by the client's own deadline.
func (c *client) get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil)
}

// postForm performs a form POST bounded by the client's own deadline.
func (c *client) postForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, rawURL, form)
}

func (c *client) do(ctx context.Context, method, rawURL string, form url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, c.fail("building request", err, false)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail("request failed", err, ctx.Err() == nil)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail("reading response", err, true)
	}

	c.logger.Debug().
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream response")

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, c.fail(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil, retryable)
	}

	return data, nil
}

// document parses an upstream response as HTML.
func (c *client) document(data []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, c.fail("parsing markup", err, false)
	}
	return doc, nil
}

func (c *client) fail(msg string, cause error, retryable bool) error {
	return &wordpop.SourceError{
		Source:    c.source,
		Message:   msg,
		Cause:     cause,
		Retryable: retryable,
	}
}

// empty reports a response that parsed fine but held nothing usable.
func (c *client) empty(what string) error {
	return c.fail(what, wordpop.ErrNoContent, false)
}
