package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ZaguanLabs/wordpop"
)

// Wildcard is the site rule matching every host.
const Wildcard = "*"

// DefaultNotifyTimeout is the display timeout written by EnsureDefaults.
const DefaultNotifyTimeout = 10 * time.Second

// SiteRule enables or disables the extension on one host.
type SiteRule struct {
	Site    string `json:"site"`
	Enabled bool   `json:"enabled"`
}

// DefaultSiteRules enables every site.
func DefaultSiteRules() []SiteRule {
	return []SiteRule{{Site: Wildcard, Enabled: true}}
}

// SourceToggles is the persisted shape of translationSources. Each toggle
// covers a family of sources.
type SourceToggles struct {
	DictionaryPrimary    bool `json:"dictionaryPrimary"`
	SentenceTranslate    bool `json:"sentenceTranslate"`
	ThirdPartyDictionary bool `json:"thirdPartyDictionary"`
}

// DefaultSourceToggles enables the primary dictionary and sentence translation.
func DefaultSourceToggles() SourceToggles {
	return SourceToggles{DictionaryPrimary: true, SentenceTranslate: true}
}

// Sources expands the toggles into SourceIDs in default priority order.
func (t SourceToggles) Sources() []wordpop.SourceID {
	sources := []wordpop.SourceID{}
	if t.DictionaryPrimary {
		sources = append(sources, wordpop.DictionaryPrimary, wordpop.DictionaryMobile)
	}
	if t.ThirdPartyDictionary {
		sources = append(sources, wordpop.DictionaryThirdParty)
	}
	if t.SentenceTranslate {
		sources = append(sources, wordpop.TranslateMobile, wordpop.TranslateFallback)
	}
	return sources
}

// Settings gives typed access to the persisted keys.
type Settings struct {
	store Store
}

// NewSettings wraps a Store.
func NewSettings(s Store) *Settings {
	return &Settings{store: s}
}

// Store returns the underlying store.
func (s *Settings) Store() Store {
	return s.store
}

// NotifyTimeout returns the display timeout, or DefaultNotifyTimeout when
// unset or not positive.
func (s *Settings) NotifyTimeout(ctx context.Context) (time.Duration, error) {
	var seconds float64
	found, err := s.get(ctx, KeyNotifyTimeout, &seconds)
	if err != nil {
		return DefaultNotifyTimeout, err
	}
	if !found || seconds <= 0 {
		return DefaultNotifyTimeout, nil
	}
	return wordpop.Seconds(seconds), nil
}

// SetNotifyTimeout stores the display timeout in seconds.
func (s *Settings) SetNotifyTimeout(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return &wordpop.ConfigError{Message: fmt.Sprintf("notify timeout must be positive, got %s", d)}
	}
	return s.set(ctx, KeyNotifyTimeout, d.Seconds())
}

// SiteRules returns the ordered site rules, or DefaultSiteRules when unset.
func (s *Settings) SiteRules(ctx context.Context) ([]SiteRule, error) {
	var rules []SiteRule
	found, err := s.get(ctx, KeySiteRules, &rules)
	if err != nil {
		return DefaultSiteRules(), err
	}
	if !found || rules == nil {
		return DefaultSiteRules(), nil
	}
	return rules, nil
}

// SetSiteRules replaces the site rules.
func (s *Settings) SetSiteRules(ctx context.Context, rules []SiteRule) error {
	return s.set(ctx, KeySiteRules, rules)
}

// SiteEnabled resolves the rules for host.
func (s *Settings) SiteEnabled(ctx context.Context, host string) (bool, error) {
	rules, err := s.SiteRules(ctx)
	if err != nil {
		return true, err
	}
	return ResolveSite(rules, host), nil
}

// SetSiteEnabled updates the rule for host in place, appending one if absent.
func (s *Settings) SetSiteEnabled(ctx context.Context, host string, enabled bool) error {
	rules, err := s.SiteRules(ctx)
	if err != nil {
		return err
	}

	for i := range rules {
		if rules[i].Site == host {
			rules[i].Enabled = enabled
			return s.SetSiteRules(ctx, rules)
		}
	}
	return s.SetSiteRules(ctx, append(rules, SiteRule{Site: host, Enabled: enabled}))
}

// ResolveSite returns the first exact host match, else the wildcard rule,
// else true.
func ResolveSite(rules []SiteRule, host string) bool {
	for _, r := range rules {
		if r.Site == host {
			return r.Enabled
		}
	}
	for _, r := range rules {
		if r.Site == Wildcard {
			return r.Enabled
		}
	}
	return true
}

// HostOf extracts the hostname of a page URL. Unparseable URLs map to Wildcard.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return Wildcard
	}
	return u.Hostname()
}

// TranslationSources returns the source toggles. Fields missing from the
// stored document keep their defaults.
func (s *Settings) TranslationSources(ctx context.Context) (SourceToggles, error) {
	toggles := DefaultSourceToggles()
	if _, err := s.get(ctx, KeyTranslationSources, &toggles); err != nil {
		return DefaultSourceToggles(), err
	}
	return toggles, nil
}

// SetTranslationSources stores the source toggles.
func (s *Settings) SetTranslationSources(ctx context.Context, toggles SourceToggles) error {
	return s.set(ctx, KeyTranslationSources, toggles)
}

// EnabledSources expands the stored toggles into SourceIDs.
func (s *Settings) EnabledSources(ctx context.Context) ([]wordpop.SourceID, error) {
	toggles, err := s.TranslationSources(ctx)
	if err != nil {
		return nil, err
	}
	return toggles.Sources(), nil
}

// CurrentSelection returns the last recorded selection, or "" when unset.
func (s *Settings) CurrentSelection(ctx context.Context) (string, error) {
	var text string
	if _, err := s.get(ctx, KeyCurrentSelection, &text); err != nil {
		return "", err
	}
	return text, nil
}

// SetCurrentSelection records the latest selection.
func (s *Settings) SetCurrentSelection(ctx context.Context, text string) error {
	return s.set(ctx, KeyCurrentSelection, text)
}

// EnsureDefaults writes defaults for absent keys and never overwrites a value
// the user has set.
func (s *Settings) EnsureDefaults(ctx context.Context) error {
	defaults := []struct {
		key   string
		value any
	}{
		{KeyNotifyTimeout, DefaultNotifyTimeout.Seconds()},
		{KeySiteRules, DefaultSiteRules()},
		{KeyTranslationSources, DefaultSourceToggles()},
	}

	for _, d := range defaults {
		_, err := s.store.Get(ctx, d.key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("reading %s: %w", d.key, err)
		}
		if err := s.set(ctx, d.key, d.value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Settings) get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, &wordpop.ConfigError{Message: fmt.Sprintf("decoding %s", key), Cause: err}
	}
	return true, nil
}

func (s *Settings) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &wordpop.ConfigError{Message: fmt.Sprintf("encoding %s", key), Cause: err}
	}
	if err := s.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Verify Settings implements wordpop.Settings
var _ wordpop.Settings = (*Settings)(nil)
