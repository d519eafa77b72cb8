package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ImportFixer/internal/domain"
)

// DefaultMetaKey is the metadata entry holding a document's pre-import URL.
const DefaultMetaKey = "_original_url"

// ErrInvalidRunConfig marks a run parameter problem; runs fail before any page is read.
var ErrInvalidRunConfig = errors.New("invalid run configuration")

// RunConfig holds the parameters of one fixer run. It is passed by value
// and never changed once the run has started.
type RunConfig struct {
	DryRun      bool
	User        string
	MetaKey     string
	OldDomain   string
	PostTypes   []string
	After       *time.Time
	Before      *time.Time
	ReplaceWith domain.ReplaceWith
	PageSize    int
}

// Normalize fills unset fields from defaults and canonicalises the rest.
func (r RunConfig) Normalize(defaults FixerDefaults) RunConfig {
	if r.MetaKey == "" {
		r.MetaKey = defaults.MetaKey
	}
	if r.MetaKey == "" {
		r.MetaKey = DefaultMetaKey
	}
	r.MetaKey = SanitizeKey(r.MetaKey)

	if len(r.PostTypes) == 0 && len(defaults.PostTypes) > 0 {
		r.PostTypes = append([]string(nil), defaults.PostTypes...)
	}
	if r.ReplaceWith == "" {
		r.ReplaceWith = domain.ReplaceWithPermalink
	}
	r.User = strings.TrimSpace(r.User)
	r.OldDomain = strings.TrimSpace(r.OldDomain)

	return r
}

// Validate checks the parameters every fixer relies on.
func (r RunConfig) Validate() error {
	if r.User == "" {
		return fmt.Errorf("%w: a --user is required (site or network admin)", ErrInvalidRunConfig)
	}
	if r.MetaKey == "" {
		return fmt.Errorf("%w: meta key is empty", ErrInvalidRunConfig)
	}
	if r.PageSize < 0 {
		return fmt.Errorf("%w: page size must not be negative", ErrInvalidRunConfig)
	}
	if !r.ReplaceWith.Valid() {
		return fmt.Errorf("%w: replace-with must be %q or %q", ErrInvalidRunConfig, domain.ReplaceWithPermalink, domain.ReplaceWithSrc)
	}
	if r.After != nil && r.Before != nil && r.After.After(*r.Before) {
		return fmt.Errorf("%w: after date is later than before date", ErrInvalidRunConfig)
	}
	return nil
}

// Filter converts the run's narrowing options into a store filter.
func (r RunConfig) Filter(search string) domain.DocumentFilter {
	return domain.DocumentFilter{
		Search:    search,
		PostTypes: r.PostTypes,
		After:     r.After,
		Before:    r.Before,
	}
}

// OldDomainHost extracts the host from a domain given with or without protocol.
func OldDomainHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: --old-domain is required", ErrInvalidRunConfig)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + strings.TrimPrefix(raw, "//")
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "", fmt.Errorf("%w: cannot read a host from %q", ErrInvalidRunConfig, raw)
	}
	return strings.ToLower(parsed.Hostname()), nil
}

// SanitizeKey keeps lower-case alphanumerics, dashes and underscores.
func SanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 timestamps. An empty string
// yields nil. A bare date used as an upper bound covers the whole day.
func ParseDate(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrInvalidRunConfig, value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
