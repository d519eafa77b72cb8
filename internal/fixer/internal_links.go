package fixer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"ImportFixer/internal/config"
	"ImportFixer/internal/domain"
	"ImportFixer/internal/extract"
	"ImportFixer/internal/logging"
	"ImportFixer/internal/resolver"
)

const (
	InternalLinksName = "internal-links"
	linkPageSize      = 50
)

// InternalLinks rewrites links on the old domain to the current permalink
// of the document that was imported from them.
type InternalLinks struct {
	host     string
	metaKey  string
	run      config.RunConfig
	resolver *resolver.URLResolver
	logger   *slog.Logger
}

// NewInternalLinks requires run.OldDomain.
func NewInternalLinks(env Env, run config.RunConfig) (Fixer, error) {
	host, err := config.OldDomainHost(run.OldDomain)
	if err != nil {
		return nil, err
	}
	logger := env.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &InternalLinks{
		host:     host,
		metaKey:  run.MetaKey,
		run:      run,
		resolver: resolver.NewURLResolver(env.Store, logger),
		logger:   logger,
	}, nil
}

func (f *InternalLinks) Name() string { return InternalLinksName }

func (f *InternalLinks) Filter() domain.DocumentFilter { return f.run.Filter(f.host) }

func (f *InternalLinks) PageSize() int { return pageSize(f.run.PageSize, linkPageSize) }

func (f *InternalLinks) NeedsFix(doc domain.Document) bool {
	return strings.Contains(doc.Content, f.host)
}

// Fix resolves every distinct link on the old domain. Links without a
// unique match are reported and left as they are.
func (f *InternalLinks) Fix(ctx context.Context, doc domain.Document) (Patch, error) {
	patch := Patch{Content: doc.Content}
	seen := map[string]bool{}

	for link := range extract.ExtractLinks(doc.Content) {
		if seen[link.Raw] {
			continue
		}
		seen[link.Raw] = true

		if !f.onOldDomain(link.Href) {
			continue
		}

		current, err := f.resolver.ResolveCurrentURL(ctx, link.Href, f.metaKey)
		if err != nil {
			return Patch{}, fmt.Errorf("resolve %s: %w", link.Href, err)
		}
		if current == "" {
			f.logger.Info("could not find current document url", "document_id", doc.ID, "url", link.Href)
			patch.Unresolved = append(patch.Unresolved, domain.Unresolved{
				DocumentID: doc.ID,
				Item:       link.Href,
				Reason:     "no single document imported from this url",
			})
			continue
		}
		if current == link.Href {
			continue
		}

		patch.Content = strings.ReplaceAll(patch.Content, link.Raw, `href="`+current+`"`)
		patch.Changes = append(patch.Changes, domain.Change{From: link.Href, To: current, Note: "internal link"})
		f.logger.Debug("link replaced", "document_id", doc.ID, "from", link.Href, "to", current)
	}

	return patch, nil
}

func (f *InternalLinks) onOldDomain(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), f.host)
}
