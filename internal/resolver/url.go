// Package resolver maps stale references to their current documents and assets.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ImportFixer/internal/domain"
	"ImportFixer/internal/logging"
	"ImportFixer/internal/ports"
)

// URLResolver finds the live address of a document from its pre-import URL.
type URLResolver struct {
	store  ports.DocumentStore
	logger *slog.Logger
}

// NewURLResolver wires the document store.
func NewURLResolver(store ports.DocumentStore, logger *slog.Logger) *URLResolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &URLResolver{store: store, logger: logger}
}

// ResolveCurrentURL returns the canonical URL of the single document whose
// metaKey entry equals oldURL exactly. No match, or more than one, yields
// an empty string. Only store failures are returned as errors.
func (r *URLResolver) ResolveCurrentURL(ctx context.Context, oldURL, metaKey string) (string, error) {
	ids, err := r.store.FindDocumentsByMetadata(ctx, metaKey, oldURL, 2)
	if err != nil {
		return "", fmt.Errorf("find document by %s: %w", metaKey, err)
	}

	switch len(ids) {
	case 0:
		r.logger.Debug("no document matches url", "meta_key", metaKey, "url", oldURL)
		return "", nil
	case 1:
	default:
		r.logger.Warn("several documents match url, skipping", "meta_key", metaKey, "url", oldURL, "matches", len(ids))
		return "", nil
	}

	current, err := r.store.CanonicalURL(ctx, ids[0])
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("canonical url of %d: %w", ids[0], err)
	}
	return current, nil
}
