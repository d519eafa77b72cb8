// Package fixer holds the content repairs a batch run can apply.
package fixer

import (
	"context"
	"log/slog"

	"ImportFixer/internal/domain"
	"ImportFixer/internal/ports"
)

// Patch is the corrected content of one document.
type Patch struct {
	Content        string
	Changes        []domain.Change
	Unresolved     []domain.Unresolved
	AssetsCreated  int
	AssetsRepaired int
}

// Changed reports whether the patch should be written over original.
func (p Patch) Changed(original string) bool {
	return len(p.Changes) > 0 && p.Content != original
}

// Fixer detects and repairs one defect shape.
type Fixer interface {
	Name() string
	// Filter narrows the documents the batch pages through.
	Filter() domain.DocumentFilter
	PageSize() int
	// NeedsFix is a cheap check run before Fix.
	NeedsFix(doc domain.Document) bool
	Fix(ctx context.Context, doc domain.Document) (Patch, error)
}

// Env carries the shared collaborators fixers are built from.
type Env struct {
	Store         ports.Store
	Prober        ports.Prober
	UploadBaseURL string
	Logger        *slog.Logger
}

func pageSize(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}
