package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ImportFixer/internal/config"
	"ImportFixer/internal/domain"
	"ImportFixer/internal/fixer"
	"ImportFixer/internal/logging"
	"ImportFixer/internal/ports"
)

const fallbackPageSize = 50

// BatchDeps wires the driven adapters into the batch driver.
type BatchDeps struct {
	Store  ports.DocumentStore
	Logger *slog.Logger
	Now    func() time.Time
}

// Batch pages through the documents a fixer selects and applies it to each.
type Batch struct {
	store  ports.DocumentStore
	logger *slog.Logger
	now    func() time.Time
}

// NewBatch constructs the batch driver.
func NewBatch(deps BatchDeps) *Batch {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Batch{store: deps.Store, logger: logger, now: now}
}

// Run applies f to every document it selects. Documents are paged by id so
// each is visited at most once even when updates change the result set.
// Per-document failures are recorded in the summary; only listing failures
// and cancellation end the run early.
func (b *Batch) Run(ctx context.Context, f fixer.Fixer, run config.RunConfig) (summary domain.Summary, err error) {
	summary = domain.Summary{Fixer: f.Name(), DryRun: run.DryRun, StartedAt: b.now()}
	defer func() { summary.FinishedAt = b.now() }()

	limit := f.PageSize()
	if limit <= 0 {
		limit = fallbackPageSize
	}
	query := domain.ListQuery{Filter: f.Filter(), Limit: limit}

	for {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}

		b.store.ClearCaches()
		page, err := b.store.ListDocuments(ctx, query)
		if err != nil {
			return summary, fmt.Errorf("list documents after %d: %w", query.AfterID, err)
		}
		if len(page) == 0 {
			break
		}
		b.logger.Info("processing page", "after_id", query.AfterID, "documents", len(page))

		for _, doc := range page {
			if err := ctx.Err(); err != nil {
				return summary, fmt.Errorf("run interrupted: %w", err)
			}
			query.AfterID = max(query.AfterID, doc.ID)
			b.process(ctx, f, doc, run.DryRun, &summary)
		}

		if len(page) < limit {
			break
		}
	}

	b.logger.Info("run finished", "summary", summary.Line())
	return summary, nil
}

func (b *Batch) process(ctx context.Context, f fixer.Fixer, doc domain.Document, dryRun bool, summary *domain.Summary) {
	logger := b.logger.With("document_id", doc.ID)
	outcome := domain.FixOutcome{DocumentID: doc.ID}

	if !f.NeedsFix(doc) {
		summary.Record(outcome)
		return
	}

	patch, err := fix(ctx, f, doc)
	if err != nil {
		logger.Warn("fix failed", "error", err)
		outcome.Err = err
		summary.Record(outcome)
		return
	}

	summary.Unresolved = append(summary.Unresolved, patch.Unresolved...)
	summary.AssetsCreated += patch.AssetsCreated
	summary.AssetsRepaired += patch.AssetsRepaired

	if !patch.Changed(doc.Content) {
		summary.Record(outcome)
		return
	}
	outcome.Changed = true

	for _, change := range patch.Changes {
		logger.Info("change", "from", change.From, "to", change.To, "note", change.Note, "dry_run", dryRun)
	}

	if !dryRun {
		content := patch.Content
		if err := b.store.UpdateDocument(ctx, doc.ID, domain.DocumentUpdate{Content: &content}); err != nil {
			logger.Warn("update failed", "error", err)
			outcome.Err = fmt.Errorf("update document %d: %w", doc.ID, err)
		} else {
			logger.Info("document updated", "changes", len(patch.Changes))
		}
	}

	summary.Record(outcome)
}

// fix runs the fixer and turns a panic into an error for that document.
func fix(ctx context.Context, f fixer.Fixer, doc domain.Document) (patch fixer.Patch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fixer %s panicked: %v", f.Name(), r)
		}
	}()
	return f.Fix(ctx, doc)
}
