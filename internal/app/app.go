package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"ImportFixer/internal/config"
	"ImportFixer/internal/domain"
	"ImportFixer/internal/fixer"
	"ImportFixer/internal/logging"
	"ImportFixer/internal/ports"
	"ImportFixer/internal/usecase"
)

// Capability is what an operator needs to run fixers.
const Capability = "import"

var (
	// ErrUnauthorized is returned when the run's user lacks Capability.
	ErrUnauthorized = errors.New("user is not allowed to run fixers")
	// ErrAborted is returned when the operator declines an enact run.
	ErrAborted = errors.New("run aborted")
)

// Deps wires driven adapters and operator hooks into the application.
type Deps struct {
	Store    ports.Store
	Prober   ports.Prober
	Registry *fixer.Registry
	// Confirm gates runs that write. Nil means no confirmation.
	Confirm func(prompt string) (bool, error)
	// Out receives the run summary. Nil means no report.
	Out      io.Writer
	Logger   *slog.Logger
	NewRunID func() string
}

// Application wires configs to use cases.
type Application struct {
	cfg      config.Config
	store    ports.Store
	prober   ports.Prober
	registry *fixer.Registry
	confirm  func(prompt string) (bool, error)
	out      io.Writer
	logger   *slog.Logger
	newRunID func() string
}

// New builds an application instance.
func New(cfg config.Config, deps Deps) *Application {
	logger := deps.Logger
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}
	registry := deps.Registry
	if registry == nil {
		registry = fixer.Default()
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}

	return &Application{
		cfg:      cfg,
		store:    deps.Store,
		prober:   deps.Prober,
		registry: registry,
		confirm:  deps.Confirm,
		out:      deps.Out,
		logger:   logger,
		newRunID: newRunID,
	}
}

// Fixers lists the registered fixers.
func (a *Application) Fixers() []fixer.Info {
	return a.registry.List()
}

// Fix runs the named fixer once. Configuration, authorization and
// confirmation are settled before the first page is read.
func (a *Application) Fix(ctx context.Context, name string, run config.RunConfig) (domain.Summary, error) {
	run = run.Normalize(a.cfg.Fixers)
	if err := run.Validate(); err != nil {
		return domain.Summary{}, err
	}

	allowed, err := a.store.UserCan(ctx, run.User, Capability)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("check capabilities of %s: %w", run.User, err)
	}
	if !allowed {
		return domain.Summary{}, fmt.Errorf("%w: %s", ErrUnauthorized, run.User)
	}

	runID := a.newRunID()
	logger := a.logger.With("run_id", runID, "fixer", name)

	f, err := a.registry.Build(name, fixer.Env{
		Store:         a.store,
		Prober:        a.prober,
		UploadBaseURL: a.cfg.Site.UploadBaseURL,
		Logger:        logger.With("component", "fixer"),
	}, run)
	if err != nil {
		return domain.Summary{}, err
	}

	if !run.DryRun && a.confirm != nil {
		ok, err := a.confirm(fmt.Sprintf("Run %s and write changes to the database?", name))
		if err != nil {
			return domain.Summary{}, fmt.Errorf("confirm run: %w", err)
		}
		if !ok {
			return domain.Summary{}, ErrAborted
		}
	}

	logger.Info("run started", "dry_run", run.DryRun, "user", run.User, "page_size", f.PageSize())

	batch := usecase.NewBatch(usecase.BatchDeps{Store: a.store, Logger: logger.With("component", "batch")})
	summary, err := batch.Run(ctx, f, run)
	summary.RunID = runID

	if a.out != nil {
		usecase.WriteSummary(a.out, summary)
	}
	return summary, err
}
