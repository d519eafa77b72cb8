package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"ImportFixer/internal/app"
	"ImportFixer/internal/config"
	"ImportFixer/internal/domain"
	"ImportFixer/internal/fixer"
	"ImportFixer/internal/infrastructure/probe"
	"ImportFixer/internal/infrastructure/storage"
	"ImportFixer/internal/permalink"
)

type fixOptions struct {
	enact       bool
	yes         bool
	user        string
	metaKey     string
	oldDomain   string
	postTypes   []string
	after       string
	before      string
	replaceWith string
	pageSize    int
}

func newFixCommand(g *globalOptions) *cobra.Command {
	opts := &fixOptions{}

	var names []string
	for _, info := range fixer.Default().List() {
		names = append(names, info.Name)
	}

	cmd := &cobra.Command{
		Use:       "fix <fixer>",
		Short:     "Run a fixer over stored documents",
		Long:      "Run a fixer over stored documents. Nothing is written unless --enact is given.\nFixers: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd.Context(), g, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.enact, "enact", false, "write changes (default is a dry run)")
	f.BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation before writing")
	f.StringVar(&opts.user, "user", "", "operator login; must hold the import capability")
	f.StringVar(&opts.metaKey, "meta-key", "", "metadata key holding the pre-import URL (default "+config.DefaultMetaKey+")")
	f.StringVar(&opts.oldDomain, "old-domain", "", "domain of the old site, with or without protocol")
	f.StringSliceVar(&opts.postTypes, "post-type", nil, "only documents of these types")
	f.StringVar(&opts.after, "after", "", "only documents published on or after this date (YYYY-MM-DD)")
	f.StringVar(&opts.before, "before", "", "only documents published on or before this date (YYYY-MM-DD)")
	f.StringVar(&opts.replaceWith, "replace-with", string(domain.ReplaceWithPermalink), "image link target: permalink or src")
	f.IntVar(&opts.pageSize, "page-size", 0, "documents per page (default depends on the fixer)")

	return cmd
}

func (o *fixOptions) runConfig() (config.RunConfig, error) {
	after, err := config.ParseDate(o.after, false)
	if err != nil {
		return config.RunConfig{}, err
	}
	before, err := config.ParseDate(o.before, true)
	if err != nil {
		return config.RunConfig{}, err
	}

	return config.RunConfig{
		DryRun:      !o.enact,
		User:        o.user,
		MetaKey:     o.metaKey,
		OldDomain:   o.oldDomain,
		PostTypes:   o.postTypes,
		After:       after,
		Before:      before,
		ReplaceWith: domain.ReplaceWith(o.replaceWith),
		PageSize:    o.pageSize,
	}, nil
}

func runFix(ctx context.Context, g *globalOptions, opts *fixOptions, name string) error {
	run, err := opts.runConfig()
	if err != nil {
		return err
	}

	cfg, logger := g.load()
	if err := run.Normalize(cfg.Fixers).Validate(); err != nil {
		return err
	}

	links, err := permalink.NewBuilder(cfg.Site.URL, cfg.Site.PermalinkStructure)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidRunConfig, err)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	var confirm func(string) (bool, error)
	if !opts.yes {
		confirm = promptConfirm(g.in, g.errOut)
	}

	application := app.New(cfg, app.Deps{
		Store:   storage.NewPostgresRepository(db, links),
		Prober:  probe.NewHTTPProber(&http.Client{Timeout: cfg.Probe.Timeout}, cfg.Probe.UserAgent),
		Confirm: confirm,
		Out:     g.out,
		Logger:  logger,
	})

	_, err = application.Fix(ctx, name, run)
	return err
}
