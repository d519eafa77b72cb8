// Package cli implements the importfixer command line.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ImportFixer/internal/config"
	"ImportFixer/internal/logging"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// Execute runs the root command with the process streams.
func Execute(ctx context.Context) error {
	// Load .env early so config.Load sees its variables.
	_ = godotenv.Load()

	return NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Summaries go to out, logs and
// prompts to errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	g := &globalOptions{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "importfixer",
		Short:         "Repair links and images in imported content",
		Long:          "importfixer pages through stored documents and repairs defects left behind by a content import.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default $IMPORT_FIXER_CONFIG)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newFixCommand(g), newFixersCommand(g), newMigrateCommand(g))
	return root
}

func (g *globalOptions) load() (config.Config, *slog.Logger) {
	var cfg config.Config
	if g.configPath != "" {
		cfg = config.LoadFrom(g.configPath)
	} else {
		cfg = config.Load()
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	return cfg, logging.NewWithWriter(g.errOut, cfg.Logging.Level, cfg.Logging.Format)
}
