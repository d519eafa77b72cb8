package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ImportFixer/internal/fixer"
)

func newFixersCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fixers",
		Short: "List available fixers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(g.out)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Fixer", "Page size", "Description"})
			for _, info := range fixer.Default().List() {
				t.AppendRow(table.Row{info.Name, info.PageSize, info.Description})
			}
			t.Render()
			return nil
		},
	}
}
