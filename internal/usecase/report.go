package usecase

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"ImportFixer/internal/domain"
)

// WriteSummary renders a run summary, its failures and unresolved items as tables.
func WriteSummary(w io.Writer, s domain.Summary) {
	mode := "enact"
	if s.DryRun {
		mode = "dry-run"
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s (%s)", s.Fixer, mode))
	if s.RunID != "" {
		t.AppendRow(table.Row{"Run", s.RunID})
	}
	t.AppendRows([]table.Row{
		{"Scanned", s.Scanned},
		{"Candidates", s.Candidates},
		{"Updated", s.Updated},
		{"Skipped", s.Skipped},
		{"Assets created", s.AssetsCreated},
		{"Assets repaired", s.AssetsRepaired},
		{"Failed", len(s.Failures)},
		{"Unresolved", len(s.Unresolved)},
	})
	if !s.FinishedAt.IsZero() {
		t.AppendFooter(table.Row{"Duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()})
	}
	t.Render()

	if len(s.Failures) > 0 {
		ft := table.NewWriter()
		ft.SetOutputMirror(w)
		ft.SetStyle(table.StyleRounded)
		ft.SetTitle("Failures")
		ft.AppendHeader(table.Row{"Document", "Reason"})
		for _, f := range s.Failures {
			ft.AppendRow(table.Row{f.DocumentID, f.Reason})
		}
		ft.Render()
	}

	if len(s.Unresolved) > 0 {
		ut := table.NewWriter()
		ut.SetOutputMirror(w)
		ut.SetStyle(table.StyleRounded)
		ut.SetTitle("Needs manual follow-up")
		ut.AppendHeader(table.Row{"Document", "Item", "Reason"})
		for _, u := range s.Unresolved {
			ut.AppendRow(table.Row{u.DocumentID, u.Item, u.Reason})
		}
		ut.Render()
	}

	fmt.Fprintln(w, s.Line())
}
