package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/local/pagedeck/internal/export"
	"github.com/local/pagedeck/internal/thumbnail"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

func printSkipped(w io.Writer, name, reason string) {
	fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("skipped"), name, dimStyle.Render("("+reason+")"))
}

// printReport renders the export summary box.
func printReport(w io.Writer, r *export.Report, p thumbnail.Progress) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Export " + string(r.Mode)))
	b.WriteString("\n")
	for _, o := range r.Outputs {
		fmt.Fprintf(&b, "%s %s %s\n", successStyle.Render("✓"), o.Name, dimStyle.Render(fmt.Sprintf("%d pages, %d bytes", o.Pages, o.Size)))
	}
	if r.Archive != nil {
		fmt.Fprintf(&b, "%s %s %s\n", successStyle.Render("▣"), r.Archive.Name, dimStyle.Render(fmt.Sprintf("%d bytes", r.Archive.Size)))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "%s %s %s\n", errorStyle.Render("✗"), f.Document, dimStyle.Render(f.Kind+": "+f.Message))
	}
	if p.Failed > 0 {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%d pages could not be rendered and were left out", p.Failed)))
	}
	fmt.Fprintf(&b, "%s", dimStyle.Render("took "+r.Finished.Sub(r.Started).Round(1e6).String()))
	fmt.Fprintln(w, boxStyle.Render(b.String()))
}
