package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer when w is a terminal and a
// passthrough otherwise, so piped output stays plain markdown.
func NewRenderer(w io.Writer) Renderer {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return Plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns the markdown unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// ResultMarkdown describes an evaluation result: a table of the final
// variable values and the session log.
func ResultMarkdown(r *domain.EvaluationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(r.WorkbookID))
	fmt.Fprintf(&b, "Session `%s`", r.SessionID)
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, " at %s", r.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	}
	b.WriteString("\n\n## Variables\n\n")

	if len(r.State) == 0 {
		b.WriteString("_No variables._\n")
	} else {
		b.WriteString("| Namespace | Name | Type | Value |\n|---|---|---|---|\n")
		for _, s := range r.State {
			value := s.Value
			if s.Type == domain.TypeDataTable {
				value = tableSummary(s.Value)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", escape(s.Namespace), escape(s.Name), s.Type, escape(value))
		}
	}

	if len(r.Logs) > 0 {
		b.WriteString("\n## Log\n\n")
		for _, l := range r.Logs {
			fmt.Fprintf(&b, "- **%s** %s\n", l.Level, escape(l.Message))
		}
	}
	return b.String()
}

// WorkbookMarkdown lists what a workbook declares.
func WorkbookMarkdown(wb *domain.Workbook) string {
	var b strings.Builder
	title := wb.Name
	if title == "" {
		title = wb.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(title))
	if wb.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", wb.Description)
	}
	for _, bp := range wb.Blueprints {
		fmt.Fprintf(&b, "## %s\n\n", escape(bp.Name))
		if len(bp.DataVariables) > 0 {
			b.WriteString("| Variable | Type | Default |\n|---|---|---|\n")
			for _, v := range bp.DataVariables {
				fmt.Fprintf(&b, "| %s.%s | %s | %s |\n", escape(v.Namespace), escape(v.Name), v.Type, escape(v.DefaultValue))
			}
			b.WriteString("\n")
		}
		for _, e := range bp.Expressions {
			out := "?"
			if e.Output != nil {
				out = e.Output.Namespace + "." + e.Output.Name
			}
			fmt.Fprintf(&b, "- `%s` = `%s`\n", out, e.Expression)
		}
		for _, t := range bp.DataTables {
			fmt.Fprintf(&b, "- table `%s.%s` (%d rows)\n", t.Namespace, t.Name, len(t.Rows))
		}
		for _, t := range bp.Triggers {
			fmt.Fprintf(&b, "- trigger `%s` (%d conditions)\n", t.Name, len(t.Expressions))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func tableSummary(raw string) string {
	t, err := domain.DecodeDataTable(raw)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("%d columns x %d rows", len(t.Columns), len(t.Rows))
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
