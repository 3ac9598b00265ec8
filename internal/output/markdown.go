package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/buemura/zapscan/pkg/types"
)

// MarkdownFormatter renders the report as Markdown suitable for pasting
// into docs, issues, or pull-request descriptions.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(w io.Writer, r Report) error {
	fmt.Fprintf(w, "# Scan report: %s\n\n", escapeMarkdown(r.target()))
	if r.Result != nil {
		fmt.Fprintf(w, "Started %s, took %s.\n\n", r.Result.StartedAt().UTC().Format("2006-01-02 15:04:05 MST"), r.Result.Duration())
	}

	fmt.Fprintln(w, "## Alerts")
	fmt.Fprintln(w)
	alerts := r.alertsBySeverity()
	if len(alerts) == 0 {
		fmt.Fprintln(w, "_No alerts._")
	} else {
		fmt.Fprintln(w, "| Severity | Alert | CWE | URL |")
		fmt.Fprintln(w, "|----------|-------|-----|-----|")
		for _, a := range alerts {
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
				severityBadge(a.Severity), escapeMarkdown(a.Name), cwe(a.CWEID), escapeMarkdown(firstURL(a)))
		}
	}
	fmt.Fprintf(w, "\n**Summary:** %s\n", summary(r.counts()))

	if len(r.Suggestions) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\n## Remediation")
	for _, s := range r.Suggestions {
		fmt.Fprintf(w, "\n### %s\n\n", escapeMarkdown(s.Title))
		fmt.Fprintf(w, "%s · %s · %s, about %d minutes\n\n", severityBadge(s.Severity), escapeMarkdown(s.AlertType), s.Difficulty, s.EstimatedMinutes)
		if s.Description != "" {
			fmt.Fprintf(w, "%s\n\n", s.Description)
		}
		for i, step := range s.Steps {
			fmt.Fprintf(w, "%d. %s\n", i+1, step)
		}
		for _, ex := range s.CodeExamples {
			fmt.Fprintf(w, "\n%s\n\n```%s\n%s\n```\n", ex.Description, strings.ToLower(ex.Language), strings.TrimRight(ex.Code, "\n"))
		}
		if len(s.References) > 0 {
			fmt.Fprintln(w, "\nReferences:")
			for _, ref := range s.References {
				fmt.Fprintf(w, "- %s\n", ref)
			}
		}
		if len(s.AffectedURLs) > 0 {
			fmt.Fprintln(w, "\nAffected URLs:")
			for _, u := range s.AffectedURLs {
				fmt.Fprintf(w, "- `%s`\n", u)
			}
		}
	}
	return nil
}

// severityBadge returns a bold, uppercased severity label for Markdown.
func severityBadge(s types.Severity) string {
	return fmt.Sprintf("**%s**", string(s))
}

// escapeMarkdown escapes pipe characters that would break Markdown tables.
func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
