package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/buemura/zapscan/pkg/types"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter renders the report as colored terminal tables.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, r Report) error {
	alerts := r.alertsBySeverity()
	fmt.Fprintf(w, "\n[zap] %s: %d alerts\n", r.target(), len(alerts))

	if len(alerts) == 0 {
		fmt.Fprintln(w, "  No alerts.")
	} else {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Severity", "Alert", "CWE", "URL"})
		table.SetAutoWrapText(false)
		table.SetBorder(false)
		table.SetColumnSeparator("│")
		for _, a := range alerts {
			table.Append([]string{colorSeverity(a.Severity), a.Name, cwe(a.CWEID), firstURL(a)})
		}
		table.Render()
	}
	fmt.Fprintf(w, "  Summary: %s\n", summary(r.counts()))

	if len(r.Suggestions) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n[remediation] %d suggestions\n", len(r.Suggestions))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Severity", "Alert", "Fix", "Effort", "Count"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("│")
	for _, s := range r.Suggestions {
		table.Append([]string{
			colorSeverity(s.Severity),
			s.AlertType,
			s.Title,
			fmt.Sprintf("%s ~%dm", s.Difficulty, s.EstimatedMinutes),
			strconv.Itoa(s.InstanceCount),
		})
	}
	table.Render()

	for _, s := range r.Suggestions {
		fmt.Fprintf(w, "\n  %s\n", color.New(color.Bold).Sprint(s.Title))
		for i, step := range s.Steps {
			fmt.Fprintf(w, "    %d. %s\n", i+1, step)
		}
		if len(s.References) > 0 {
			fmt.Fprintf(w, "    refs: %s\n", strings.Join(s.References, ", "))
		}
	}
	return nil
}

func colorSeverity(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return color.RedString("CRITICAL")
	case types.SeverityHigh:
		return color.RedString("HIGH")
	case types.SeverityMedium:
		return color.YellowString("MEDIUM")
	case types.SeverityLow:
		return color.CyanString("LOW")
	case types.SeverityInformational:
		return color.WhiteString("INFO")
	default:
		return string(s)
	}
}

func cwe(id int) string {
	if id <= 0 {
		return "-"
	}
	return "CWE-" + strconv.Itoa(id)
}
