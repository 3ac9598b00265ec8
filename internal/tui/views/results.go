package views

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/buemura/zapscan/internal/output"
	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/internal/tui/styles"
	"github.com/buemura/zapscan/pkg/types"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultExportPath is where "e" writes the JSON report.
const DefaultExportPath = "zapscan-report.json"

// ResultsModel is the view model for alerts and their remediation.
type ResultsModel struct {
	report      output.Report
	alerts      []types.Alert
	suggestions map[string]remediation.Suggestion

	cursor     int
	offset     int
	maxRows    int
	exportPath string
	exported   bool
	exportErr  string
}

// NewResultsModel creates a results view for report, most severe alerts
// first.
func NewResultsModel(report output.Report, exportPath string) ResultsModel {
	var alerts []types.Alert
	if report.Result != nil {
		alerts = report.Result.Alerts()
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return types.SeverityRank(alerts[i].Severity) < types.SeverityRank(alerts[j].Severity)
	})

	suggestions := make(map[string]remediation.Suggestion, len(report.Suggestions))
	for _, s := range report.Suggestions {
		suggestions[s.AlertType] = s
	}

	if exportPath == "" {
		exportPath = DefaultExportPath
	}
	return ResultsModel{
		report:      report,
		alerts:      alerts,
		suggestions: suggestions,
		maxRows:     15,
		exportPath:  exportPath,
	}
}

// Init returns nil (no initial command).
func (m ResultsModel) Init() tea.Cmd {
	return nil
}

// Update handles key events for scrolling and export.
func (m ResultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.alerts)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.maxRows {
					m.offset = m.cursor - m.maxRows + 1
				}
			}
		case "e":
			m.exportJSON()
		case "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the alert table and the selected alert's remediation.
func (m ResultsModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("ZAPScan: Scan Results"))
	b.WriteString("\n\n")

	if len(m.alerts) == 0 {
		b.WriteString("No alerts raised.\n")
	} else {
		b.WriteString(m.summaryLine())
		b.WriteString("\n\n")

		header := fmt.Sprintf("  %-14s %-45s %s", "SEVERITY", "ALERT", "URL")
		b.WriteString(styles.HeaderStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("─", 100))
		b.WriteString("\n")

		end := min(m.offset+m.maxRows, len(m.alerts))
		for i := m.offset; i < end; i++ {
			a := m.alerts[i]
			cursor := "  "
			if i == m.cursor {
				cursor = styles.CursorStyle.Render("> ")
			}

			severity := styles.SeverityStyle(a.Severity).Render(fmt.Sprintf("%-14s", a.Severity))
			url := ""
			if len(a.URLs) > 0 {
				url = styles.HelpStyle.Render(truncate(a.URLs[0], 40))
			}
			b.WriteString(fmt.Sprintf("%s%s %-45s %s\n", cursor, severity, truncate(a.Name, 45), url))
		}

		if len(m.alerts) > m.maxRows {
			b.WriteString(fmt.Sprintf("\n  Showing %d-%d of %d alerts\n", m.offset+1, end, len(m.alerts)))
		}

		b.WriteString("\n")
		b.WriteString(m.detailView(m.alerts[m.cursor]))
	}

	if m.exported {
		b.WriteString("\n")
		b.WriteString(styles.SelectedStyle.Render("Report exported to " + m.exportPath))
	}
	if m.exportErr != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(m.exportErr))
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("↑/↓ scroll • e export JSON • esc new scan • q quit"))

	return b.String()
}

func (m ResultsModel) summaryLine() string {
	counts := m.report.Result.Counts()

	var parts []string
	for _, sev := range types.Severities {
		if c := counts[sev]; c > 0 {
			parts = append(parts, styles.SeverityStyle(sev).Render(fmt.Sprintf("%s: %d", sev, c)))
		}
	}

	return fmt.Sprintf("Total: %d alerts  [%s]", len(m.alerts), strings.Join(parts, "  "))
}

func (m ResultsModel) detailView(a types.Alert) string {
	var d strings.Builder
	fmt.Fprintf(&d, "Alert: %s\nSeverity: %s", a.Name, a.Severity)
	if a.CWEID > 0 {
		fmt.Fprintf(&d, "\nCWE: %d", a.CWEID)
	}
	if len(a.URLs) > 0 {
		fmt.Fprintf(&d, "\nURL: %s", a.URLs[0])
	}
	if a.Description != "" {
		fmt.Fprintf(&d, "\nDescription: %s", truncate(a.Description, 300))
	}

	var b strings.Builder
	b.WriteString(styles.BorderStyle.Render(d.String()))

	s, ok := m.suggestions[a.Name]
	if !ok {
		return b.String()
	}
	b.WriteString("\n  ")
	b.WriteString(styles.HeaderStyle.Render("Remediation: " + s.Title))
	for i, step := range s.Steps {
		b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
	}
	if s.Difficulty != "" {
		b.WriteString("\n  ")
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("effort: %s, about %d min", s.Difficulty, s.EstimatedMinutes)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *ResultsModel) exportJSON() {
	f, err := os.Create(m.exportPath)
	if err != nil {
		m.exportErr = fmt.Sprintf("export failed: %v", err)
		return
	}
	formatter := &output.JSONFormatter{}
	if err := formatter.Format(f, m.report); err != nil {
		f.Close()
		m.exportErr = fmt.Sprintf("export failed: %v", err)
		return
	}
	if err := f.Close(); err != nil {
		m.exportErr = fmt.Sprintf("export failed: %v", err)
		return
	}

	m.exported = true
	m.exportErr = ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
