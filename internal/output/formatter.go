// Package output renders a scan report in the formats the CLI and the web
// API offer.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/pkg/types"
)

// Report is a finished scan together with its remediation guidance.
type Report struct {
	Result      *types.ScanResult        `json:"result"`
	Suggestions []remediation.Suggestion `json:"suggestions"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// NewReport builds a report for result, mapping its alerts with mapper.
func NewReport(result *types.ScanResult, mapper *remediation.Mapper) Report {
	if mapper == nil {
		mapper = remediation.NewMapper(nil)
	}
	return Report{
		Result:      result,
		Suggestions: mapper.Generate(result),
		GeneratedAt: time.Now().UTC(),
	}
}

// Formatter renders a report to a writer.
type Formatter interface {
	Format(w io.Writer, r Report) error
}

// Formats lists the supported format names.
var Formats = []string{"table", "json", "markdown", "html", "pdf"}

// GetFormatter returns the appropriate formatter for the given format string.
func GetFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "table":
		return &TableFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	case "html":
		return &HTMLFormatter{}, nil
	case "pdf":
		return &PDFFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// ContentType returns the MIME type of a format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return "application/json"
	case "markdown", "md":
		return "text/markdown; charset=utf-8"
	case "html":
		return "text/html; charset=utf-8"
	case "pdf":
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// alertsBySeverity returns the report's alerts, most severe first. Alerts
// of equal severity keep their engine order.
func (r Report) alertsBySeverity() []types.Alert {
	if r.Result == nil {
		return nil
	}
	alerts := r.Result.Alerts()
	sort.SliceStable(alerts, func(i, j int) bool {
		return types.SeverityRank(alerts[i].Severity) < types.SeverityRank(alerts[j].Severity)
	})
	return alerts
}

func (r Report) target() string {
	if r.Result == nil {
		return ""
	}
	return r.Result.TargetURL()
}

func (r Report) counts() map[types.Severity]int {
	if r.Result == nil {
		return map[types.Severity]int{}
	}
	return r.Result.Counts()
}

func summary(counts map[types.Severity]int) string {
	total := 0
	for _, c := range counts {
		total += c
	}
	return fmt.Sprintf("%d alerts (%d critical, %d high, %d medium, %d low, %d info)",
		total,
		counts[types.SeverityCritical],
		counts[types.SeverityHigh],
		counts[types.SeverityMedium],
		counts[types.SeverityLow],
		counts[types.SeverityInformational],
	)
}

func firstURL(a types.Alert) string {
	if len(a.URLs) == 0 {
		return ""
	}
	if len(a.URLs) == 1 {
		return a.URLs[0]
	}
	return fmt.Sprintf("%s (+%d)", a.URLs[0], len(a.URLs)-1)
}
