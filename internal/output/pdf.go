package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	gofpdf "github.com/go-pdf/fpdf"

	"github.com/buemura/zapscan/pkg/types"
)

// PDFFormatter renders the report as an A4 PDF document.
type PDFFormatter struct {
	// Compress toggles stream compression; tests turn it off to search
	// the raw output.
	Compress bool
}

var severityRGB = map[types.Severity][3]int{
	types.SeverityCritical:      {153, 27, 27},
	types.SeverityHigh:          {220, 38, 38},
	types.SeverityMedium:        {217, 119, 6},
	types.SeverityLow:           {2, 132, 199},
	types.SeverityInformational: {100, 116, 139},
}

func (f *PDFFormatter) Format(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(f.Compress)
	pdf.SetTitle("ZAP Scan Report: "+r.target(), true)
	pdf.SetCreator("zapscan", true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, "ZAP Scan Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.MultiCell(0, 5, tr(r.target()), "", "L", false)
	if r.Result != nil {
		pdf.CellFormat(0, 5, fmt.Sprintf("Started %s, took %s",
			r.Result.StartedAt().UTC().Format("2006-01-02 15:04 MST"), r.Result.Duration()), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdfSeveritySummary(pdf, r.counts())
	pdfAlerts(pdf, tr, r.alertsBySeverity())
	if len(r.Suggestions) > 0 {
		pdfSuggestions(pdf, tr, r)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return pdf.Output(w)
}

func pdfSeveritySummary(pdf *gofpdf.Fpdf, counts map[types.Severity]int) {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	cellW := (pageW - left - right) / float64(len(types.Severities))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(255, 255, 255)
	for _, sev := range types.Severities {
		c := severityRGB[sev]
		pdf.SetFillColor(c[0], c[1], c[2])
		pdf.CellFormat(cellW, 8, string(sev), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	for _, sev := range types.Severities {
		pdf.CellFormat(cellW, 8, strconv.Itoa(counts[sev]), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(10)
}

func pdfAlerts(pdf *gofpdf.Fpdf, tr func(string) string, alerts []types.Alert) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 8, "Alerts", "", 1, "L", false, 0, "")

	if len(alerts) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 6, "No alerts.", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(28, 7, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(70, 7, "Alert", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "CWE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(0, 7, "URL", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, a := range alerts {
		c, ok := severityRGB[a.Severity]
		if !ok {
			c = [3]int{60, 60, 60}
		}
		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.CellFormat(28, 6, string(a.Severity), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(70, 6, tr(truncate(a.Name, 48)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, cwe(a.CWEID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(0, 6, tr(truncate(firstURL(a), 56)), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func pdfSuggestions(pdf *gofpdf.Fpdf, tr func(string) string, r Report) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 8, "Remediation", "", 1, "L", false, 0, "")

	for _, s := range r.Suggestions {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(30, 41, 59)
		pdf.MultiCell(0, 6, tr(s.Title), "", "L", false)

		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s | %s | %s, about %d minutes | %d instance(s)",
			s.Severity, s.AlertType, s.Difficulty, s.EstimatedMinutes, s.InstanceCount)), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(60, 60, 60)
		if s.Description != "" {
			pdf.MultiCell(0, 5, tr(s.Description), "", "L", false)
		}
		for i, step := range s.Steps {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%d. %s", i+1, step)), "", "L", false)
		}
		for _, ex := range s.CodeExamples {
			pdf.SetFont("Courier", "", 8)
			pdf.SetFillColor(241, 245, 249)
			pdf.MultiCell(0, 4, tr(strings.TrimRight(ex.Code, "\n")), "", "L", true)
			pdf.SetFont("Helvetica", "", 9)
		}
		for _, ref := range s.References {
			pdf.SetTextColor(21, 101, 192)
			pdf.MultiCell(0, 5, tr(ref), "", "L", false)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
