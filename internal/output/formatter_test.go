package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	result := types.NewScanResult("https://app.example.com", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	result.AddAlert(types.Alert{ID: "1", Name: "X-Content-Type-Options Header Missing", Severity: types.SeverityLow, CWEID: 693,
		URLs: []string{"https://app.example.com/"}})
	result.AddAlert(types.Alert{ID: "2", Name: "Cross Site Scripting (Reflected)", Severity: types.SeverityHigh, CWEID: 79,
		URLs: []string{"https://app.example.com/search?q=x", "https://app.example.com/find"}})
	result.AddAlert(types.Alert{ID: "3", Name: "Odd | Piped Alert", Severity: types.SeverityMedium})
	result.SetDuration(90 * time.Second)
	return NewReport(result, remediation.NewMapper(nil))
}

func TestGetFormatter(t *testing.T) {
	tests := []struct {
		format string
		want   Formatter
	}{
		{"table", &TableFormatter{}},
		{"json", &JSONFormatter{}},
		{"markdown", &MarkdownFormatter{}},
		{"MD", &MarkdownFormatter{}},
		{"html", &HTMLFormatter{}},
		{"pdf", &PDFFormatter{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := GetFormatter(tt.format)
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestGetFormatter_Unknown(t *testing.T) {
	_, err := GetFormatter("xml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", ContentType("json"))
	assert.Equal(t, "application/pdf", ContentType("pdf"))
	assert.Contains(t, ContentType("html"), "text/html")
	assert.Contains(t, ContentType("table"), "text/plain")
}

func TestNewReport_MapsSuggestions(t *testing.T) {
	r := sampleReport()
	require.Len(t, r.Suggestions, 3)
	assert.Equal(t, "X-Content-Type-Options Header Missing", r.Suggestions[0].AlertType)
	assert.False(t, r.GeneratedAt.IsZero())
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "https://app.example.com")
	assert.Contains(t, out, "Cross Site Scripting (Reflected)")
	assert.Contains(t, out, "CWE-79")
	assert.Contains(t, out, "(+1)")
	assert.Contains(t, out, "3 alerts (0 critical, 1 high, 1 medium, 1 low, 0 info)")
	assert.Contains(t, out, "[remediation] 3 suggestions")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Cross Site")), bytes.Index(buf.Bytes(), []byte("X-Content-Type")),
		"alerts are listed most severe first")
}

func TestTableFormatter_NoAlerts(t *testing.T) {
	var buf bytes.Buffer
	r := NewReport(types.NewScanResult("https://empty.example.com", time.Now()), nil)
	require.NoError(t, (&TableFormatter{}).Format(&buf, r))
	assert.Contains(t, buf.String(), "No alerts")
	assert.NotContains(t, buf.String(), "[remediation]")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleReport()))

	var decoded struct {
		Result struct {
			TargetURL   string `json:"target_url"`
			TotalAlerts int    `json:"total_alerts"`
		} `json:"result"`
		Suggestions []remediation.Suggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "https://app.example.com", decoded.Result.TargetURL)
	assert.Equal(t, 3, decoded.Result.TotalAlerts)
	assert.Len(t, decoded.Suggestions, 3)
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).Format(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "# Scan report: https://app.example.com")
	assert.Contains(t, out, "| **HIGH** | Cross Site Scripting (Reflected) | CWE-79 |")
	assert.Contains(t, out, `Odd \| Piped Alert`)
	assert.Contains(t, out, "## Remediation")
	assert.Contains(t, out, "1. ")
}

func TestHTMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&HTMLFormatter{}).Format(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "1 High")
	assert.Contains(t, out, "3 total alerts")
	assert.Contains(t, out, `class="badge high"`)
	assert.Contains(t, out, "Remediation")
	assert.Contains(t, out, "Odd | Piped Alert")
}

func TestHTMLFormatter_EscapesAlertText(t *testing.T) {
	result := types.NewScanResult("https://app.example.com", time.Now())
	result.AddAlert(types.Alert{ID: "1", Name: "<script>alert(1)</script>", Severity: types.SeverityLow})

	var buf bytes.Buffer
	require.NoError(t, (&HTMLFormatter{}).Format(&buf, NewReport(result, nil)))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestPDFFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PDFFormatter{}).Format(&buf, sampleReport()))

	out := buf.Bytes()
	require.Greater(t, len(out), 4)
	assert.Equal(t, "%PDF", string(out[:4]))
	assert.Contains(t, buf.String(), "Cross Site Scripting")
	assert.Contains(t, buf.String(), "Remediation")
}

func TestPDFFormatter_Compressed(t *testing.T) {
	var plain, compressed bytes.Buffer
	require.NoError(t, (&PDFFormatter{}).Format(&plain, sampleReport()))
	require.NoError(t, (&PDFFormatter{Compress: true}).Format(&compressed, sampleReport()))
	assert.Equal(t, "%PDF", compressed.String()[:4])
	assert.Less(t, compressed.Len(), plain.Len())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
