package output

import (
	"fmt"
	"html/template"
	"io"

	"github.com/buemura/zapscan/pkg/types"
)

// HTMLFormatter renders the report as a self-contained HTML page with
// styled severity badges and expandable alert details.
type HTMLFormatter struct{}

func (f *HTMLFormatter) Format(w io.Writer, r Report) error {
	return htmlTpl.Execute(w, htmlData{
		Report: r,
		Target: r.target(),
		Alerts: r.alertsBySeverity(),
		Counts: r.counts(),
	})
}

type htmlData struct {
	Report
	Target string
	Alerts []types.Alert
	Counts map[types.Severity]int
}

// severityClass maps a Severity to a CSS class name.
func severityClass(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "critical"
	case types.SeverityHigh:
		return "high"
	case types.SeverityMedium:
		return "medium"
	case types.SeverityLow:
		return "low"
	default:
		return "info"
	}
}

var funcMap = template.FuncMap{
	"severityClass": severityClass,
	"cwe":           cwe,
	"count": func(counts map[types.Severity]int, sev string) int {
		return counts[types.Severity(sev)]
	},
}

var htmlTpl = template.Must(template.New("report").Funcs(funcMap).Parse(fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>ZAP Scan Report: {{.Target}}</title>
<style>%s</style>
</head>
<body>
<div class="container">
  <h1>ZAP Scan Report</h1>
  <p class="meta">{{.Target}}{{if .Result}} &middot; started {{.Result.StartedAt.UTC.Format "2006-01-02 15:04:05 MST"}} &middot; {{.Result.Duration}}{{end}}</p>

  <div class="summary-bar">
    <span class="badge critical">{{count .Counts "CRITICAL"}} Critical</span>
    <span class="badge high">{{count .Counts "HIGH"}} High</span>
    <span class="badge medium">{{count .Counts "MEDIUM"}} Medium</span>
    <span class="badge low">{{count .Counts "LOW"}} Low</span>
    <span class="badge info">{{count .Counts "INFORMATIONAL"}} Info</span>
    <span class="total">{{len .Alerts}} total alerts</span>
  </div>

  <section class="section">
    <h2>Alerts</h2>
    {{if not .Alerts}}
      <p class="no-findings">No alerts.</p>
    {{else}}
      <table>
        <thead>
          <tr><th>Severity</th><th>Alert</th><th>CWE</th><th>Details</th></tr>
        </thead>
        <tbody>
          {{range .Alerts}}
          <tr>
            <td><span class="badge {{severityClass .Severity}}">{{.Severity}}</span></td>
            <td>{{.Name}}</td>
            <td>{{cwe .CWEID}}</td>
            <td>
              {{.Description}}
              {{if or .URLs .Solution}}
              <details>
                <summary>Details</summary>
                {{range .URLs}}<p><code>{{.}}</code></p>{{end}}
                {{if .Solution}}<p><strong>Solution:</strong> {{.Solution}}</p>{{end}}
              </details>
              {{end}}
            </td>
          </tr>
          {{end}}
        </tbody>
      </table>
    {{end}}
  </section>

  {{if .Suggestions}}
  <section class="section">
    <h2>Remediation</h2>
    {{range .Suggestions}}
    <div class="suggestion">
      <h3><span class="badge {{severityClass .Severity}}">{{.Severity}}</span> {{.Title}}</h3>
      <p class="meta">{{.AlertType}} &middot; {{.Difficulty}} &middot; about {{.EstimatedMinutes}} minutes &middot; {{.InstanceCount}} instance(s)</p>
      {{if .Description}}<p>{{.Description}}</p>{{end}}
      <ol>{{range .Steps}}<li>{{.}}</li>{{end}}</ol>
      {{range .CodeExamples}}<p>{{.Description}}</p><pre><code>{{.Code}}</code></pre>{{end}}
      {{if .References}}<ul>{{range .References}}<li><a href="{{.}}">{{.}}</a></li>{{end}}</ul>{{end}}
    </div>
    {{end}}
  </section>
  {{end}}
</div>
</body>
</html>`, cssStyles)))

const cssStyles = `
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,Helvetica,Arial,sans-serif;
     line-height:1.6;color:#1a1a2e;background:#f5f5fa;padding:2rem}
.container{max-width:960px;margin:0 auto}
h1{margin-bottom:1rem;font-size:1.8rem}
h2{margin:1.5rem 0 .75rem;font-size:1.3rem;border-bottom:2px solid #e0e0e0;padding-bottom:.3rem}
.summary-bar{display:flex;gap:.5rem;flex-wrap:wrap;align-items:center;margin-bottom:1.5rem}
.total{margin-left:.5rem;font-weight:600}
.badge{display:inline-block;padding:2px 10px;border-radius:12px;font-size:.8rem;font-weight:700;color:#fff;text-transform:uppercase}
.badge.critical{background:#d32f2f}
.badge.high{background:#e53935}
.badge.medium{background:#f9a825;color:#333}
.badge.low{background:#0288d1}
.badge.info{background:#757575}
table{width:100%;border-collapse:collapse;margin-bottom:1rem}
th,td{text-align:left;padding:.5rem .75rem;border-bottom:1px solid #e0e0e0}
th{background:#eaeaea;font-weight:600}
tr:hover{background:#f0f0ff}
details{margin-top:.4rem}
summary{cursor:pointer;color:#1565c0;font-size:.85rem}
.error-box{background:#ffebee;color:#c62828;padding:.75rem 1rem;border-radius:6px;margin-bottom:1rem}
.no-findings{color:#666;font-style:italic}
.section{margin-bottom:2rem}
.meta{color:#555;margin-bottom:1rem}
.suggestion{background:#fff;border:1px solid #e0e0e0;border-radius:6px;padding:1rem;margin-bottom:1rem}
.suggestion h3{font-size:1.05rem;margin-bottom:.4rem}
.suggestion ol,.suggestion ul{margin:.5rem 0 .5rem 1.5rem}
pre{background:#1a1a2e;color:#f5f5fa;padding:.75rem;border-radius:6px;overflow-x:auto;font-size:.8rem;margin:.5rem 0}
`
