package remediation

import (
	"fmt"
	"strings"

	"github.com/buemura/zapscan/pkg/types"
)

// Suggestion is remediation guidance for every finding of one alert type.
type Suggestion struct {
	AlertType        string         `json:"alert_type"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Steps            []string       `json:"steps"`
	CodeExamples     []CodeExample  `json:"code_examples,omitempty"`
	References       []string       `json:"references,omitempty"`
	Difficulty       Difficulty     `json:"difficulty"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	AutomatedFix     string         `json:"automated_fix,omitempty"`
	Severity         types.Severity `json:"severity"`
	CWEID            int            `json:"cwe_id,omitempty"`
	InstanceCount    int            `json:"instance_count"`
	AffectedURLs     []string       `json:"affected_urls,omitempty"`
	Match            MatchKind      `json:"match"`
	TemplateKey      string         `json:"template_key,omitempty"`
}

// SuggestionBuilder assembles a Suggestion. Build copies every slice, so
// the result shares no memory with the template it came from.
type SuggestionBuilder struct {
	s Suggestion
}

// NewSuggestion starts a suggestion for alertType.
func NewSuggestion(alertType string) *SuggestionBuilder {
	return &SuggestionBuilder{s: Suggestion{AlertType: alertType}}
}

// FromTemplate copies the guidance fields of t.
func (b *SuggestionBuilder) FromTemplate(t Template, match MatchKind) *SuggestionBuilder {
	b.s.Title = t.Title
	b.s.Description = t.Description
	b.s.Steps = t.Steps
	b.s.CodeExamples = t.CodeExamples
	b.s.References = t.References
	b.s.Difficulty = t.Difficulty
	b.s.EstimatedMinutes = t.EstimatedMinutes
	b.s.AutomatedFix = t.AutomatedFix
	b.s.Match = match
	b.s.TemplateKey = t.Key
	return b
}

func (b *SuggestionBuilder) Title(title string) *SuggestionBuilder {
	b.s.Title = title
	return b
}

func (b *SuggestionBuilder) Description(d string) *SuggestionBuilder {
	b.s.Description = d
	return b
}

func (b *SuggestionBuilder) Steps(steps ...string) *SuggestionBuilder {
	b.s.Steps = steps
	return b
}

func (b *SuggestionBuilder) References(refs ...string) *SuggestionBuilder {
	b.s.References = refs
	return b
}

func (b *SuggestionBuilder) Effort(d Difficulty, minutes int) *SuggestionBuilder {
	b.s.Difficulty = d
	b.s.EstimatedMinutes = minutes
	return b
}

func (b *SuggestionBuilder) Match(m MatchKind) *SuggestionBuilder {
	b.s.Match = m
	return b
}

// Findings records the group's severity, CWE and affected URLs.
func (b *SuggestionBuilder) Findings(severity types.Severity, cweID int, count int, urls []string) *SuggestionBuilder {
	b.s.Severity = severity
	b.s.CWEID = cweID
	b.s.InstanceCount = count
	b.s.AffectedURLs = urls
	return b
}

// Build returns the suggestion with the instance count appended to its
// description.
func (b *SuggestionBuilder) Build() Suggestion {
	out := b.s
	out.Steps = append([]string(nil), b.s.Steps...)
	out.CodeExamples = append([]CodeExample(nil), b.s.CodeExamples...)
	out.References = append([]string(nil), b.s.References...)
	out.AffectedURLs = append([]string(nil), b.s.AffectedURLs...)

	note := fmt.Sprintf("This issue was detected in %d location(s).", out.InstanceCount)
	if d := strings.TrimSpace(out.Description); d != "" {
		out.Description = d + " " + note
	} else {
		out.Description = note
	}
	return out
}
