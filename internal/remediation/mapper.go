package remediation

import (
	"log/slog"
	"strings"

	"github.com/buemura/zapscan/pkg/types"
)

// genericSteps is used when a finding has no template and no solution text.
var genericSteps = []string{
	"Review the affected URLs and reproduce the finding.",
	"Identify the root cause in the code or configuration that produces it.",
	"Apply a fix following the referenced guidance and vendor recommendations.",
	"Re-run the scan to confirm the finding no longer appears.",
}

// Mapper resolves finding groups against a catalog.
type Mapper struct {
	catalog *Catalog
	logger  *slog.Logger
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

func WithLogger(l *slog.Logger) MapperOption {
	return func(m *Mapper) { m.logger = l }
}

// NewMapper creates a mapper over catalog; nil means DefaultCatalog.
func NewMapper(catalog *Catalog, opts ...MapperOption) *Mapper {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	m := &Mapper{catalog: catalog, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generate returns one suggestion per alert type in result, in order of
// each type's first occurrence.
func (m *Mapper) Generate(result *types.ScanResult) []Suggestion {
	if result == nil {
		return nil
	}
	return m.GenerateFromAlerts(result.Alerts())
}

// GenerateFromAlerts is Generate over a plain alert list.
func (m *Mapper) GenerateFromAlerts(alerts []types.Alert) []Suggestion {
	groups := groupByType(alerts)
	out := make([]Suggestion, 0, len(groups))
	for _, g := range groups {
		out = append(out, m.suggest(g))
	}
	m.logger.Debug("remediation generated", "alerts", len(alerts), "suggestions", len(out))
	return out
}

type group struct {
	alertType string
	alerts    []types.Alert
}

func groupByType(alerts []types.Alert) []*group {
	var order []*group
	byType := make(map[string]*group)
	for _, a := range alerts {
		g, ok := byType[a.Name]
		if !ok {
			g = &group{alertType: a.Name}
			byType[a.Name] = g
			order = append(order, g)
		}
		g.alerts = append(g.alerts, a)
	}
	return order
}

// severity is the most severe level in the group.
func (g *group) severity() types.Severity {
	best := types.SeverityInformational
	for _, a := range g.alerts {
		if types.SeverityRank(a.Severity) < types.SeverityRank(best) {
			best = a.Severity
		}
	}
	return best
}

func (g *group) cweID() int {
	for _, a := range g.alerts {
		if a.CWEID > 0 {
			return a.CWEID
		}
	}
	return 0
}

func (g *group) urls() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range g.alerts {
		for _, u := range a.URLs {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

func (m *Mapper) suggest(g *group) Suggestion {
	b := NewSuggestion(g.alertType).
		Findings(g.severity(), g.cweID(), len(g.alerts), g.urls())

	if t, kind, ok := m.catalog.Lookup(g.alertType); ok {
		return b.FromTemplate(t, kind).Build()
	}
	return m.generic(b, g).Build()
}

// generic builds guidance from the first finding's own solution text, or
// a fixed checklist when it has none. Effort follows the group severity.
func (m *Mapper) generic(b *SuggestionBuilder, g *group) *SuggestionBuilder {
	first := g.alerts[0]

	steps := solutionSteps(first.Solution)
	if len(steps) == 0 {
		steps = genericSteps
	}
	var refs []string
	for _, line := range strings.Split(first.Reference, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			refs = append(refs, line)
		}
	}

	difficulty, minutes := effortFor(g.severity())
	return b.Title("Remediate " + g.alertType).
		Description(first.Description).
		Steps(steps...).
		References(refs...).
		Effort(difficulty, minutes).
		Match(MatchGeneric)
}

func solutionSteps(solution string) []string {
	var steps []string
	for _, line := range strings.Split(solution, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}

// effortFor maps severity to a default effort. CRITICAL is treated as HIGH.
func effortFor(s types.Severity) (Difficulty, int) {
	switch s {
	case types.SeverityCritical, types.SeverityHigh:
		return DifficultyComplex, 120
	case types.SeverityMedium:
		return DifficultyModerate, 60
	default:
		return DifficultyEasy, 30
	}
}
