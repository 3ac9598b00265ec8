package remediation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/buemura/zapscan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tmpl(key string) Template {
	return Template{
		Key:              key,
		Title:            key + " fix",
		Description:      key + " description.",
		Steps:            []string{"step one"},
		Difficulty:       DifficultyEasy,
		EstimatedMinutes: 5,
	}
}

func TestLookup_ExactBeatsSubstring(t *testing.T) {
	c, err := NewCatalog(tmpl("Scripting"), tmpl("Cross Site Scripting"))
	require.NoError(t, err)

	got, kind, ok := c.Lookup("Cross Site Scripting")
	require.True(t, ok)
	assert.Equal(t, "Cross Site Scripting", got.Key)
	assert.Equal(t, MatchExact, kind)
}

func TestLookup_SubstringUsesCatalogOrder(t *testing.T) {
	c, err := NewCatalog(tmpl("Scripting"), tmpl("Cross Site Scripting"))
	require.NoError(t, err)

	got, kind, ok := c.Lookup("Cross Site Scripting (Reflected)")
	require.True(t, ok)
	assert.Equal(t, "Scripting", got.Key)
	assert.Equal(t, MatchSubstring, kind)
}

func TestLookup_KeyContainsAlertType(t *testing.T) {
	c, err := NewCatalog(tmpl("SQL Injection - MySQL"))
	require.NoError(t, err)

	got, kind, ok := c.Lookup("SQL Injection")
	require.True(t, ok)
	assert.Equal(t, "SQL Injection - MySQL", got.Key)
	assert.Equal(t, MatchSubstring, kind)

	_, _, ok = c.Lookup("")
	assert.False(t, ok)
}

func TestNewCatalog_RejectsDuplicatesAndInvalid(t *testing.T) {
	_, err := NewCatalog(tmpl("A"), tmpl("A"))
	assert.ErrorContains(t, err, "duplicate")

	bad := tmpl("B")
	bad.Difficulty = "HARD"
	_, err = NewCatalog(bad)
	assert.Error(t, err)

	c := DefaultCatalog()
	n := c.Len()
	assert.Error(t, c.Append(tmpl("New"), tmpl("Cross Site Scripting")))
	assert.Equal(t, n, c.Len(), "a failed append adds nothing")
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Greater(t, c.Len(), 10)

	got, kind, ok := c.Lookup("Cross Site Scripting (Persistent)")
	require.True(t, ok)
	assert.Equal(t, "Cross Site Scripting", got.Key)
	assert.Equal(t, MatchSubstring, kind)
}

func TestGenerate_GenericFallbackForHigh(t *testing.T) {
	m := NewMapper(DefaultCatalog())
	out := m.GenerateFromAlerts([]types.Alert{{Name: "Unknown-Custom-Check", Severity: types.SeverityHigh}})

	require.Len(t, out, 1)
	s := out[0]
	assert.Equal(t, MatchGeneric, s.Match)
	assert.Equal(t, DifficultyComplex, s.Difficulty)
	assert.Equal(t, 120, s.EstimatedMinutes)
	assert.Len(t, s.Steps, 4)
	assert.Equal(t, "This issue was detected in 1 location(s).", s.Description)
}

func TestGenerate_GenericEffortBySeverity(t *testing.T) {
	m := NewMapper(DefaultCatalog())
	cases := map[types.Severity]struct {
		d   Difficulty
		min int
	}{
		types.SeverityCritical:      {DifficultyComplex, 120},
		types.SeverityMedium:        {DifficultyModerate, 60},
		types.SeverityLow:           {DifficultyEasy, 30},
		types.SeverityInformational: {DifficultyEasy, 30},
	}
	for sev, want := range cases {
		out := m.GenerateFromAlerts([]types.Alert{{Name: "Unmatched Thing", Severity: sev}})
		require.Len(t, out, 1)
		assert.Equal(t, want.d, out[0].Difficulty, sev)
		assert.Equal(t, want.min, out[0].EstimatedMinutes, sev)
	}
}

func TestGenerate_GenericUsesSolutionText(t *testing.T) {
	m := NewMapper(DefaultCatalog())
	out := m.GenerateFromAlerts([]types.Alert{{
		Name:      "Proprietary Header Leak",
		Severity:  types.SeverityLow,
		Solution:  "Remove the X-Debug header.\n\nRotate exposed tokens.",
		Reference: "https://example.com/a\nhttps://example.com/b",
	}})

	require.Len(t, out, 1)
	assert.Equal(t, []string{"Remove the X-Debug header.", "Rotate exposed tokens."}, out[0].Steps)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, out[0].References)
}

func TestGenerate_GroupsInFirstOccurrenceOrder(t *testing.T) {
	result := types.NewScanResult("https://shop.example.com", time.Now())
	result.AddAlert(types.Alert{ID: "1", Name: "Cookie No HttpOnly Flag", Severity: types.SeverityLow, URLs: []string{"https://shop.example.com/"}})
	result.AddAlert(types.Alert{ID: "2", Name: "SQL Injection", Severity: types.SeverityHigh, CWEID: 89, URLs: []string{"https://shop.example.com/item?id=1"}})
	result.AddAlert(types.Alert{ID: "3", Name: "Cookie No HttpOnly Flag", Severity: types.SeverityMedium, URLs: []string{"https://shop.example.com/"}})
	result.AddAlert(types.Alert{ID: "4", Name: "Cookie No HttpOnly Flag", Severity: types.SeverityLow, URLs: []string{"https://shop.example.com/cart"}})

	out := NewMapper(nil).Generate(result)
	require.Len(t, out, 2)

	cookie := out[0]
	assert.Equal(t, "Cookie No HttpOnly Flag", cookie.AlertType)
	assert.Equal(t, MatchExact, cookie.Match)
	assert.Equal(t, 3, cookie.InstanceCount)
	assert.Equal(t, types.SeverityMedium, cookie.Severity)
	assert.Equal(t, []string{"https://shop.example.com/", "https://shop.example.com/cart"}, cookie.AffectedURLs)
	assert.True(t, strings.HasSuffix(cookie.Description, "This issue was detected in 3 location(s)."))

	assert.Equal(t, "SQL Injection", out[1].AlertType)
	assert.Equal(t, 89, out[1].CWEID)
}

func TestGenerate_IsDeterministic(t *testing.T) {
	alerts := []types.Alert{
		{Name: "X-Content-Type-Options Header Missing", Severity: types.SeverityLow},
		{Name: "Cross Site Scripting (Reflected)", Severity: types.SeverityHigh},
		{Name: "Something Else", Severity: types.SeverityMedium},
	}
	m := NewMapper(nil)
	first := m.GenerateFromAlerts(alerts)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, m.GenerateFromAlerts(alerts))
	}
}

func TestSuggestion_DoesNotAliasTemplate(t *testing.T) {
	c, err := NewCatalog(tmpl("Thing"))
	require.NoError(t, err)
	out := NewMapper(c).GenerateFromAlerts([]types.Alert{{Name: "Thing", Severity: types.SeverityLow}})
	require.Len(t, out, 1)

	out[0].Steps[0] = "mutated"
	again, _, _ := c.Lookup("Thing")
	assert.Equal(t, "step one", again.Steps[0])
}

func TestGenerate_NilResult(t *testing.T) {
	assert.Nil(t, NewMapper(nil).Generate(nil))
}

func TestLoadTemplatesFile_AppendsAfterBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	doc := `templates:
  - key: GraphQL Introspection
    title: Disable introspection in production
    description: The schema is exposed to anonymous clients.
    steps:
      - Turn off introspection outside development.
    difficulty: easy
    estimated_minutes: 20
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c := DefaultCatalog()
	n := c.Len()
	require.NoError(t, c.LoadTemplatesFile(path))

	assert.Equal(t, n+1, c.Len())
	assert.Equal(t, "GraphQL Introspection", c.Keys()[n])
	got, kind, ok := c.Lookup("GraphQL Introspection")
	require.True(t, ok)
	assert.Equal(t, MatchExact, kind)
	assert.Equal(t, DifficultyEasy, got.Difficulty)
}

func TestParseTemplatesYAML_UnknownField(t *testing.T) {
	_, err := ParseTemplatesYAML(strings.NewReader("templates:\n  - key: A\n    colour: red\n"))
	assert.Error(t, err)

	templates, err := ParseTemplatesYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, templates)
}
