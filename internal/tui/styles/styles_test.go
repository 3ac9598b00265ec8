package styles

import (
	"testing"

	"github.com/buemura/zapscan/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSeverityStyle(t *testing.T) {
	tests := []struct {
		severity types.Severity
		want     lipgloss.TerminalColor
	}{
		{types.SeverityCritical, ColorCritical},
		{types.SeverityHigh, ColorHigh},
		{types.SeverityMedium, ColorMedium},
		{types.SeverityLow, ColorLow},
		{types.SeverityInformational, ColorInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			s := SeverityStyle(tt.severity)
			assert.Equal(t, tt.want, s.GetForeground())
			assert.Contains(t, s.Render("test"), "test")
		})
	}
}

func TestSeverityStyleReturnsDefaultForUnknown(t *testing.T) {
	s := SeverityStyle("UNKNOWN")
	assert.Equal(t, lipgloss.NoColor{}, s.GetForeground())
	assert.Contains(t, s.Render("test"), "test")
}

func TestStylesRender(t *testing.T) {
	tests := []struct {
		name  string
		style func(...string) string
	}{
		{"TitleStyle", TitleStyle.Render},
		{"HeaderStyle", HeaderStyle.Render},
		{"BorderStyle", BorderStyle.Render},
		{"SelectedStyle", SelectedStyle.Render},
		{"CursorStyle", CursorStyle.Render},
		{"HelpStyle", HelpStyle.Render},
		{"ErrorStyle", ErrorStyle.Render},
		{"DoneStyle", DoneStyle.Render},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.style("hello"), "hello")
		})
	}
}
