package views

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m TargetModel, s string) TargetModel {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return updated.(TargetModel)
}

func TestNewTargetModel(t *testing.T) {
	m := NewTargetModel()
	assert.Equal(t, "", m.PolicyName())
	assert.Equal(t, "", m.Value())
}

func TestTargetModelSetPolicyName(t *testing.T) {
	m := NewTargetModel()
	m.SetPolicyName("XSS")
	assert.Equal(t, "XSS", m.PolicyName())
}

func TestTargetModelView(t *testing.T) {
	m := NewTargetModel()
	m.SetPolicyName("SQL-Injection")
	view := m.View()

	assert.Contains(t, view, "ZAPScan")
	assert.Contains(t, view, "SQL-Injection")
	assert.Contains(t, view, "Enter target")
	assert.Contains(t, view, "esc back")
}

func TestTargetModelValidatedTargetEmpty(t *testing.T) {
	m := NewTargetModel()
	_, err := m.ValidatedTarget()
	assert.Error(t, err)
}

func TestTargetModelValidatedTarget(t *testing.T) {
	m := typeText(NewTargetModel(), "https://app.example.com:8443/shop")

	target, err := m.ValidatedTarget()
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", target.Host)
	assert.Equal(t, 8443, target.Port)
}

func TestTargetModelEnterShowsValidationError(t *testing.T) {
	m := NewTargetModel()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(TargetModel)
	assert.Contains(t, m.View(), "target is required")

	// Typing clears the error.
	m = typeText(m, "a")
	assert.NotContains(t, m.View(), "target is required")
}

func TestTargetModelSetError(t *testing.T) {
	m := NewTargetModel()
	m.SetError(errors.New("scan failed to start"))
	assert.Contains(t, m.View(), "scan failed to start")
}

func TestTargetModelInit(t *testing.T) {
	m := NewTargetModel()
	assert.NotNil(t, m.Init())
}
