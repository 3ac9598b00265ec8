package views

import (
	"fmt"
	"strings"

	"github.com/buemura/zapscan/internal/tui/styles"
	"github.com/buemura/zapscan/pkg/types"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// TargetModel is the view model for the target URL input.
type TargetModel struct {
	textInput  textinput.Model
	policyName string
	err        string
}

// NewTargetModel creates a new target input view.
func NewTargetModel() TargetModel {
	ti := textinput.New()
	ti.Placeholder = "e.g. https://app.example.com"
	ti.Focus()
	ti.CharLimit = 2048
	ti.Width = 60
	ti.PromptStyle = styles.CursorStyle
	ti.TextStyle = styles.SelectedStyle

	return TargetModel{textInput: ti}
}

// SetPolicyName sets which policy the scan will run with.
func (m *TargetModel) SetPolicyName(name string) {
	m.policyName = name
}

// PolicyName returns the selected policy name.
func (m TargetModel) PolicyName() string {
	return m.policyName
}

// SetError shows err below the input until the next keystroke.
func (m *TargetModel) SetError(err error) {
	m.err = err.Error()
}

// Init returns the text input blink command.
func (m TargetModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input events.
func (m TargetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		if _, err := m.ValidatedTarget(); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.err = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	if _, ok := msg.(tea.KeyMsg); ok {
		m.err = ""
	}
	return m, cmd
}

// View renders the target input form.
func (m TargetModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("ZAPScan: Interactive Mode"))
	b.WriteString("\n\n")
	b.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("Policy: %s", m.policyName)))
	b.WriteString("\n")
	b.WriteString("Enter target URL:\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(m.err))
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("enter start scan • esc back"))

	return b.String()
}

// Value returns the raw input.
func (m TargetModel) Value() string {
	return m.textInput.Value()
}

// ValidatedTarget parses and returns the target, or an error if invalid.
func (m TargetModel) ValidatedTarget() (types.Target, error) {
	value := strings.TrimSpace(m.textInput.Value())
	if value == "" {
		return types.Target{}, fmt.Errorf("target is required")
	}
	return types.ParseTarget(value)
}
