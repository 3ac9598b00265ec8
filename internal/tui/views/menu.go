package views

import (
	"fmt"
	"strings"

	"github.com/buemura/zapscan/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
)

// PolicyItem is one entry of the policy menu. A Passive item runs the
// spider and the passive scanner only.
type PolicyItem struct {
	Name        string
	Description string
	Passive     bool
}

// PassiveOnlyItem is appended after the scan policies.
var PassiveOnlyItem = PolicyItem{
	Name:        "passive-only",
	Description: "Spider and passive scan, no active attacks",
	Passive:     true,
}

// MenuModel is the view model for the policy selection menu.
type MenuModel struct {
	items  []PolicyItem
	cursor int
}

// NewMenuModel creates a menu with the given policy items.
func NewMenuModel(items []PolicyItem) MenuModel {
	return MenuModel{items: items}
}

// Init returns nil (no initial command).
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update handles key navigation in the menu.
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the policy selection menu.
func (m MenuModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("ZAPScan: Interactive Mode"))
	b.WriteString("\n\n")
	b.WriteString(styles.HeaderStyle.Render("Select a scan policy:"))
	b.WriteString("\n")

	width := 0
	for _, item := range m.items {
		width = max(width, len(item.Name))
	}

	for i, item := range m.items {
		cursor := "  "
		nameStyle := styles.HelpStyle
		if i == m.cursor {
			cursor = styles.CursorStyle.Render("> ")
			nameStyle = styles.SelectedStyle
		}

		b.WriteString(fmt.Sprintf("%s%s  %s\n",
			cursor,
			nameStyle.Render(fmt.Sprintf("%-*s", width, item.Name)),
			styles.HelpStyle.Render(item.Description),
		))
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("↑/↓ navigate • enter select • q quit"))

	return b.String()
}

// Selected returns the currently highlighted item, or nil if empty.
func (m MenuModel) Selected() *PolicyItem {
	if len(m.items) == 0 {
		return nil
	}
	return &m.items[m.cursor]
}

// Cursor returns the current cursor position.
func (m MenuModel) Cursor() int {
	return m.cursor
}

// Items returns the menu items.
func (m MenuModel) Items() []PolicyItem {
	return m.items
}
