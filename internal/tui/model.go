package tui

import (
	"context"

	"github.com/buemura/zapscan/internal/output"
	"github.com/buemura/zapscan/internal/policy"
	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/internal/tui/views"
	"github.com/buemura/zapscan/pkg/types"
	tea "github.com/charmbracelet/bubbletea"
)

// appState represents which view is currently active.
type appState int

const (
	stateMenu    appState = iota // Policy selection menu
	stateTarget                  // Target URL input
	stateScan                    // Scan in progress
	stateResults                 // Alerts and remediation
)

// Options wires the TUI to an engine and the scan defaults.
type Options struct {
	Engine   scanner.Engine
	Policies *policy.Manager
	Mapper   *remediation.Mapper

	// ScanOptions are applied before the policy chosen in the menu.
	ScanOptions []scanner.ScanOption
	// OrchestratorOptions are passed to every scan's orchestrator.
	OrchestratorOptions []scanner.Option
	// ExportPath is where the results view writes its JSON report.
	ExportPath string
}

// Model is the root Bubble Tea model that manages view transitions.
type Model struct {
	ctx    context.Context
	opts   Options
	state  appState
	width  int
	height int

	// Sub-models for each view.
	menu    views.MenuModel
	target  views.TargetModel
	scan    views.ScanModel
	results views.ResultsModel

	selected views.PolicyItem
}

// NewModel creates a root model listing every policy in opts.Policies.
func NewModel(ctx context.Context, opts Options) Model {
	var items []views.PolicyItem
	if opts.Policies != nil {
		for _, name := range opts.Policies.Names() {
			item := views.PolicyItem{Name: name}
			if p, err := opts.Policies.Get(name); err != nil {
				item.Description = err.Error()
			} else {
				item.Description = p.Description
			}
			items = append(items, item)
		}
	}
	items = append(items, views.PassiveOnlyItem)

	return Model{
		ctx:    ctx,
		opts:   opts,
		state:  stateMenu,
		menu:   views.NewMenuModel(items),
		target: views.NewTargetModel(),
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return m.target.Init()
}

// Update handles messages and manages state transitions.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.state == stateScan {
				m.scan.Cancel()
			}
			return m, tea.Quit
		case "esc":
			return m.handleBack()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	switch m.state {
	case stateMenu:
		return m.updateMenu(msg)
	case stateTarget:
		return m.updateTarget(msg)
	case stateScan:
		return m.updateScan(msg)
	case stateResults:
		return m.updateResults(msg)
	}

	return m, nil
}

// View renders the current view.
func (m Model) View() string {
	switch m.state {
	case stateMenu:
		return m.menu.View()
	case stateTarget:
		return m.target.View()
	case stateScan:
		return m.scan.View()
	case stateResults:
		return m.results.View()
	}
	return ""
}

// handleBack leaves the current view. A running scan cannot be left, only
// cancelled with ctrl+c.
func (m Model) handleBack() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateTarget, stateResults:
		m.state = stateMenu
	case stateScan:
		if m.scan.Done() {
			m.state = stateMenu
		}
	}
	return m, nil
}

func (m Model) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		selected := m.menu.Selected()
		if selected != nil {
			m.selected = *selected
			m.target = views.NewTargetModel()
			m.target.SetPolicyName(selected.Name)
			m.state = stateTarget
			return m, m.target.Init()
		}
	}

	updated, cmd := m.menu.Update(msg)
	m.menu = updated.(views.MenuModel)
	return m, cmd
}

func (m Model) updateTarget(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		target, err := m.target.ValidatedTarget()
		if err == nil {
			cfg, err := m.scanConfig(target)
			if err != nil {
				m.target.SetError(err)
				return m, nil
			}
			m.scan = views.NewScanModel(m.ctx, m.opts.Engine, cfg, m.selected.Name, m.opts.OrchestratorOptions...)
			m.state = stateScan
			return m, m.scan.Init()
		}
	}

	updated, cmd := m.target.Update(msg)
	m.target = updated.(views.TargetModel)
	return m, cmd
}

// scanConfig layers the menu choice over the configured defaults.
func (m Model) scanConfig(target types.Target) (scanner.ScanConfig, error) {
	opts := append([]scanner.ScanOption(nil), m.opts.ScanOptions...)
	if m.selected.Passive {
		opts = append(opts, scanner.WithActiveScan(false))
	} else if m.opts.Policies != nil {
		p, err := m.opts.Policies.Get(m.selected.Name)
		if err != nil {
			return scanner.ScanConfig{}, err
		}
		opts = append(opts, scanner.WithPolicy(p), scanner.WithActiveScan(true))
	}
	return scanner.NewScanConfig(target.String(), opts...)
}

func (m Model) updateScan(msg tea.Msg) (tea.Model, tea.Cmd) {
	if done, ok := msg.(views.ScanCompleteMsg); ok {
		report := output.NewReport(done.Result, m.opts.Mapper)
		m.results = views.NewResultsModel(report, m.opts.ExportPath)
		m.state = stateResults
		return m, nil
	}

	updated, cmd := m.scan.Update(msg)
	m.scan = updated.(views.ScanModel)
	return m, cmd
}

func (m Model) updateResults(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.results.Update(msg)
	m.results = updated.(views.ResultsModel)
	return m, cmd
}
