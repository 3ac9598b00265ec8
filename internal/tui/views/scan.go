package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/internal/tui/styles"
	"github.com/buemura/zapscan/pkg/types"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TransitionMsg carries one state change of the running scan.
type TransitionMsg scanner.Transition

// ProgressMsg carries one status poll of the running scan.
type ProgressMsg scanner.Progress

// ScanCompleteMsg is sent when a scan finishes.
type ScanCompleteMsg struct {
	Result *types.ScanResult
}

// ScanFailedMsg is sent when a scan stops with an error.
type ScanFailedMsg struct {
	Err error
}

// eventBuffer holds scan events until the program reads them. Senders give
// up once the scan context is cancelled.
const eventBuffer = 64

// ScanModel is the view model for the scan progress view.
type ScanModel struct {
	spinner spinner.Model
	engine  scanner.Engine
	cfg     scanner.ScanConfig
	opts    []scanner.Option
	policy  string

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg

	steps    []scanner.Transition
	progress *scanner.Progress
	done     bool
	err      string
	result   *types.ScanResult
}

// NewScanModel prepares a scan of cfg against engine. Nothing runs until
// Init's command does.
func NewScanModel(ctx context.Context, engine scanner.Engine, cfg scanner.ScanConfig, policyName string, opts ...scanner.Option) ScanModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.ColorAccent)

	ctx, cancel := context.WithCancel(ctx)
	return ScanModel{
		spinner: sp,
		engine:  engine,
		cfg:     cfg,
		opts:    opts,
		policy:  policyName,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan tea.Msg, eventBuffer),
	}
}

// Init starts the spinner, launches the scan and listens for its events.
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runScan(), m.waitForEvent())
}

// Cancel stops the running scan. The engine-side cleanup still runs.
func (m ScanModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Done reports whether the scan has finished, successfully or not.
func (m ScanModel) Done() bool {
	return m.done
}

// Update handles spinner ticks and scan events.
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TransitionMsg:
		m.steps = append(m.steps, scanner.Transition(msg))
		m.progress = nil
		return m, m.waitForEvent()

	case ProgressMsg:
		p := scanner.Progress(msg)
		m.progress = &p
		return m, m.waitForEvent()

	case ScanCompleteMsg:
		m.done = true
		m.result = msg.Result
		return m, nil

	case ScanFailedMsg:
		m.done = true
		m.err = msg.Err.Error()
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the scan progress.
func (m ScanModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("ZAPScan: Interactive Mode"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Target: %s\n", m.cfg.TargetURL))
	b.WriteString(fmt.Sprintf("  Policy: %s\n\n", m.policy))

	for _, t := range m.steps {
		stamp := t.At.Format(time.TimeOnly)
		if t.To == scanner.StateFailed {
			b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("  ✗ %s  %s", stamp, t.To)))
		} else {
			b.WriteString(styles.DoneStyle.Render(fmt.Sprintf("  ✓ %s  %s", stamp, t.To)))
		}
		b.WriteString("\n")
	}

	switch {
	case m.err != "":
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("Scan failed: %s", m.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.HelpStyle.Render("esc back • ctrl+c quit"))
		return b.String()
	case m.done:
		alerts := 0
		if m.result != nil {
			alerts = m.result.TotalAlerts()
		}
		b.WriteString(fmt.Sprintf("\nScan complete! Found %d alerts.\n", alerts))
	case m.progress != nil:
		b.WriteString(fmt.Sprintf("  %s %s\n", m.spinner.View(), progressLine(*m.progress)))
	default:
		b.WriteString(fmt.Sprintf("  %s %s\n", m.spinner.View(), styles.SelectedStyle.Render("Scanning...")))
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("ctrl+c cancel and quit"))

	return b.String()
}

func progressLine(p scanner.Progress) string {
	phase := styles.SelectedStyle.Render(p.Phase)
	if p.Phase == scanner.PhasePassive {
		return fmt.Sprintf("%s: %d records left to scan (poll %d)", phase, p.Value, p.Attempt)
	}
	return fmt.Sprintf("%s: %d%% (poll %d)", phase, p.Value, p.Attempt)
}

// runScan runs the scan on the command's goroutine. Transitions, polls and
// the outcome all go through the event channel, which is closed once the
// scan returns.
func (m ScanModel) runScan() tea.Cmd {
	ctx, events := m.ctx, m.events
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	}

	opts := append(append([]scanner.Option(nil), m.opts...),
		scanner.OnTransition(func(t scanner.Transition) { send(TransitionMsg(t)) }),
		scanner.OnProgress(func(p scanner.Progress) { send(ProgressMsg(p)) }),
	)
	engine, cfg := m.engine, m.cfg

	return func() tea.Msg {
		defer close(events)
		result, err := scanner.New(engine, opts...).Scan(ctx, cfg)
		if err != nil {
			send(ScanFailedMsg{Err: err})
			return nil
		}
		send(ScanCompleteMsg{Result: result})
		return nil
	}
}

func (m ScanModel) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}
