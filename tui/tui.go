// ABOUTME: Terminal UI entry point for sync monitoring
// ABOUTME: Bubbletea model, key handling, and background sync commands
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/presencehq/radar/session"
	radarsync "github.com/presencehq/radar/sync"
)

// SyncCompleteMsg is sent when a sync attempt finishes.
type SyncCompleteMsg struct {
	Error error
}

type tickMsg time.Time

// Model drives the sync status view.
type Model struct {
	session *session.Session
	engine  *radarsync.Engine
	monitor *radarsync.Monitor

	spinner  spinner.Model
	syncing  bool
	messages []string
	quitting bool
}

// NewModel builds the TUI model.
func NewModel(sess *session.Session, engine *radarsync.Engine, monitor *radarsync.Monitor) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	return Model{
		session: sess,
		engine:  engine,
		monitor: monitor,
		spinner: sp,
	}
}

// Run starts the TUI program.
func Run(sess *session.Session, engine *radarsync.Engine, monitor *radarsync.Monitor) error {
	p := tea.NewProgram(NewModel(sess, engine, monitor))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "s":
			if m.syncing {
				return m, nil
			}
			m.syncing = true
			m.addMessage("Starting sync...")
			return m, tea.Batch(m.spinner.Tick, m.runSync())
		case "r":
			return m, nil // view re-renders from live state
		}

	case SyncCompleteMsg:
		m.syncing = false
		if msg.Error != nil {
			m.addMessage(fmt.Sprintf("✗ sync failed: %v", msg.Error))
		} else {
			m.addMessage("✓ sync completed")
		}
		return m, nil

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// runSync performs a full drain+pull off the UI loop.
func (m Model) runSync() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		return SyncCompleteMsg{Error: engine.Sync(ctx)}
	}
}

func (m *Model) addMessage(msg string) {
	timestamp := time.Now().Format("15:04:05")
	m.messages = append(m.messages, fmt.Sprintf("[%s] %s", timestamp, msg))
}
