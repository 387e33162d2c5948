// ABOUTME: TUI view for sync status and queued changes
// ABOUTME: Displays connectivity, queue depth, pending entities, and recent activity
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/presencehq/radar/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Radar Sync"))
	s.WriteString("\n\n")

	status := m.engine.Status()

	// Connectivity line
	if status.Online {
		s.WriteString(onlineStyle.Render("● Online"))
	} else {
		s.WriteString(offlineStyle.Render("● Offline"))
	}
	if m.syncing {
		s.WriteString("  " + m.spinner.View() + pendingStyle.Render(" Syncing..."))
	} else if !status.LastSync.IsZero() {
		s.WriteString(messageStyle.Render("  • Last synced " + formatTimeSince(status.LastSync)))
	}
	s.WriteString("\n")
	if status.LastError != "" {
		s.WriteString(offlineStyle.Render("  Last error: " + status.LastError))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	// Queue summary
	s.WriteString(headerStyle.Render("Queued Changes"))
	s.WriteString("\n\n")
	if status.Pending == 0 {
		s.WriteString(messageStyle.Render("  Nothing waiting to sync."))
		s.WriteString("\n")
	} else {
		s.WriteString(fmt.Sprintf("  %d action(s) waiting for the next drain\n", status.Pending))
	}
	s.WriteString("\n")

	// Pending analyses
	pending := m.pendingAnalyses()
	if len(pending) > 0 {
		s.WriteString(headerStyle.Render("Pending Reports"))
		s.WriteString("\n\n")
		for _, item := range pending {
			s.WriteString(pendingStyle.Render("  ⟳ " + item.CompanyName))
			s.WriteString(messageStyle.Render("  (queued " + formatTimeSince(item.Date) + ")"))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	// Recent activity
	if len(m.messages) > 0 {
		s.WriteString(headerStyle.Render("Recent Activity"))
		s.WriteString("\n\n")
		start := 0
		if len(m.messages) > 5 {
			start = len(m.messages) - 5
		}
		for i := start; i < len(m.messages); i++ {
			s.WriteString(messageStyle.Render("  " + m.messages[i]))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("s: Sync now • r: Refresh • q: Quit"))
	return s.String()
}

func (m Model) pendingAnalyses() []models.AnalysisHistoryItem {
	var pending []models.AnalysisHistoryItem
	for _, item := range m.session.History() {
		if item.Status == models.StatusPending {
			pending = append(pending, item)
		}
	}
	return pending
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
