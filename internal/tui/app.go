// Package tui renders a live, read-only status view of the tracked
// workstreams and the recorded-event tail. It observes the store and the
// journal; it never mutates the hierarchy.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yourusername/loom/internal/recorder"
	"github.com/yourusername/loom/internal/store"
)

const (
	refreshInterval = 2 * time.Second
	eventTailCount  = 8
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	archivedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// refreshMsg carries one polling cycle's snapshot into Update.
type refreshMsg struct {
	summaries []store.Summary
	records   []recorder.Record
	err       error
}

type tickMsg time.Time

// App is the bubbletea model for the status view.
type App struct {
	store    store.Store
	journal  *recorder.Journal
	spin     spinner.Model
	selected int

	summaries []store.Summary
	records   []recorder.Record
	err       error
	width     int
}

// NewApp wires the status view to its read-only sources.
func NewApp(st store.Store, journal *recorder.Journal) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &App{
		store:   st,
		journal: journal,
		spin:    sp,
	}
}

// Init starts the spinner and the first refresh.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.refresh, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh reads the current summaries and the event tail for the
// selected workstream.
func (a *App) refresh() tea.Msg {
	summaries, err := a.store.List()
	if err != nil {
		return refreshMsg{err: err}
	}
	msg := refreshMsg{summaries: summaries}
	if a.journal != nil && len(summaries) > 0 {
		idx := a.selected
		if idx >= len(summaries) {
			idx = 0
		}
		msg.records = a.journal.Tail(summaries[idx].ID, eventTailCount)
	}
	return msg
}

// Update handles key, tick, and refresh messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return a, tea.Quit
		case "up", "k":
			if a.selected > 0 {
				a.selected--
			}
			return a, a.refresh
		case "down", "j":
			if a.selected < len(a.summaries)-1 {
				a.selected++
			}
			return a, a.refresh
		case "r":
			return a, a.refresh
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
	case refreshMsg:
		a.summaries = msg.summaries
		a.records = msg.records
		a.err = msg.err
	case tickMsg:
		return a, tea.Batch(a.refresh, tick())
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}
	return a, nil
}

// View renders the workstream table and the recent-event tail.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("loom status"))
	b.WriteString("  " + a.spin.View() + "\n\n")

	if a.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", a.err)) + "\n")
		return b.String()
	}
	if len(a.summaries) == 0 {
		b.WriteString(dimStyle.Render("No workstreams yet. Create one with 'loom ws create <name>'.") + "\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-28s %-10s %6s %6s", "NAME", "STATUS", "PLANS", "TASKS")) + "\n")
	for i, s := range a.summaries {
		cursor := "  "
		if i == a.selected {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%-28s %-10s %6d %6d", cursor, truncate(s.Name, 28), s.Status, s.PlanCount, s.TaskCount)
		if s.Status == "archived" {
			b.WriteString(archivedStyle.Render(line))
		} else {
			b.WriteString(activeStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + headerStyle.Render("recent operations") + "\n")
	if len(a.records) == 0 {
		b.WriteString(dimStyle.Render("  (none)") + "\n")
	}
	for _, record := range a.records {
		status := "ok"
		if record.Error != "" {
			status = errorStyle.Render("error")
		}
		b.WriteString(fmt.Sprintf("  %s  %-22s  %s\n",
			record.StartedAt.Format("15:04:05"), record.Op, status))
	}
	b.WriteString("\n" + dimStyle.Render("j/k move · r refresh · q quit") + "\n")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// Run launches the status view and blocks until the user quits.
func Run(st store.Store, journal *recorder.Journal) error {
	p := tea.NewProgram(NewApp(st, journal), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
