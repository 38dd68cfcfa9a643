package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-2048/internal/leaderboard"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// Scoreboard layout constants
const (
	tableMinHeight = 5
	maxScores      = 50 // Max scores to load
	fetchTimeout   = 5 * time.Second
)

// scoresLoadedMsg carries the result of a leaderboard fetch.
type scoresLoadedMsg struct {
	mode    t2048.Difficulty
	entries []leaderboard.Entry
	err     error
}

// ScoreboardModel shows the top entries of one mode.
type ScoreboardModel struct {
	board    leaderboard.Board
	mode     t2048.Difficulty
	entries  []leaderboard.Entry
	loading  bool
	err      error
	table    table.Model
	help     help.Model
	keys     LeaderboardKeyMap
	width    int
	height   int
	quitting bool
	back     bool
}

// NewScoreboardModel creates a scoreboard for mode. board may be nil.
func NewScoreboardModel(board leaderboard.Board, mode t2048.Difficulty, width, height int) ScoreboardModel {
	if !mode.Valid() {
		mode = t2048.DifficultyEasy
	}
	h := help.New()
	h.ShowAll = false

	m := ScoreboardModel{
		board:  board,
		mode:   mode,
		keys:   DefaultLeaderboardKeyMap(),
		help:   h,
		width:  width,
		height: height,
	}
	m.table = m.createTable()
	return m
}

// createTable creates a new table with appropriate columns.
func (m *ScoreboardModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Rank", Width: 6},
		{Title: "Player", Width: leaderboard.MaxNameLength},
		{Title: "Score", Width: 10},
		{Title: "Date", Width: 14},
	}

	height := m.height - 10 // Leave room for header, help, and margins
	if height < tableMinHeight {
		height = tableMinHeight
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	// Table styles
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// fetch loads the current mode in the background.
func (m ScoreboardModel) fetch() tea.Cmd {
	board, mode := m.board, m.mode
	if board == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		entries, err := board.Top(ctx, mode, maxScores)
		return scoresLoadedMsg{mode: mode, entries: entries, err: err}
	}
}

// updateTableRows updates the table with current entries.
func (m *ScoreboardModel) updateTableRows() {
	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		date := ""
		if !e.CreatedAt.IsZero() {
			date = e.CreatedAt.Local().Format("Jan 02 15:04")
		}
		rows[i] = table.Row{
			fmt.Sprintf("#%d", i+1),
			e.Name,
			fmt.Sprintf("%d", e.Score),
			date,
		}
	}
	m.table.SetRows(rows)

	// Reset cursor to top
	m.table.GotoTop()
}

// Init starts loading scores.
func (m ScoreboardModel) Init() tea.Cmd {
	return m.fetch()
}

// Update handles messages for the scoreboard.
func (m ScoreboardModel) Update(msg tea.Msg) (ScoreboardModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, nil

		case key.Matches(msg, m.keys.Back):
			m.back = true
			return m, nil

		case key.Matches(msg, m.keys.ToggleMode):
			m.mode = m.mode.Toggle()
			m.entries = nil
			m.updateTableRows()
			return m.reload()

		case key.Matches(msg, m.keys.Refresh):
			return m.reload()

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			// Pass to table for scrolling
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
		return m, nil

	case scoresLoadedMsg:
		// ignore results for a mode the user already left
		if msg.mode != m.mode {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.entries = msg.entries
		}
		m.updateTableRows()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	return m, nil
}

func (m ScoreboardModel) reload() (ScoreboardModel, tea.Cmd) {
	if m.board == nil {
		return m, nil
	}
	m.loading = true
	m.err = nil
	return m, m.fetch()
}

// View renders the scoreboard.
func (m ScoreboardModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("HIGH SCORES - %s", strings.ToUpper(string(m.mode)))
	b.WriteString(titleStyle.MarginBottom(1).Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	tableStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	b.WriteString(centerBlock(tableStyle.Render(m.renderTableContent()), m.width))

	// Help bar
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderTableContent renders the table or a status message.
func (m ScoreboardModel) renderTableContent() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(2, 4)

	switch {
	case m.board == nil:
		return emptyStyle.Render("Leaderboard unavailable.")
	case m.err != nil:
		return emptyStyle.Render("Could not load scores:\n" + m.err.Error())
	case m.loading && len(m.entries) == 0:
		return emptyStyle.Render("Loading...")
	case len(m.entries) == 0:
		return emptyStyle.Render("No scores recorded yet.\nPlay a game to set a high score!")
	}

	return m.table.View()
}

// Mode returns the mode being shown.
func (m ScoreboardModel) Mode() t2048.Difficulty { return m.mode }

// Entries returns the loaded entries.
func (m ScoreboardModel) Entries() []leaderboard.Entry { return m.entries }

// IsGoingBack returns true if user wants to go back to the board.
func (m ScoreboardModel) IsGoingBack() bool {
	return m.back
}

// IsQuitting returns true if user wants to quit entirely.
func (m ScoreboardModel) IsQuitting() bool {
	return m.quitting
}
