package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-2048/internal/identity"
	"github.com/vovakirdan/tui-2048/internal/leaderboard"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// DefaultSubmitTimeout bounds one game-over submission to all sinks.
const DefaultSubmitTimeout = 5 * time.Second

// screen identifies the active view.
type screen int

const (
	screenGame screen = iota
	screenPrompt
	screenLeaderboard
)

// Options configures a Model.
type Options struct {
	// Engine is the game being played. Required.
	Engine *t2048.Engine

	// Restore resumes a saved unfinished session when one exists.
	Restore bool

	// Difficulty for the first new game. Empty keeps the engine's.
	Difficulty t2048.Difficulty

	// Profile stores the display name. When nil names live only in the engine.
	Profile *identity.Provider

	// Sinks receive the final score of every finished game.
	Sinks []leaderboard.Sink

	// Board backs the leaderboard screen. nil disables it.
	Board leaderboard.Board

	Logger         *log.Logger
	SubmitTimeout  time.Duration
	BannerDuration time.Duration
}

// submitResultMsg reports the outcome of a game-over submission.
type submitResultMsg struct {
	score int
	err   error
}

// Model is the Bubble Tea model for one 2048 player.
type Model struct {
	engine  *t2048.Engine
	profile *identity.Provider
	sinks   []leaderboard.Sink
	board   leaderboard.Board
	logger  *log.Logger

	submitTimeout  time.Duration
	bannerDuration time.Duration

	screen   screen
	keys     GameKeyMap
	help     help.Model
	input    textinput.Model
	scores   ScoreboardModel
	width    int
	height   int
	quitting bool

	next      t2048.Difficulty // difficulty of the next new game
	submitted bool             // final score of this game already sent
	banner    string
	bannerSeq int
	status    string
	promptErr string
	restored  bool

	promptNewGame bool
}

// NewModel creates a model and starts or resumes a game on the engine.
// On first run without a stored name the name prompt is shown.
func NewModel(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	submitTimeout := opts.SubmitTimeout
	if submitTimeout <= 0 {
		submitTimeout = DefaultSubmitTimeout
	}
	bannerDuration := opts.BannerDuration
	if bannerDuration <= 0 {
		bannerDuration = BannerDuration
	}

	ti := textinput.New()
	ti.Placeholder = t2048.DefaultPlayerName
	ti.CharLimit = identity.MaxNameLength
	ti.Width = identity.MaxNameLength

	h := help.New()
	h.ShowAll = false

	m := Model{
		engine:         opts.Engine,
		profile:        opts.Profile,
		sinks:          opts.Sinks,
		board:          opts.Board,
		logger:         logger,
		submitTimeout:  submitTimeout,
		bannerDuration: bannerDuration,
		keys:           DefaultGameKeyMap(),
		help:           h,
		input:          ti,
	}

	if m.profile != nil && m.profile.HasName() {
		if name := m.profile.DisplayName(); name != m.engine.PlayerName() {
			m.engine.SetPlayerName(name)
		}
	}

	m.restored = m.engine.Init(opts.Restore, opts.Difficulty)
	m.next = m.engine.Difficulty()
	if m.restored {
		m.status = fmt.Sprintf("Resumed game with score %d", m.engine.Score())
	}

	if m.profile != nil && !m.profile.HasName() {
		m.openPrompt(false)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.screen == screenPrompt {
		return textinput.Blink
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.screen == screenLeaderboard {
			var cmd tea.Cmd
			m.scores, cmd = m.scores.Update(msg)
			return m, cmd
		}
		return m, nil

	case bannerExpiredMsg:
		if msg.seq == m.bannerSeq {
			m.banner = ""
		}
		return m, nil

	case submitResultMsg:
		if msg.err != nil {
			m.status = "Could not submit score: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Score %d submitted", msg.score)
		}
		return m, nil

	case scoresLoadedMsg:
		var cmd tea.Cmd
		m.scores, cmd = m.scores.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.screen {
		case screenPrompt:
			return m.updatePrompt(msg)
		case screenLeaderboard:
			return m.updateLeaderboard(msg)
		default:
			return m.updateGame(msg)
		}
	}

	if m.screen == screenPrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// updateGame handles keys on the board screen.
func (m Model) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if dir, ok := m.keys.Direction(msg); ok {
		return m.move(dir)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Undo):
		if m.engine.Undo() {
			m.status = ""
		} else {
			m.status = "Nothing to undo"
		}
		return m, nil

	case key.Matches(msg, m.keys.NewGame):
		m.openPrompt(true)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Mode):
		m.next = m.next.Toggle()
		m.status = fmt.Sprintf("Next game: %s", m.next)
		return m, nil

	case key.Matches(msg, m.keys.Leaderboard):
		if m.board == nil {
			m.status = "Leaderboard unavailable"
			return m, nil
		}
		m.scores = NewScoreboardModel(m.board, m.engine.Difficulty(), m.width, m.height)
		m.scores.loading = true
		m.screen = screenLeaderboard
		return m, m.scores.Init()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	return m, nil
}

// move applies one move, then celebrates milestones and submits the final
// score once the board is stuck.
func (m Model) move(dir t2048.Direction) (tea.Model, tea.Cmd) {
	if m.engine.IsGameOver() {
		return m, nil
	}

	res := m.engine.Move(dir)
	if !res.Moved {
		return m, nil
	}
	m.status = ""

	var cmds []tea.Cmd
	if reached := m.engine.NewMilestones(); len(reached) > 0 {
		m.bannerSeq++
		m.banner = fmt.Sprintf("You reached %d!", reached[len(reached)-1])
		cmds = append(cmds, bannerTickCmd(m.bannerSeq, m.bannerDuration))
	}

	if m.engine.IsGameOver() && !m.submitted {
		m.submitted = true
		if cmd := m.submitCmd(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// submitCmd sends the finished game to every sink in the background.
func (m Model) submitCmd() tea.Cmd {
	if len(m.sinks) == 0 || m.engine.Score() <= 0 {
		return nil
	}

	sub := leaderboard.Submission{
		Name:  m.engine.PlayerName(),
		Score: m.engine.Score(),
		Mode:  m.engine.Difficulty(),
	}
	sinks, timeout, logger := m.sinks, m.submitTimeout, m.logger

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		for _, s := range sinks {
			if _, err := s.Submit(ctx, sub); err != nil {
				logger.Warn("score submission failed", "name", sub.Name, "score", sub.Score, "error", err)
				errs = append(errs, err)
			}
		}
		if len(errs) == 0 {
			logger.Info("score submitted", "name", sub.Name, "score", sub.Score, "mode", sub.Mode)
		}
		return submitResultMsg{score: sub.Score, err: errors.Join(errs...)}
	}
}

// openPrompt shows the name prompt. With newGame set, confirming starts a
// fresh board.
func (m *Model) openPrompt(newGame bool) {
	m.screen = screenPrompt
	m.promptErr = ""
	m.input.SetValue(m.engine.PlayerName())
	if !newGame && m.profile != nil && !m.profile.HasName() {
		m.input.SetValue("")
	}
	m.input.CursorEnd()
	m.input.Focus()
	m.promptNewGame = newGame
}

// updatePrompt handles keys on the name prompt.
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()

	case tea.KeyEsc:
		m.input.Blur()
		m.screen = screenGame
		return m, nil

	case tea.KeyEnter:
		name, err := m.saveName(m.input.Value())
		if err != nil {
			m.promptErr = err.Error()
			return m, nil
		}
		m.engine.SetPlayerName(name)
		m.input.Blur()
		m.screen = screenGame

		if m.promptNewGame {
			m.engine.Init(false, m.next)
			m.submitted = false
			m.banner = ""
			m.restored = false
			m.status = fmt.Sprintf("New %s game for %s", m.engine.Difficulty(), name)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.promptErr = ""
	return m, cmd
}

func (m Model) saveName(raw string) (string, error) {
	if m.profile != nil {
		return m.profile.SetDisplayName(raw)
	}
	return identity.NormalizeName(raw)
}

// updateLeaderboard forwards keys to the scoreboard.
func (m Model) updateLeaderboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.scores, cmd = m.scores.Update(msg)
	switch {
	case m.scores.IsQuitting():
		return m.quit()
	case m.scores.IsGoingBack():
		m.screen = screenGame
		return m, nil
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if err := m.engine.SaveState(); err != nil {
		m.logger.Warn("could not save session on exit", "error", err)
	}
	m.quitting = true
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.screen {
	case screenPrompt:
		body = m.viewPrompt()
	case screenLeaderboard:
		return m.scores.View()
	default:
		body = m.viewGame()
	}

	if m.width > 0 {
		return centerBlock(body, m.width)
	}
	return body
}

func (m Model) viewGame() string {
	var b strings.Builder

	mode := string(m.engine.Difficulty())
	if m.next != m.engine.Difficulty() {
		mode += " (next: " + string(m.next) + ")"
	}
	b.WriteString(titleStyle.Render("2048") + "  " + labelStyle.Render(mode))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		stat("SCORE", m.engine.Score()),
		stat("BEST", m.engine.BestScore()),
		stat("MAX", m.engine.MaxTile()),
		labelStyle.Render("UNDO ")+valueStyle.Render(fmt.Sprintf("%d/%-5d", m.engine.UndoDepth(), m.engine.UndoLimit())),
		labelStyle.Render("PLAYER ")+valueStyle.Render(m.engine.PlayerName()),
	))
	b.WriteString("\n\n")

	b.WriteString(RenderBoard(m.engine.Grid()))
	b.WriteString("\n")

	if m.banner != "" {
		b.WriteString("\n" + bannerStyle.Render(m.banner) + "\n")
	}
	if m.engine.IsGameOver() {
		b.WriteString("\n" + gameOverStyle.Render("GAME OVER") + "  " +
			labelStyle.Render("press n for a new game") + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func stat(label string, v int) string {
	return labelStyle.Render(label+" ") + valueStyle.Render(fmt.Sprintf("%-8d", v))
}

func (m Model) viewPrompt() string {
	var b strings.Builder

	title := "Who is playing?"
	if m.promptNewGame {
		title = fmt.Sprintf("New %s game", m.next)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Name: ") + m.input.View())
	b.WriteString("\n")
	if m.promptErr != "" {
		b.WriteString("\n" + gameOverStyle.Render(m.promptErr) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter confirm • esc cancel"))
	return b.String()
}

// Engine returns the engine driven by the model.
func (m Model) Engine() *t2048.Engine { return m.engine }

// Banner returns the milestone banner currently shown, if any.
func (m Model) Banner() string { return m.banner }

// Restored reports whether the first game was resumed from storage.
func (m Model) Restored() bool { return m.restored }

// Status returns the last status line.
func (m Model) Status() string { return m.status }

// Run starts the Bubble Tea program on the current terminal.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
