// Package tui provides the Bubble Tea front end for 2048: the board screen,
// the leaderboard view and the SSH server that hosts them.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// BannerDuration is how long a milestone banner stays on screen.
const BannerDuration = 3 * time.Second

// bannerExpiredMsg clears the banner it was scheduled for.
type bannerExpiredMsg struct {
	seq int
}

// bannerTickCmd fires once after d for the banner with the given sequence.
func bannerTickCmd(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return bannerExpiredMsg{seq: seq}
	})
}
