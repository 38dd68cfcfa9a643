package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-2048/internal/t2048"
)

const (
	tileWidth  = 8
	tileHeight = 3
)

type tileColors struct {
	bg, fg string
}

// tilePalette maps tile values to background/foreground colours.
var tilePalette = map[int]tileColors{
	2:    {"#eee4da", "#776e65"},
	4:    {"#ede0c8", "#776e65"},
	8:    {"#f2b179", "#f9f6f2"},
	16:   {"#f59563", "#f9f6f2"},
	32:   {"#f67c5f", "#f9f6f2"},
	64:   {"#f65e3b", "#f9f6f2"},
	128:  {"#edcf72", "#f9f6f2"},
	256:  {"#edcc61", "#f9f6f2"},
	512:  {"#edc850", "#f9f6f2"},
	1024: {"#edc53f", "#f9f6f2"},
	2048: {"#edc22e", "#f9f6f2"},
}

var (
	superTile  = tileColors{"#3c3a32", "#f9f6f2"}
	emptyColor = "#cdc1b4"
	boardColor = "#bbada0"

	tileBase = lipgloss.NewStyle().
			Width(tileWidth).
			Height(tileHeight).
			Align(lipgloss.Center, lipgloss.Center).
			Margin(0, 0, 0, 1)

	boardStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(boardColor)).
			Padding(1, 1, 0, 0)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f9f6f2")).
			Background(lipgloss.Color("#edc22e")).
			Padding(0, 2)

	gameOverStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// tileStyle returns the style for a tile. New tiles are underlined and
// merged tiles bold so the last move stays visible.
func tileStyle(t *t2048.Tile) lipgloss.Style {
	if t == nil {
		return tileBase.Background(lipgloss.Color(emptyColor))
	}

	c, ok := tilePalette[t.Value]
	if !ok {
		c = superTile
	}
	s := tileBase.
		Background(lipgloss.Color(c.bg)).
		Foreground(lipgloss.Color(c.fg))
	if t.IsMerged {
		s = s.Bold(true)
	}
	if t.IsNew {
		s = s.Underline(true)
	}
	return s
}

// renderTile renders one slot.
func renderTile(t *t2048.Tile) string {
	label := ""
	if t != nil {
		label = strconv.Itoa(t.Value)
	}
	return tileStyle(t).Render(label)
}

// RenderBoard renders the grid as coloured tiles.
func RenderBoard(grid t2048.Grid) string {
	rows := make([]string, 0, t2048.BoardSize)
	for row := range t2048.BoardSize {
		cells := make([]string, 0, t2048.BoardSize)
		for col := range t2048.BoardSize {
			cells = append(cells, renderTile(grid[t2048.Index(row, col)]))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...)+"\n")
	}
	return boardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// RenderPlainBoard renders the grid as text, one row per line, "." for empty slots.
func RenderPlainBoard(grid t2048.Grid) string {
	var b strings.Builder
	for row := range t2048.BoardSize {
		for col := range t2048.BoardSize {
			if col > 0 {
				b.WriteByte(' ')
			}
			cell := "."
			if t := grid[t2048.Index(row, col)]; t != nil {
				cell = strconv.Itoa(t.Value)
			}
			b.WriteString(strings.Repeat(" ", 5-len(cell)) + cell)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// centerText pads text so it is centred within width.
func centerText(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	padding := (width - w) / 2
	return strings.Repeat(" ", padding) + text
}

// centerBlock centres every line of a multi-line block within width.
func centerBlock(block string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block)
}
