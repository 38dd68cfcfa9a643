package tui

import (
	"strings"
	"testing"

	"github.com/vovakirdan/tui-2048/internal/t2048"
)

func TestRenderPlainBoard(t *testing.T) {
	var grid t2048.Grid
	grid[t2048.Index(0, 0)] = &t2048.Tile{Value: 2}
	grid[t2048.Index(1, 3)] = &t2048.Tile{Value: 2048}
	grid[t2048.Index(3, 1)] = &t2048.Tile{Value: 16}

	want := "    2     .     .     .\n" +
		"    .     .     .  2048\n" +
		"    .     .     .     .\n" +
		"    .    16     .     .\n"
	if got := RenderPlainBoard(grid); got != want {
		t.Errorf("RenderPlainBoard =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderBoardShowsValues(t *testing.T) {
	var grid t2048.Grid
	grid[0] = &t2048.Tile{Value: 128, IsNew: true}
	grid[5] = &t2048.Tile{Value: 16384, IsMerged: true}

	out := RenderBoard(grid)
	for _, want := range []string{"128", "16384"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderBoard missing %q", want)
		}
	}
}

func TestCenterText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"ab", 6, "  ab"},
		{"abc", 6, " abc"},
		{"toolong", 4, "toolong"},
		{"", 4, "  "},
	}

	for _, tt := range tests {
		if got := centerText(tt.text, tt.width); got != tt.want {
			t.Errorf("centerText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestGameKeyMapDirection(t *testing.T) {
	keys := DefaultGameKeyMap()
	tests := []struct {
		key  string
		want t2048.Direction
	}{
		{"up", t2048.DirUp},
		{"w", t2048.DirUp},
		{"k", t2048.DirUp},
		{"down", t2048.DirDown},
		{"s", t2048.DirDown},
		{"j", t2048.DirDown},
		{"left", t2048.DirLeft},
		{"a", t2048.DirLeft},
		{"h", t2048.DirLeft},
		{"right", t2048.DirRight},
		{"d", t2048.DirRight},
		{"l", t2048.DirRight},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := keys.Direction(keyPress(tt.key))
			if !ok || got != tt.want {
				t.Errorf("Direction(%q) = %v, %v; want %v", tt.key, got, ok, tt.want)
			}
		})
	}

	for _, k := range []string{"u", "n", "L", "q", "x"} {
		if _, ok := keys.Direction(keyPress(k)); ok {
			t.Errorf("Direction(%q) should not be a move", k)
		}
	}
}
