package t2048

import "fmt"

// Direction represents a move direction.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "unknown"
	}
}

// ParseDirection converts "up", "down", "left" or "right" into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return DirUp, nil
	case "down":
		return DirDown, nil
	case "left":
		return DirLeft, nil
	case "right":
		return DirRight, nil
	}
	return 0, fmt.Errorf("t2048: unknown direction %q", s)
}

// BoardSize is the board dimension.
const BoardSize = 4

// CellCount is the number of slots on the board.
const CellCount = BoardSize * BoardSize

// Tile is one occupied cell. ID is stable across moves and merges so the view
// layer can animate motion instead of re-creation.
type Tile struct {
	Value    int  `json:"value"`
	ID       int  `json:"id"`
	IsNew    bool `json:"isNew"`
	IsMerged bool `json:"isMerged"`
}

// Grid is the board in row-major order. A nil slot is empty.
type Grid [CellCount]*Tile

// Index returns the linear slot index for a row and column.
func Index(row, col int) int {
	return row*BoardSize + col
}

// Clone returns a deep copy of the grid. Tiles are never shared between copies.
func (g Grid) Clone() Grid {
	var out Grid
	for i, t := range g {
		if t != nil {
			c := *t
			out[i] = &c
		}
	}
	return out
}

// Values returns the tile values with 0 for empty slots.
func (g Grid) Values() [CellCount]int {
	var out [CellCount]int
	for i, t := range g {
		if t != nil {
			out[i] = t.Value
		}
	}
	return out
}

// line holds the slot indices of one row or column in traversal order.
type line [BoardSize]int

// lines returns the rows (left/right) or columns (up/down) of the board,
// each ordered so that sliding always happens toward index 0.
func lines(dir Direction) [BoardSize]line {
	var out [BoardSize]line
	for i := range BoardSize {
		for j := range BoardSize {
			switch dir {
			case DirLeft:
				out[i][j] = Index(i, j)
			case DirRight:
				out[i][j] = Index(i, BoardSize-1-j)
			case DirUp:
				out[i][j] = Index(j, i)
			case DirDown:
				out[i][j] = Index(BoardSize-1-j, i)
			}
		}
	}
	return out
}

// slideLine compacts and merges one line toward index 0.
// Every returned tile is a fresh copy with its per-move flags cleared, so the
// input grid is never mutated. A merged tile keeps the id of the leading tile
// and is never merged again in the same pass.
func slideLine(in [BoardSize]*Tile) (out [BoardSize]*Tile, score int, merged bool) {
	var compact []*Tile
	for _, t := range in {
		if t != nil {
			compact = append(compact, t)
		}
	}

	writePos := 0
	for i := 0; i < len(compact); i++ {
		cur := compact[i]
		if i+1 < len(compact) && compact[i+1].Value == cur.Value {
			value := cur.Value * 2
			out[writePos] = &Tile{Value: value, ID: cur.ID, IsMerged: true}
			score += value
			merged = true
			i++
		} else {
			out[writePos] = &Tile{Value: cur.Value, ID: cur.ID}
		}
		writePos++
	}

	return out, score, merged
}

// Slide performs a move in the given direction without spawning.
// It returns the new grid, the score gained, whether any slot changed
// occupant (by tile id) and whether at least one pair merged.
func Slide(grid Grid, dir Direction) (next Grid, score int, moved, merged bool) {
	if dir < DirUp || dir > DirRight {
		return grid, 0, false, false
	}

	for _, ln := range lines(dir) {
		var in [BoardSize]*Tile
		for j, idx := range ln {
			in[j] = grid[idx]
		}

		out, gained, didMerge := slideLine(in)
		score += gained
		merged = merged || didMerge

		for j, idx := range ln {
			next[idx] = out[j]
			if !sameOccupant(grid[idx], out[j]) {
				moved = true
			}
		}
	}

	return next, score, moved, merged
}

// sameOccupant compares two slots by tile identity.
func sameOccupant(a, b *Tile) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// EmptySlots returns the indices of all empty slots in ascending order.
func EmptySlots(grid Grid) []int {
	var slots []int
	for i, t := range grid {
		if t == nil {
			slots = append(slots, i)
		}
	}
	return slots
}

// HasEmptySlot returns true if there's at least one empty slot.
func HasEmptySlot(grid Grid) bool {
	for _, t := range grid {
		if t == nil {
			return true
		}
	}
	return false
}

// HasPossibleMerge returns true if any two neighbouring tiles share a value.
func HasPossibleMerge(grid Grid) bool {
	for row := range BoardSize {
		for col := range BoardSize {
			cur := grid[Index(row, col)]
			if cur == nil {
				continue
			}
			if col < BoardSize-1 {
				if right := grid[Index(row, col+1)]; right != nil && right.Value == cur.Value {
					return true
				}
			}
			if row < BoardSize-1 {
				if below := grid[Index(row+1, col)]; below != nil && below.Value == cur.Value {
					return true
				}
			}
		}
	}
	return false
}

// IsGameOver returns true if the grid is full and no neighbours can merge.
func IsGameOver(grid Grid) bool {
	return !HasEmptySlot(grid) && !HasPossibleMerge(grid)
}

// MaxValue returns the maximum tile value on the grid, or 0 when empty.
func MaxValue(grid Grid) int {
	maxVal := 0
	for _, t := range grid {
		if t != nil && t.Value > maxVal {
			maxVal = t.Value
		}
	}
	return maxVal
}

// isPowerOfTwo reports whether v is a power of two no smaller than 2.
func isPowerOfTwo(v int) bool {
	return v >= 2 && v&(v-1) == 0
}
