package t2048

import "sort"

// Snapshot captures the part of the session state that undo restores.
type Snapshot struct {
	Grid        Grid
	Score       int
	TileCounter int
	Celebrated  map[int]bool
}

// Clone returns a deep copy. Tiles and the celebrated set are not shared.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Grid:        s.Grid.Clone(),
		Score:       s.Score,
		TileCounter: s.TileCounter,
		Celebrated:  make(map[int]bool, len(s.Celebrated)),
	}
	for v, ok := range s.Celebrated {
		if ok {
			out.Celebrated[v] = true
		}
	}
	return out
}

// CelebratedList returns the celebrated milestones in ascending order.
func (s Snapshot) CelebratedList() []int {
	return sortedKeys(s.Celebrated)
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for v, ok := range set {
		if ok {
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
