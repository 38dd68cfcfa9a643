package t2048

// DefaultHistoryLimit is the number of undo steps kept when none is configured.
const DefaultHistoryLimit = 20

// History is a bounded LIFO of snapshots. Pushing past the limit evicts the
// oldest entry.
type History struct {
	limit   int
	entries []Snapshot
}

// NewHistory creates a history holding at most limit snapshots.
// A non-positive limit falls back to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push stores a copy of s.
func (h *History) Push(s Snapshot) {
	h.entries = append(h.entries, s.Clone())
	if len(h.entries) > h.limit {
		copy(h.entries, h.entries[1:])
		h.entries[len(h.entries)-1] = Snapshot{}
		h.entries = h.entries[:len(h.entries)-1]
	}
}

// Pop removes and returns the most recent snapshot.
func (h *History) Pop() (Snapshot, bool) {
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	last := len(h.entries) - 1
	s := h.entries[last]
	h.entries[last] = Snapshot{}
	h.entries = h.entries[:last]
	return s, true
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	return len(h.entries)
}

// Limit returns the capacity.
func (h *History) Limit() int {
	return h.limit
}

// Clear drops all snapshots.
func (h *History) Clear() {
	h.entries = nil
}
