package t2048

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Keys of the two durable records.
const (
	ProfileKey = "2048-best-score"
	SessionKey = "2048-game-state"
)

// ErrNotFound is returned by a Store when the key has no value.
var ErrNotFound = errors.New("t2048: key not found")

// Store is the durable key-value slot the engine persists into.
// Implementations may be backed by memory (MemoryStore), SQLite, files, etc.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put creates or replaces the value under key.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// ProfileRecord is the persisted best score and its owner.
type ProfileRecord struct {
	Score int    `json:"score"`
	Name  string `json:"name"`
}

// SessionRecord is the persisted game in progress.
// IsOver lets LoadState refuse to resurrect a finished game.
type SessionRecord struct {
	Grid            Grid       `json:"grid"`
	Score           int        `json:"score"`
	TileCounter     int        `json:"tileCounter"`
	CelebratedTiles []int      `json:"celebratedTiles"`
	IsOver          bool       `json:"isOver"`
	Difficulty      Difficulty `json:"difficulty"`
}

// validate checks that a decoded record can be hydrated into an engine.
func (r *SessionRecord) validate() error {
	if r.Score < 0 {
		return fmt.Errorf("negative score %d", r.Score)
	}
	if r.TileCounter < 0 {
		return fmt.Errorf("negative tile counter %d", r.TileCounter)
	}
	if r.Difficulty != "" && !r.Difficulty.Valid() {
		return fmt.Errorf("unknown difficulty %q", r.Difficulty)
	}

	seen := make(map[int]bool)
	for i, t := range r.Grid {
		if t == nil {
			continue
		}
		if !isPowerOfTwo(t.Value) {
			return fmt.Errorf("slot %d: invalid tile value %d", i, t.Value)
		}
		if t.ID < 0 || seen[t.ID] {
			return fmt.Errorf("slot %d: invalid or duplicate tile id %d", i, t.ID)
		}
		seen[t.ID] = true
	}
	// a settled board always holds at least one tile
	if len(seen) == 0 {
		return errors.New("board has no tiles")
	}
	return nil
}

// sessionWire reads the grid as a slice so a missing or short grid is
// detected instead of being padded with empty slots.
type sessionWire struct {
	SessionRecord
	Grid []*Tile `json:"grid"`
}

func decodeSession(data []byte) (*SessionRecord, error) {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("t2048: cannot decode session: %w", err)
	}
	if len(w.Grid) != CellCount {
		return nil, fmt.Errorf("t2048: malformed session: grid has %d slots, want %d", len(w.Grid), CellCount)
	}
	rec := w.SessionRecord
	copy(rec.Grid[:], w.Grid)
	if err := rec.validate(); err != nil {
		return nil, fmt.Errorf("t2048: malformed session: %w", err)
	}
	return &rec, nil
}

func decodeProfile(data []byte) (*ProfileRecord, error) {
	var rec ProfileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("t2048: cannot decode profile: %w", err)
	}
	if rec.Score < 0 {
		return nil, fmt.Errorf("t2048: malformed profile: negative score %d", rec.Score)
	}
	return &rec, nil
}

// MemoryStore is an in-memory Store. State is lost when the process exits.
// Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put implements Store.
func (m *MemoryStore) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
