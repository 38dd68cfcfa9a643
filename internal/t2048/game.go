package t2048

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPlayerName is used when neither the profile nor the caller names the player.
const DefaultPlayerName = "Player"

// Milestones are tile values that are celebrated once per game.
var Milestones = []int{1024, 2048, 4096, 8192}

// Options configures a new Engine.
type Options struct {
	// Store receives the profile and session records. Defaults to a MemoryStore.
	Store Store

	// Seed drives tile placement and values. 0 means seed from the clock.
	Seed int64

	// Difficulty used until Init adopts another one. Defaults to easy.
	Difficulty Difficulty

	// HistoryLimit caps undo depth. Defaults to DefaultHistoryLimit.
	HistoryLimit int

	// PlayerName is used when the stored profile carries no name.
	PlayerName string

	// Logger receives persistence warnings. Defaults to log.Default().
	Logger *log.Logger
}

// MoveResult reports what a move did.
type MoveResult struct {
	Moved  bool // at least one slot changed occupant
	Merged bool // at least one pair merged
	Gained int  // score added by merges
}

// Engine is the 2048 state machine for one player. It is not safe for
// concurrent use; the surrounding UI owns it exclusively.
type Engine struct {
	rng    *rand.Rand
	store  Store
	logger *log.Logger

	grid        Grid
	score       int
	bestScore   int
	playerName  string
	tileCounter int
	celebrated  map[int]bool
	difficulty  Difficulty
	history     *History
}

// New creates an engine and loads the stored profile. The board is empty
// until Init is called.
func New(opts Options) *Engine {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	difficulty := opts.Difficulty
	if !difficulty.Valid() {
		difficulty = DifficultyEasy
	}
	name := opts.PlayerName
	if name == "" {
		name = DefaultPlayerName
	}

	e := &Engine{
		rng:        rand.New(rand.NewSource(seed)),
		store:      store,
		logger:     logger,
		playerName: name,
		celebrated: make(map[int]bool),
		difficulty: difficulty,
		history:    NewHistory(opts.HistoryLimit),
	}
	e.loadProfile()
	return e
}

// Init starts a game. With restore set, a stored unfinished session is
// resumed as-is and d is ignored; Init then returns true. Otherwise a fresh
// board with two tiles is created, adopting d unless it is empty, and saved.
func (e *Engine) Init(restore bool, d Difficulty) bool {
	if restore && e.LoadState() {
		return true
	}

	if d.Valid() {
		e.difficulty = d
	}
	e.grid = Grid{}
	e.score = 0
	e.celebrated = make(map[int]bool)
	e.history.Clear()

	e.AddTile()
	e.AddTile()

	e.persist()
	return false
}

// AddTile places a tile on a random empty slot and returns its index.
// It returns false when the board is full.
func (e *Engine) AddTile() (int, bool) {
	empty := EmptySlots(e.grid)
	if len(empty) == 0 {
		return -1, false
	}

	idx := empty[e.rng.Intn(len(empty))]
	value := spawnValue(e.rng, e.difficulty, e.MaxTile())

	e.grid[idx] = &Tile{
		Value: value,
		ID:    e.tileCounter,
		IsNew: true,
	}
	e.tileCounter++
	return idx, true
}

// Move slides the board. When any tile changes slot a new tile is spawned,
// the best score is updated, the previous state is pushed onto the undo
// history and the session is saved. Otherwise nothing changes.
func (e *Engine) Move(dir Direction) MoveResult {
	next, gained, moved, merged := Slide(e.grid, dir)
	if !moved {
		return MoveResult{}
	}

	before := e.snapshot()

	e.grid = next
	e.score += gained
	e.AddTile()

	if e.score > e.bestScore {
		e.bestScore = e.score
		e.saveProfile()
	}

	e.history.Push(before)
	e.persist()

	return MoveResult{Moved: true, Merged: merged, Gained: gained}
}

// Undo restores the state before the last successful move.
// It returns false when there is nothing to undo.
func (e *Engine) Undo() bool {
	s, ok := e.history.Pop()
	if !ok {
		return false
	}
	e.restore(s)
	e.persist()
	return true
}

// NewMilestones marks milestones reached by the current board that have not
// been celebrated yet in this game and returns them in ascending order.
func (e *Engine) NewMilestones() []int {
	maxVal := e.MaxTile()

	var reached []int
	for _, m := range Milestones {
		if maxVal >= m && !e.celebrated[m] {
			e.celebrated[m] = true
			reached = append(reached, m)
		}
	}

	if len(reached) > 0 {
		e.persist()
	}
	return reached
}

// SetPlayerName renames the profile owner and saves the profile.
// Callers validate the name.
func (e *Engine) SetPlayerName(name string) {
	e.playerName = name
	e.saveProfile()
}

// Grid returns a copy of the board.
func (e *Engine) Grid() Grid { return e.grid.Clone() }

// Score returns the current game's score.
func (e *Engine) Score() int { return e.score }

// BestScore returns the best score of the stored profile.
func (e *Engine) BestScore() int { return e.bestScore }

// PlayerName returns the profile owner.
func (e *Engine) PlayerName() string { return e.playerName }

// Difficulty returns the active spawn policy.
func (e *Engine) Difficulty() Difficulty { return e.difficulty }

// CelebratedTiles returns the milestones already surfaced in this game.
func (e *Engine) CelebratedTiles() []int { return sortedKeys(e.celebrated) }

// CanUndo reports whether Undo would succeed.
func (e *Engine) CanUndo() bool { return e.history.Len() > 0 }

// UndoDepth returns the number of moves that can be undone.
func (e *Engine) UndoDepth() int { return e.history.Len() }

// UndoLimit returns how many moves the history keeps.
func (e *Engine) UndoLimit() int { return e.history.Limit() }

// IsGameOver reports whether no move can change the board.
func (e *Engine) IsGameOver() bool { return IsGameOver(e.grid) }

// MaxTile returns the highest tile value on the board.
func (e *Engine) MaxTile() int { return MaxValue(e.grid) }

// TileCounter returns the id the next spawned tile will get.
func (e *Engine) TileCounter() int { return e.tileCounter }

// Snapshot returns a deep copy of the undoable state.
func (e *Engine) Snapshot() Snapshot { return e.snapshot() }

// SaveState writes the session record.
func (e *Engine) SaveState() error {
	rec := SessionRecord{
		Grid:            e.grid,
		Score:           e.score,
		TileCounter:     e.tileCounter,
		CelebratedTiles: sortedKeys(e.celebrated),
		IsOver:          IsGameOver(e.grid),
		Difficulty:      e.difficulty,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("t2048: cannot encode session: %w", err)
	}
	if err := e.store.Put(SessionKey, data); err != nil {
		return fmt.Errorf("t2048: cannot save session: %w", err)
	}
	return nil
}

// LoadState hydrates the engine from the stored session record. Finished or
// malformed sessions are deleted and reported as absent.
func (e *Engine) LoadState() bool {
	data, err := e.store.Get(SessionKey)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		e.logger.Warn("could not read saved session", "error", err)
		return false
	}

	rec, err := decodeSession(data)
	if err != nil {
		e.logger.Warn("discarding saved session", "error", err)
		e.purgeSession()
		return false
	}
	if rec.IsOver || IsGameOver(rec.Grid) {
		e.logger.Debug("discarding finished session", "score", rec.Score)
		e.purgeSession()
		return false
	}

	e.grid = rec.Grid
	e.score = rec.Score
	e.tileCounter = rec.TileCounter
	// never hand out an id that is still on the board
	for _, t := range e.grid {
		if t != nil && t.ID >= e.tileCounter {
			e.tileCounter = t.ID + 1
		}
	}
	e.celebrated = make(map[int]bool, len(rec.CelebratedTiles))
	for _, v := range rec.CelebratedTiles {
		e.celebrated[v] = true
	}
	if rec.Difficulty.Valid() {
		e.difficulty = rec.Difficulty
	}
	e.history.Clear()
	return true
}

func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		Grid:        e.grid,
		Score:       e.score,
		TileCounter: e.tileCounter,
		Celebrated:  e.celebrated,
	}.Clone()
}

// restore takes ownership of s.
func (e *Engine) restore(s Snapshot) {
	e.grid = s.Grid
	e.score = s.Score
	e.tileCounter = s.TileCounter
	e.celebrated = s.Celebrated
	if e.celebrated == nil {
		e.celebrated = make(map[int]bool)
	}
}

func (e *Engine) persist() {
	if err := e.SaveState(); err != nil {
		e.logger.Warn("could not save session", "error", err)
	}
}

func (e *Engine) purgeSession() {
	if err := e.store.Delete(SessionKey); err != nil {
		e.logger.Warn("could not delete saved session", "error", err)
	}
}

func (e *Engine) loadProfile() {
	data, err := e.store.Get(ProfileKey)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Warn("could not read profile", "error", err)
		return
	}

	rec, err := decodeProfile(data)
	if err != nil {
		e.logger.Warn("ignoring profile", "error", err)
		return
	}
	e.bestScore = rec.Score
	if rec.Name != "" {
		e.playerName = rec.Name
	}
}

func (e *Engine) saveProfile() {
	data, err := json.Marshal(ProfileRecord{Score: e.bestScore, Name: e.playerName})
	if err != nil {
		e.logger.Warn("could not encode profile", "error", err)
		return
	}
	if err := e.store.Put(ProfileKey, data); err != nil {
		e.logger.Warn("could not save profile", "error", err)
	}
}
