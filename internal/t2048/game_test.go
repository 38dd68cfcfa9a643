package t2048

import (
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestEngine(t *testing.T, store Store, seed int64) *Engine {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	return New(Options{
		Store:  store,
		Seed:   seed,
		Logger: log.New(io.Discard),
	})
}

func tileCount(g Grid) int {
	n := 0
	for _, t := range g {
		if t != nil {
			n++
		}
	}
	return n
}

// moveAny performs the first direction that changes the board.
func moveAny(t *testing.T, e *Engine) Direction {
	t.Helper()
	for _, d := range []Direction{DirLeft, DirUp, DirRight, DirDown} {
		if e.Move(d).Moved {
			return d
		}
	}
	t.Fatal("no direction moved the board")
	return 0
}

func TestNewGame(t *testing.T) {
	e := newTestEngine(t, nil, 12345)
	if restored := e.Init(false, DifficultyEasy); restored {
		t.Fatal("Init(false) should never restore")
	}

	if got := tileCount(e.Grid()); got != 2 {
		t.Errorf("New game should have 2 tiles, got %d", got)
	}
	if e.Score() != 0 {
		t.Errorf("New game score = %d, want 0", e.Score())
	}
	if e.CanUndo() {
		t.Error("New game should have no undo history")
	}
	if e.TileCounter() != 2 {
		t.Errorf("TileCounter = %d, want 2", e.TileCounter())
	}
	for _, tile := range e.Grid() {
		if tile != nil && !tile.IsNew {
			t.Error("spawned tiles should be flagged new")
		}
	}
}

func TestDeterministicSpawn(t *testing.T) {
	a := newTestEngine(t, nil, 42)
	b := newTestEngine(t, nil, 42)
	a.Init(false, DifficultyHard)
	b.Init(false, DifficultyHard)

	for range 30 {
		da := moveAny(t, a)
		db := moveAny(t, b)
		if da != db {
			t.Fatalf("same seed diverged: %v vs %v", da, db)
		}
		if a.IsGameOver() {
			break
		}
	}

	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Error("same seed should produce identical games")
	}
}

func TestMoveSpawnsOneTile(t *testing.T) {
	e := newTestEngine(t, nil, 1)
	e.Init(false, DifficultyEasy)
	e.grid = gridOf([CellCount]int{
		2, 2, 0, 0,
	})
	e.tileCounter = 100

	res := e.Move(DirLeft)

	if !res.Moved || !res.Merged || res.Gained != 4 {
		t.Fatalf("Move result = %+v, want moved merged gained 4", res)
	}
	if got := tileCount(e.grid); got != 2 {
		t.Errorf("tile count = %d, want merged tile plus one spawn", got)
	}
	if e.Score() != 4 {
		t.Errorf("score = %d, want 4", e.Score())
	}
	if e.TileCounter() != 101 {
		t.Errorf("TileCounter = %d, want 101", e.TileCounter())
	}
	if e.UndoDepth() != 1 {
		t.Errorf("UndoDepth = %d, want 1", e.UndoDepth())
	}
}

func TestNoOpMoveLeavesStateUntouched(t *testing.T) {
	store := NewMemoryStore()
	e := newTestEngine(t, store, 1)
	e.Init(false, DifficultyEasy)
	e.grid = gridOf([CellCount]int{
		2, 4, 0, 0,
		8, 0, 0, 0,
	})
	before := e.Snapshot()
	if err := store.Delete(SessionKey); err != nil {
		t.Fatal(err)
	}

	res := e.Move(DirLeft)

	if res.Moved || res.Merged || res.Gained != 0 {
		t.Errorf("Move result = %+v, want zero", res)
	}
	if !reflect.DeepEqual(e.Snapshot(), before) {
		t.Error("no-op move changed the state")
	}
	if e.CanUndo() {
		t.Error("no-op move should not push history")
	}
	if _, err := store.Get(SessionKey); !errors.Is(err, ErrNotFound) {
		t.Error("no-op move should not save the session")
	}
}

func TestUndoRestoresExactState(t *testing.T) {
	for _, d := range []Direction{DirUp, DirDown, DirLeft, DirRight} {
		t.Run(d.String(), func(t *testing.T) {
			e := newTestEngine(t, nil, 99)
			e.Init(false, DifficultyEasy)
			e.grid = gridOf([CellCount]int{
				2, 0, 2, 0,
				0, 4, 0, 0,
				0, 0, 0, 0,
				4, 0, 0, 2,
			})
			e.tileCounter = CellCount
			before := e.Snapshot()

			if !e.Move(d).Moved {
				t.Fatalf("move %v should change the board", d)
			}
			if !e.Undo() {
				t.Fatal("Undo should succeed after a move")
			}

			if !reflect.DeepEqual(e.Snapshot(), before) {
				t.Errorf("undo did not restore the pre-move state\ngot  %+v\nwant %+v", e.Snapshot(), before)
			}
		})
	}
}

func TestUndoWithEmptyHistory(t *testing.T) {
	e := newTestEngine(t, nil, 1)
	e.Init(false, DifficultyEasy)
	before := e.Snapshot()

	if e.Undo() {
		t.Error("Undo should fail with empty history")
	}
	if !reflect.DeepEqual(e.Snapshot(), before) {
		t.Error("failed undo changed the state")
	}
}

func TestBoundedHistory(t *testing.T) {
	e := newTestEngine(t, nil, 3)
	e.Init(false, DifficultyEasy)

	start := gridOf([CellCount]int{
		0, 0, 0, 2,
	})

	for i := range 25 {
		e.grid = start.Clone()
		if !e.Move(DirLeft).Moved {
			t.Fatalf("move %d did not change the board", i)
		}
	}

	if e.UndoDepth() != DefaultHistoryLimit {
		t.Fatalf("UndoDepth = %d, want %d", e.UndoDepth(), DefaultHistoryLimit)
	}

	undone := 0
	for e.Undo() {
		undone++
	}
	if undone != DefaultHistoryLimit {
		t.Errorf("undone %d moves, want %d", undone, DefaultHistoryLimit)
	}
}

func TestCustomHistoryLimit(t *testing.T) {
	e := New(Options{Seed: 1, HistoryLimit: 3, Logger: log.New(io.Discard)})
	e.Init(false, DifficultyEasy)

	for range 5 {
		e.grid = gridOf([CellCount]int{0, 0, 0, 2})
		e.Move(DirLeft)
	}
	if e.UndoDepth() != 3 {
		t.Errorf("UndoDepth = %d, want 3", e.UndoDepth())
	}
	if e.UndoLimit() != 3 {
		t.Errorf("UndoLimit = %d, want 3", e.UndoLimit())
	}
}

func TestAddTileOnlyFillsEmptySlots(t *testing.T) {
	e := newTestEngine(t, nil, 8)
	e.Init(false, DifficultyEasy)

	values := [CellCount]int{
		2, 4, 2, 4,
		4, 2, 4, 2,
		2, 4, 0, 4,
		4, 2, 4, 2,
	}
	e.grid = gridOf(values)
	e.tileCounter = CellCount

	idx, ok := e.AddTile()
	if !ok || idx != Index(2, 2) {
		t.Fatalf("AddTile = (%d, %v), want (%d, true)", idx, ok, Index(2, 2))
	}
	for i, v := range values {
		if v != 0 && e.grid[i].Value != v {
			t.Errorf("slot %d overwritten", i)
		}
	}

	before := e.Snapshot()
	if _, ok := e.AddTile(); ok {
		t.Error("AddTile should fail on a full board")
	}
	if !reflect.DeepEqual(e.Snapshot(), before) {
		t.Error("AddTile on a full board changed the state")
	}
}

func TestEngineGameOver(t *testing.T) {
	e := newTestEngine(t, nil, 1)
	e.Init(false, DifficultyEasy)
	e.grid = gridOf([CellCount]int{
		2, 4, 2, 4,
		4, 2, 4, 2,
		2, 4, 2, 4,
		4, 2, 4, 2,
	})

	if !e.IsGameOver() {
		t.Fatal("checkerboard should be game over")
	}
	for _, d := range []Direction{DirUp, DirDown, DirLeft, DirRight} {
		if e.Move(d).Moved {
			t.Errorf("move %v changed a finished board", d)
		}
	}
}

func TestSpawnValues(t *testing.T) {
	tests := []struct {
		name       string
		difficulty Difficulty
		maxVal     int
		allowed    []int
	}{
		{"easy low", DifficultyEasy, 64, []int{2, 4, 8}},
		{"easy bonus", DifficultyEasy, 128, []int{2, 4, 8, 16}},
		{"hard low", DifficultyHard, 8, []int{2, 4}},
		{"hard pool", DifficultyHard, 64, []int{2, 4, 8, 16}},
		{"hard big", DifficultyHard, 2048, []int{2, 4, 8, 16, 32, 64, 128, 256, 512}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(5))
			seen := make(map[int]int)
			for range 20000 {
				seen[spawnValue(rng, tt.difficulty, tt.maxVal)]++
			}

			allowed := make(map[int]bool)
			for _, v := range tt.allowed {
				allowed[v] = true
				if seen[v] == 0 {
					t.Errorf("value %d never spawned", v)
				}
			}
			for v := range seen {
				if !allowed[v] {
					t.Errorf("spawned illegal value %d", v)
				}
			}
		})
	}
}

func TestHardModeWeighting(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	counts := make(map[int]int)
	const draws = 40000
	for range draws {
		counts[hardSpawnValue(rng, 64)]++
	}

	if counts[2] <= counts[16] {
		t.Errorf("2 spawned %d times, 16 spawned %d times; 2 should dominate", counts[2], counts[16])
	}
	// weights 100/50/25/12 out of 187
	if ratio := float64(counts[2]) / draws; ratio < 0.50 || ratio > 0.57 {
		t.Errorf("share of 2 = %.3f, want about 0.535", ratio)
	}
}

func TestHardModeLowBoard(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	twos := 0
	const draws = 20000
	for range draws {
		if hardSpawnValue(rng, 8) == 2 {
			twos++
		}
	}
	if ratio := float64(twos) / draws; ratio < 0.88 || ratio > 0.92 {
		t.Errorf("share of 2 = %.3f, want about 0.9", ratio)
	}
}

func TestHardLevelWeights(t *testing.T) {
	got := hardLevelWeights(9)
	want := []int{100, 50, 25, 12, 6, 3, 1, 1, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hardLevelWeights(9) = %v, want %v", got, want)
	}

	for _, tc := range []struct{ maxVal, level int }{{16, 2}, {64, 4}, {2048, 9}} {
		if got := maxLevel(tc.maxVal); got != tc.level {
			t.Errorf("maxLevel(%d) = %d, want %d", tc.maxVal, got, tc.level)
		}
	}
}

func TestTileIDsStayUnique(t *testing.T) {
	e := newTestEngine(t, nil, 2024)
	e.Init(false, DifficultyEasy)

	for i := range 200 {
		if e.IsGameOver() {
			break
		}
		e.Move(Direction(i % 4))
		if i%7 == 0 {
			e.Undo()
		}

		seen := make(map[int]bool)
		for _, tile := range e.grid {
			if tile == nil {
				continue
			}
			if seen[tile.ID] {
				t.Fatalf("step %d: duplicate tile id %d", i, tile.ID)
			}
			seen[tile.ID] = true
			if tile.ID >= e.tileCounter {
				t.Fatalf("step %d: id %d not below counter %d", i, tile.ID, e.tileCounter)
			}
		}
	}
}

func TestNewMilestones(t *testing.T) {
	e := newTestEngine(t, nil, 1)
	e.Init(false, DifficultyEasy)
	e.grid = gridOf([CellCount]int{
		2048, 4, 0, 0,
	})

	got := e.NewMilestones()
	if want := []int{1024, 2048}; !reflect.DeepEqual(got, want) {
		t.Errorf("NewMilestones = %v, want %v", got, want)
	}
	if again := e.NewMilestones(); len(again) != 0 {
		t.Errorf("second NewMilestones = %v, want none", again)
	}

	e.Init(false, DifficultyEasy)
	if len(e.CelebratedTiles()) != 0 {
		t.Error("a new game should reset celebrated milestones")
	}
}

func TestBestScorePersists(t *testing.T) {
	store := NewMemoryStore()
	e := newTestEngine(t, store, 1)
	e.Init(false, DifficultyEasy)
	e.grid = gridOf([CellCount]int{
		8, 8, 0, 0,
	})
	e.Move(DirLeft)

	if e.BestScore() != 16 {
		t.Fatalf("BestScore = %d, want 16", e.BestScore())
	}

	e.Init(false, DifficultyEasy)
	if e.BestScore() != 16 {
		t.Errorf("a new game should keep the best score, got %d", e.BestScore())
	}

	other := newTestEngine(t, store, 2)
	if other.BestScore() != 16 {
		t.Errorf("BestScore after reload = %d, want 16", other.BestScore())
	}
}

func TestPlayerNamePersists(t *testing.T) {
	store := NewMemoryStore()
	e := newTestEngine(t, store, 1)
	if e.PlayerName() != DefaultPlayerName {
		t.Errorf("PlayerName = %q, want %q", e.PlayerName(), DefaultPlayerName)
	}

	e.SetPlayerName("ada")

	other := newTestEngine(t, store, 1)
	if other.PlayerName() != "ada" {
		t.Errorf("PlayerName after reload = %q, want ada", other.PlayerName())
	}
}

func TestRestoreResumesSession(t *testing.T) {
	store := NewMemoryStore()
	a := newTestEngine(t, store, 77)
	a.Init(false, DifficultyHard)
	moveAny(t, a)
	moveAny(t, a)

	b := newTestEngine(t, store, 78)
	if !b.Init(true, DifficultyEasy) {
		t.Fatal("Init(true) should resume the stored session")
	}

	if !reflect.DeepEqual(b.Snapshot(), a.Snapshot()) {
		t.Error("restored state differs from the saved one")
	}
	if b.Difficulty() != DifficultyHard {
		t.Errorf("Difficulty = %s, want the stored hard", b.Difficulty())
	}
	if b.CanUndo() {
		t.Error("undo history must not survive a restore")
	}
}

func TestRestoreSkipsFinishedSession(t *testing.T) {
	store := NewMemoryStore()
	finished := SessionRecord{
		Grid: gridOf([CellCount]int{
			2, 4, 2, 4,
			4, 2, 4, 2,
			2, 4, 2, 4,
			4, 2, 4, 2,
		}),
		Score:       5000,
		TileCounter: 40,
		IsOver:      true,
		Difficulty:  DifficultyEasy,
	}
	data, err := json.Marshal(finished)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(SessionKey, data); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(t, store, 1)
	if e.Init(true, DifficultyEasy) {
		t.Fatal("a finished session must not be restored")
	}
	if e.Score() != 0 || tileCount(e.grid) != 2 {
		t.Errorf("expected a fresh game, got score %d with %d tiles", e.Score(), tileCount(e.grid))
	}

	raw, err := store.Get(SessionKey)
	if err != nil {
		t.Fatalf("fresh game should be saved: %v", err)
	}
	rec, err := decodeSession(raw)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Score != 0 || rec.IsOver {
		t.Errorf("stored session = %+v, want the fresh game", rec)
	}
}

func TestRestoreSkipsMalformedSession(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{oops"},
		{"empty object", `{}`},
		{"empty grid", `{"grid":[]}`},
		{"one slot grid", `{"grid":[{"value":2,"id":0}]}`},
		{"no tiles", `{"grid":` + fullGrid() + `}`},
		{"bad tile value", `{"grid":` + fullGrid(`{"value":3,"id":0}`) + `,"score":0,"tileCounter":1}`},
		{"negative score", `{"grid":` + fullGrid(`{"value":2,"id":0}`) + `,"score":-4}`},
		{"unknown difficulty", `{"grid":` + fullGrid(`{"value":2,"id":0}`) + `,"difficulty":"nightmare"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			if err := store.Put(SessionKey, []byte(tt.data)); err != nil {
				t.Fatal(err)
			}

			e := newTestEngine(t, store, 1)
			if e.Init(true, DifficultyEasy) {
				t.Fatal("malformed session must not be restored")
			}
			if tileCount(e.grid) != 2 {
				t.Error("expected a fresh game")
			}
		})
	}
}

func TestRestoreBumpsTileCounter(t *testing.T) {
	store := NewMemoryStore()
	rec := SessionRecord{
		Grid:        gridOf([CellCount]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2}),
		TileCounter: 3,
	}
	data, _ := json.Marshal(rec)
	if err := store.Put(SessionKey, data); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(t, store, 1)
	if !e.Init(true, "") {
		t.Fatal("session should be restored")
	}
	if e.TileCounter() != 12 {
		t.Errorf("TileCounter = %d, want 12", e.TileCounter())
	}
	if e.Difficulty() != DifficultyEasy {
		t.Errorf("Difficulty = %s, want default easy", e.Difficulty())
	}
}

func TestInitAdoptsDifficulty(t *testing.T) {
	e := newTestEngine(t, nil, 1)
	e.Init(false, DifficultyHard)
	if e.Difficulty() != DifficultyHard {
		t.Errorf("Difficulty = %s, want hard", e.Difficulty())
	}

	e.Init(false, "")
	if e.Difficulty() != DifficultyHard {
		t.Errorf("empty difficulty should keep hard, got %s", e.Difficulty())
	}
}
