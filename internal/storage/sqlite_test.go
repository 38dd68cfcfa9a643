package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-2048/internal/leaderboard"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreNestedPath(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	// Verify nested directories were created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestKeyValue(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Get("missing"); !errors.Is(err, t2048.ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want t2048.ErrNotFound", err)
	}

	if err := store.Put("k", []byte("one")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := store.Put("k", []byte("two")); err != nil {
		t.Fatalf("Put() overwrite failed: %v", err)
	}

	got, err := store.Get("k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(got) != "two" {
		t.Errorf("Get() = %q, want two", got)
	}

	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := store.Delete("k"); err != nil {
		t.Errorf("Delete() of missing key failed: %v", err)
	}
	if _, err := store.Get("k"); !errors.Is(err, t2048.ErrNotFound) {
		t.Error("key should be gone after Delete")
	}
}

func TestKeyValueSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(t2048.ProfileKey, []byte(`{"score":64,"name":"ada"}`)); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	got, err := store.Get(t2048.ProfileKey)
	if err != nil || string(got) != `{"score":64,"name":"ada"}` {
		t.Errorf("Get() after reopen = %q, %v", got, err)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	store := openTestStore(t)
	alice := store.Namespace("ssh/alice")
	bob := store.Namespace("ssh/bob/")

	if err := alice.Put("k", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := bob.Put("k", []byte("b")); err != nil {
		t.Fatal(err)
	}

	if got, _ := alice.Get("k"); string(got) != "a" {
		t.Errorf("alice sees %q", got)
	}
	if got, _ := bob.Get("k"); string(got) != "b" {
		t.Errorf("bob sees %q", got)
	}
	if _, err := store.Get("k"); !errors.Is(err, t2048.ErrNotFound) {
		t.Error("namespaced keys leaked into the root namespace")
	}

	keys, err := store.Keys("ssh/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "ssh/alice/k" || keys[1] != "ssh/bob/k" {
		t.Errorf("Keys() = %v", keys)
	}

	if err := alice.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if _, err := bob.Get("k"); err != nil {
		t.Error("deleting in one namespace affected another")
	}
}

func TestEngineOnStore(t *testing.T) {
	store := openTestStore(t)
	ns := store.Namespace("local")

	e := t2048.New(t2048.Options{Store: ns, Seed: 9, Logger: log.New(io.Discard)})
	e.Init(false, t2048.DifficultyHard)
	for _, d := range []t2048.Direction{t2048.DirLeft, t2048.DirUp, t2048.DirRight, t2048.DirDown} {
		e.Move(d)
	}

	resumed := t2048.New(t2048.Options{Store: ns, Seed: 10, Logger: log.New(io.Discard)})
	if !resumed.Init(true, t2048.DifficultyEasy) {
		t.Fatal("session saved in sqlite should be restored")
	}
	if resumed.Score() != e.Score() || resumed.Grid().Values() != e.Grid().Values() {
		t.Error("restored session differs from the saved one")
	}
	if resumed.Difficulty() != t2048.DifficultyHard {
		t.Errorf("Difficulty = %s, want hard", resumed.Difficulty())
	}
}

func TestStoreSaveAndRetrieve(t *testing.T) {
	store := openTestStore(t)

	// Save some scores
	for _, s := range []int{100, 50, 200} {
		if _, err := store.SaveScore("ada", s, "easy"); err != nil {
			t.Fatalf("SaveScore() failed: %v", err)
		}
	}

	// Different mode
	if _, err := store.SaveScore("bob", 500, "hard"); err != nil {
		t.Fatalf("SaveScore() failed: %v", err)
	}

	scores, err := store.TopScores("easy", 10)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}

	if len(scores) != 3 {
		t.Fatalf("Expected 3 scores, got %d", len(scores))
	}

	// Should be sorted descending
	if scores[0].Score != 200 || scores[1].Score != 100 || scores[2].Score != 50 {
		t.Errorf("Scores not in expected order: %v", scores)
	}
	if scores[0].Name != "ada" || scores[0].Mode != "easy" {
		t.Errorf("Unexpected entry: %+v", scores[0])
	}
	if scores[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be populated")
	}

	hardScores, err := store.TopScores("hard", 10)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}
	if len(hardScores) != 1 || hardScores[0].Name != "bob" {
		t.Errorf("Expected 1 hard score by bob, got %v", hardScores)
	}
}

func TestStoreUsersAreUpsertedByName(t *testing.T) {
	store := openTestStore(t)

	store.SaveScore("ada", 10, "easy")
	store.SaveScore("ada", 20, "hard")
	store.SaveScore("bob", 30, "easy")

	var users int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&users); err != nil {
		t.Fatal(err)
	}
	if users != 2 {
		t.Errorf("Expected 2 users, got %d", users)
	}
}

func TestStoreTopScoresLimit(t *testing.T) {
	store := openTestStore(t)

	// Save 5 scores
	for i := 0; i < 5; i++ {
		store.SaveScore("p", (i+1)*100, "easy")
	}

	// Request only top 3
	scores, err := store.TopScores("easy", 3)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}

	if len(scores) != 3 {
		t.Errorf("Expected 3 scores with limit, got %d", len(scores))
	}

	// Should be 500, 400, 300 (top 3)
	if scores[0].Score != 500 || scores[1].Score != 400 || scores[2].Score != 300 {
		t.Errorf("Scores not in expected order: %v", scores)
	}
}

func TestStoreHighScore(t *testing.T) {
	store := openTestStore(t)

	// No scores yet
	high, err := store.HighScore("easy")
	if err != nil {
		t.Fatalf("HighScore() failed: %v", err)
	}
	if high != 0 {
		t.Errorf("Expected high score of 0 for empty mode, got %d", high)
	}

	store.SaveScore("ada", 100, "easy")
	store.SaveScore("ada", 300, "easy")
	store.SaveScore("bob", 200, "easy")
	store.SaveScore("bob", 900, "hard")

	high, err = store.HighScore("easy")
	if err != nil {
		t.Fatalf("HighScore() failed: %v", err)
	}
	if high != 300 {
		t.Errorf("Expected high score of 300, got %d", high)
	}
}

func TestStoreClearScores(t *testing.T) {
	store := openTestStore(t)

	store.SaveScore("ada", 100, "easy")
	store.SaveScore("ada", 200, "easy")
	store.SaveScore("ada", 300, "hard")

	// Clear only easy scores
	if err := store.ClearScores("easy"); err != nil {
		t.Fatalf("ClearScores() failed: %v", err)
	}

	easyScores, _ := store.TopScores("easy", 10)
	if len(easyScores) != 0 {
		t.Errorf("Expected 0 easy scores after clear, got %d", len(easyScores))
	}

	hardScores, _ := store.TopScores("hard", 10)
	if len(hardScores) != 1 {
		t.Errorf("Hard scores should not be affected by clearing easy")
	}
}

func TestStoreModeStats(t *testing.T) {
	store := openTestStore(t)

	empty, err := store.ModeStats("easy")
	if err != nil {
		t.Fatalf("ModeStats() failed: %v", err)
	}
	if empty.GamesCount != 0 || !empty.LastPlayed.IsZero() {
		t.Errorf("Expected empty stats, got %+v", empty)
	}

	store.SaveScore("ada", 100, "easy")
	store.SaveScore("ada", 300, "easy")
	store.SaveScore("bob", 200, "easy")

	stats, err := store.ModeStats("easy")
	if err != nil {
		t.Fatalf("ModeStats() failed: %v", err)
	}
	if stats.GamesCount != 3 || stats.Players != 2 || stats.HighScore != 300 || stats.AvgScore != 200 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.LastPlayed.IsZero() {
		t.Error("LastPlayed should be set")
	}
}

func TestLeaderboardRepository(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sink := leaderboard.NewLocalSink(store)

	for _, s := range []int{64, 2048, 512} {
		if _, err := sink.Submit(ctx, leaderboard.Submission{Name: "ada", Score: s}); err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
	}
	entry, err := sink.Submit(ctx, leaderboard.Submission{Name: "bob", Score: 4096, Mode: t2048.DifficultyHard})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if entry.ID == 0 || entry.CreatedAt.IsZero() || entry.Mode != t2048.DifficultyHard {
		t.Errorf("Unexpected entry: %+v", entry)
	}

	top, err := sink.Top(ctx, t2048.DifficultyEasy, 10)
	if err != nil {
		t.Fatalf("Top() failed: %v", err)
	}
	if len(top) != 3 || top[0].Score != 2048 || top[2].Score != 64 {
		t.Errorf("Unexpected top entries: %+v", top)
	}
}
