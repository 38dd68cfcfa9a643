// Package storage provides SQLite-based persistence for sessions, profiles
// and leaderboard scores.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/tui-2048/internal/leaderboard"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// ScoreEntry represents a single leaderboard record.
type ScoreEntry struct {
	ID        int64
	Name      string
	Score     int
	Mode      string
	CreatedAt time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// SQLite allows a single writer; SSH sessions and HTTP handlers share this handle.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			score INTEGER NOT NULL,
			mode TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_scores_mode ON scores(mode);
		CREATE INDEX IF NOT EXISTS idx_scores_top ON scores(mode, score DESC);
		CREATE INDEX IF NOT EXISTS idx_scores_user ON scores(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get implements t2048.Store.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, t2048.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot read %q: %w", key, err)
	}
	return value, nil
}

// Put implements t2048.Store.
func (s *Store) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot write %q: %w", key, err)
	}
	return nil
}

// Delete implements t2048.Store.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("storage: cannot delete %q: %w", key, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (s *Store) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key",
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return keys, nil
}

// Namespace returns a view of the key-value table whose keys are prefixed
// with "<prefix>/". Views with different prefixes never see each other's keys.
func (s *Store) Namespace(prefix string) *Namespace {
	return &Namespace{store: s, prefix: strings.TrimSuffix(prefix, "/") + "/"}
}

// Namespace is a prefixed view over Store's key-value table.
type Namespace struct {
	store  *Store
	prefix string
}

// Get implements t2048.Store.
func (n *Namespace) Get(key string) ([]byte, error) { return n.store.Get(n.prefix + key) }

// Put implements t2048.Store.
func (n *Namespace) Put(key string, value []byte) error { return n.store.Put(n.prefix+key, value) }

// Delete implements t2048.Store.
func (n *Namespace) Delete(key string) error { return n.store.Delete(n.prefix + key) }

var (
	_ t2048.Store = (*Store)(nil)
	_ t2048.Store = (*Namespace)(nil)
)

// SaveScore records a new score for the named player, creating the player
// on first use. Returns the ID of the inserted record.
func (s *Store) SaveScore(name string, score int, mode string) (int64, error) {
	return s.saveScore(context.Background(), name, score, mode)
}

func (s *Store) saveScore(ctx context.Context, name string, score int, mode string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO users (name) VALUES (?)", name); err != nil {
		return 0, fmt.Errorf("storage: cannot save user: %w", err)
	}

	var userID int64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE name = ?", name).Scan(&userID); err != nil {
		return 0, fmt.Errorf("storage: cannot find user: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO scores (user_id, score, mode) VALUES (?, ?, ?)",
		userID, score, mode,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: cannot commit score: %w", err)
	}
	return id, nil
}

// TopScores retrieves the top N scores for the given mode.
// Results are ordered by score descending, earlier entries first on ties.
func (s *Store) TopScores(mode string, limit int) ([]ScoreEntry, error) {
	return s.topScores(context.Background(), mode, limit)
}

func (s *Store) topScores(ctx context.Context, mode string, limit int) ([]ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, u.name, s.score, s.mode, s.created_at
		 FROM scores s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.mode = ?
		 ORDER BY s.score DESC, s.id ASC
		 LIMIT ?`,
		mode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.Name, &e.Score, &e.Mode, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// HighScore returns the highest score for the given mode.
// Returns 0 if no scores exist.
func (s *Store) HighScore(mode string) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(score) FROM scores WHERE mode = ?",
		mode,
	).Scan(&score)

	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}

	if !score.Valid {
		return 0, nil
	}

	return int(score.Int64), nil
}

// ClearScores deletes all scores for the given mode.
func (s *Store) ClearScores(mode string) error {
	_, err := s.db.Exec("DELETE FROM scores WHERE mode = ?", mode)
	if err != nil {
		return fmt.Errorf("storage: cannot clear scores: %w", err)
	}
	return nil
}

// ModeStats contains aggregated statistics for a mode.
type ModeStats struct {
	Mode       string
	GamesCount int
	Players    int
	HighScore  int
	AvgScore   float64
	LastPlayed time.Time
}

// ModeStats retrieves aggregated statistics for a specific mode.
func (s *Store) ModeStats(mode string) (*ModeStats, error) {
	stats := &ModeStats{Mode: mode}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT user_id), COALESCE(MAX(score), 0), COALESCE(AVG(score), 0)
		 FROM scores WHERE mode = ?`,
		mode,
	).Scan(&stats.GamesCount, &stats.Players, &stats.HighScore, &stats.AvgScore)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get mode stats: %w", err)
	}

	var lastPlayed any
	err = s.db.QueryRow(
		`SELECT created_at FROM scores WHERE mode = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		mode,
	).Scan(&lastPlayed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: cannot get last played: %w", err)
	}
	if err == nil {
		stats.LastPlayed = parseTimestamp(lastPlayed)
	}

	return stats, nil
}

// SaveEntry implements leaderboard.Repository.
func (s *Store) SaveEntry(ctx context.Context, sub leaderboard.Submission) (leaderboard.Entry, error) {
	id, err := s.saveScore(ctx, sub.Name, sub.Score, string(sub.Mode))
	if err != nil {
		return leaderboard.Entry{}, err
	}

	var createdAt any
	err = s.db.QueryRowContext(ctx, "SELECT created_at FROM scores WHERE id = ?", id).Scan(&createdAt)
	if err != nil {
		return leaderboard.Entry{}, fmt.Errorf("storage: cannot read saved score: %w", err)
	}

	return leaderboard.Entry{
		ID:        id,
		Name:      sub.Name,
		Score:     sub.Score,
		Mode:      sub.Mode,
		CreatedAt: parseTimestamp(createdAt),
	}, nil
}

// TopEntries implements leaderboard.Repository.
func (s *Store) TopEntries(ctx context.Context, mode t2048.Difficulty, limit int) ([]leaderboard.Entry, error) {
	rows, err := s.topScores(ctx, string(mode), limit)
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboard.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, leaderboard.Entry{
			ID:        r.ID,
			Name:      r.Name,
			Score:     r.Score,
			Mode:      t2048.Difficulty(r.Mode),
			CreatedAt: r.CreatedAt,
		})
	}
	return entries, nil
}

// Ensure Store implements leaderboard.Repository
var _ leaderboard.Repository = (*Store)(nil)

// parseTimestamp handles both time.Time and string datetime values.
func parseTimestamp(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
