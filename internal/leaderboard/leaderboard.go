// Package leaderboard collects finished-game scores and serves the top
// entries per mode, either in-process or over HTTP.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// Query limits for Top.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// MaxNameLength is the longest accepted player name, in runes.
const MaxNameLength = 24

// ErrInvalidSubmission is returned for submissions that cannot be recorded.
var ErrInvalidSubmission = errors.New("leaderboard: invalid submission")

// Submission is a finished game reported by a player.
type Submission struct {
	Name  string           `json:"name"`
	Score int              `json:"score"`
	Mode  t2048.Difficulty `json:"mode"`
}

// Normalize trims the name and defaults an empty mode to easy, then checks
// that the submission can be recorded.
func (s Submission) Normalize() (Submission, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Mode == "" {
		s.Mode = t2048.DifficultyEasy
	}

	switch {
	case s.Name == "":
		return s, fmt.Errorf("%w: name is required", ErrInvalidSubmission)
	case utf8.RuneCountInString(s.Name) > MaxNameLength:
		return s, fmt.Errorf("%w: name longer than %d characters", ErrInvalidSubmission, MaxNameLength)
	case s.Score <= 0:
		return s, fmt.Errorf("%w: score must be positive", ErrInvalidSubmission)
	case !s.Mode.Valid():
		return s, fmt.Errorf("%w: unknown mode %q", ErrInvalidSubmission, s.Mode)
	}
	return s, nil
}

// Entry is a recorded score.
type Entry struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Score     int              `json:"score"`
	Mode      t2048.Difficulty `json:"mode"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Repository persists entries. storage.Store implements it over SQLite.
type Repository interface {
	SaveEntry(ctx context.Context, sub Submission) (Entry, error)
	TopEntries(ctx context.Context, mode t2048.Difficulty, limit int) ([]Entry, error)
}

// Sink accepts finished games.
type Sink interface {
	Submit(ctx context.Context, sub Submission) (Entry, error)
}

// Board lists the best entries of a mode, highest score first.
type Board interface {
	Top(ctx context.Context, mode t2048.Difficulty, limit int) ([]Entry, error)
}

// ClampLimit maps a requested limit into [1, MaxLimit]; non-positive
// values become DefaultLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LocalSink records submissions straight into a Repository.
type LocalSink struct {
	repo Repository
}

// NewLocalSink creates a sink over repo.
func NewLocalSink(repo Repository) *LocalSink {
	return &LocalSink{repo: repo}
}

// Submit implements Sink.
func (l *LocalSink) Submit(ctx context.Context, sub Submission) (Entry, error) {
	sub, err := sub.Normalize()
	if err != nil {
		return Entry{}, err
	}
	return l.repo.SaveEntry(ctx, sub)
}

// Top implements Board.
func (l *LocalSink) Top(ctx context.Context, mode t2048.Difficulty, limit int) ([]Entry, error) {
	if mode == "" {
		mode = t2048.DifficultyEasy
	}
	return l.repo.TopEntries(ctx, mode, ClampLimit(limit))
}

var (
	_ Sink  = (*LocalSink)(nil)
	_ Board = (*LocalSink)(nil)
)
