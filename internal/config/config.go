// Package config provides YAML-based configuration loading for the 2048
// game, its SSH server and the leaderboard service.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// Config is the full application configuration.
type Config struct {
	Difficulty  string            `yaml:"difficulty"`  // spawn policy for new games: "easy" or "hard"
	PlayerName  string            `yaml:"player_name"` // used until the player picks a name
	DBPath      string            `yaml:"db_path"`
	LogLevel    string            `yaml:"log_level"` // debug, info, warn, error
	Undo        UndoConfig        `yaml:"undo"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Server      ServerConfig      `yaml:"server"`
}

// UndoConfig controls the undo history.
type UndoConfig struct {
	Limit int `yaml:"limit"` // snapshots kept; 0 uses the engine default
}

// LeaderboardConfig points the game at a leaderboard service.
type LeaderboardConfig struct {
	URL         string        `yaml:"url"` // empty records scores in the local database
	Timeout     time.Duration `yaml:"timeout"`
	ModeDefault string        `yaml:"mode_default"` // mode listed when none is requested
}

// ServerConfig contains listen addresses for the network services.
type ServerConfig struct {
	HTTPAddr    string        `yaml:"http_addr"`
	SSHAddr     string        `yaml:"ssh_addr"`
	HostKey     string        `yaml:"host_key"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := t2048.ParseDifficulty(c.Difficulty); err != nil {
		errs = append(errs, fmt.Errorf("difficulty: %w", err))
	}
	if _, err := t2048.ParseDifficulty(c.Leaderboard.ModeDefault); err != nil {
		errs = append(errs, fmt.Errorf("leaderboard.mode_default: %w", err))
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, fmt.Errorf("log_level: %w", err))
		}
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path: must not be empty"))
	}
	if c.Undo.Limit < 0 {
		errs = append(errs, fmt.Errorf("undo.limit: must not be negative, got %d", c.Undo.Limit))
	}
	if c.Leaderboard.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("leaderboard.timeout: must be positive, got %s", c.Leaderboard.Timeout))
	}
	if c.Server.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.idle_timeout: must be positive, got %s", c.Server.IdleTimeout))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}

// EngineDifficulty returns the configured difficulty, falling back to easy.
func (c Config) EngineDifficulty() t2048.Difficulty {
	d, err := t2048.ParseDifficulty(c.Difficulty)
	if err != nil {
		return t2048.DifficultyEasy
	}
	return d
}

// Level returns the configured log level, falling back to info.
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
