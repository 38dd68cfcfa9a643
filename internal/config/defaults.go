package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/t2048.yaml
var defaultYAML []byte

// Default returns the built-in configuration. It matches defaults/t2048.yaml.
func Default() Config {
	return Config{
		Difficulty: "easy",
		PlayerName: "Player",
		DBPath:     "~/.arcade/2048.db",
		LogLevel:   "info",
		Undo: UndoConfig{
			Limit: 20,
		},
		Leaderboard: LeaderboardConfig{
			URL:         "",
			Timeout:     5 * time.Second,
			ModeDefault: "easy",
		},
		Server: ServerConfig{
			HTTPAddr:    ":3001",
			SSHAddr:     ":2222",
			HostKey:     ".ssh/t2048_ed25519",
			IdleTimeout: 30 * time.Minute,
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
