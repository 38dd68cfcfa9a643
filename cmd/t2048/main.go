// t2048 is the 2048 sliding-tile puzzle for the terminal.
//
// Usage:
//
//	t2048 play                 - Play locally, resuming the saved game
//	t2048 serve                - Host games over SSH
//	t2048 serve players        - List the known SSH players
//	t2048 leaderboard serve    - Run the HTTP leaderboard
//	t2048 leaderboard top      - Print the top scores
//	t2048 leaderboard clear    - Delete the local scores of a mode
//	t2048 profile              - Show or change the player profile
//
// Global flags:
//
//	--config <path>     - Config file (default: search ~/.arcade/configs, ./configs)
//	--db <path>         - Database path (default: ~/.arcade/2048.db)
//	--seed <value>      - RNG seed for reproducible games
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-2048/internal/config"
	"github.com/vovakirdan/tui-2048/internal/leaderboard"
	"github.com/vovakirdan/tui-2048/internal/storage"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagSeed     int64
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "t2048",
	Short: "2048 - Slide and merge tiles in your terminal",
	Long: `t2048 is the 2048 puzzle for the terminal: slide the board, merge equal
tiles and reach 2048. Games are saved as you play and resume on the next
start. Finished games are recorded on a local leaderboard and, when
configured, submitted to a remote one.

Available commands:
  play         - Play in this terminal
  serve        - Host games over SSH
  leaderboard  - Run or query the leaderboard
  profile      - Show or change the player profile

Examples:
  t2048 play
  t2048 play --new --difficulty hard
  t2048 serve --ssh :2222
  t2048 leaderboard serve --http :3001
  t2048 leaderboard top --mode hard`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a t2048.yaml config file")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to the database (overrides config)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(profileCmd)
}

// loadConfig reads .env, the config file and the global flag overrides.
func loadConfig(cmd *cobra.Command) config.Config {
	if err := config.LoadDotEnv(); err != nil {
		fatalf("Error loading .env: %v", err)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}

	if cmd.Flags().Changed("db") {
		cfg.DBPath = flagDBPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
		if err := cfg.Validate(); err != nil {
			fatalf("Error: %v", err)
		}
	}
	return cfg
}

// newLogger creates the process logger writing to stderr.
func newLogger(cfg config.Config) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "t2048",
		Level:           cfg.Level(),
	})
}

// newFileLogger logs next to the database so the full-screen UI stays clean.
func newFileLogger(cfg config.Config) (*log.Logger, func()) {
	dbPath, err := config.ExpandHome(cfg.DBPath)
	if err != nil {
		return log.New(io.Discard), func() {}
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return log.New(io.Discard), func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "t2048.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return log.New(io.Discard), func() {}
	}
	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Prefix:          "t2048",
		Level:           cfg.Level(),
	})
	return logger, func() { f.Close() }
}

// openStore opens the database or exits.
func openStore(cfg config.Config) *storage.Store {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		fatalf("Error opening database: %v", err)
	}
	return store
}

// scoreTargets returns where finished games go and which board to show.
// Scores are always recorded locally; a configured remote leaderboard also
// receives them and becomes the board shown in the UI.
func scoreTargets(cfg config.Config, store *storage.Store) ([]leaderboard.Sink, leaderboard.Board) {
	local := leaderboard.NewLocalSink(store)
	sinks := []leaderboard.Sink{local}
	var board leaderboard.Board = local

	if cfg.Leaderboard.URL != "" {
		remote := leaderboard.NewClient(cfg.Leaderboard.URL, cfg.Leaderboard.Timeout)
		sinks = append(sinks, remote)
		board = remote
	}
	return sinks, board
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
