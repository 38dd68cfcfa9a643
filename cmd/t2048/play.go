package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-2048/internal/identity"
	"github.com/vovakirdan/tui-2048/internal/platform/tui"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

var (
	flagDifficulty string
	flagNewGame    bool
	flagName       string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play 2048 in this terminal",
	Long: `Start playing 2048. An unfinished saved game is resumed unless --new
is given.

Controls:
  Arrows/WASD/hjkl  - Slide tiles
  U                 - Undo the last move
  N                 - New game (asks for the player name)
  M                 - Toggle easy/hard for the next game
  L/Tab             - Leaderboard
  ?                 - Toggle help
  Q/Ctrl+C          - Quit (the game is saved)

Difficulty options:
  easy   - New tiles are 2, 4 or 8 (16 once a 128 is on the board)
  hard   - New tiles are weighted towards the board's larger values

Examples:
  t2048 play
  t2048 play --new --difficulty hard
  t2048 play --name ada`,
	Args: cobra.NoArgs,
	Run:  runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty for a new game: easy, hard")
	playCmd.Flags().BoolVar(&flagNewGame, "new", false, "Start a new game instead of resuming")
	playCmd.Flags().StringVar(&flagName, "name", "", "Player name")
}

func runPlay(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fatalf("Error: play needs an interactive terminal")
	}

	difficulty := cfg.EngineDifficulty()
	if flagDifficulty != "" {
		d, err := t2048.ParseDifficulty(flagDifficulty)
		if err != nil {
			fatalf("Error: %v", err)
		}
		difficulty = d
	}

	logger, closeLog := newFileLogger(cfg)
	defer closeLog()

	store := openStore(cfg)
	defer store.Close()

	profile := identity.New(store)
	switch {
	case flagName != "":
		if _, err := profile.SetDisplayName(flagName); err != nil {
			store.Close()
			closeLog()
			fatalf("Error: %v", err)
		}
	case !profile.HasName() && cfg.PlayerName != t2048.DefaultPlayerName:
		if _, err := profile.SetDisplayName(cfg.PlayerName); err != nil {
			logger.Warn("ignoring configured player name", "error", err)
		}
	}
	if id, err := profile.DeviceID(); err == nil {
		logger = logger.With("device", id)
	}

	engine := t2048.New(t2048.Options{
		Store:        store,
		Seed:         flagSeed,
		Difficulty:   difficulty,
		HistoryLimit: cfg.Undo.Limit,
		PlayerName:   cfg.PlayerName,
		Logger:       logger,
	})

	sinks, board := scoreTargets(cfg, store)

	logger.Info("starting game", "difficulty", difficulty, "resume", !flagNewGame)
	err := tui.Run(tui.Options{
		Engine:        engine,
		Restore:       !flagNewGame,
		Difficulty:    difficulty,
		Profile:       profile,
		Sinks:         sinks,
		Board:         board,
		Logger:        logger,
		SubmitTimeout: cfg.Leaderboard.Timeout,
	})
	if err != nil {
		store.Close()
		closeLog()
		fatalf("Error running game: %v", err)
	}
}
