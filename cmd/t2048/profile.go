package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-2048/internal/identity"
	"github.com/vovakirdan/tui-2048/internal/platform/tui"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

var flagProfileName string

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change the player profile",
	Long: `Print the player name, device id, best score, the leaderboard best per
mode and the saved game.

Examples:
  t2048 profile
  t2048 profile --name ada`,
	Args: cobra.NoArgs,
	Run:  runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&flagProfileName, "name", "", "Change the player name")
}

func runProfile(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)

	store := openStore(cfg)
	defer store.Close()

	profile := identity.New(store)
	engine := t2048.New(t2048.Options{
		Store:      store,
		PlayerName: cfg.PlayerName,
		Logger:     logger,
	})

	if flagProfileName != "" {
		name, err := profile.SetDisplayName(flagProfileName)
		if err != nil {
			store.Close()
			fatalf("Error: %v", err)
		}
		engine.SetPlayerName(name)
		fmt.Printf("Player renamed to %s\n\n", name)
	}

	deviceID, err := profile.DeviceID()
	if err != nil {
		logger.Warn("no device id", "error", err)
	}

	name := engine.PlayerName()
	if profile.HasName() {
		name = profile.DisplayName()
	}

	fmt.Printf("Player:     %s\n", name)
	fmt.Printf("Device:     %s\n", deviceID)
	fmt.Printf("Best score: %d\n", engine.BestScore())

	for _, mode := range []t2048.Difficulty{t2048.DifficultyEasy, t2048.DifficultyHard} {
		top, err := store.HighScore(string(mode))
		if err != nil {
			logger.Warn("cannot read leaderboard best", "mode", mode, "error", err)
			continue
		}
		fmt.Printf("%-12s%d\n", "Top "+string(mode)+":", top)
	}

	if !engine.LoadState() {
		fmt.Println("\nNo saved game.")
		return
	}
	fmt.Printf("\nSaved %s game, score %d, max tile %d, %d tiles spawned:\n\n",
		engine.Difficulty(), engine.Score(), engine.MaxTile(), engine.TileCounter())
	fmt.Print(tui.RenderPlainBoard(engine.Grid()))
}
