package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-2048/internal/leaderboard"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

var (
	flagHTTPAddr string
	flagMode     string
	flagLimit    int
	flagRemote   string
	flagClearYes bool
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Run or query the leaderboard",
	Long: `Commands for the 2048 leaderboard.

Examples:
  t2048 leaderboard serve --http :3001
  t2048 leaderboard top
  t2048 leaderboard top --mode hard --limit 20
  t2048 leaderboard top --remote http://scores.example:3001
  t2048 leaderboard clear --mode hard --yes`,
}

var leaderboardServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP leaderboard server",
	Long: `Serve the leaderboard over HTTP, backed by the database.

Endpoints:
  GET  /health                          - Liveness check
  GET  /api/leaderboard?mode=&limit=    - Top scores for a mode
  POST /api/score                       - Submit {"name","score","mode"}
  GET  /api/live                        - WebSocket feed of new scores`,
	Args: cobra.NoArgs,
	Run:  runLeaderboardServe,
}

var leaderboardTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Print the top scores",
	Args:  cobra.NoArgs,
	Run:   runLeaderboardTop,
}

var leaderboardClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the recorded scores of one mode",
	Long: `Delete every score recorded in the database for a mode. Remote
leaderboards are not touched.`,
	Args: cobra.NoArgs,
	Run:  runLeaderboardClear,
}

func init() {
	leaderboardServeCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "HTTP listen address (default from config)")

	leaderboardTopCmd.Flags().StringVar(&flagMode, "mode", "", "Mode: easy, hard (default from config)")
	leaderboardTopCmd.Flags().IntVar(&flagLimit, "limit", leaderboard.DefaultLimit, "Number of scores to show")
	leaderboardTopCmd.Flags().StringVar(&flagRemote, "remote", "", "Query a remote leaderboard at this URL instead of the database")

	leaderboardClearCmd.Flags().StringVar(&flagMode, "mode", "", "Mode: easy, hard (required)")
	leaderboardClearCmd.Flags().BoolVar(&flagClearYes, "yes", false, "Confirm deleting the scores")
	_ = leaderboardClearCmd.MarkFlagRequired("mode")

	leaderboardCmd.AddCommand(leaderboardServeCmd)
	leaderboardCmd.AddCommand(leaderboardTopCmd)
	leaderboardCmd.AddCommand(leaderboardClearCmd)
}

func runLeaderboardServe(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)

	addr := cfg.Server.HTTPAddr
	if flagHTTPAddr != "" {
		addr = flagHTTPAddr
	}

	store := openStore(cfg)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := leaderboard.NewHub(logger)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           leaderboard.NewServer(store, hub, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting leaderboard server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		store.Close()
		fatalf("Server error: %v", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func runLeaderboardTop(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)

	mode := t2048.Difficulty(cfg.Leaderboard.ModeDefault)
	if flagMode != "" {
		d, err := t2048.ParseDifficulty(flagMode)
		if err != nil {
			fatalf("Error: %v", err)
		}
		mode = d
	}
	limit := leaderboard.ClampLimit(flagLimit)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Leaderboard.Timeout)
	defer cancel()

	var (
		entries []leaderboard.Entry
		err     error
		footer  string
	)
	if flagRemote != "" {
		client := leaderboard.NewClient(flagRemote, cfg.Leaderboard.Timeout)
		entries, err = client.Top(ctx, mode, limit)
	} else {
		store := openStore(cfg)
		defer store.Close()
		entries, err = leaderboard.NewLocalSink(store).Top(ctx, mode, limit)
		if err == nil {
			if stats, statsErr := store.ModeStats(string(mode)); statsErr == nil && stats.GamesCount > 0 {
				footer = fmt.Sprintf("Games: %d  Players: %d  Best: %d  Average: %.0f",
					stats.GamesCount, stats.Players, stats.HighScore, stats.AvgScore)
			}
		}
	}
	if err != nil {
		fatalf("Error retrieving scores: %v", err)
	}

	fmt.Printf("High Scores - %s\n\n", mode)

	if len(entries) == 0 {
		fmt.Println("No scores recorded yet.")
		fmt.Println()
		fmt.Println("Play 't2048 play' to set the first high score!")
		return
	}

	fmt.Println(renderEntries(entries))
	if footer != "" {
		fmt.Println()
		fmt.Println(footer)
	}
}

func runLeaderboardClear(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)

	mode, err := t2048.ParseDifficulty(flagMode)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if !flagClearYes {
		fatalf("Refusing to delete %s scores without --yes", mode)
	}

	store := openStore(cfg)
	defer store.Close()

	before, err := store.HighScore(string(mode))
	if err != nil {
		store.Close()
		fatalf("Error reading scores: %v", err)
	}
	if err := store.ClearScores(string(mode)); err != nil {
		store.Close()
		fatalf("Error clearing scores: %v", err)
	}
	fmt.Printf("Cleared %s scores (best was %d)\n", mode, before)
}

// renderEntries formats entries as a bordered table.
func renderEntries(entries []leaderboard.Entry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		date := ""
		if !e.CreatedAt.IsZero() {
			date = e.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), e.Name, strconv.Itoa(e.Score), date})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("Rank", "Player", "Score", "Date").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}
