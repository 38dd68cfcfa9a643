package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-2048/internal/identity"
	"github.com/vovakirdan/tui-2048/internal/platform/tui"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the 2048 SSH server",
	Long: `Start an SSH server that lets users connect and play 2048.

Each SSH user gets their own saved game, best score and player name, keyed by
their SSH login. Finished games go to the shared leaderboard.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise uses server.host_key from the config, generating it if missing

Examples:
  t2048 serve                           # Listen on the configured address
  t2048 serve --ssh :2222               # Listen on port 2222
  t2048 serve --host-key ./my_host_key  # Use specific host key
  t2048 serve --db ./2048.db            # Use specific database

Users can connect with:
  ssh localhost -p 2222`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

var servePlayersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the SSH players known to the database",
	Args:  cobra.NoArgs,
	Run:   runServePlayers,
}

func init() {
	serveCmd.AddCommand(servePlayersCmd)

	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file")
	serveCmd.Flags().DurationVar(&flagIdleTimeout, "idle-timeout", 0, "Idle time before disconnecting (e.g. 30m)")
}

func runServe(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)
	logger := newLogger(cfg)

	sshCfg := tui.SSHServerConfig{
		Address:      cfg.Server.SSHAddr,
		HostKeyPath:  cfg.Server.HostKey,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Difficulty:   cfg.EngineDifficulty(),
		HistoryLimit: cfg.Undo.Limit,
	}
	if flagSSHAddr != "" {
		sshCfg.Address = flagSSHAddr
	}
	if flagHostKey != "" {
		sshCfg.HostKeyPath = flagHostKey
	}
	if flagIdleTimeout > 0 {
		sshCfg.IdleTimeout = flagIdleTimeout
	}

	store := openStore(cfg)
	defer store.Close()

	sinks, board := scoreTargets(cfg, store)

	server, err := tui.NewSSHServer(sshCfg, store, sinks, board, logger)
	if err != nil {
		store.Close()
		fatalf("Error creating server: %v", err)
	}

	fmt.Printf("Starting 2048 SSH server on %s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.ListenAndServe(); err != nil {
		store.Close()
		fatalf("Server error: %v", err)
	}
}

func runServePlayers(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)

	store := openStore(cfg)
	defer store.Close()

	users, err := tui.SSHPlayers(store)
	if err != nil {
		store.Close()
		fatalf("Error listing players: %v", err)
	}
	if len(users) == 0 {
		fmt.Println("No SSH players yet.")
		return
	}

	for _, user := range users {
		ns := store.Namespace(tui.UserNamespace(user))
		engine := t2048.New(t2048.Options{Store: ns, Logger: log.New(io.Discard)})
		fmt.Printf("%-20s %-20s best %d\n", user, identity.New(ns).DisplayName(), engine.BestScore())
	}
}
