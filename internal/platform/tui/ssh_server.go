package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/tui-2048/internal/config"
	"github.com/vovakirdan/tui-2048/internal/identity"
	"github.com/vovakirdan/tui-2048/internal/leaderboard"
	"github.com/vovakirdan/tui-2048/internal/storage"
	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":2222").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.arcade/t2048_ed25519.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Difficulty for new games. Saved sessions keep their own.
	Difficulty t2048.Difficulty

	// HistoryLimit caps undo depth per player.
	HistoryLimit int
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:      ":2222",
		IdleTimeout:  30 * time.Minute,
		Difficulty:   t2048.DifficultyEasy,
		HistoryLimit: t2048.DefaultHistoryLimit,
	}
}

// SSHServer hosts one 2048 game per SSH session. Each SSH user gets their
// own namespace in the store, so sessions and best scores follow the user
// across connections.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	store  *storage.Store
	sinks  []leaderboard.Sink
	board  leaderboard.Board
	logger *log.Logger
}

// NewSSHServer creates a new SSH server. The caller keeps ownership of store.
func NewSSHServer(cfg SSHServerConfig, store *storage.Store, sinks []leaderboard.Sink, board leaderboard.Board, logger *log.Logger) (*SSHServer, error) {
	if store == nil {
		return nil, errors.New("tui: SSH server needs a store")
	}
	if logger == nil {
		logger = log.Default()
	}

	srv := &SSHServer{
		config: cfg,
		store:  store,
		sinks:  sinks,
		board:  board,
		logger: logger.WithPrefix("ssh"),
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		hostKeyPath = filepath.Join("~", ".arcade", "t2048_ed25519")
	}
	hostKeyPath, err := config.ExpandHome(hostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("tui: cannot resolve host key path: %w", err)
	}

	// Ensure host key directory exists
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("tui: cannot create host key directory: %w", err)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("tui: cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sess.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sess.User())
		return nil, nil
	}

	model := s.newSessionModel(sess.User())
	model.width = pty.Window.Width
	model.height = pty.Window.Height
	model.help.Width = pty.Window.Width

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// newSessionModel builds the model for one SSH user. A user without a
// stored name plays under their SSH login.
func (s *SSHServer) newSessionModel(user string) Model {
	ns := s.store.Namespace(UserNamespace(user))
	logger := s.logger.With("user", user)

	profile := identity.New(ns)
	if !profile.HasName() {
		if _, err := profile.SetDisplayName(user); err != nil {
			logger.Debug("SSH login is not a valid display name", "error", err)
		}
	}

	engine := t2048.New(t2048.Options{
		Store:        ns,
		Difficulty:   s.config.Difficulty,
		HistoryLimit: s.config.HistoryLimit,
		PlayerName:   profile.DisplayName(),
		Logger:       logger,
	})

	return NewModel(Options{
		Engine:     engine,
		Restore:    true,
		Difficulty: s.config.Difficulty,
		Profile:    profile,
		Sinks:      s.sinks,
		Board:      s.board,
		Logger:     logger,
	})
}

const sshNamespace = "ssh/"

// UserNamespace returns the store prefix used for an SSH user.
func UserNamespace(user string) string {
	if user == "" {
		user = "anonymous"
	}
	return sshNamespace + user
}

// SSHPlayers lists the SSH users that have anything stored, sorted.
func SSHPlayers(store *storage.Store) ([]string, error) {
	keys, err := store.Keys(sshNamespace)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var users []string
	for _, k := range keys {
		rest := strings.TrimPrefix(k, sshNamespace)
		i := strings.LastIndex(rest, "/")
		if i <= 0 {
			continue
		}
		user := rest[:i]
		if !seen[user] {
			seen[user] = true
			users = append(users, user)
		}
	}
	sort.Strings(users)
	return users, nil
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		start := time.Now()
		s.logger.Info("session started",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
		next(sess)
		s.logger.Info("session ended",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
			"duration", time.Since(start).Round(time.Second),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until SIGINT/SIGTERM.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("tui: SSH server failed: %w", err)
	case <-done:
	}

	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
