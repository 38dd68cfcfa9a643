package leaderboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// RequestTimeout bounds handler time.
const RequestTimeout = 10 * time.Second

// Server exposes a Repository over HTTP:
//
//	GET  /health
//	GET  /api/leaderboard?mode=easy&limit=10
//	POST /api/score      {"name":"...","score":123,"mode":"easy"}
//	GET  /api/live       websocket feed of accepted scores
type Server struct {
	r      *chi.Mux
	sink   *LocalSink
	hub    *Hub
	logger *log.Logger
}

// NewServer wires the router. hub may be nil to disable the live feed.
func NewServer(repo Repository, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		r:      chi.NewRouter(),
		sink:   NewLocalSink(repo),
		hub:    hub,
		logger: logger,
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.requestLogger)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(RequestTimeout))
		r.Use(jsonContentType)
		r.Get("/api/leaderboard", s.handleTop)
		r.Post("/api/score", s.handleSubmit)
	})

	if hub != nil {
		s.r.Get("/api/live", hub.ServeWS)
	}

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})

	return s
}

// Router exposes the router (useful for tests and for embedding).
func (s *Server) Router() chi.Router { return s.r }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.r.ServeHTTP(w, r) }

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	mode := t2048.DifficultyEasy
	if m := r.URL.Query().Get("mode"); m != "" {
		parsed, err := t2048.ParseDifficulty(m)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown mode"})
			return
		}
		mode = parsed
	}

	limit := DefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a number"})
			return
		}
		limit = n
	}

	entries, err := s.sink.Top(r.Context(), mode, limit)
	if err != nil {
		s.logger.Error("cannot fetch leaderboard", "mode", mode, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to fetch leaderboard"})
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	entry, err := s.sink.Submit(r.Context(), sub)
	if errors.Is(err, ErrInvalidSubmission) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("cannot record score", "name", sub.Name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to submit score"})
		return
	}

	s.logger.Info("score recorded", "name", entry.Name, "score", entry.Score, "mode", entry.Mode)
	if s.hub != nil {
		s.hub.Publish(entry)
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
