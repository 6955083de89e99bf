// Package server exposes the admin scrape trigger, the stored games and the
// service health over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/pkg/performance"
	"github.com/Vodeneev/scratchiq/internal/pkg/scheduler"
	"github.com/Vodeneev/scratchiq/internal/pkg/storage"
	"github.com/Vodeneev/scratchiq/internal/scraper/orchestrator"
	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

const (
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultHotLimit is the number of hot tickets returned when no limit is given
	DefaultHotLimit = 10

	disclaimer = "Expected values are estimates. Gambling involves risk. Play responsibly."
)

// Trigger runs a scrape cycle, returning scheduler.ErrBusy while another one runs
type Trigger interface {
	Run(ctx context.Context, jurisdictions []models.Jurisdiction) (orchestrator.CycleResult, error)
	// LastResult reports the most recent finished cycle, scheduled or manual
	LastResult() (orchestrator.CycleResult, bool)
}

// GameReader is the read side of the game store
type GameReader interface {
	ListGames(ctx context.Context, f storage.GameFilter) ([]models.GameRecord, error)
	GetGame(ctx context.Context, jurisdiction models.Jurisdiction, id string) (*models.GameRecord, error)
}

type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	AllowedOrigins    []string
	// CycleTimeout bounds a manually triggered cycle; 0 means no limit
	CycleTimeout time.Duration
}

type Server struct {
	cfg           Config
	trigger       Trigger
	games         GameReader
	tracker       *performance.Tracker
	jurisdictions []scrapers.Description
	router        chi.Router
}

// New builds the router. games may be nil, in which case the game routes are not mounted.
func New(cfg Config, trigger Trigger, games GameReader, tracker *performance.Tracker) *Server {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if tracker == nil {
		tracker = performance.GetTracker()
	}

	s := &Server{
		cfg:           cfg,
		trigger:       trigger,
		games:         games,
		tracker:       tracker,
		jurisdictions: scrapers.Descriptions(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ping", handlePing)
	r.Get("/health", handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/jurisdictions", s.handleJurisdictions)
		r.Post("/admin/scrape", s.handleScrape)
		r.Get("/admin/last-cycle", s.handleLastCycle)

		if s.games != nil {
			r.Get("/games/{jurisdiction}", s.handleListGames)
			r.Get("/games/{jurisdiction}/{id}", s.handleGetGame)
			r.Get("/hot/{jurisdiction}", s.handleHotGames)
		}
	})

	return r
}

// Handler returns the HTTP handler with all routes mounted
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled. It blocks.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.GetMetrics())
}

func (s *Server) handleJurisdictions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jurisdictions": s.jurisdictions,
		"count":         len(s.jurisdictions),
	})
}

// handleLastCycle returns the result of the most recent cycle, 404 before the first one
func (s *Server) handleLastCycle(w http.ResponseWriter, _ *http.Request) {
	result, ok := s.trigger.LastResult()
	if !ok {
		writeError(w, http.StatusNotFound, "no scrape cycle has finished yet")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleScrape triggers a cycle
// POST /api/admin/scrape?jurisdiction=nc - one jurisdiction (comma-separated for several)
// POST /api/admin/scrape - every configured jurisdiction
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var jurisdictions []models.Jurisdiction
	if raw := r.URL.Query().Get("jurisdiction"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			j := models.ParseJurisdiction(part)
			if j == "" {
				continue
			}
			if !s.supported(j) {
				writeError(w, http.StatusBadRequest, "unsupported jurisdiction "+j.Display())
				return
			}
			jurisdictions = append(jurisdictions, j)
		}
	}

	// the cycle outlives a dropped client connection
	ctx := context.WithoutCancel(r.Context())
	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	slog.Info("Manual scrape triggered", "jurisdictions", jurisdictions, "request_id", middleware.GetReqID(r.Context()))
	result, err := s.trigger.Run(ctx, jurisdictions)
	if errors.Is(err, scheduler.ErrBusy) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListGames lists stored games of a jurisdiction
// GET /api/games/nc?minPrice=2&maxPrice=10&hotOnly=true&limit=20
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jurisdictionParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := storage.GameFilter{
		Jurisdiction: j,
		MinPrice:     parseFloat(q.Get("minPrice")),
		MaxPrice:     parseFloat(q.Get("maxPrice")),
		HotOnly:      q.Get("hotOnly") == "true",
		Limit:        parseInt(q.Get("limit")),
	}
	s.writeGames(w, r, j, filter)
}

// handleHotGames lists the best hot tickets of a jurisdiction
// GET /api/hot/nc?limit=5
func (s *Server) handleHotGames(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jurisdictionParam(w, r)
	if !ok {
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = DefaultHotLimit
	}
	s.writeGames(w, r, j, storage.GameFilter{Jurisdiction: j, HotOnly: true, Limit: limit})
}

func (s *Server) writeGames(w http.ResponseWriter, r *http.Request, j models.Jurisdiction, filter storage.GameFilter) {
	games, err := s.games.ListGames(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list games", "jurisdiction", j.Display(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jurisdiction": j.Display(),
		"count":        len(games),
		"games":        games,
		"disclaimer":   disclaimer,
	})
}

// handleGetGame returns one game with its prize table
// GET /api/games/nc/123
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jurisdictionParam(w, r)
	if !ok {
		return
	}

	game, err := s.games.GetGame(r.Context(), j, chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		slog.Error("Failed to get game", "jurisdiction", j.Display(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) jurisdictionParam(w http.ResponseWriter, r *http.Request) (models.Jurisdiction, bool) {
	j := models.ParseJurisdiction(chi.URLParam(r, "jurisdiction"))
	if !s.supported(j) {
		writeError(w, http.StatusBadRequest, "unsupported jurisdiction "+j.Display())
		return "", false
	}
	return j, true
}

func (s *Server) supported(j models.Jurisdiction) bool {
	for _, d := range s.jurisdictions {
		if d.Jurisdiction == j {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
