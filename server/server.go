// Package server exposes game lookups over a small JSON API for the
// presence front end.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ryanm101/nxpresence/catalog"
	"github.com/ryanm101/nxpresence/logging"
	"github.com/ryanm101/nxpresence/lookup"
	"github.com/ryanm101/nxpresence/tracing"
)

// TokenStatus reports whether a cached IGDB token is usable.
type TokenStatus interface {
	IsTokenValid() bool
}

// Server handles HTTP requests.
type Server struct {
	lookup *lookup.Service
	tokens TokenStatus
	mux    *http.ServeMux
}

// NewServer creates a new API server. tokens may be nil.
func NewServer(svc *lookup.Service, tokens TokenStatus) *Server {
	s := &Server{
		lookup: svc,
		tokens: tokens,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// HTTPServer wraps the API in an http.Server listening on port.
func (s *Server) HTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      tracing.Handler(s, "nxpresence"),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/popular", s.handlePopular)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGame)
	s.mux.HandleFunc("GET /api/image-key", s.handleImageKey)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// listResponse mirrors the {success, games} replies the UI expects.
type listResponse struct {
	Success bool                 `json:"success"`
	Games   []catalog.GameRecord `json:"games"`
	Source  lookup.Source        `json:"source"`
	Error   string               `json:"error,omitempty"`
}

type gameResponse struct {
	Success bool                `json:"success"`
	Game    *catalog.GameRecord `json:"game"`
	Error   string              `json:"error,omitempty"`
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, catalog.DefaultPopularLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, listResponse{Games: []catalog.GameRecord{}, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(s.lookup.Popular(r.Context(), limit)))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, catalog.DefaultSearchLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, listResponse{Games: []catalog.GameRecord{}, Error: err.Error()})
		return
	}
	term := r.URL.Query().Get("q")
	logging.Debug("searching", "term", term)

	writeJSON(w, http.StatusOK, toListResponse(s.lookup.Search(r.Context(), term, limit)))
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, gameResponse{Error: "invalid game id"})
		return
	}

	game, err := s.lookup.Game(r.Context(), id)
	switch {
	case errors.Is(err, lookup.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, gameResponse{Error: err.Error()})
	case err != nil:
		logging.Error("get game failed", "id", id, "error", err)
		writeJSON(w, http.StatusBadGateway, gameResponse{Error: err.Error()})
	case game == nil:
		writeJSON(w, http.StatusNotFound, gameResponse{Error: "game not found"})
	default:
		writeJSON(w, http.StatusOK, gameResponse{Success: true, Game: game})
	}
}

func (s *Server) handleImageKey(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	writeJSON(w, http.StatusOK, map[string]string{
		"name":      name,
		"image_key": s.lookup.ImageKey(name),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	tokenValid := s.tokens != nil && s.tokens.IsTokenValid()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"igdb":        s.lookup.HasRemote(),
		"token_valid": tokenValid,
	})
}

// toListResponse reports success only when IGDB answered; local fallback
// results are still returned so the picker has something to show.
func toListResponse(res lookup.Result) listResponse {
	resp := listResponse{
		Success: res.Err == nil,
		Games:   res.Games,
		Source:  res.Source,
	}
	if resp.Games == nil {
		resp.Games = []catalog.GameRecord{}
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

func parseLimit(r *http.Request, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return 0, errors.New("limit must be between 1 and 500")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
