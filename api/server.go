// Package api provides the HTTP REST API for fincanon.
//
// It exposes the persisted company series for review tooling and an
// analyze endpoint that renders the stored series with an underwriting
// decision. The API never fetches from providers; ingestion happens in
// the sync and batch commands. Analyze reports failures inside a 200
// envelope so review front ends render them inline instead of
// surfacing a transport error.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"fincanon/internal/config"
	"fincanon/internal/report"
	"fincanon/internal/roster"
	"fincanon/internal/store"
	"fincanon/pkg/utils"
)

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	store  store.Store
	roster []roster.Company
	logger log.Logger
}

// NewServer creates a configured API server with all routes and
// middleware. companies is the known roster, used to resolve free-form
// analyze queries to a code, name, and venue.
func NewServer(cfg *config.Config, st store.Store, companies []roster.Company) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		roster: companies,
		logger: log.DefaultLogger,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT/SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/companies", s.handleSearchCompanies)
		r.Get("/companies/{code}", s.handleGetCompany)
		r.Post("/analyze", s.handleAnalyze)
	})

	return r
}

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze. Query is a
// company code or a free-form string containing one.
type AnalyzeRequest struct {
	Query string `json:"query"`
}

// AnalyzeResponse is the analyze payload: the persisted series, its
// markdown rendering, and the underwriting grouping.
type AnalyzeResponse struct {
	Series   any             `json:"series"`
	Markdown string          `json:"markdown"`
	Decision report.Decision `json:"decision"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":    "ok",
			"providers": s.cfg.Providers.Order,
		},
	})
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	series, err := s.store.GetSeries(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not yet ingested")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: series})
}

func (s *Server) handleSearchCompanies(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	results, err := s.store.SearchByName(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

// handleAnalyze resolves the query to a company, looks up its
// persisted series, and returns the rendered result. Failures come
// back as a 200 envelope with the error filled in; a company nobody
// has synced yet is such a failure, not a reason to fetch upstream.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	company, ok := s.resolveCompany(req.Query)
	if !ok {
		writeJSON(w, http.StatusOK, APIResponse{Success: false, Error: "no company code in query"})
		return
	}

	series, err := s.store.GetSeries(r.Context(), company.Code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, APIResponse{Success: false, Error: "company " + company.Code + " not yet synced"})
			return
		}
		s.logger.Warn().Err(err).Str("code", company.Code).Msg("analyze lookup failed")
		writeJSON(w, http.StatusOK, APIResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: AnalyzeResponse{
			Series:   series,
			Markdown: report.Render(series),
			Decision: report.Decide(series, s.cfg.Underwriting.RevenueFloorThousands),
		},
	})
}

// resolveCompany matches a free-form query against the roster by code
// or name substring; an unlisted but numeric query still analyzes as a
// bare main-board code.
func (s *Server) resolveCompany(query string) (roster.Company, bool) {
	query = strings.TrimSpace(query)
	code := utils.ExtractCode(query)
	for _, c := range s.roster {
		if c.Code == code || (query != "" && strings.Contains(c.Name, query)) {
			return c, true
		}
	}
	if code == "" {
		return roster.Company{}, false
	}
	return roster.Company{Code: code, Venue: utils.VenueTWSE}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.DefaultLogger.Warn().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
