// Package web serves the schedule planner: a JSON API over the catalog and
// the tag state, the ICS export and a server-rendered schedule page.
//
// The server keeps no per-user state. Every request carries the encoded
// tag fragment in its state parameter and mutating calls answer with the
// new fragment.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"festplan/internal/config"
	appLog "festplan/internal/log"
	"festplan/internal/model"
	"festplan/internal/plan"
	"festplan/internal/tagcodec"
	"festplan/internal/tags"
)

// CatalogSource is satisfied by *catalog.Loader.
type CatalogSource interface {
	Current() *model.Catalog
}

// cacheReporter is implemented by sources that can fall back to a cached
// program (*catalog.Loader).
type cacheReporter interface {
	FromCache() bool
}

// Options wires a Server to the rest of the app.
type Options struct {
	Config  *config.Config
	Catalog CatalogSource

	// Refresh reloads the catalog on POST /api/refresh. Nil disables it.
	Refresh func(ctx context.Context) error

	// PreviewPath is the PNG served at /preview.png.
	PreviewPath string
}

// Server provides the HTTP API and pages.
type Server struct {
	cfg         *config.Config
	catalog     CatalogSource
	refresh     func(ctx context.Context) error
	previewPath string
	mux         *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:         cfg,
		catalog:     opts.Catalog,
		refresh:     opts.Refresh,
		previewPath: opts.PreviewPath,
		mux:         http.NewServeMux(),
	}
	if s.previewPath == "" {
		s.previewPath = cfg.Capture.Output
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials count as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="festplan", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	s.mux.HandleFunc("POST /api/tags", s.handleTags)
	s.mux.HandleFunc("GET /api/export.ics", s.handleExportICS)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	s.mux.HandleFunc("GET /schedule", s.handlePage)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		target := "/schedule"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured schedule PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.previewPath)
}

// current returns the loaded catalog or answers 503 and returns nil.
func (s *Server) current(w http.ResponseWriter) *model.Catalog {
	var cat *model.Catalog
	if s.catalog != nil {
		cat = s.catalog.Current()
	}
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
	}
	return cat
}

// fromCache reports whether the current catalog came from the disk cache.
func (s *Server) fromCache() bool {
	cr, ok := s.catalog.(cacheReporter)
	return ok && cr.FromCache()
}

// decodeState reads a fragment. With prune, screenings that are no longer
// in cat are dropped.
func (s *Server) decodeState(raw string, cat *model.Catalog, prune bool) *tags.Store {
	store := tagcodec.Decode(raw, s.cfg.Tags)
	if prune {
		store = tags.Validate(store, s.cfg.Tags, cat.HasScreening)
	}
	return store
}

func (s *Server) planOptions() plan.Options {
	return plan.Options{
		Grid:    s.cfg.GridLayout(),
		Defs:    s.cfg.Tags,
		MaxPaid: s.cfg.MaxPaidSelections,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
