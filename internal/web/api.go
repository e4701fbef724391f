package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"festplan/internal/ics"
	appLog "festplan/internal/log"
	"festplan/internal/model"
	"festplan/internal/plan"
)

// maxTagsBody bounds POST /api/tags; a mutation plus a fragment is small.
const maxTagsBody = 64 << 10

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.current(w)
	if cat == nil {
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// handleSchedule returns the full plan view for a state.
//
// GET /api/schedule?state=<fragment>&prune=1
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	cat := s.current(w)
	if cat == nil {
		return
	}
	q := r.URL.Query()
	store := s.decodeState(q.Get("state"), cat, parseBool(q.Get("prune")))
	writeJSON(w, http.StatusOK, plan.Build(cat, store, s.planOptions()))
}

// tagsRequest is a mutation against the state the client currently holds.
type tagsRequest struct {
	State string `json:"state"`
	plan.Mutation
}

type tagsResponse struct {
	Fragment string     `json:"fragment"`
	View     *plan.View `json:"view"`
}

// handleTags applies one mutation and answers with the new fragment and
// the view recomputed from it.
//
// POST /api/tags {"state":"?tag%5Bselected%5D=K1","op":"toggle","screening_id":"K2","tag_id":"selected"}
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	cat := s.current(w)
	if cat == nil {
		return
	}

	var req tagsRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTagsBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Op != plan.OpClear && req.ScreeningID != "" && !cat.HasScreening(req.ScreeningID) {
		writeError(w, http.StatusUnprocessableEntity, "unknown screening: "+req.ScreeningID)
		return
	}

	store := s.decodeState(req.State, cat, false)
	if err := plan.Apply(store, s.cfg.Tags, req.Mutation); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, plan.ErrUnknownTag) || errors.Is(err, plan.ErrUnknownOp) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	appLog.Debug("tag mutation applied", "op", string(req.Op), "screening_id", req.ScreeningID, "tag_id", req.TagID)
	view := plan.Build(cat, store, s.planOptions())
	writeJSON(w, http.StatusOK, tagsResponse{Fragment: view.Fragment, View: view})
}

// handleExportICS serves the selected screenings as an iCalendar feed.
//
// GET /api/export.ics?state=<fragment>
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	cat := s.current(w)
	if cat == nil {
		return
	}
	store := s.decodeState(r.URL.Query().Get("state"), cat, true)
	body, err := ics.Export(cat, plan.SelectedByStart(cat, store), ics.ExportOptions{
		Name:      "Festivaaliohjelma",
		UIDDomain: r.Host,
	})
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="festplan.ics"`)
	_, _ = w.Write(body)
}

type statusResponse struct {
	Screenings int       `json:"screenings"`
	LoadedAt   time.Time `json:"loaded_at"`
	// FromCache is true when the last refresh could not reach the program
	// source and reused the cached copy.
	FromCache bool `json:"from_cache"`
}

// handleStatus reports what the current catalog is and where it came from.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cat := s.current(w)
	if cat == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.status(cat))
}

func (s *Server) status(cat *model.Catalog) statusResponse {
	return statusResponse{Screenings: len(cat.Screenings), LoadedAt: cat.LoadedAt, FromCache: s.fromCache()}
}

// handleRefresh reloads the catalog now instead of waiting for the next
// scheduled run.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh not configured")
		return
	}
	if err := s.refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "refresh failed: "+err.Error())
		return
	}
	cat := s.current(w)
	if cat == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.status(cat))
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
