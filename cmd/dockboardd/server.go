package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dockcore/internal/adapters/archive"
	"dockcore/internal/adapters/tabular"
	"dockcore/internal/core"
	"dockcore/pkg/domain"
)

// server exposes the dock engine over a small JSON API. Mutating handlers
// call publish afterwards so peers receive the new snapshot.
type server struct {
	svc      *core.Service
	archiver *archive.Archiver
	logger   core.Logger
	publish  func()
}

func newMux(s *server, registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /debug/vars", expvar.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/sides", s.handleSides)
	mux.HandleFunc("GET /api/board", s.handleBoard)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("POST /api/sides/{side}/records", s.handleAddRecord)
	mux.HandleFunc("DELETE /api/sides/{side}/records/{id}", s.handleRemoveRecord)
	mux.HandleFunc("PATCH /api/sides/{side}/records/{id}/fields", s.handleSetField)
	mux.HandleFunc("PUT /api/sides/{side}/records/{id}/dock", s.handleCommitDock)
	mux.HandleFunc("POST /api/sides/{side}/records/{id}/arrival", s.handleArrival)
	mux.HandleFunc("POST /api/sides/{side}/records/{id}/departure", s.handleDeparture)
	mux.HandleFunc("PUT /api/sides/{side}/records/{id}/air-items", s.handleAirItems)
	mux.HandleFunc("POST /api/sides/{side}/records/{id}/preference", s.handlePreference)

	mux.HandleFunc("PUT /api/sides/{side}", s.handleReplaceSide)
	mux.HandleFunc("DELETE /api/sides/{side}", s.handleClearSide)
	mux.HandleFunc("POST /api/sides/{side}/auto-assign", s.handleAutoAssign)

	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("POST /api/templates", s.handlePutTemplate)
	mux.HandleFunc("PUT /api/templates", s.handleImportTemplates)
	mux.HandleFunc("DELETE /api/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("GET /api/templates/export", s.handleExportTemplates)

	mux.HandleFunc("POST /api/archive", s.handleArchive)
	mux.HandleFunc("GET /api/archive", s.handleListArchives)
	mux.HandleFunc("POST /api/archive/sides/{side}", s.handleArchiveSide)
	mux.HandleFunc("POST /api/archive/restore", s.handleRestoreArchive)

	return mux
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var rve domain.RuleViolationError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownSide):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDock), errors.Is(err, core.ErrUnknownField):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrMilestoneSet), errors.Is(err, core.ErrConflictDeclined):
		status = http.StatusConflict
	case errors.As(err, &rve):
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body: " + err.Error()})
		return false
	}
	return true
}

func (s *server) handleSides(w http.ResponseWriter, r *http.Request) {
	sides, err := s.svc.Sides(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sides)
}

func (s *server) handleBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.svc.DockBoard(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, board)
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	var rec core.Record
	if !s.decode(w, r, &rec) {
		return
	}
	created, _, err := s.svc.AddRecord(r.Context(), r.PathValue("side"), rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleRemoveRecord(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.RemoveRecord(r.Context(), r.PathValue("side"), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSetField(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	rec, _, err := s.svc.SetField(r.Context(), r.PathValue("side"), r.PathValue("id"), body.Key, body.Value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleCommitDock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value    string `json:"value"`
		Override bool   `json:"override"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	rec, conflict, _, err := s.svc.CommitDock(r.Context(), r.PathValue("side"), r.PathValue("id"), body.Value, body.Override)
	if errors.Is(err, core.ErrConflictDeclined) {
		s.writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "conflict": conflict})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, map[string]any{"record": rec, "conflict": conflict})
}

func (s *server) handleArrival(w http.ResponseWriter, r *http.Request) {
	s.handleMilestone(w, r, s.svc.MarkArrival)
}

func (s *server) handleDeparture(w http.ResponseWriter, r *http.Request) {
	s.handleMilestone(w, r, s.svc.MarkDeparture)
}

func (s *server) handleMilestone(w http.ResponseWriter, r *http.Request, mark func(ctx context.Context, side, id string, overwrite bool) (core.Record, core.Result, error)) {
	overwrite := r.URL.Query().Get("overwrite") == "true"
	rec, _, err := mark(r.Context(), r.PathValue("side"), r.PathValue("id"), overwrite)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleAirItems(w http.ResponseWriter, r *http.Request) {
	var items []core.AirItem
	if !s.decode(w, r, &items) {
		return
	}
	rec, _, err := s.svc.SetAirItems(r.Context(), r.PathValue("side"), r.PathValue("id"), items)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *server) handlePreference(w http.ResponseWriter, r *http.Request) {
	rule, _, err := s.svc.SavePreference(r.Context(), r.PathValue("side"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusCreated, rule)
}

// handleReplaceSide accepts rows in the flat field-catalog shape, decodes
// them and swaps the side wholesale, optionally auto-assigning docks.
func (s *server) handleReplaceSide(w http.ResponseWriter, r *http.Request) {
	var rows []map[string]string
	if !s.decode(w, r, &rows) {
		return
	}
	records, err := tabular.DecodeRows(rows, domain.DefaultDocks())
	if err != nil {
		s.writeError(w, err)
		return
	}
	autoAssign := r.URL.Query().Get("auto") == "true"
	assigned, _, err := s.svc.ReplaceSide(r.Context(), r.PathValue("side"), records, autoAssign)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, map[string]any{"imported": len(records), "assigned": assigned})
}

func (s *server) handleClearSide(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.ClearSide(r.Context(), r.PathValue("side")); err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	assigned, _, err := s.svc.ApplyTemplatesToSide(r.Context(), r.PathValue("side"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, map[string]any{"assigned": assigned})
}

func (s *server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rules)
}

func (s *server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	var rule core.TemplateRule
	if !s.decode(w, r, &rule) {
		return
	}
	saved, _, err := s.svc.PutTemplate(r.Context(), rule)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *server) handleImportTemplates(w http.ResponseWriter, r *http.Request) {
	var rules []core.TemplateRule
	if !s.decode(w, r, &rules) {
		return
	}
	data, err := json.Marshal(rules)
	if err != nil {
		s.writeError(w, err)
		return
	}
	count, _, err := s.svc.ImportTemplates(r.Context(), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

func (s *server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.DeleteTemplate(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleExportTemplates(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.ExportTemplates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *server) archiverReady(w http.ResponseWriter) bool {
	if s.archiver == nil {
		s.writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "archiving not configured"})
		return false
	}
	return true
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if !s.archiverReady(w) {
		return
	}
	sides, templates, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.archiver.ArchiveYard(r.Context(), sides, templates)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *server) handleListArchives(w http.ResponseWriter, r *http.Request) {
	if !s.archiverReady(w) {
		return
	}
	infos, err := s.archiver.List(r.Context(), r.URL.Query().Get("scope"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *server) handleArchiveSide(w http.ResponseWriter, r *http.Request) {
	if !s.archiverReady(w) {
		return
	}
	name := r.PathValue("side")
	sides, _, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	for _, side := range sides {
		if side.Name != name {
			continue
		}
		jsonInfo, tableInfo, err := s.archiver.ArchiveSide(r.Context(), side)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]any{"snapshot": jsonInfo, "table": tableInfo})
		return
	}
	s.writeError(w, fmt.Errorf("%w: %s", domain.ErrUnknownSide, name))
}

// handleRestoreArchive replaces the live board with an archived yard
// snapshot. The restored state replicates like any other mutation.
func (s *server) handleRestoreArchive(w http.ResponseWriter, r *http.Request) {
	if !s.archiverReady(w) {
		return
	}
	var body struct {
		Key string `json:"key"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	snap, err := s.archiver.Restore(r.Context(), body.Key)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if _, err := s.svc.ApplySnapshot(r.Context(), snap.Sides, snap.Templates); err != nil {
		s.writeError(w, err)
		return
	}
	s.publish()
	s.writeJSON(w, http.StatusOK, map[string]any{"taken_at": snap.TakenAt, "sides": len(snap.Sides)})
}
