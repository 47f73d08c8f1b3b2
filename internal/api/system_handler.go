package api

import (
	"log/slog"
	"net/http"

	"github.com/fokal/curator/internal/api/shared"
	"github.com/fokal/curator/internal/registry"
	"github.com/fokal/curator/internal/service"
)

// StatsResponse summarizes the collection and queue at one instant.
type StatsResponse struct {
	registry.Statistics
	MarkedIDs      []string `json:"marked_ids"`
	ActiveStrategy string   `json:"active_strategy"`
	Events         int      `json:"events"`
}

// ExportRequest is the body for POST /api/export.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=json sqlite"`
	Path   string `json:"path" validate:"required"`
}

// ExportResponse reports where the event log was written.
type ExportResponse struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Events int    `json:"events"`
}

// SystemHandler serves statistics, the raw event log and exports.
type SystemHandler struct {
	curator *service.Curator
	logger  *slog.Logger
}

// NewSystemHandler creates a SystemHandler over the given curator.
func NewSystemHandler(curator *service.Curator, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		curator: curator,
		logger:  logger.With("component", "system_handler"),
	}
}

// GetStats handles GET /api/stats.
func (h *SystemHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	marked := h.curator.MarkedIDs()
	if marked == nil {
		marked = []string{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{
		Statistics:     h.curator.Statistics(),
		MarkedIDs:      marked,
		ActiveStrategy: h.curator.ActiveStrategy().Name(),
		Events:         len(h.curator.Events()),
	})
}

// GetEvents handles GET /api/events, returning the full ordered event
// sequence.
func (h *SystemHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.curator.Events())
}

// Export handles POST /api/export, writing the event log to a file in the
// requested format.
func (h *SystemHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	var err error
	switch req.Format {
	case "json":
		err = h.curator.ExportJSON(req.Path)
	case "sqlite":
		err = h.curator.ExportSQLite(r.Context(), req.Path)
	}
	if err != nil {
		h.logger.Error("event log export failed",
			"error", err, "format", req.Format, "path", req.Path)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Export failed")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ExportResponse{
		Format: req.Format,
		Path:   req.Path,
		Events: len(h.curator.Events()),
	})
}
