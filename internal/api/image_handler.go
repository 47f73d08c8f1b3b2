package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fokal/curator/internal/api/shared"
	"github.com/fokal/curator/internal/domain"
	"github.com/fokal/curator/internal/service"
)

// SubmitImagesRequest is the body for POST /api/images.
type SubmitImagesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// SubmitImagesResponse reports how many of the submitted IDs were accepted.
type SubmitImagesResponse struct {
	Submitted int `json:"submitted"`
}

// ViewportRequest is the body for POST /api/viewport. An empty list is
// valid and clears the attention window.
type ViewportRequest struct {
	VisibleIDs []string `json:"visible_ids"`
}

// NarrativeResponse carries the ordered lifecycle story of one image.
type NarrativeResponse struct {
	ImageID   string   `json:"image_id"`
	Narrative []string `json:"narrative"`
}

// ImageHandler handles image submission and interaction requests.
type ImageHandler struct {
	curator *service.Curator
	logger  *slog.Logger
}

// NewImageHandler creates an ImageHandler over the given curator.
func NewImageHandler(curator *service.Curator, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		curator: curator,
		logger:  logger.With("component", "image_handler"),
	}
}

// SubmitImages handles POST /api/images. Processing is asynchronous, so
// accepted submissions return 202.
func (h *ImageHandler) SubmitImages(w http.ResponseWriter, r *http.Request) {
	var req SubmitImagesRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	for _, id := range req.IDs {
		if err := h.curator.Submit(id); err != nil {
			h.logger.Error("image submission failed", "error", err, "image_id", id)
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to submit images")
			return
		}
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitImagesResponse{
		Submitted: len(req.IDs),
	})
}

// MarkImage handles POST /api/images/{id}/mark.
func (h *ImageHandler) MarkImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.curator.Mark(id); err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Image not found")
			return
		}
		h.logger.Error("mark failed", "error", err, "image_id", id)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to mark image")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnmarkImage handles DELETE /api/images/{id}/mark.
func (h *ImageHandler) UnmarkImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.curator.Unmark(id); err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Image not found")
			return
		}
		h.logger.Error("unmark failed", "error", err, "image_id", id)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to unmark image")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateViewport handles POST /api/viewport, replacing the attention window
// with the given set of visible images.
func (h *ImageHandler) UpdateViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	h.curator.SetVisible(req.VisibleIDs)
	w.WriteHeader(http.StatusNoContent)
}

// GetNarrative handles GET /api/images/{id}/narrative.
func (h *ImageHandler) GetNarrative(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	narrative := h.curator.Narrative(id)
	if len(narrative) == 0 {
		shared.RespondWithError(w, r, http.StatusNotFound, "No events recorded for image")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NarrativeResponse{
		ImageID:   id,
		Narrative: narrative,
	})
}
