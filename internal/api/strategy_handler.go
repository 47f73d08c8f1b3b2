package api

import (
	"log/slog"
	"net/http"

	"github.com/fokal/curator/internal/api/shared"
	"github.com/fokal/curator/internal/service"
	"github.com/fokal/curator/internal/strategy"
)

// StrategyResponse describes one prioritization strategy.
type StrategyResponse struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// SetStrategyRequest is the body for PUT /api/strategy.
type SetStrategyRequest struct {
	Name string `json:"name" validate:"required"`
}

// StrategyHandler handles strategy inspection and switching.
type StrategyHandler struct {
	curator *service.Curator
	logger  *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler over the given curator.
func NewStrategyHandler(curator *service.Curator, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{
		curator: curator,
		logger:  logger.With("component", "strategy_handler"),
	}
}

// GetStrategies handles GET /api/strategy, listing every available strategy
// with the active one flagged.
func (h *StrategyHandler) GetStrategies(w http.ResponseWriter, r *http.Request) {
	active := h.curator.ActiveStrategy()

	var out []StrategyResponse
	for _, st := range h.curator.Strategies() {
		out = append(out, strategyToResponse(st, st.Type() == active.Type()))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// SetStrategy handles PUT /api/strategy. An unknown name returns 400 and
// leaves the active strategy untouched.
func (h *StrategyHandler) SetStrategy(w http.ResponseWriter, r *http.Request) {
	var req SetStrategyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	st, switched := h.curator.SetStrategy(req.Name)
	if !switched {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown strategy: "+req.Name)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, strategyToResponse(st, true))
}

func strategyToResponse(st strategy.Strategy, active bool) StrategyResponse {
	return StrategyResponse{
		Name:        st.Name(),
		Type:        string(st.Type()),
		Description: st.Description(),
		Active:      active,
	}
}
