package production

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/granary-erp/granary-erp/internal/platform/httpx"
	"github.com/granary-erp/granary-erp/internal/shared"
)

// Handler serves outturn availability and clearing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler constructs the production handler.
func NewHandler(logger *slog.Logger, service *Service, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{logger: logger, service: service, validate: validator.New(), now: now}
}

// MountRoutes registers production routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rice-productions/outturn/{outturnID}/available-paddy-bags", h.availablePaddyBags)
	r.Post("/outturns/{id}/clear", h.clearOutturn)
}

func (h *Handler) availablePaddyBags(w http.ResponseWriter, r *http.Request) {
	outturnID, err := strconv.ParseInt(chi.URLParam(r, "outturnID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("outturn_id", "invalid outturn id"))
		return
	}
	asOf := h.now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, err = time.Parse("2006-01-02", v)
		if err != nil {
			httpx.RespondError(w, h.logger, shared.NewValidationError("as_of", "must be YYYY-MM-DD"))
			return
		}
	}
	availability, err := h.service.Availability(r.Context(), outturnID, asOf)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	resp := map[string]any{
		"availablePaddyBags": availability.Available,
		"totalPaddyBags":     availability.ShiftedBags,
		"usedPaddyBags":      availability.UsedBags,
		"isCleared":          availability.IsCleared,
	}
	if availability.ClearedAt != nil {
		resp["clearedAt"] = availability.ClearedAt.Format("2006-01-02")
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type clearRequest struct {
	ClearDate string `json:"clear_date" validate:"required,datetime=2006-01-02"`
	ActorID   int64  `json:"actor_id"`
}

func (h *Handler) clearOutturn(w http.ResponseWriter, r *http.Request) {
	outturnID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("id", "invalid outturn id"))
		return
	}
	var req clearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("body", "invalid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("clear_date", "required, format YYYY-MM-DD"))
		return
	}
	clearDate, _ := time.Parse("2006-01-02", req.ClearDate)
	result, err := h.service.Clear(r.Context(), outturnID, clearDate, req.ActorID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
