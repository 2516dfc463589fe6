package ricestock

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

// Handler serves the finished-goods ledger and movement endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the rice stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers rice stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/rice-stock-management", func(r chi.Router) {
		r.Get("/ledger", h.ledger)
		r.Post("/movements", h.createMovement)
	})
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	from, err := time.Parse("2006-01-02", qs.Get("date_from"))
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("date_from", "must be YYYY-MM-DD"))
		return
	}
	to, err := time.Parse("2006-01-02", qs.Get("date_to"))
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("date_to", "must be YYYY-MM-DD"))
		return
	}
	page, _ := strconv.Atoi(qs.Get("page"))
	limit, _ := strconv.Atoi(qs.Get("limit"))

	result, err := h.service.Ledger(r.Context(), LedgerQuery{
		LocationCode: qs.Get("location_code"),
		ProductType:  qs.Get("product_type"),
		From:         from,
		To:           to,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type createMovementRequest struct {
	Date              string `json:"date" validate:"required,datetime=2006-01-02"`
	Kind              string `json:"movement_type" validate:"required,oneof=PRODUCTION PURCHASE SALE PALTI"`
	LocationCode      string `json:"location_code" validate:"required"`
	ProductType       string `json:"product_type" validate:"required"`
	VarietyID         int64  `json:"variety_id" validate:"required"`
	PackagingID       int64  `json:"packaging_id" validate:"required"`
	Bags              int64  `json:"bags" validate:"required,gt=0"`
	TargetPackagingID int64  `json:"target_packaging_id,omitempty"`
	Note              string `json:"note"`
	ActorID           int64  `json:"actor_id"`
}

type createMovementResponse struct {
	ID               int64           `json:"id"`
	Date             string          `json:"date"`
	Kind             Kind            `json:"movement_type"`
	LocationCode     string          `json:"location_code"`
	ProductType      string          `json:"product_type"`
	VarietyID        int64           `json:"variety_id"`
	PackagingID      int64           `json:"packaging_id"`
	Bags             int64           `json:"bags"`
	QuantityQuintals string          `json:"quantity_quintals"`
	Palti            *PaltiBreakdown `json:"palti,omitempty"`
}

func (h *Handler) createMovement(w http.ResponseWriter, r *http.Request) {
	var req createMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("body", "invalid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("body", "missing or malformed fields"))
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)

	result, err := h.service.Create(r.Context(), CreateInput{
		Date:              date,
		Kind:              Kind(req.Kind),
		LocationCode:      req.LocationCode,
		ProductType:       req.ProductType,
		VarietyID:         req.VarietyID,
		PackagingID:       req.PackagingID,
		Bags:              req.Bags,
		TargetPackagingID: req.TargetPackagingID,
		Note:              req.Note,
		ActorID:           req.ActorID,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	m := result.Movement
	httpx.JSON(w, http.StatusCreated, createMovementResponse{
		ID:               m.ID,
		Date:             m.Date.Format("2006-01-02"),
		Kind:             m.Kind,
		LocationCode:     m.LocationCode,
		ProductType:      m.ProductType,
		VarietyID:        m.VarietyID,
		PackagingID:      m.PackagingID,
		Bags:             m.Bags,
		QuantityQuintals: m.QuantityQuintals.StringFixed(2),
		Palti:            result.Palti,
	})
}
