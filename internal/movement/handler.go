package movement

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/granary-erp/granary-erp/internal/platform/httpx"
	"github.com/granary-erp/granary-erp/internal/shared"
)

// Handler wires movement HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the movement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/pending", h.listPending)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/bulk-approve", h.bulkApprove)
	r.Post("/bulk-reject", h.bulkReject)
}

type createRequest struct {
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Kind           string `json:"kind" validate:"required"`
	VarietyID      int64  `json:"variety_id" validate:"required"`
	Bags           int64  `json:"bags" validate:"required,gt=0"`
	NetWeightKg    string `json:"net_weight_kg"`
	FromLocationID int64  `json:"from_location_id"`
	ToLocationID   int64  `json:"to_location_id"`
	OutturnID      int64  `json:"outturn_id"`
	PackagingID    int64  `json:"packaging_id"`
	Note           string `json:"note"`
	ActorID        int64  `json:"actor_id"`
}

type movementResponse struct {
	ID                int64  `json:"id"`
	Date              string `json:"date"`
	Kind              string `json:"kind"`
	VarietyID         int64  `json:"variety_id"`
	Bags              int64  `json:"bags"`
	NetWeightKg       string `json:"net_weight_kg,omitempty"`
	QuantityQuintals  string `json:"quantity_quintals,omitempty"`
	PaddyBagsDeducted int64  `json:"paddy_bags_deducted,omitempty"`
	FromLocationID    int64  `json:"from_location_id,omitempty"`
	ToLocationID      int64  `json:"to_location_id,omitempty"`
	OutturnID         int64  `json:"outturn_id,omitempty"`
	PackagingID       int64  `json:"packaging_id,omitempty"`
	Status            string `json:"status"`
	Note              string `json:"note,omitempty"`
}

func toResponse(m Movement) movementResponse {
	resp := movementResponse{
		ID:             m.ID,
		Date:           m.Date.Format("2006-01-02"),
		Kind:           string(m.Kind),
		VarietyID:      m.VarietyID,
		Bags:           m.Bags,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		OutturnID:      m.OutturnID,
		PackagingID:    m.PackagingID,
		Status:         string(m.Status),
		Note:           m.Note,
	}
	if !m.NetWeightKg.IsZero() {
		resp.NetWeightKg = m.NetWeightKg.String()
	}
	if !m.QuantityQuintals.IsZero() {
		resp.QuantityQuintals = m.QuantityQuintals.String()
		resp.PaddyBagsDeducted = m.PaddyBagsDeducted
	}
	return resp
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("body", "invalid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("body", err.Error()))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("date", "must be YYYY-MM-DD"))
		return
	}
	netWeight := decimal.Zero
	if req.NetWeightKg != "" {
		netWeight, err = decimal.NewFromString(req.NetWeightKg)
		if err != nil {
			httpx.RespondError(w, h.logger, shared.NewValidationError("net_weight_kg", "invalid decimal"))
			return
		}
	}
	m, err := h.service.Create(r.Context(), CreateInput{
		Date:           date,
		Kind:           Kind(req.Kind),
		VarietyID:      req.VarietyID,
		Bags:           req.Bags,
		NetWeightKg:    netWeight,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		OutturnID:      req.OutturnID,
		PackagingID:    req.PackagingID,
		Note:           req.Note,
		ActorID:        req.ActorID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(m))
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	movements, err := h.service.ListPending(r.Context(), limit)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toResponse(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": out})
}

type decisionRequest struct {
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("id", "invalid movement id"))
		return
	}
	var req decisionRequest
	_ = httpx.DecodeJSON(r, &req)
	if err := h.service.Approve(r.Context(), id, req.ActorID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movement_id": id, "status": string(StatusApproved)})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("id", "invalid movement id"))
		return
	}
	var req decisionRequest
	_ = httpx.DecodeJSON(r, &req)
	if err := h.service.Reject(r.Context(), id, req.ActorID, req.Reason); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movement_id": id, "status": string(StatusRejected)})
}

type bulkRequest struct {
	MovementIDs []int64 `json:"movement_ids" validate:"required,min=1"`
	ActorID     int64   `json:"actor_id"`
	Reason      string  `json:"reason"`
}

func (h *Handler) bulkApprove(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, true)
}

func (h *Handler) bulkReject(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, false)
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, approve bool) {
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("body", "invalid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("movement_ids", "at least one id required"))
		return
	}
	var outcomes []BulkOutcome
	if approve {
		outcomes = h.service.BulkApprove(r.Context(), req.MovementIDs, req.ActorID)
	} else {
		outcomes = h.service.BulkReject(r.Context(), req.MovementIDs, req.ActorID, req.Reason)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}
