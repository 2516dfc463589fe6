package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/granary-erp/granary-erp/internal/platform/httpx"
	"github.com/granary-erp/granary-erp/internal/shared"
)

// Handler serves paddy stock ledger queries.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler constructs the ledger handler. now is injected so tests can pin
// the clock; the engine itself never reads it.
func NewHandler(logger *slog.Logger, service *Service, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{logger: logger, service: service, now: now}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/paddy-stock/{locationID}", h.paddyStock)
}

type dailyBalanceDTO struct {
	Date        string `json:"date"`
	VarietyID   int64  `json:"variety_id"`
	OutturnCode string `json:"outturn_code,omitempty"`
	OpeningBags int64  `json:"opening_bags"`
	InwardBags  int64  `json:"inward_bags"`
	OutwardBags int64  `json:"outward_bags"`
	ClosingBags int64  `json:"closing_bags"`
}

func (h *Handler) paddyStock(w http.ResponseWriter, r *http.Request) {
	locationID, err := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("location_id", "invalid location id"))
		return
	}
	q := r.URL.Query()
	var varietyID int64
	if v := q.Get("variety_id"); v != "" {
		varietyID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.RespondError(w, h.logger, shared.NewValidationError("variety_id", "invalid variety id"))
			return
		}
	}
	var from, to time.Time
	if v := q.Get("date_from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			httpx.RespondError(w, h.logger, shared.NewValidationError("date_from", "must be YYYY-MM-DD"))
			return
		}
	}
	if v := q.Get("date_to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			httpx.RespondError(w, h.logger, shared.NewValidationError("date_to", "must be YYYY-MM-DD"))
			return
		}
	}
	ctx := r.Context()
	from, to, err = h.service.DefaultWindow(ctx, locationID, from, to, h.now())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	series, err := h.service.DailySeries(ctx, Query{LocationID: locationID, VarietyID: varietyID, From: from, To: to})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	balances := make([]dailyBalanceDTO, 0, len(series.Rows))
	for _, row := range series.Rows {
		balances = append(balances, dailyBalanceDTO{
			Date:        row.DateString(),
			VarietyID:   row.VarietyID,
			OutturnCode: row.OutturnCode,
			OpeningBags: row.OpeningBags,
			InwardBags:  row.InwardBags,
			OutwardBags: row.OutwardBags,
			ClosingBags: row.ClosingBags,
		})
	}
	issues := make([]string, 0, len(series.Integrity))
	for _, issue := range series.Integrity {
		issues = append(issues, issue.Error())
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"location_id":      locationID,
		"date_from":        from.Format("2006-01-02"),
		"date_to":          to.Format("2006-01-02"),
		"balances":         balances,
		"integrity_issues": issues,
	})
}
