package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/granary-erp/granary-erp/internal/platform/httpx"
)

// Handler exposes master-data listings consumed by entry screens.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers master-data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/locations", h.listLocations)
	r.Get("/varieties", h.listVarieties)
	r.Get("/packagings", h.listPackagings)
	r.Get("/outturns", h.listOutturns)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.repo.ListLocations(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"locations": locations})
}

func (h *Handler) listVarieties(w http.ResponseWriter, r *http.Request) {
	varieties, err := h.repo.ListVarieties(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"varieties": varieties})
}

func (h *Handler) listPackagings(w http.ResponseWriter, r *http.Request) {
	packagings, err := h.repo.ListPackagings(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"packagings": packagings})
}

func (h *Handler) listOutturns(w http.ResponseWriter, r *http.Request) {
	includeCleared, _ := strconv.ParseBool(r.URL.Query().Get("include_cleared"))
	outturns, err := h.repo.ListOutturns(r.Context(), includeCleared)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"outturns": outturns})
}
