package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/granary-erp/granary-erp/internal/shared"
)

// RespondError maps domain errors to RFC7807 responses. Validation and
// capacity errors return enough detail for the caller to fix the request;
// integrity errors are logged at Error level and returned as a distinct
// class so UIs can tell "your request was wrong" from "the ledger is
// inconsistent".
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ve *shared.ValidationError
	var ce *shared.CapacityError
	var se *shared.StateError
	var ie *shared.IntegrityError
	switch {
	case errors.As(err, &ve):
		Problem(w, http.StatusBadRequest, "Validation Failed", ve.Error())
	case errors.As(err, &ce):
		JSON(w, http.StatusConflict, ProblemDetail{
			Title:     "Insufficient Stock",
			Status:    http.StatusConflict,
			Detail:    ce.Error(),
			Available: &ce.Available,
			Requested: &ce.Requested,
		})
	case errors.As(err, &se):
		Problem(w, http.StatusConflict, "Invalid State", se.Error())
	case errors.As(err, &ie):
		if logger != nil {
			logger.Error("ledger integrity violation", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Ledger Integrity Violation", ie.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrLockContended):
		Problem(w, http.StatusConflict, "Write Contention", "another writer holds the aggregate, retry")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		if logger != nil {
			logger.Error("unhandled error", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
