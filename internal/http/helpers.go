package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"vfms/internal/core"
	applog "vfms/internal/log"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string      `json:"error"`
	Requested *core.Money `json:"requested,omitempty"`
	Pending   *core.Money `json:"pending,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a single JSON object from the request body. Unknown
// fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := applog.FromContext(r.Context())

	var exceeds *core.AmountExceedsPendingError
	switch {
	case errors.As(err, &exceeds):
		logger.WarnContext(r.Context(), "Payment exceeds pending dues",
			applog.FieldAmountCents, exceeds.Requested.Cents,
			"pending_cents", exceeds.Pending.Cents)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     err.Error(),
			Requested: &exceeds.Requested,
			Pending:   &exceeds.Pending,
		})
	case errors.Is(err, core.ErrHouseholdNotFound),
		errors.Is(err, core.ErrFundNotFound),
		errors.Is(err, core.ErrTemplateNotFound),
		errors.Is(err, core.ErrExpenseNotFound):
		logger.DebugContext(r.Context(), "Not found", "error", err)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidMethod),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidMonthIndex),
		errors.Is(err, core.ErrInvalidYear),
		errors.Is(err, core.ErrNotTemplate),
		errors.Is(err, core.ErrEmptyID),
		errors.Is(err, core.ErrNegativeAmount):
		logger.DebugContext(r.Context(), "Validation error", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrPaymentImmutable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
