package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/iho/cashbook/internal/adapter/http/dto"
	"github.com/iho/cashbook/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrActionNotFound):
		return http.StatusNotFound
	case domain.IsLocked(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrReplayInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownActionType):
		return http.StatusBadRequest
	case domain.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseDateParam parses a yyyy-mm-dd path or query value.
func parseDateParam(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

// parseRangeQuery parses from/to query params, defaulting to a range ending
// today when "to" is absent.
func parseRangeQuery(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		from, err = parseDateParam(v)
		if err != nil {
			return from, to, err
		}
	}

	if v := q.Get("to"); v != "" {
		to, err = parseDateParam(v)
		if err != nil {
			return from, to, err
		}
	} else {
		to = domain.Day(time.Now())
	}

	return from, to, nil
}
