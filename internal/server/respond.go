package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/auth"
	"github.com/sells-group/htm-dashboard/internal/dataset"
	"github.com/sells-group/htm-dashboard/internal/fetcher"
	"github.com/sells-group/htm-dashboard/internal/kpi"
	"github.com/sells-group/htm-dashboard/internal/profile"
	"github.com/sells-group/htm-dashboard/internal/store"
)

var errStoreDisabled = errors.New("snapshot store is not configured")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		missing *dataset.MissingColumnError
		verrs   validator.ValidationErrors
	)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, profile.ErrCountryNotFound), errors.Is(err, errNotFound):
		return http.StatusNotFound
	case kpi.IsEmptyDataset(err), errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case kpi.IsInvalidArgument(err), errors.As(err, &verrs), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errStoreDisabled), errors.Is(err, fetcher.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": message}. Internal errors are logged
// and their detail withheld.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := rootMessage(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// rootMessage returns the user-facing message: the sentinel text for the
// auth errors, the full chain otherwise.
func rootMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrAccessDenied):
		return auth.ErrAccessDenied.Error()
	}
	return err.Error()
}

var (
	errNotFound   = errors.New("not found")
	errBadRequest = errors.New("bad request")
)

type requestError struct {
	kind error
	msg  string
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.kind }

func badRequest(format string, args ...any) error {
	return &requestError{kind: errBadRequest, msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &requestError{kind: errNotFound, msg: fmt.Sprintf(format, args...)}
}
