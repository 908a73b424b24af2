package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"lumen/internal/ports"
	"lumen/internal/report"
	"lumen/internal/services/crm"
	"lumen/internal/services/dashboard"
	"lumen/internal/services/reports"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Error codes carried in errorBody.Error.
const (
	CodeInvalidInput      = "invalid_input"
	CodeUnauthorized      = "unauthorized"
	CodeNotFound          = "not_found"
	CodeNoMatch           = "no_match"
	CodeGenerative        = "generative_failure"
	CodeGenerativeTimeout = "generative_timeout"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

// classify maps an error to its status and code. Order matters: a timeout
// is also a generative failure.
func classify(err error) (int, errorBody) {
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, crm.ErrInvalidInput),
		errors.Is(err, reports.ErrInvalidQuery),
		errors.Is(err, report.ErrInvalidSpec):
		return http.StatusBadRequest, errorBody{Error: CodeInvalidInput, Message: err.Error()}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{Error: CodeUnauthorized, Message: "invalid or missing bearer token"}
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: CodeNotFound, Message: "not found"}
	case errors.Is(err, reports.ErrNoResult):
		return http.StatusUnprocessableEntity, errorBody{Error: CodeNoMatch, Message: err.Error()}
	case errors.Is(err, reports.ErrTimeout):
		return http.StatusGatewayTimeout, errorBody{Error: CodeGenerativeTimeout, Message: err.Error(), Retryable: true}
	case errors.Is(err, reports.ErrGenerative):
		return http.StatusBadGateway, errorBody{Error: CodeGenerative, Message: err.Error(), Retryable: true}
	case errors.Is(err, dashboard.ErrUnavailable), errors.Is(err, reports.ErrAsyncDisabled):
		return http.StatusServiceUnavailable, errorBody{Error: CodeUnavailable, Message: err.Error(), Retryable: true}
	}
	return http.StatusInternalServerError, errorBody{Error: CodeInternal, Message: "internal error"}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= 500 {
		slog.Default().Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest{msg: "invalid request body: " + err.Error()}
	}
	return nil
}
