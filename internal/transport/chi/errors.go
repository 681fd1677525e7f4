package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/db"
	"github.com/kailas-cloud/factdex/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeForbidden         ErrorCode = "forbidden"
	CodeIncompatibleQuery ErrorCode = "incompatible_query"
	CodeIndexNotFound     ErrorCode = "index_not_found"
	CodeNoData            ErrorCode = "no_data"
	CodeInvalidSchema     ErrorCode = "invalid_schema"
	CodeBackendError      ErrorCode = "backend_error"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrIncompatibleQuery, http.StatusBadRequest, CodeIncompatibleQuery),
	sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(domain.ErrNoDatasets, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(db.ErrIndexNotFound, http.StatusNotFound, CodeIndexNotFound),
	sentinelHandler(domain.ErrNoData, http.StatusNotFound, CodeNoData),
	sentinelHandler(domain.ErrSchema, http.StatusUnprocessableEntity, CodeInvalidSchema),
	sentinelHandler(db.ErrTransport, http.StatusBadGateway, CodeBackendError),
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees the sentinel text only.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
