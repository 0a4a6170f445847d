package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/dto"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/validation"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, dto.ErrInvalidCommand),
		errors.Is(err, flow.ErrInvalidFlowID),
		errors.Is(err, flow.ErrInvalidLimit),
		errors.Is(err, flow.ErrInvalidOffset),
		errors.Is(err, flow.ErrNilSnapshot),
		errors.Is(err, flow.ErrDuplicateNode),
		errors.Is(err, flow.ErrDuplicateSourceEdge),
		errors.Is(err, flow.ErrDuplicateEdge),
		errors.Is(err, flow.ErrSourceNodeNotFound),
		errors.Is(err, flow.ErrTargetNodeNotFound),
		errors.Is(err, flow.ErrNilNode),
		errors.Is(err, flow.ErrNilEdge),
		errors.Is(err, flow.ErrInvalidNodeID),
		errors.Is(err, flow.ErrInvalidSource),
		errors.Is(err, flow.ErrInvalidTarget),
		errors.Is(err, flow.ErrInvalidNodeType),
		errors.Is(err, flow.ErrUnknownNodeType),
		errors.Is(err, flow.ErrMissingNodeData),
		errors.Is(err, flow.ErrInvalidNodeData):
		return http.StatusBadRequest
	case errors.Is(err, flow.ErrFlowNotFound):
		return http.StatusNotFound
	case errors.Is(err, dto.ErrNoRepository):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status matching err. Field-level validation
// failures are returned in the validation error shape.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		validation.WriteErrors(w, http.StatusBadRequest, verrs)
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: err.Error()})
}
