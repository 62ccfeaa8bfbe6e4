package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// respondError maps typed errors to their status. Untyped errors and
// normalization defects are logged and answered with a generic message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.StatusCode(err)
	body := errorResponse{Error: err.Error(), Code: errors.Code(err)}

	if ae, ok := errors.As(err); ok {
		body.Error = ae.Message
	}

	var validation *errors.ValidationError
	if stderrors.As(err, &validation) {
		body.Field = validation.Field
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", body.Code),
			zap.Error(err),
		)
		if _, typed := errors.As(err); !typed {
			body.Error = "internal_error"
		}
	}

	s.respondJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into dest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.RequestLimits.BodyMaxBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return errors.NewValidationError("invalid JSON body", "body", nil)
	}
	return nil
}

func unavailable(feature string) *errors.AppError {
	return errors.NewAppError(feature+" is not configured", errors.CodeService, http.StatusServiceUnavailable, nil)
}
