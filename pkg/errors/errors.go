package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeInternal      = "INTERNAL_ERROR"
	CodeAPIError      = "API_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeCache         = "CACHE_ERROR"
	CodeService       = "SERVICE_ERROR"
	CodeProvider      = "PROVIDER_ERROR"
	CodeNormalization = "NORMALIZATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeRateLimited   = "RATE_LIMITED"
)

// AppError is the base of every typed error in the service.
type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// appErrorer is implemented by every wrapper that embeds *AppError.
type appErrorer interface {
	appError() *AppError
}

func (e *AppError) appError() *AppError { return e }

// As resolves the *AppError behind err, if any.
func As(err error) (*AppError, bool) {
	var ae appErrorer
	if stderrors.As(err, &ae) {
		return ae.appError(), true
	}
	return nil, false
}

// StatusCode maps err to an HTTP status, 500 when untyped.
func StatusCode(err error) int {
	if ae, ok := As(err); ok && ae.StatusCode != 0 {
		return ae.StatusCode
	}
	return http.StatusInternalServerError
}

// Code maps err to its error code, INTERNAL_ERROR when untyped.
func Code(err error) string {
	if ae, ok := As(err); ok && ae.Code != "" {
		return ae.Code
	}
	return CodeInternal
}

type APIError struct {
	*AppError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

// ValidationError is a caller mistake: the request failed its schema.
type ValidationError struct {
	*AppError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

// ProviderError wraps any failure talking to an LLM provider, including
// responses that could not be decoded or failed the client-side shape check.
type ProviderError struct {
	*AppError
	Provider  string
	Operation string
}

func NewProviderError(message, provider, operation string, cause error) *ProviderError {
	return &ProviderError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeProvider,
			StatusCode: http.StatusBadGateway,
			Context: map[string]any{
				"provider":  provider,
				"operation": operation,
			},
			Cause: cause,
		},
		Provider:  provider,
		Operation: operation,
	}
}

// NormalizationError means sanitized output still failed the response
// schema. It is a defect, never a caller problem.
type NormalizationError struct {
	*AppError
	Stage string
}

func NewNormalizationError(message, stage string, cause error) *NormalizationError {
	return &NormalizationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeNormalization,
			StatusCode: http.StatusInternalServerError,
			Context:    map[string]any{"stage": stage},
			Cause:      cause,
		},
		Stage: stage,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*AppError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeService,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

type AuthError struct {
	*AppError
}

func NewUnauthorizedError(message string) *AuthError {
	return &AuthError{AppError: NewAppError(message, CodeUnauthorized, http.StatusUnauthorized, nil)}
}

func NewForbiddenError(message string) *AuthError {
	return &AuthError{AppError: NewAppError(message, CodeForbidden, http.StatusForbidden, nil)}
}

type RateLimitError struct {
	*AppError
	Limit int
}

func NewRateLimitError(limit int) *RateLimitError {
	return &RateLimitError{
		AppError: NewAppError("rate_limited", CodeRateLimited, http.StatusTooManyRequests, map[string]any{"limit": limit}),
		Limit:    limit,
	}
}
