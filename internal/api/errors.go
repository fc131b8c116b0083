package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/MJE43/pf-blackjack/internal/games"
	"github.com/MJE43/pf-blackjack/internal/store"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	ctx := eb.context
	if len(ctx) == 0 {
		ctx = nil
	}
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   ctx,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// classify maps the domain error taxonomy onto an HTTP status and error type.
// Unknown sessions and sessions owned by someone else are indistinguishable
// to the caller.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, games.ErrSessionNotFound),
		errors.Is(err, games.ErrNotOwner),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrTypeGameNotFound
	case errors.Is(err, games.ErrValidation):
		return http.StatusBadRequest, ErrTypeValidation
	case errors.Is(err, games.ErrInsufficientFunds):
		return http.StatusPaymentRequired, ErrTypeInsufficientFunds
	case errors.Is(err, games.ErrIllegalAction):
		return http.StatusConflict, ErrTypeIllegalAction
	case errors.Is(err, games.ErrIntegrity):
		return http.StatusUnprocessableEntity, ErrTypeIntegrity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrTypeTimeout
	default:
		return http.StatusInternalServerError, ErrTypeInternal
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger zerolog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger zerolog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError classifies err and writes the matching response. Internal
// errors are reported without their message.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr EngineError
	var status int
	if errors.As(err, &engineErr) {
		status = statusFor(engineErr.Type)
	} else {
		var errType string
		status, errType = classify(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
		engineErr = NewError(errType, message).
			WithRequestID(middleware.GetReqID(r.Context())).
			Build()
	}

	eh.logError(r, engineErr, status, err)
	eh.writeErrorResponse(w, status, engineErr)
}

// HandleValidationError handles validation-specific errors
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	engineErr := NewError(ErrTypeValidation, fmt.Sprintf("validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		Build()

	eh.logError(r, engineErr, http.StatusBadRequest, nil)
	eh.writeErrorResponse(w, http.StatusBadRequest, engineErr)
}

func statusFor(errType string) int {
	switch errType {
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrTypeGameNotFound:
		return http.StatusNotFound
	case ErrTypeInsufficientFunds:
		return http.StatusPaymentRequired
	case ErrTypeIllegalAction:
		return http.StatusConflict
	case ErrTypeIntegrity:
		return http.StatusUnprocessableEntity
	case ErrTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// logError logs the error with a level matching its category. Seeds never
// reach the log.
func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int, cause error) {
	category := GetErrorCategory(engineErr.Type)

	ev := eh.logger.Warn()
	if status >= 500 {
		ev = eh.logger.Error()
	} else if category == CategoryIntegrity {
		ev = eh.logger.Error()
	}
	if cause != nil {
		ev = ev.Err(cause)
	}
	ev.Str("type", engineErr.Type).
		Str("category", string(category)).
		Int("status", status).
		Str("request_id", engineErr.RequestID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote_ip", r.RemoteAddr).
		Msg("error_occurred")
}

// writeErrorResponse writes the error response as JSON
func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(versionHeader, EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		eh.logger.Error().Err(err).Msg("error_response_encode_failed")
	}
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				requestID := middleware.GetReqID(r.Context())

				eh.logger.Error().
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", rvr).
					Msg("panic_recovered")

				engineErr := NewError(ErrTypeInternal, "internal server error").
					WithRequestID(requestID).
					Build()
				eh.writeErrorResponse(w, http.StatusInternalServerError, engineErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
