package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ledger/pkg/bitrix"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = NewAppError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrUnauthorized   = NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized)
	ErrForbidden      = NewAppError("FORBIDDEN", "access denied", http.StatusForbidden)
	ErrBadRequest     = NewAppError("BAD_REQUEST", "invalid request", http.StatusBadRequest)
	ErrInternalServer = NewAppError("INTERNAL_SERVER_ERROR", "internal server error", http.StatusInternalServerError)
	ErrConflict       = NewAppError("CONFLICT", "resource already exists", http.StatusConflict)
	ErrCrm            = NewAppError("CRM_ERROR", "bitrix24 request failed", http.StatusBadGateway)
	ErrCrmDisabled    = NewAppError("CRM_DISABLED", "bitrix24 integration is not configured", http.StatusServiceUnavailable)
)

type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := e.clone()
	clone.Details = make(map[string]interface{}, len(details))
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}

func (e *AppError) WithError(err error) *AppError {
	clone := e.clone()
	clone.Err = err
	return clone
}

// WithMessage keeps the code and status but replaces the message.
func (e *AppError) WithMessage(msg string) *AppError {
	clone := e.clone()
	clone.Message = msg
	return clone
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

func WrapError(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
		Details:    make(map[string]interface{}),
	}
}

func (e *AppError) clone() *AppError {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	return &clone
}

// FromError maps any error returned by the store, the CRM client or the
// enricher onto an AppError.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var crmErr *bitrix.CrmError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound.WithError(err)
	case errors.Is(err, bitrix.ErrNotConfigured):
		return ErrCrmDisabled.WithError(err)
	case errors.As(err, &crmErr):
		return ErrCrm.WithError(err).WithMessage(crmErr.Error())
	case IsUniqueViolation(err):
		return ErrConflict.WithError(err)
	case errors.Is(err, context.Canceled):
		return WrapError(err, "REQUEST_CANCELED", "request canceled by client", http.StatusRequestTimeout)
	case errors.Is(err, context.DeadlineExceeded):
		return WrapError(err, "TIMEOUT", "request timed out", http.StatusGatewayTimeout)
	}
	return WrapError(err, "UNKNOWN_ERROR", "unexpected error", http.StatusInternalServerError)
}

// IsUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint")
}

func NewValidationError(field, message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details: map[string]interface{}{
			"fields": []map[string]string{{"field": field, "message": message}},
		},
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Details: map[string]interface{}{
			"resource": resource,
		},
	}
}

// ParseValidationErrors turns binding failures into a VALIDATION_ERROR with
// one entry per field. Anything else (malformed JSON) is a BAD_REQUEST.
func ParseValidationErrors(err error) *AppError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ErrBadRequest.WithError(err).WithMessage(err.Error())
	}

	fieldErrors := make([]map[string]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fieldErrors = append(fieldErrors, map[string]string{
			"field":   toSnake(fieldErr.Field()),
			"message": validationMessage(fieldErr),
		})
	}

	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "request validation failed",
		StatusCode: http.StatusBadRequest,
		Details: map[string]interface{}{
			"fields": fieldErrors,
		},
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "nefield":
		return "must differ from " + toSnake(fe.Param())
	default:
		return "failed on " + fe.Tag()
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
