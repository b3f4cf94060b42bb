// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrTokenRequired       = errors.New("token required")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidTokenType    = errors.New("invalid token type")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenReuse   = errors.New("refresh token reuse detected")
	ErrAccountDeactivated  = errors.New("account deactivated")
	ErrCredentialsInvalid  = errors.New("invalid credentials")
	ErrCsrfMismatch        = errors.New("csrf token mismatch")

	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("service unavailable")
)

type AppError struct {
	Err        error  `json:"-"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// First errors.Is match wins, so more specific sentinels go first.
var errorMappings = []errorMapping{
	{ErrTokenRequired, http.StatusUnauthorized, "TOKEN_REQUIRED", "authentication token required"},
	{ErrInvalidTokenType, http.StatusForbidden, "INVALID_TOKEN_TYPE", "token is not valid for this resource"},
	{ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token"},
	{ErrRefreshTokenReuse, http.StatusUnauthorized, "REFRESH_TOKEN_REUSE_DETECTED", "refresh token reuse detected, session revoked"},
	{ErrRefreshTokenExpired, http.StatusUnauthorized, "REFRESH_TOKEN_EXPIRED", "refresh token has expired"},
	{ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "invalid refresh token"},
	{ErrAccountDeactivated, http.StatusForbidden, "ACCOUNT_DEACTIVATED", "account is deactivated"},
	{ErrCredentialsInvalid, http.StatusUnauthorized, "CREDENTIALS_INVALID", "invalid email or password"},
	{ErrCsrfMismatch, http.StatusForbidden, "CSRF_MISMATCH", "csrf token missing or invalid"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
	{ErrDuplicateKey, http.StatusConflict, "DUPLICATE", "resource already exists"},
	{ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN", "insufficient permissions"},
	{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down"},
	{ErrUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable"},
}

// FromError converts any error into the structured wire error. Unknown
// errors become INTERNAL_ERROR without exposing their text.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return NewAppError(err, m.message, m.status, m.code)
		}
	}

	return NewAppError(
		err,
		"internal server error",
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
	)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("%s already exists", field),
		http.StatusConflict,
		"DUPLICATE",
	)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func FormatValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return "invalid request"
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "bcryptlen":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %d bytes", field, MaxPasswordBytes))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}

	return strings.Join(msgs, "; ")
}
