package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidReaderNonce ErrorCode = "INVALID_READER_NONCE"
	ErrCodeInvalidHours       ErrorCode = "INVALID_HOURS"
	ErrCodeInvalidDirection   ErrorCode = "INVALID_DIRECTION"

	ErrCodeGateNotFound       ErrorCode = "GATE_NOT_FOUND"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodePassNotFound       ErrorCode = "PASS_NOT_FOUND"
	ErrCodeDelegationNotFound ErrorCode = "DELEGATION_NOT_FOUND"

	ErrCodeDeviceRevoked     ErrorCode = "DEVICE_REVOKED"
	ErrCodeGateNotAuthorized ErrorCode = "GATE_NOT_AUTHORIZED"
	ErrCodePassExpired       ErrorCode = "PASS_EXPIRED"
	ErrCodePassExhausted     ErrorCode = "PASS_EXHAUSTED"
	ErrCodeNotOwner          ErrorCode = "NOT_OWNER"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

// Error prefers the first field message of a validation error, then the
// message with its cause.
func (e *AppError) Error() string {
	if fields := e.fieldErrors(); len(fields) > 0 {
		return fields[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage joins every field message, for logs.
func (e *AppError) GetDetailedMessage() string {
	fields := e.fieldErrors()
	if len(fields) == 0 {
		return e.Message
	}
	messages := make([]string, 0, len(fields))
	for _, f := range fields {
		messages = append(messages, f.Message)
	}
	return strings.Join(messages, "; ")
}

func (e *AppError) fieldErrors() []ValidationError {
	if v, ok := e.Details.(ValidationErrors); ok {
		return v.Errors
	}
	return nil
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is compares Type and Code, so a sentinel still matches after WithCause or
// WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code && e.Type == t.Type
}

// The With* helpers copy, so package-level sentinels are never mutated.

func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeInternal:     http.StatusInternalServerError,
}

func newAppError(t ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: statusByType[t]}
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message)
}

// NewValidationFieldError reports a single bad field under the generic
// VALIDATION_FAILED code; code is carried on the field entry.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, ErrCodeValidationFailed, "Validation failed").
		WithDetails(ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, code, message)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, code, message)
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, ErrCodeInternal, message).WithCause(cause)
}

var (
	ErrGateNotFound       = NewNotFoundError("Unknown gateId", ErrCodeGateNotFound)
	ErrUserNotFound       = NewNotFoundError("Unknown user", ErrCodeUserNotFound)
	ErrPassNotFound       = NewNotFoundError("Invalid visitor pass", ErrCodePassNotFound)
	ErrDelegationNotFound = NewNotFoundError("Delegation not found", ErrCodeDelegationNotFound)

	ErrDeviceRevoked     = NewForbiddenError("Device revoked", ErrCodeDeviceRevoked)
	ErrGateNotAuthorized = NewForbiddenError("Not authorized for gate", ErrCodeGateNotAuthorized)
	ErrPassExpired       = NewForbiddenError("Visitor pass expired", ErrCodePassExpired)
	ErrPassExhausted     = NewForbiddenError("Visitor pass usage exceeded", ErrCodePassExhausted)
	ErrNotOwner          = NewForbiddenError("Only the creator can change this record", ErrCodeNotOwner)

	ErrInvalidReaderNonce = NewValidationFieldError("readerNonce", "readerNonce must be 8-64 characters", ErrCodeInvalidReaderNonce)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid credentials", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Response is the JSON error envelope: {"error": {...}}.
type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

// appErrorJSON leaves StatusCode and Cause out of the wire form.
type appErrorJSON struct {
	Type    ErrorType   `json:"type"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(appErrorJSON{Type: e.Type, Code: e.Code, Message: e.Message, Details: e.Details})
}
