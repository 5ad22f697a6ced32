// Package domainerrors carries typed error codes across service boundaries so
// transports can map outcomes without string matching.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInvalidState       Code = "invalid_state"

	// Verification outcomes. Each one asks the kiosk for a different reaction,
	// so they must never collapse into one another.
	CodeDecode            Code = "decode_error"
	CodeBiometricMismatch Code = "biometric_mismatch"
	CodeAlreadyVoted      Code = "already_voted"
	CodeNotEnrolled       Code = "not_enrolled"
	CodeStorage           Code = "storage_error"
	CodeOracleUnavailable Code = "oracle_unavailable"
)

// Error is a coded domain error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// As returns the outermost coded error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost coded error carries code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code && err != nil
}

// Retryable reports whether the kiosk may retry the current stage.
func Retryable(code Code) bool {
	switch code {
	case CodeDecode, CodeBiometricMismatch, CodeStorage, CodeOracleUnavailable:
		return true
	default:
		return false
	}
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState, CodeAlreadyVoted, CodeNotEnrolled:
		return http.StatusConflict
	case CodeDecode, CodeBiometricMismatch:
		return http.StatusUnprocessableEntity
	case CodeStorage, CodeOracleUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
