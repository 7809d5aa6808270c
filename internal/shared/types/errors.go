package types

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable failure code
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeInvalidMetadata    Code = "invalid_metadata"
	CodeIOFailure          Code = "io_failure"
	CodeAuthFailure        Code = "auth_failure"
	CodeAlreadyInProgress  Code = "already_in_progress"
	CodeUninstallFailed    Code = "uninstall_failed"
	CodeMetadataNotFound   Code = "metadata_not_found"
	CodeMetadataUnreadable Code = "metadata_unreadable"
	CodeNotLoggedIn        Code = "not_logged_in"
	CodeNotSupported       Code = "not_supported"
	CodeInternal           Code = "internal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidMetadata   = errors.New("invalid metadata")
	ErrIOFailure         = errors.New("i/o failure")
	ErrAuthFailure       = errors.New("authentication failed")
	ErrAlreadyInProgress = errors.New("install already in progress")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrNotSupported      = errors.New("not supported")

	ErrMetadataNotFound   = fmt.Errorf("metadata not found: %w", ErrNotFound)
	ErrMetadataUnreadable = fmt.Errorf("metadata unreadable: %w", ErrInvalidMetadata)
	ErrUninstallFailed    = fmt.Errorf("uninstall failed: %w", ErrIOFailure)
)

// Error is a caller-facing failure carrying a stable code and short cause
type Error struct {
	Code  Code
	Cause string
	Err   error
}

// NewError builds an Error wrapping err
func NewError(code Code, cause string, err error) *Error {
	return &Error{Code: code, Cause: cause, Err: err}
}

// Error implements error
func (e *Error) Error() string {
	if e.Err != nil && e.Cause != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Cause)
	}
	if e.Cause != "" {
		return e.Cause
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

// Unwrap exposes the wrapped sentinel
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports an unresolvable app id
func NotFound(appID string) *Error {
	return NewError(CodeNotFound, fmt.Sprintf("app %q not found", appID), ErrNotFound)
}

// IOFailure wraps a filesystem or network error
func IOFailure(op string, err error) *Error {
	return NewError(CodeIOFailure, fmt.Sprintf("%s: %v", op, err), errors.Join(ErrIOFailure, err))
}

// CodeOf resolves the stable code for err. More specific codes win.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}

	switch {
	case errors.Is(err, ErrMetadataNotFound):
		return CodeMetadataNotFound
	case errors.Is(err, ErrMetadataUnreadable):
		return CodeMetadataUnreadable
	case errors.Is(err, ErrUninstallFailed):
		return CodeUninstallFailed
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidMetadata):
		return CodeInvalidMetadata
	case errors.Is(err, ErrAlreadyInProgress):
		return CodeAlreadyInProgress
	case errors.Is(err, ErrAuthFailure):
		return CodeAuthFailure
	case errors.Is(err, ErrNotLoggedIn):
		return CodeNotLoggedIn
	case errors.Is(err, ErrNotSupported):
		return CodeNotSupported
	case errors.Is(err, ErrIOFailure):
		return CodeIOFailure
	default:
		return CodeInternal
	}
}

// CauseOf returns the short human-readable cause of err
func CauseOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Cause != "" {
		return e.Cause
	}
	return err.Error()
}
