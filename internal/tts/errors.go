package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgnsrekt/lingocast/internal/proc"
)

// Common TTS errors.
var (
	// ErrInvalidEngine indicates an unknown engine was configured.
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrEmptyText indicates there was nothing to speak.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrClosed indicates the engine was used after Close.
	ErrClosed = errors.New("TTS engine closed")
)

// ErrorCode identifies specific error types.
type ErrorCode string

const (
	ErrorCodeEngineFailure       ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable   ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrorCodeTextTooLong         ErrorCode = "TEXT_TOO_LONG"
	ErrorCodeUnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	ErrorCodeAudioFormat         ErrorCode = "AUDIO_FORMAT"
	ErrorCodeTimeout             ErrorCode = "TIMEOUT"
	ErrorCodeCanceled            ErrorCode = "CANCELED"
)

// Error is a synthesis failure with a machine readable code.
type Error struct {
	Code    ErrorCode
	Message string
	Lang    string
	Cause   error
}

// NewError creates a coded error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithLang records the language being synthesized.
func (e *Error) WithLang(lang string) *Error {
	e.Lang = lang
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Lang != "" {
		msg += fmt.Sprintf(" [%s]", e.Lang)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the whole job should stop rather than skip the
// current row.
func (e *Error) IsFatal() bool {
	switch e.Code {
	case ErrorCodeEngineUnavailable, ErrorCodeCanceled:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether the same call may succeed later.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeTimeout, ErrorCodeEngineFailure:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err is a coded fatal error or a context
// cancellation.
func IsFatal(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var te *Error
	return errors.As(err, &te) && te.IsFatal()
}

// closedError reports use after Close. It is fatal so a job stops instead of
// skipping every remaining row.
func closedError(lang string) *Error {
	return NewError(ErrorCodeEngineUnavailable, "engine is shut down", ErrClosed).WithLang(lang)
}

// classify maps low level failures onto coded errors.
func classify(err error, lang string) *Error {
	var te *Error
	switch {
	case errors.As(err, &te):
		return te
	case errors.Is(err, context.Canceled):
		return NewError(ErrorCodeCanceled, "synthesis canceled", err).WithLang(lang)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, proc.ErrTimeout):
		return NewError(ErrorCodeTimeout, "synthesis timed out", err).WithLang(lang)
	default:
		return NewError(ErrorCodeEngineFailure, "synthesis failed", err).WithLang(lang)
	}
}
