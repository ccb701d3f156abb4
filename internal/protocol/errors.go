package protocol

import (
	"errors"
	"fmt"
)

// Error is a defect in the protocol conversation itself: a response that
// cannot be decoded, a message failing its schema, or an implementation
// that is not usable. It aborts the current exchange.
//
// Case-level problems (an implementation erroring or skipping a case) are
// never reported as Error; they are outcome values.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Command is the name of the command being exchanged, if known.
	Command string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying failure, if any.
	Err error
}

// ErrorCode categorizes protocol errors.
type ErrorCode string

const (
	// ErrCodeDecodeFailed indicates response bytes were not valid JSON.
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"

	// ErrCodeSchemaInvalid indicates a request or response failed its schema.
	ErrCodeSchemaInvalid ErrorCode = "SCHEMA_INVALID"

	// ErrCodeVersionMismatch indicates the implementation speaks another protocol version.
	ErrCodeVersionMismatch ErrorCode = "VERSION_MISMATCH"

	// ErrCodeNotReady indicates the implementation started but is not ready.
	ErrCodeNotReady ErrorCode = "NOT_READY"

	// ErrCodeMalformedResponse indicates a schema-valid response that still
	// cannot be turned into a result.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Command != "" {
		msg = fmt.Sprintf("%s (cmd=%s)", msg, e.Command)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsDecodeError returns true if the response was not valid JSON.
func IsDecodeError(err error) bool { return hasCode(err, ErrCodeDecodeFailed) }

// IsSchemaError returns true if a message failed schema validation.
func IsSchemaError(err error) bool { return hasCode(err, ErrCodeSchemaInvalid) }

// IsVersionMismatch returns true if the implementation reported another protocol version.
func IsVersionMismatch(err error) bool { return hasCode(err, ErrCodeVersionMismatch) }

// IsNotReady returns true if the implementation reported it was not ready.
func IsNotReady(err error) bool { return hasCode(err, ErrCodeNotReady) }

// IsMalformedResponse returns true if a response could not be interpreted.
func IsMalformedResponse(err error) bool { return hasCode(err, ErrCodeMalformedResponse) }

// NewVersionMismatchError creates an Error for a protocol version disagreement.
func NewVersionMismatchError(expected, got int) *Error {
	return &Error{
		Code:    ErrCodeVersionMismatch,
		Message: fmt.Sprintf("expected protocol version %d, got %d", expected, got),
		Command: "start",
		Details: map[string]string{
			"expected": fmt.Sprintf("%d", expected),
			"got":      fmt.Sprintf("%d", got),
		},
	}
}

// NewNotReadyError creates an Error for an implementation that is not ready.
func NewNotReadyError() *Error {
	return &Error{
		Code:    ErrCodeNotReady,
		Message: "implementation reported it is not ready",
		Command: "start",
	}
}
