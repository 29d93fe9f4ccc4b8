package imaging

import (
	"errors"
	"fmt"
)

// ErrorCode classifies encode failures. Callers compare codes, never
// message text.
type ErrorCode string

const (
	// ErrorCodeUnsupportedInput means the input bytes could not be decoded
	// as an image.
	ErrorCodeUnsupportedInput ErrorCode = "unsupported_input"
	// ErrorCodeEncodingFailed means the encoder itself failed.
	ErrorCodeEncodingFailed ErrorCode = "encoding_failed"
)

// EncodeError is the typed failure returned by Encoder implementations.
type EncodeError struct {
	Code  ErrorCode
	cause error
}

func newEncodeError(code ErrorCode, cause error) *EncodeError {
	return &EncodeError{Code: code, cause: cause}
}

func (e *EncodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("encode: %s: %v", e.Code, e.cause)
	}
	return fmt.Sprintf("encode: %s", e.Code)
}

func (e *EncodeError) Unwrap() error {
	return e.cause
}

// CodeOf extracts the ErrorCode from err, or "" when err is not an
// EncodeError.
func CodeOf(err error) ErrorCode {
	var encodeErr *EncodeError
	if errors.As(err, &encodeErr) {
		return encodeErr.Code
	}
	return ""
}
