package convert

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a conversion failure for the HTTP boundary.
type Kind string

const (
	// KindValidation covers bad requests: missing fields, oversize input,
	// unknown source type or unsupported target.
	KindValidation Kind = "validation"
	// KindArchive covers EPUB containers that cannot be resolved.
	KindArchive Kind = "archive"
	// KindConversion covers failures inside a conversion library or process.
	KindConversion Kind = "conversion"
)

// Error codes carried by *Error. They are logged, not returned to clients.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeLimitExceeded     = "LIMIT_EXCEEDED"
	CodeUnsupportedSource = "UNSUPPORTED_SOURCE_TYPE"
	CodeUnsupportedTarget = "UNSUPPORTED_TARGET_FORMAT"
	CodeInvalidArchive    = "INVALID_EPUB_ARCHIVE"
	CodeConversionFailed  = "CONVERSION_FAILED"
)

// Error is the typed error returned by Service.Convert.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Details is the cause text returned to callers next to Message.
func (e *Error) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newError(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func validationError(code, message string) *Error {
	return newError(KindValidation, code, message, nil)
}

func archiveError(err error) *Error {
	return newError(KindArchive, CodeInvalidArchive, "Invalid EPUB archive", pkgerrors.WithStack(err))
}

func conversionError(message string, err error) *Error {
	return newError(KindConversion, CodeConversionFailed, message, pkgerrors.WithStack(err))
}

// KindOf reports the kind of err. Errors that are not *Error count as
// conversion failures.
func KindOf(err error) Kind {
	var convErr *Error
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return KindConversion
}
