package detector

import "fmt"

// Kind tags a detector error with one of the taxonomy's fixed
// categories, so callers can branch on failure type without string
// matching.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindConfigurationError Kind = "configuration_error"
	KindEmbeddingError     Kind = "embedding_error"
	KindStorageError       Kind = "storage_error"
	KindTransientError     Kind = "transient_error"
)

// Error is the detector's sum-type error: a Kind plus a message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func invalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, fmt.Sprintf(format, args...), nil)
}

func configurationError(format string, args ...any) *Error {
	return newError(KindConfigurationError, fmt.Sprintf(format, args...), nil)
}

func embeddingError(cause error, format string, args ...any) *Error {
	return newError(KindEmbeddingError, fmt.Sprintf(format, args...), cause)
}

func storageError(cause error, format string, args ...any) *Error {
	return newError(KindStorageError, fmt.Sprintf(format, args...), cause)
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error,
// reporting ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if ok := asDetectorError(err, &de); ok {
		return de.Kind, true
	}
	return "", false
}

func asDetectorError(err error, target **Error) bool {
	for err != nil {
		if de, ok := err.(*Error); ok {
			*target = de
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
