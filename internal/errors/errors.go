package errors

import (
	"errors"
	"fmt"
)

// DocError is the structured error type for docrag.
// It carries a stable code plus enough context for logs and user messages.
type DocError struct {
	// Code is the unique error code (e.g., "ERR_202_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DocError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is matches another DocError by code.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the caller-facing taxonomy entry for this error.
func (e *DocError) Kind() Kind {
	return kindFromCode(e.Code)
}

// WithDetail adds a key-value detail to the error.
func (e *DocError) WithDetail(key, value string) *DocError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocError) WithSuggestion(suggestion string) *DocError {
	e.Suggestion = suggestion
	return e
}

// New creates a DocError. Category, severity and retryability derive from the code.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocError whose message is the wrapped error's message.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ParseError reports a malformed source document at path.
func ParseError(path string, cause error) *DocError {
	msg := fmt.Sprintf("failed to parse %s", path)
	if cause != nil {
		msg = fmt.Sprintf("failed to parse %s: %v", path, cause)
	}
	return New(ErrCodeParseFailed, msg, cause).WithDetail("path", path)
}

// FileNotFound reports a missing source file.
func FileNotFound(path string) *DocError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path), nil).
		WithDetail("path", path)
}

// CorpusNotFound reports a missing (docName, version) corpus.
func CorpusNotFound(docName, version string) *DocError {
	return New(ErrCodeCorpusNotFound,
		fmt.Sprintf("documentation '%s' v%s not found in index", docName, version), nil).
		WithDetail("doc_name", docName).
		WithDetail("version", version)
}

// ValidationError reports a bad argument.
func ValidationError(field, message string) *DocError {
	return New(ErrCodeInvalidArgument, message, nil).WithDetail("field", field)
}

// InvalidPath reports a path argument that cannot be used.
func InvalidPath(path, reason string) *DocError {
	return New(ErrCodeInvalidPath, fmt.Sprintf("%s: %s", reason, path), nil).
		WithDetail("path", path)
}

// BackendError reports a failed embedding or store call.
func BackendError(code, message string, cause error) *DocError {
	return New(code, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocError {
	return New(ErrCodeInternal, message, cause)
}

// As extracts a *DocError anywhere in the chain.
func As(err error) (*DocError, bool) {
	var de *DocError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if de, ok := As(err); ok {
		return de.Kind()
	}
	return KindInternal
}

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool { return err != nil && KindOf(err) == KindParse }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

// IsBackend reports whether err is a BackendError.
func IsBackend(err error) bool { return err != nil && KindOf(err) == KindBackend }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if de, ok := As(err); ok {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if de, ok := As(err); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" for foreign errors.
func GetCode(err error) string {
	if de, ok := As(err); ok {
		return de.Code
	}
	return ""
}
