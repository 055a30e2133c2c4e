// Package errors provides the structured error taxonomy for docrag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Validation errors (bad arguments, bad paths)
//   - 2XX: Source errors (parse failures, missing files or corpora)
//   - 3XX: Embedding backend errors
//   - 4XX: Store backend errors
//   - 5XX: Configuration and internal errors
package errors

// Category groups codes by the subsystem that raised them.
type Category string

const (
	// CategoryValidation indicates bad caller input.
	CategoryValidation Category = "VALIDATION"
	// CategorySource indicates a problem with a source document.
	CategorySource Category = "SOURCE"
	// CategoryBackend indicates the embedding or store collaborator failed.
	CategoryBackend Category = "BACKEND"
	// CategoryInternal indicates configuration or unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Kind is the engine-level error taxonomy exposed to callers.
type Kind string

const (
	KindValidation Kind = "ValidationError"
	KindParse      Kind = "ParseError"
	KindNotFound   Kind = "NotFoundError"
	KindBackend    Kind = "BackendError"
	KindInternal   Kind = "InternalError"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the process cannot continue.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates a degraded but continuing operation.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Validation errors (100-199)
	ErrCodeInvalidArgument = "ERR_101_INVALID_ARGUMENT"
	ErrCodeInvalidPath     = "ERR_102_INVALID_PATH"
	ErrCodeQueryEmpty      = "ERR_103_QUERY_EMPTY"
	ErrCodeDuplicateID     = "ERR_104_DUPLICATE_ID"

	// Source errors (200-299)
	ErrCodeParseFailed    = "ERR_201_PARSE_FAILED"
	ErrCodeFileNotFound   = "ERR_202_FILE_NOT_FOUND"
	ErrCodeCorpusNotFound = "ERR_203_CORPUS_NOT_FOUND"
	ErrCodeFileRead       = "ERR_204_FILE_READ"

	// Embedding backend errors (300-399)
	ErrCodeEmbedderUnavailable = "ERR_301_EMBEDDER_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_302_EMBEDDING_FAILED"
	ErrCodeEmbeddingTimeout    = "ERR_303_EMBEDDING_TIMEOUT"
	ErrCodeDimensionMismatch   = "ERR_304_DIMENSION_MISMATCH"

	// Store backend errors (400-499)
	ErrCodeStoreWrite  = "ERR_401_STORE_WRITE"
	ErrCodeStoreRead   = "ERR_402_STORE_READ"
	ErrCodeStoreOpen   = "ERR_403_STORE_OPEN"
	ErrCodeIndexLocked = "ERR_404_INDEX_LOCKED"

	// Configuration and internal errors (500-599)
	ErrCodeConfigInvalid = "ERR_501_CONFIG_INVALID"
	ErrCodeInternal      = "ERR_502_INTERNAL"
)

// categoryFromCode extracts the category from the numeric part of a code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryValidation
	case '2':
		return CategorySource
	case '3', '4':
		return CategoryBackend
	default:
		return CategoryInternal
	}
}

// kindFromCode maps a code onto the caller-facing taxonomy.
func kindFromCode(code string) Kind {
	switch code {
	case ErrCodeParseFailed:
		return KindParse
	case ErrCodeFileNotFound, ErrCodeCorpusNotFound:
		return KindNotFound
	}

	switch categoryFromCode(code) {
	case CategoryValidation:
		return KindValidation
	case CategoryBackend:
		return KindBackend
	case CategorySource:
		// unreadable sources are reported alongside malformed ones
		return KindParse
	default:
		return KindInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreOpen, ErrCodeConfigInvalid:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedderUnavailable, ErrCodeEmbeddingTimeout, ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
