// Package errors provides structured, coded errors for scandex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: configuration errors
//   - 2XX: storage and file I/O errors
//   - 3XX: validation errors
//   - 5XX: internal errors
package errors

// Category classifies errors for logging and presentation.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines how callers should react to an error.
type Severity string

const (
	// SeverityFatal means the operation must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError means the operation failed but the process continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning means degraded operation.
	SeverityWarning Severity = "WARNING"
)

// Error codes by category.
const (
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	ErrCodeFileNotFound  = "ERR_201_FILE_NOT_FOUND"
	ErrCodeStoreOpen     = "ERR_202_STORE_OPEN"
	ErrCodeCorruptIndex  = "ERR_203_CORRUPT_INDEX"
	ErrCodeChunkCatalog  = "ERR_204_CHUNK_CATALOG"
	ErrCodeScanRootWalk  = "ERR_205_SCAN_ROOT_WALK"
	ErrCodeSessionLocked = "ERR_206_SESSION_LOCKED"

	ErrCodeInvalidInput = "ERR_301_INVALID_INPUT"
	ErrCodeInvalidPath  = "ERR_302_INVALID_PATH"

	ErrCodeInternal = "ERR_501_INTERNAL"
)

func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeSessionLocked:
		return SeverityFatal
	case ErrCodeConfigNotFound:
		return SeverityWarning
	default:
		return SeverityError
	}
}
