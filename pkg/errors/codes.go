package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is "<MODULE>_<NNN>".
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Module prefixes.
const (
	ModuleCommon   = "COMMON"
	ModuleSetup    = "SETUP"
	ModuleParse    = "PARSE"
	ModuleGeometry = "GEOM"
	ModuleResource = "RES"
)

const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Common codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeCacheError         ErrorCode = "COMMON_008"
	ErrCodeCacheMiss          ErrorCode = "COMMON_009"
	ErrCodeStorageError       ErrorCode = "COMMON_010"
	ErrCodeClosed             ErrorCode = "COMMON_011"
	ErrCodeRateLimited        ErrorCode = "COMMON_012"
)

// Setup codes: configuration rejected before any batch is produced.
const (
	ErrCodeInvalidConfig     ErrorCode = "SETUP_001"
	ErrCodeListUnreadable    ErrorCode = "SETUP_002"
	ErrCodeListMalformed     ErrorCode = "SETUP_003"
	ErrCodeUnknownAtomType   ErrorCode = "SETUP_004"
	ErrCodeDuplicateAtomType ErrorCode = "SETUP_005"
	ErrCodeEmptyExampleSet   ErrorCode = "SETUP_006"
)

// Parse codes: structure input that cannot be turned into atoms.
const (
	ErrCodeStructureUnreadable ErrorCode = "PARSE_001"
	ErrCodeStructureMalformed  ErrorCode = "PARSE_002"
	ErrCodeUnsupportedFormat   ErrorCode = "PARSE_003"
	ErrCodeAtomListMismatch    ErrorCode = "PARSE_004"
	ErrCodeAtomTypeOutOfRange  ErrorCode = "PARSE_005"
)

// Geometry codes: rasterization inputs that violate grid invariants.
const (
	ErrCodeInvalidRadius     ErrorCode = "GEOM_001"
	ErrCodeChannelOutOfRange ErrorCode = "GEOM_002"
	ErrCodeGridBufferSize    ErrorCode = "GEOM_003"
	ErrCodeInvalidGridSpec   ErrorCode = "GEOM_004"
)

// Resource codes.
const (
	ErrCodeAcceleratorAlloc       ErrorCode = "RES_001"
	ErrCodeAcceleratorUnavailable ErrorCode = "RES_002"
)

var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeCacheMiss:          http.StatusNotFound,
	ErrCodeStorageError:       http.StatusBadGateway,
	ErrCodeClosed:             http.StatusServiceUnavailable,
	ErrCodeRateLimited:        http.StatusTooManyRequests,

	ErrCodeInvalidConfig:     http.StatusBadRequest,
	ErrCodeListUnreadable:    http.StatusInternalServerError,
	ErrCodeListMalformed:     http.StatusUnprocessableEntity,
	ErrCodeUnknownAtomType:   http.StatusBadRequest,
	ErrCodeDuplicateAtomType: http.StatusBadRequest,
	ErrCodeEmptyExampleSet:   http.StatusUnprocessableEntity,

	ErrCodeStructureUnreadable: http.StatusNotFound,
	ErrCodeStructureMalformed:  http.StatusUnprocessableEntity,
	ErrCodeUnsupportedFormat:   http.StatusUnsupportedMediaType,
	ErrCodeAtomListMismatch:    http.StatusBadRequest,
	ErrCodeAtomTypeOutOfRange:  http.StatusBadRequest,

	ErrCodeInvalidRadius:     http.StatusBadRequest,
	ErrCodeChannelOutOfRange: http.StatusBadRequest,
	ErrCodeGridBufferSize:    http.StatusInternalServerError,
	ErrCodeInvalidGridSpec:   http.StatusBadRequest,

	ErrCodeAcceleratorAlloc:       http.StatusInsufficientStorage,
	ErrCodeAcceleratorUnavailable: http.StatusServiceUnavailable,
}

var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache operation failed",
	ErrCodeCacheMiss:          "cache miss",
	ErrCodeStorageError:       "object storage operation failed",
	ErrCodeClosed:             "component closed",
	ErrCodeRateLimited:        "rate limit exceeded",

	ErrCodeInvalidConfig:     "invalid grid configuration",
	ErrCodeListUnreadable:    "example list unreadable",
	ErrCodeListMalformed:     "example list malformed",
	ErrCodeUnknownAtomType:   "unknown atom type",
	ErrCodeDuplicateAtomType: "atom type mapped twice",
	ErrCodeEmptyExampleSet:   "no examples available",

	ErrCodeStructureUnreadable: "structure file unreadable",
	ErrCodeStructureMalformed:  "structure file malformed",
	ErrCodeUnsupportedFormat:   "unsupported structure format",
	ErrCodeAtomListMismatch:    "atom and coordinate lists differ in length",
	ErrCodeAtomTypeOutOfRange:  "atom type id out of range",

	ErrCodeInvalidRadius:     "atom radius must be positive",
	ErrCodeChannelOutOfRange: "atom channel out of range",
	ErrCodeGridBufferSize:    "grid buffer has wrong size",
	ErrCodeInvalidGridSpec:   "invalid grid dimensions",

	ErrCodeAcceleratorAlloc:       "accelerator allocation failed",
	ErrCodeAcceleratorUnavailable: "accelerator unavailable",
}

// HTTPStatusForCode defaults to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the prefix before the first underscore.
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

//Personal.AI order the ending
