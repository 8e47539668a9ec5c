package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the MODULE_NNN convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_015"
	ErrCodeMessagingError     ErrorCode = "COMMON_016"
	ErrCodeCancelled          ErrorCode = "COMMON_017"
)

// Fetch Error Codes
const (
	ErrCodeFetchTimeout    ErrorCode = "FET_001"
	ErrCodeFetchHTTPStatus ErrorCode = "FET_002"
	ErrCodeFetchConnection ErrorCode = "FET_003"
	ErrCodeFetchParse      ErrorCode = "FET_004"
	ErrCodeFetchCircuit    ErrorCode = "FET_005"
	ErrCodeFetchTooLarge   ErrorCode = "FET_006"
)

// Length-weight pipeline Error Codes
const (
	ErrCodeCatalogUnreachable    ErrorCode = "LWR_001"
	ErrCodeEntityFetchFailed     ErrorCode = "LWR_002"
	ErrCodeNoTableFound          ErrorCode = "LWR_003"
	ErrCodeExtractionFailed      ErrorCode = "LWR_004"
	ErrCodeColumnUnresolved      ErrorCode = "LWR_005"
	ErrCodeInsufficientData      ErrorCode = "LWR_006"
	ErrCodeDegenerateFit         ErrorCode = "LWR_007"
	ErrCodeNonConvergent         ErrorCode = "LWR_008"
	ErrCodeMergeIdentityConflict ErrorCode = "LWR_009"
	ErrCodeSpeciesNotFound       ErrorCode = "LWR_010"
	ErrCodeInvalidMeasurement    ErrorCode = "LWR_011"
)

// Short aliases used at call sites.
const (
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeTimeout      = ErrCodeTimeout

	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeStorageError      = ErrCodeStorageError
	CodeMessageQueueError = ErrCodeMessagingError
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeCancelled:          http.StatusServiceUnavailable,

	ErrCodeFetchTimeout:    http.StatusGatewayTimeout,
	ErrCodeFetchHTTPStatus: http.StatusBadGateway,
	ErrCodeFetchConnection: http.StatusBadGateway,
	ErrCodeFetchParse:      http.StatusBadGateway,
	ErrCodeFetchCircuit:    http.StatusServiceUnavailable,
	ErrCodeFetchTooLarge:   http.StatusBadGateway,

	ErrCodeCatalogUnreachable:    http.StatusBadGateway,
	ErrCodeEntityFetchFailed:     http.StatusBadGateway,
	ErrCodeNoTableFound:          http.StatusUnprocessableEntity,
	ErrCodeExtractionFailed:      http.StatusUnprocessableEntity,
	ErrCodeColumnUnresolved:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientData:      http.StatusUnprocessableEntity,
	ErrCodeDegenerateFit:         http.StatusUnprocessableEntity,
	ErrCodeNonConvergent:         http.StatusUnprocessableEntity,
	ErrCodeMergeIdentityConflict: http.StatusConflict,
	ErrCodeSpeciesNotFound:       http.StatusNotFound,
	ErrCodeInvalidMeasurement:    http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "message queue error",
	ErrCodeCancelled:          "operation cancelled",

	ErrCodeFetchTimeout:    "fetch timed out",
	ErrCodeFetchHTTPStatus: "unexpected HTTP status",
	ErrCodeFetchConnection: "connection error",
	ErrCodeFetchParse:      "failed to parse fetched document",
	ErrCodeFetchCircuit:    "remote source temporarily disabled",
	ErrCodeFetchTooLarge:   "fetched document exceeds the size limit",

	ErrCodeCatalogUnreachable:    "species catalog unreachable",
	ErrCodeEntityFetchFailed:     "failed to fetch species detail page",
	ErrCodeNoTableFound:          "no candidate table found",
	ErrCodeExtractionFailed:      "all extraction strategies failed",
	ErrCodeColumnUnresolved:      "length and weight columns could not be resolved",
	ErrCodeInsufficientData:      "not enough measurements to fit",
	ErrCodeDegenerateFit:         "degenerate fit",
	ErrCodeNonConvergent:         "nonlinear solver did not converge",
	ErrCodeMergeIdentityConflict: "conflicting results for one species identity",
	ErrCodeSpeciesNotFound:       "species not found",
	ErrCodeInvalidMeasurement:    "invalid measurement",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
