package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeStorageError       ErrorCode = "COMMON_010"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_011"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_012"
	ErrCodeNotImplemented     ErrorCode = "COMMON_013"

	ErrCodeUnknown ErrorCode = "UNKNOWN"
	CodeOK         ErrorCode = "OK"
)

// Taxonomy module error codes
const (
	ErrCodeTaxonomyEmptyPath       ErrorCode = "TAX_001"
	ErrCodeTaxonomyDanglingParent  ErrorCode = "TAX_002"
	ErrCodeTaxonomyCycleDetected   ErrorCode = "TAX_003"
	ErrCodeNodeNotFound            ErrorCode = "TAX_004"
	ErrCodeMergeConflict           ErrorCode = "TAX_005"
	ErrCodeSimilarityRuleInvalid   ErrorCode = "TAX_006"
	ErrCodeTaxonomyPersistFailed   ErrorCode = "TAX_007"
	ErrCodeTaxonomySnapshotInvalid ErrorCode = "TAX_008"
)

// Metrics module error codes
const (
	ErrCodeMetricsUnresolvedURL   ErrorCode = "MET_001"
	ErrCodeMetricsRollupFailed    ErrorCode = "MET_002"
	ErrCodeMetricsInvalidRecord   ErrorCode = "MET_003"
	ErrCodeMetricsPersistFailed   ErrorCode = "MET_004"
	ErrCodeMetricsExportFailed    ErrorCode = "MET_005"
	ErrCodeMetricsNodeSetMismatch ErrorCode = "MET_006"
)

// Scoring module error codes
const (
	ErrCodeScoringInvalidFactors ErrorCode = "SCR_001"
	ErrCodeScoringFailed         ErrorCode = "SCR_002"
	ErrCodeScoringPersistFailed  ErrorCode = "SCR_003"
)

// Data source / ingestion boundary error codes
const (
	ErrCodeSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeSourceParseError  ErrorCode = "SRC_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessageQueueError:  http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeTaxonomyEmptyPath:       http.StatusUnprocessableEntity,
	ErrCodeTaxonomyDanglingParent:  http.StatusUnprocessableEntity,
	ErrCodeTaxonomyCycleDetected:   http.StatusUnprocessableEntity,
	ErrCodeNodeNotFound:            http.StatusNotFound,
	ErrCodeMergeConflict:           http.StatusConflict,
	ErrCodeSimilarityRuleInvalid:   http.StatusInternalServerError,
	ErrCodeTaxonomyPersistFailed:   http.StatusInternalServerError,
	ErrCodeTaxonomySnapshotInvalid: http.StatusBadRequest,

	ErrCodeMetricsUnresolvedURL:   http.StatusUnprocessableEntity,
	ErrCodeMetricsRollupFailed:    http.StatusInternalServerError,
	ErrCodeMetricsInvalidRecord:   http.StatusBadRequest,
	ErrCodeMetricsPersistFailed:   http.StatusInternalServerError,
	ErrCodeMetricsExportFailed:    http.StatusInternalServerError,
	ErrCodeMetricsNodeSetMismatch: http.StatusUnprocessableEntity,

	ErrCodeScoringInvalidFactors: http.StatusBadRequest,
	ErrCodeScoringFailed:         http.StatusInternalServerError,
	ErrCodeScoringPersistFailed:  http.StatusInternalServerError,

	ErrCodeSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeSourceParseError:  http.StatusBadGateway,
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
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

// ModuleForCode returns the module prefix of an ErrorCode ("TAX", "MET", …).
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
