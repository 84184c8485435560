package errors

import "net/http"

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 12000-12999: Problem module errors
// 17000-17999: Migration pipeline errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	TransactionFailed ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300

	// ========== Problem Module Errors (12000-12999) ==========

	ProblemNotFound     ErrorCode = 12000
	ProblemUpdateFailed ErrorCode = 12003

	// ========== Migration Errors (17000-17999) ==========

	// Remote repository (17000-17099)
	PolygonTransportError     ErrorCode = 17000
	PolygonRemoteError        ErrorCode = 17001
	TestCasePartialData       ErrorCode = 17002
	CheckerCompileUnavailable ErrorCode = 17003
	StorageWriteFailed        ErrorCode = 17004
	MigrationPrecondition     ErrorCode = 17005
	PolygonPackageInvalid     ErrorCode = 17006
	StatementNotFound         ErrorCode = 17007
	CheckerSourceNotFound     ErrorCode = 17008
	StorageNotConfigured      ErrorCode = 17009
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed: "Validation failed",

	// Problem
	ProblemNotFound:     "Problem not found",
	ProblemUpdateFailed: "Failed to update problem",

	// Migration
	PolygonTransportError:     "Failed to reach the problem repository API",
	PolygonRemoteError:        "Problem repository API rejected the request",
	TestCasePartialData:       "Test case data could not be fetched completely",
	CheckerCompileUnavailable: "Checker compilation unavailable",
	StorageWriteFailed:        "Storage write failed",
	MigrationPrecondition:     "Migration precondition failed",
	PolygonPackageInvalid:     "Problem package is invalid",
	StatementNotFound:         "Problem statement not found in package",
	CheckerSourceNotFound:     "Checker source not found",
	StorageNotConfigured:      "Storage backend is not configured",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return http.StatusOK
	case c == NotFound, c == ProblemNotFound:
		return http.StatusNotFound
	case c == TooManyRequests:
		return http.StatusTooManyRequests
	case c == StorageNotConfigured:
		return http.StatusServiceUnavailable
	case c == Timeout:
		return http.StatusGatewayTimeout
	case c == MigrationPrecondition:
		return http.StatusPreconditionFailed
	case c == PolygonTransportError, c == PolygonRemoteError, c == PolygonPackageInvalid:
		return http.StatusBadGateway
	case c >= 10300 && c < 10400: // Validation errors
		return http.StatusBadRequest
	case c == InvalidParams:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
