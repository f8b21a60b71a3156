package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Transport error codes. These are assigned exactly once, inside the RPC
// gateway, and never re-classified upstream.
const (
	CodeNetworkError      Code = "NETWORK_ERROR"
	CodeTimeout           Code = "TIMEOUT"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeRPCError          Code = "RPC_ERROR"
	CodeUnknownNetwork    Code = "UNKNOWN_NETWORK"
	CodeNoEndpoints       Code = "NO_ENDPOINTS"
)

// Quote and routing error codes
const (
	CodeInvalidAddress        Code = "INVALID_ADDRESS"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeInvalidSlippage       Code = "INVALID_SLIPPAGE"
	CodeInvalidDeadline       Code = "INVALID_DEADLINE"
	CodeIdenticalTokens       Code = "IDENTICAL_TOKENS"
	CodeInvalidReserves       Code = "INVALID_RESERVES"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodePoolNotFound          Code = "POOL_NOT_FOUND"
	CodeNoViableRoute         Code = "NO_VIABLE_ROUTE"
	CodeGasEstimationFailed   Code = "GAS_ESTIMATION_FAILED"
	CodeQuoteFailed           Code = "QUOTE_FAILED"
	CodeTokenMetadataFailed   Code = "TOKEN_METADATA_FAILED"
)

// Circuit breaker errors
const (
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)

// retryableCodes lists the codes describing transient failures. Everything
// else is terminal for the request that produced it.
var retryableCodes = map[Code]bool{
	CodeNetworkError:       true,
	CodeTimeout:            true,
	CodeRateLimitExceeded:  true,
	CodeServiceUnavailable: true,
	CodeCircuitOpen:        true,
}

// IsRetryableCode reports whether a code is considered transient.
func IsRetryableCode(code Code) bool {
	return retryableCodes[code]
}
