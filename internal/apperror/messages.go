package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceUnavailable:   "Service temporarily unavailable",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Transport
	CodeNetworkError:      "Network transport failure",
	CodeTimeout:           "Request timed out",
	CodeRateLimitExceeded: "Rate limit exceeded",
	CodeRPCError:          "Remote node returned an error",
	CodeUnknownNetwork:    "Network is not configured",
	CodeNoEndpoints:       "No RPC endpoints configured for network",

	// Quote and routing
	CodeInvalidAddress:        "Invalid token address",
	CodeInvalidAmount:         "Invalid trade amount",
	CodeInvalidSlippage:       "Slippage tolerance out of range",
	CodeInvalidDeadline:       "Deadline out of accepted window",
	CodeIdenticalTokens:       "Input and output tokens are identical",
	CodeInvalidReserves:       "Pool reserves are invalid",
	CodeInsufficientLiquidity: "Insufficient liquidity for trade size",
	CodePoolNotFound:          "Pool not found for token pair",
	CodeNoViableRoute:         "No viable route for token pair",
	CodeGasEstimationFailed:   "Gas estimation failed",
	CodeQuoteFailed:           "Failed to produce quote",
	CodeTokenMetadataFailed:   "Failed to read token metadata",

	CodeCircuitOpen: "Circuit breaker is open",
}
