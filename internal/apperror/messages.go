package apperror

// messages maps error codes to human-readable messages.
// Messages must never include user-supplied values.
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",
	CodeRequestTooLarge:      "Request body too large",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Intent validation
	CodeInvalidIntent: "Invalid intent: validation failed",
	CodeInvalidResult: "Computation result failed validation",

	// Confidential payload handling
	CodeEncryptionFailed:  "Failed to encrypt confidential payload",
	CodeDecryptionFailed:  "Failed to decrypt computation result",
	CodeInvalidClusterKey: "Invalid MXE cluster key",

	// MXE computation lifecycle
	CodeMXEConnectionFailed: "Failed to connect to MXE",
	CodeMXESubmitFailed:     "Failed to submit computation to MXE",
	CodeMXEQueueFull:        "MXE computation queue is full",
	CodeComputationNotFound: "Computation not found",
	CodeComputationFailed:   "Confidential computation failed",
	CodeComputationTimeout:  "Confidential computation timed out",

	// Receipt verification
	CodeReceiptVerificationFailed: "Computation receipt verification failed",

	// Receipt ledger
	CodeLedgerUnavailable: "Receipt ledger unavailable",

	// Solana RPC
	CodeSolanaConnectionFailed: "Failed to connect to Solana RPC",
	CodeSolanaRPCError:         "Solana RPC call failed",
	CodeInvalidProgramID:       "Invalid MXE program id",
	CodeProgramNotFound:        "MXE program account not found",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
