package apperror

import "net/http"

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
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
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeRequestTooLarge      Code = "REQUEST_TOO_LARGE"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Bridge-specific error codes
const (
	// Intent validation
	CodeInvalidIntent Code = "INVALID_INTENT"
	CodeInvalidResult Code = "INVALID_RESULT"

	// Confidential payload handling
	CodeEncryptionFailed  Code = "ENCRYPTION_FAILED"
	CodeDecryptionFailed  Code = "DECRYPTION_FAILED"
	CodeInvalidClusterKey Code = "INVALID_CLUSTER_KEY"

	// MXE computation lifecycle
	CodeMXEConnectionFailed Code = "MXE_CONNECTION_FAILED"
	CodeMXESubmitFailed     Code = "MXE_SUBMIT_FAILED"
	CodeMXEQueueFull        Code = "MXE_QUEUE_FULL"
	CodeComputationNotFound Code = "COMPUTATION_NOT_FOUND"
	CodeComputationFailed   Code = "COMPUTATION_FAILED"
	CodeComputationTimeout  Code = "COMPUTATION_TIMEOUT"

	// Receipt verification
	CodeReceiptVerificationFailed Code = "RECEIPT_VERIFICATION_FAILED"

	// Receipt ledger
	CodeLedgerUnavailable Code = "LEDGER_UNAVAILABLE"

	// Solana RPC
	CodeSolanaConnectionFailed Code = "SOLANA_CONNECTION_FAILED"
	CodeSolanaRPCError         Code = "SOLANA_RPC_ERROR"
	CodeInvalidProgramID       Code = "INVALID_PROGRAM_ID"
	CodeProgramNotFound        Code = "PROGRAM_NOT_FOUND"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)

// statusCodes overrides the name-based status for codes that map elsewhere.
var statusCodes = map[Code]int{
	CodeRequiredField:             http.StatusUnprocessableEntity,
	CodeValidationError:           http.StatusUnprocessableEntity,
	CodeInvalidIntent:             http.StatusUnprocessableEntity,
	CodeRateLimitExceeded:         http.StatusTooManyRequests,
	CodeRequestTooLarge:           http.StatusRequestEntityTooLarge,
	CodeServiceUnavailable:        http.StatusServiceUnavailable,
	CodeExternalServiceError:      http.StatusBadGateway,
	CodeInvalidResult:             http.StatusBadGateway,
	CodeInvalidClusterKey:         http.StatusBadGateway,
	CodeReceiptVerificationFailed: http.StatusBadGateway,
	CodeSolanaRPCError:            http.StatusBadGateway,
	CodeComputationFailed:         http.StatusBadGateway,
	CodeComputationTimeout:        http.StatusGatewayTimeout,
	CodeMXEQueueFull:              http.StatusServiceUnavailable,
	CodeLedgerUnavailable:         http.StatusServiceUnavailable,
	CodeCircuitOpen:               http.StatusServiceUnavailable,
	CodeCircuitHalfOpen:           http.StatusServiceUnavailable,
}
