// Package errors provides structured error handling for dnawallet.
// It defines sentinel errors, exit codes, failure categories and helpers
// for adding context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Wrong password or failed authentication tag
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or insufficient funds
	ExitIntegrity  = 6 // Corrupt wallet or key file
)

// Category groups errors by how a caller is expected to react.
type Category string

// Failure categories.
const (
	CategoryNone     Category = ""
	CategoryInput    Category = "input"    // rejected before any I/O or crypto
	CategoryCrypto   Category = "crypto"   // always fails closed
	CategoryResource Category = "resource" // funds, files, allocation
	CategoryNetwork  Category = "network"  // RPC transport or protocol outcome
)

// WalletError is the structured error type for dnawallet.
type WalletError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
	Category   Category          // Failure category
	Transient  bool              // Safe for the caller to retry
}

func (e *WalletError) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *WalletError) Unwrap() error {
	return e.Cause
}

// Is matches on the error code so wrapped copies compare equal to their sentinel.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	// Input validation.
	ErrInvalidInput = &WalletError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
		Category: CategoryInput,
	}

	ErrInvalidAddress = &WalletError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
		Category: CategoryInput,
	}

	ErrInvalidAmount = &WalletError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
		Category: CategoryInput,
	}

	ErrInvalidPath = &WalletError{
		Code:     "INVALID_PATH",
		Message:  "invalid derivation path",
		ExitCode: ExitInput,
		Category: CategoryInput,
	}

	ErrInvalidMnemonic = &WalletError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
		Category: CategoryInput,
	}

	ErrItemOrder = &WalletError{
		Code:     "ITEM_ORDER",
		Message:  "transaction item appended out of order",
		ExitCode: ExitInput,
		Category: CategoryInput,
	}

	// Cryptographic failures.
	ErrInvalidKey = &WalletError{
		Code:     "INVALID_KEY",
		Message:  "derived key is not a valid secp256k1 scalar",
		ExitCode: ExitGeneral,
		Category: CategoryCrypto,
	}

	ErrSigningFailed = &WalletError{
		Code:     "SIGNING_FAILED",
		Message:  "signing failed",
		ExitCode: ExitGeneral,
		Category: CategoryCrypto,
	}

	ErrDecryptionFailed = &WalletError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitAuth,
		Category: CategoryCrypto,
	}

	// Resource errors.
	ErrInsufficientFunds = &WalletError{
		Code:     "INSUFFICIENT_FUNDS",
		Message:  "insufficient funds for transaction",
		ExitCode: ExitPermission,
		Category: CategoryResource,
	}

	ErrNoUTXOs = &WalletError{
		Code:     "NO_UTXOS",
		Message:  "no UTXOs available",
		ExitCode: ExitPermission,
		Category: CategoryResource,
	}

	ErrWalletNotFound = &WalletError{
		Code:     "WALLET_NOT_FOUND",
		Message:  "wallet not found",
		ExitCode: ExitNotFound,
		Category: CategoryResource,
	}

	ErrWalletExists = &WalletError{
		Code:     "WALLET_EXISTS",
		Message:  "wallet already exists",
		ExitCode: ExitInput,
		Category: CategoryResource,
	}

	ErrWalletCorrupt = &WalletError{
		Code:     "WALLET_CORRUPT",
		Message:  "wallet file is malformed",
		ExitCode: ExitIntegrity,
		Category: CategoryResource,
	}

	// Network and protocol outcomes.
	ErrNetworkError = &WalletError{
		Code:      "NETWORK_ERROR",
		Message:   "network communication failed",
		ExitCode:  ExitGeneral,
		Category:  CategoryNetwork,
		Transient: true,
	}

	ErrMalformedResponse = &WalletError{
		Code:      "MALFORMED_RESPONSE",
		Message:   "malformed RPC response",
		ExitCode:  ExitGeneral,
		Category:  CategoryNetwork,
		Transient: true,
	}

	ErrTxRejected = &WalletError{
		Code:     "TX_REJECTED",
		Message:  "transaction rejected by network",
		ExitCode: ExitGeneral,
		Category: CategoryNetwork,
	}

	ErrTxNotCreated = &WalletError{
		Code:     "TX_NOT_CREATED",
		Message:  "transaction submitted but not created",
		ExitCode: ExitGeneral,
		Category: CategoryNetwork,
	}

	ErrTransactionNotFound = &WalletError{
		Code:     "TRANSACTION_NOT_FOUND",
		Message:  "transaction not found",
		ExitCode: ExitNotFound,
		Category: CategoryNetwork,
	}

	// Chain registry.
	ErrNotImplemented = &WalletError{
		Code:     "NOT_IMPLEMENTED",
		Message:  "operation not implemented for this chain",
		ExitCode: ExitGeneral,
	}

	ErrChainExists = &WalletError{
		Code:     "CHAIN_EXISTS",
		Message:  "chain already registered",
		ExitCode: ExitInput,
	}

	ErrRegistryFull = &WalletError{
		Code:     "REGISTRY_FULL",
		Message:  "chain registry is full",
		ExitCode: ExitGeneral,
	}

	ErrChainNotFound = &WalletError{
		Code:     "CHAIN_NOT_FOUND",
		Message:  "chain not registered",
		ExitCode: ExitNotFound,
	}

	// Config.
	ErrConfigInvalid = &WalletError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
		Category: CategoryInput,
	}
)

// New creates a new WalletError with the given code and message.
func New(code, message string) *WalletError {
	return &WalletError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    fmt.Sprintf("%s: %s", msg, we.Message),
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      err,
			ExitCode:   we.ExitCode,
			Category:   we.Category,
			Transient:  we.Transient,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    details,
			Suggestion: we.Suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
			Category:   we.Category,
			Transient:  we.Transient,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
			Category:   we.Category,
			Transient:  we.Transient,
		}
	}

	return &WalletError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var we *WalletError
	if errors.As(err, &we) {
		return we.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return "GENERAL_ERROR"
}

// CategoryOf returns the failure category of the outermost WalletError.
func CategoryOf(err error) Category {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Category
	}
	return CategoryNone
}

// IsTransient reports whether the failure may succeed if the caller retries.
// The wallet core never retries on its own.
func IsTransient(err error) bool {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Transient
	}
	return false
}

// SuggestionOf returns the suggestion attached to the outermost WalletError.
func SuggestionOf(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Suggestion
	}
	return ""
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
