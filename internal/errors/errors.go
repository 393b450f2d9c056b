// Package errors provides the error taxonomy for the wave portal client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrWalletMissing     = errors.New("no wallet found")
	ErrUserRejected      = errors.New("user rejected the request")
	ErrCallFailed        = errors.New("contract call failed")
	ErrWrongNetwork      = errors.New("wrong network")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrUnknownEvent      = errors.New("unknown contract event")
)

// WalletMissingError is returned when no wallet provider could be detected
type WalletMissingError struct {
	Message string
}

func (e *WalletMissingError) Error() string {
	if e.Message == "" {
		return "no wallet found: install or start a wallet provider"
	}
	return fmt.Sprintf("no wallet found: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *WalletMissingError) Is(target error) bool {
	if target == ErrWalletMissing {
		return true
	}
	_, ok := target.(*WalletMissingError)
	return ok
}

// NewWalletMissingError creates a new WalletMissingError
func NewWalletMissingError(message string) *WalletMissingError {
	return &WalletMissingError{Message: message}
}

// UserRejectedError represents a permission denial in the wallet
type UserRejectedError struct {
	Message string
}

func (e *UserRejectedError) Error() string {
	if e.Message == "" {
		return "user rejected the request"
	}
	return fmt.Sprintf("user rejected the request: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *UserRejectedError) Is(target error) bool {
	if target == ErrUserRejected {
		return true
	}
	_, ok := target.(*UserRejectedError)
	return ok
}

// NewUserRejectedError creates a new UserRejectedError
func NewUserRejectedError(message string) *UserRejectedError {
	return &UserRejectedError{Message: message}
}

// CallFailedError represents an RPC or contract call failure
type CallFailedError struct {
	Method string
	Err    error
}

func (e *CallFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("call %s failed", e.Method)
	}
	return fmt.Sprintf("call %s failed: %v", e.Method, e.Err)
}

func (e *CallFailedError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *CallFailedError) Is(target error) bool {
	if target == ErrCallFailed {
		return true
	}
	_, ok := target.(*CallFailedError)
	return ok
}

// NewCallFailedError creates a new CallFailedError wrapping err
func NewCallFailedError(method string, err error) *CallFailedError {
	return &CallFailedError{Method: method, Err: err}
}

// WrongNetworkError is the network gate condition
type WrongNetworkError struct {
	Current  string
	Required string
}

func (e *WrongNetworkError) Error() string {
	current := e.Current
	if current == "" {
		current = "unknown"
	}
	return fmt.Sprintf("wrong network: connected to %s, need %s", current, e.Required)
}

// Is allows comparison with sentinel errors
func (e *WrongNetworkError) Is(target error) bool {
	if target == ErrWrongNetwork {
		return true
	}
	_, ok := target.(*WrongNetworkError)
	return ok
}

// NewWrongNetworkError creates a new WrongNetworkError
func NewWrongNetworkError(current, required string) *WrongNetworkError {
	return &WrongNetworkError{Current: current, Required: required}
}

// TransactionFailedError represents a mined transaction that reverted
type TransactionFailedError struct {
	TxHash string
	Reason string
}

func (e *TransactionFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s failed", e.TxHash)
	}
	return fmt.Sprintf("transaction %s failed: %s", e.TxHash, e.Reason)
}

// Is allows comparison with sentinel errors
func (e *TransactionFailedError) Is(target error) bool {
	if target == ErrTransactionFailed {
		return true
	}
	_, ok := target.(*TransactionFailedError)
	return ok
}

// NewTransactionFailedError creates a new TransactionFailedError
func NewTransactionFailedError(txHash, reason string) *TransactionFailedError {
	return &TransactionFailedError{TxHash: txHash, Reason: reason}
}

// IsWalletMissing reports whether err is a WalletMissing failure
func IsWalletMissing(err error) bool {
	return errors.Is(err, ErrWalletMissing)
}

// IsUserRejected reports whether err is a permission denial
func IsUserRejected(err error) bool {
	return errors.Is(err, ErrUserRejected)
}

// IsCallFailed reports whether err is an RPC or contract call failure
func IsCallFailed(err error) bool {
	return errors.Is(err, ErrCallFailed)
}

// IsWrongNetwork reports whether err is the network gate condition
func IsWrongNetwork(err error) bool {
	return errors.Is(err, ErrWrongNetwork)
}

// IsTransactionFailed reports whether err is a reverted transaction
func IsTransactionFailed(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}

// Hint returns a short suggestion for the user, or "" when there is none.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case IsWalletMissing(err):
		return "Get a wallet! Start your wallet provider or configure a keystore"
	case IsUserRejected(err):
		return "The request was declined in the wallet"
	case IsWrongNetwork(err):
		return "Switch networks in your connected wallet"
	case IsTransactionFailed(err):
		return "The transaction was mined but reverted"
	case IsCallFailed(err):
		return "Check the RPC endpoint and contract address"
	default:
		return ""
	}
}
