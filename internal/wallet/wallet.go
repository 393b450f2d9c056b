// Package wallet bridges the client to an account holder: a JSON-RPC wallet
// provider or a local encrypted keystore.
package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Wallet is the capability the view and the contract client are given.
// Implementations never retry; failures are returned to the caller.
type Wallet interface {
	// Detect reports whether a wallet is present and reachable
	Detect(ctx context.Context) bool
	// Accounts returns the already-authorized accounts without prompting. May be empty.
	Accounts(ctx context.Context) ([]common.Address, error)
	// RequestAccounts asks the user to authorize an account.
	// Fails with a WalletMissing or UserRejected error.
	RequestAccounts(ctx context.Context) (common.Address, error)
	// NetworkVersion returns the net_version identifier of the wallet's network
	NetworkVersion(ctx context.Context) (string, error)
	// SendTransaction signs and broadcasts req, returning the transaction hash
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	// Close releases the wallet connection
	Close()
}

// TxRequest describes a contract call to be signed by the wallet
type TxRequest struct {
	From     common.Address
	To       common.Address
	Data     []byte
	GasLimit uint64
}

// TerminalPrompter is implemented by wallets whose RequestAccounts reads
// from the terminal. Interactive front-ends must release the terminal first.
type TerminalPrompter interface {
	PromptsOnTerminal() bool
}

// PromptsOnTerminal reports whether w needs the terminal to request accounts
func PromptsOnTerminal(w Wallet) bool {
	p, ok := w.(TerminalPrompter)
	return ok && p.PromptsOnTerminal()
}
