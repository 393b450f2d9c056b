package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/waveportal/internal/errors"
)

// CodeUserRejected is the EIP-1193 error code for a declined request
const CodeUserRejected = 4001

// ProviderWallet talks to an EIP-1193 style wallet over JSON-RPC, for
// example a desktop wallet exposing a local endpoint. The connection is
// dialed lazily so a missing wallet is reported by Detect, not at startup.
type ProviderWallet struct {
	url    string
	logger *logrus.Logger

	mu     sync.Mutex
	client *rpc.Client
	closed bool
}

// NewProviderWallet creates a wallet for the provider at url
func NewProviderWallet(url string, logger *logrus.Logger) *ProviderWallet {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProviderWallet{url: url, logger: logger}
}

// NewProviderWalletWithClient wraps an already connected RPC client
func NewProviderWalletWithClient(client *rpc.Client, logger *logrus.Logger) *ProviderWallet {
	w := NewProviderWallet("", logger)
	w.client = client
	return w
}

// conn returns the RPC client, dialing it on first use
func (w *ProviderWallet) conn(ctx context.Context) (*rpc.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("wallet is closed")
	}
	if w.client != nil {
		return w.client, nil
	}
	if w.url == "" {
		return nil, apierrors.NewWalletMissingError("no provider endpoint configured")
	}

	client, err := rpc.DialContext(ctx, w.url)
	if err != nil {
		return nil, apierrors.NewWalletMissingError(err.Error())
	}
	w.client = client
	return client, nil
}

// Detect reports whether the provider answers eth_chainId
func (w *ProviderWallet) Detect(ctx context.Context) bool {
	client, err := w.conn(ctx)
	if err != nil {
		w.logger.WithError(err).Debug("Wallet provider not reachable")
		return false
	}

	var chainID hexutil.Big
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		w.logger.WithError(err).Debug("Wallet provider did not answer eth_chainId")
		return false
	}
	return true
}

// Accounts returns the accounts the provider has already authorized
func (w *ProviderWallet) Accounts(ctx context.Context) ([]common.Address, error) {
	client, err := w.conn(ctx)
	if err != nil {
		return nil, err
	}

	var accounts []common.Address
	if err := client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, classify("eth_accounts", err)
	}
	return accounts, nil
}

// RequestAccounts triggers the provider's permission prompt
func (w *ProviderWallet) RequestAccounts(ctx context.Context) (common.Address, error) {
	if !w.Detect(ctx) {
		return common.Address{}, apierrors.NewWalletMissingError("")
	}
	client, err := w.conn(ctx)
	if err != nil {
		return common.Address{}, err
	}

	var accounts []common.Address
	if err := client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return common.Address{}, classify("eth_requestAccounts", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, apierrors.NewUserRejectedError("no account was authorized")
	}

	w.logger.WithField("account", accounts[0].Hex()).Info("Connected")
	return accounts[0], nil
}

// NetworkVersion returns net_version
func (w *ProviderWallet) NetworkVersion(ctx context.Context) (string, error) {
	client, err := w.conn(ctx)
	if err != nil {
		return "", err
	}

	var version string
	if err := client.CallContext(ctx, &version, "net_version"); err != nil {
		return "", classify("net_version", err)
	}
	return version, nil
}

// sendTxArgs is the eth_sendTransaction parameter object
type sendTxArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to"`
	Gas  *hexutil.Uint64 `json:"gas,omitempty"`
	Data hexutil.Bytes   `json:"data"`
}

// SendTransaction asks the provider to sign and broadcast req
func (w *ProviderWallet) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	client, err := w.conn(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	to := req.To
	args := sendTxArgs{From: req.From, To: &to, Data: req.Data}
	if req.GasLimit > 0 {
		gas := hexutil.Uint64(req.GasLimit)
		args.Gas = &gas
	}

	var hash common.Hash
	if err := client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, classify("eth_sendTransaction", err)
	}
	return hash, nil
}

// Close closes the RPC connection
func (w *ProviderWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	if w.client != nil {
		w.client.Close()
	}
}

// classify maps a JSON-RPC failure onto the error taxonomy
func classify(method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == CodeUserRejected {
		return apierrors.NewUserRejectedError(rpcErr.Error())
	}
	if reason := errorDataMessage(err); reason != "" {
		return apierrors.NewCallFailedError(method, fmt.Errorf("%w (%s)", err, reason))
	}
	return apierrors.NewCallFailedError(method, err)
}

// errorDataMessage extracts a human message from the error data some
// providers attach to JSON-RPC errors
func errorDataMessage(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return ""
	}

	switch data := dataErr.ErrorData().(type) {
	case nil:
		return ""
	case string:
		return data
	default:
		raw, merr := json.Marshal(data)
		if merr != nil {
			return ""
		}
		return gjson.GetBytes(raw, "message").String()
	}
}
