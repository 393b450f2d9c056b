package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	apierrors "github.com/diogo/waveportal/internal/errors"
)

// ChainBackend is the node access the keystore wallet needs to build and
// broadcast transactions. *ethclient.Client satisfies it.
type ChainBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// PassphraseFunc asks the user for the passphrase of account.
// Returning an empty passphrase declines the request.
type PassphraseFunc func(account common.Address) (string, error)

// KeystoreWallet signs with accounts from an encrypted go-ethereum keystore.
// RequestAccounts is the permission prompt: it unlocks one account with a passphrase.
type KeystoreWallet struct {
	dir       string
	preferred string
	ks        *keystore.KeyStore
	backend   ChainBackend
	prompt    PassphraseFunc
	terminal  bool
	logger    *logrus.Logger

	mu       sync.Mutex
	unlocked map[common.Address]bool
}

// KeystoreOption configures a KeystoreWallet
type KeystoreOption func(*KeystoreWallet)

// WithPassphraseFunc replaces the terminal passphrase prompt
func WithPassphraseFunc(fn PassphraseFunc) KeystoreOption {
	return func(w *KeystoreWallet) {
		w.prompt = fn
		w.terminal = false
	}
}

// WithAccount selects the account to unlock instead of the first one
func WithAccount(address string) KeystoreOption {
	return func(w *KeystoreWallet) {
		w.preferred = address
	}
}

// WithScrypt sets the scrypt parameters, useful to speed up tests
func WithScrypt(n, p int) KeystoreOption {
	return func(w *KeystoreWallet) {
		w.ks = keystore.NewKeyStore(w.dir, n, p)
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) KeystoreOption {
	return func(w *KeystoreWallet) {
		w.logger = logger
	}
}

// NewKeystoreWallet opens the keystore in dir
func NewKeystoreWallet(dir string, backend ChainBackend, opts ...KeystoreOption) *KeystoreWallet {
	w := &KeystoreWallet{
		dir:      dir,
		backend:  backend,
		prompt:   TerminalPassphrase,
		terminal: true,
		logger:   logrus.StandardLogger(),
		unlocked: make(map[common.Address]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.ks == nil {
		w.ks = keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	}
	return w
}

// KeyStore exposes the underlying keystore
func (w *KeystoreWallet) KeyStore() *keystore.KeyStore {
	return w.ks
}

// PromptsOnTerminal reports whether the passphrase is read from the terminal
func (w *KeystoreWallet) PromptsOnTerminal() bool {
	return w.terminal
}

// Detect reports whether the keystore holds at least one account
func (w *KeystoreWallet) Detect(ctx context.Context) bool {
	if _, err := os.Stat(w.dir); err != nil {
		return false
	}
	return len(w.ks.Accounts()) > 0
}

// Accounts returns the unlocked accounts in keystore order
func (w *KeystoreWallet) Accounts(ctx context.Context) ([]common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []common.Address
	for _, acc := range w.ks.Accounts() {
		if w.unlocked[acc.Address] {
			out = append(out, acc.Address)
		}
	}
	return out, nil
}

// RequestAccounts prompts for a passphrase and unlocks the selected account
func (w *KeystoreWallet) RequestAccounts(ctx context.Context) (common.Address, error) {
	if !w.Detect(ctx) {
		return common.Address{}, apierrors.NewWalletMissingError(fmt.Sprintf("no accounts in keystore %s", w.dir))
	}

	acc, err := w.selectAccount()
	if err != nil {
		return common.Address{}, err
	}

	passphrase, err := w.prompt(acc.Address)
	if err != nil {
		return common.Address{}, apierrors.NewUserRejectedError(err.Error())
	}
	if passphrase == "" {
		return common.Address{}, apierrors.NewUserRejectedError("no passphrase given")
	}

	if err := w.ks.Unlock(acc, passphrase); err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return common.Address{}, apierrors.NewUserRejectedError("wrong passphrase")
		}
		return common.Address{}, fmt.Errorf("failed to unlock account: %w", err)
	}

	w.mu.Lock()
	w.unlocked[acc.Address] = true
	w.mu.Unlock()

	w.logger.WithField("account", acc.Address.Hex()).Info("Keystore account unlocked")
	return acc.Address, nil
}

func (w *KeystoreWallet) selectAccount() (accounts.Account, error) {
	all := w.ks.Accounts()
	if w.preferred == "" {
		return all[0], nil
	}
	for _, acc := range all {
		if strings.EqualFold(acc.Address.Hex(), w.preferred) {
			return acc, nil
		}
	}
	return accounts.Account{}, apierrors.NewWalletMissingError(fmt.Sprintf("account %s not in keystore", w.preferred))
}

// NetworkVersion returns the node's network identifier
func (w *KeystoreWallet) NetworkVersion(ctx context.Context) (string, error) {
	if w.backend == nil {
		return "", apierrors.NewCallFailedError("net_version", fmt.Errorf("no node connection"))
	}
	id, err := w.backend.NetworkID(ctx)
	if err != nil {
		return "", apierrors.NewCallFailedError("net_version", err)
	}
	return id.String(), nil
}

// SendTransaction builds a dynamic fee transaction, signs it with the
// unlocked account and broadcasts it
func (w *KeystoreWallet) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	w.mu.Lock()
	unlocked := w.unlocked[req.From]
	w.mu.Unlock()
	if !unlocked {
		return common.Hash{}, apierrors.NewUserRejectedError(fmt.Sprintf("account %s is locked", req.From.Hex()))
	}
	if w.backend == nil {
		return common.Hash{}, apierrors.NewCallFailedError("eth_sendRawTransaction", fmt.Errorf("no node connection"))
	}

	chainID, err := w.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, apierrors.NewCallFailedError("eth_chainId", err)
	}
	nonce, err := w.backend.PendingNonceAt(ctx, req.From)
	if err != nil {
		return common.Hash{}, apierrors.NewCallFailedError("eth_getTransactionCount", err)
	}
	tip, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, apierrors.NewCallFailedError("eth_maxPriorityFeePerGas", err)
	}
	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, apierrors.NewCallFailedError("eth_getBlockByNumber", err)
	}

	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := req.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       req.GasLimit,
		To:        &to,
		Data:      req.Data,
	})

	signed, err := w.ks.SignTx(accounts.Account{Address: req.From}, tx, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, apierrors.NewCallFailedError("eth_sendRawTransaction", err)
	}
	return signed.Hash(), nil
}

// Close locks every account unlocked in this session
func (w *KeystoreWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for addr := range w.unlocked {
		if err := w.ks.Lock(addr); err != nil {
			w.logger.WithError(err).WithField("account", addr.Hex()).Warn("Failed to lock account")
		}
	}
	w.unlocked = make(map[common.Address]bool)
}

// TerminalPassphrase reads a passphrase from the terminal without echo
func TerminalPassphrase(account common.Address) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Passphrase for %s (empty to cancel): ", account.Hex())
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(pass), nil
}
