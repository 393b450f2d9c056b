// Package contract is the typed client of the WavePortal contract: reads,
// the wave write and the NewWave event listener.
package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/models"
	"github.com/diogo/waveportal/internal/wallet"
)

// DefaultConfirmInterval is how often WaitForConfirmation polls for the receipt
const DefaultConfirmInterval = time.Second

// Backend is the node access used for reads, receipts and logs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractCaller
	bind.ContractFilterer
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// WavePortal is the contract surface used by the view and the commands
type WavePortal interface {
	// TotalWaves calls getTotalWaves
	TotalWaves(ctx context.Context) (uint64, error)
	// Wave submits wave(message) through the wallet and returns without waiting
	Wave(ctx context.Context, message string) (TxHandle, error)
	// WaitForConfirmation blocks until the transaction is mined
	WaitForConfirmation(ctx context.Context, tx TxHandle) (*types.Receipt, error)
	// AllWaves calls getAllWaves
	AllWaves(ctx context.Context) ([]models.WaveRecord, error)
	// Close releases the client
	Close()
}

// TxHandle identifies a submitted wave transaction
type TxHandle struct {
	Hash common.Hash
}

func (h TxHandle) String() string {
	return h.Hash.Hex()
}

// waveTuple mirrors the WavePortal.Wave struct returned by getAllWaves
type waveTuple struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

// Options configures a Client
type Options struct {
	GasLimit        uint64
	ConfirmInterval time.Duration
	Logger          *logrus.Logger
}

// Client is the WavePortal contract bound to an address, a node backend and
// the wallet account that signs writes
type Client struct {
	address      common.Address
	abi          abi.ABI
	contract     *bind.BoundContract
	backend      Backend
	wallet       wallet.Wallet
	from         common.Address
	gasLimit     uint64
	confirmEvery time.Duration
	logger       *logrus.Logger

	mu      sync.Mutex
	closed  bool
	release func()
}

// Ensure Client implements WavePortal
var _ WavePortal = (*Client)(nil)

// New binds the contract at address. Writes are signed by from through w.
func New(backend Backend, address common.Address, parsed abi.ABI, w wallet.Wallet, from common.Address, opts Options) *Client {
	if opts.GasLimit == 0 {
		opts.GasLimit = models.DefaultGasLimit
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = DefaultConfirmInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Client{
		address:      address,
		abi:          parsed,
		contract:     bind.NewBoundContract(address, parsed, backend, nil, backend),
		backend:      backend,
		wallet:       w,
		from:         from,
		gasLimit:     opts.GasLimit,
		confirmEvery: opts.ConfirmInterval,
		logger:       opts.Logger,
	}
}

// Dial connects to the node at rpcURL and binds the contract.
// The connection is owned by the client and closed with it.
func Dial(ctx context.Context, rpcURL string, address common.Address, parsed abi.ABI, w wallet.Wallet, from common.Address, opts Options) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apierrors.NewCallFailedError("dial", err)
	}
	c := New(backend, address, parsed, w, from, opts)
	c.release = backend.Close
	return c, nil
}

// Address returns the contract address
func (c *Client) Address() common.Address {
	return c.address
}

// From returns the account that signs writes
func (c *Client) From() common.Address {
	return c.from
}

func (c *Client) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.from}
}

func (c *Client) checkOpen(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return apierrors.NewCallFailedError(method, fmt.Errorf("client is closed"))
	}
	return nil
}

// TotalWaves returns the number of waves recorded by the contract
func (c *Client) TotalWaves(ctx context.Context) (uint64, error) {
	if err := c.checkOpen(models.MethodGetTotalWaves); err != nil {
		return 0, err
	}

	var out []interface{}
	if err := c.contract.Call(c.callOpts(ctx), &out, models.MethodGetTotalWaves); err != nil {
		return 0, apierrors.NewCallFailedError(models.MethodGetTotalWaves, err)
	}
	if len(out) == 0 {
		return 0, apierrors.NewCallFailedError(models.MethodGetTotalWaves, fmt.Errorf("empty result"))
	}

	total, ok := out[0].(*big.Int)
	if !ok || total == nil || !total.IsUint64() {
		return 0, apierrors.NewCallFailedError(models.MethodGetTotalWaves, fmt.Errorf("unexpected result %v", out[0]))
	}

	c.logger.WithField("count", total.Uint64()).Debug("Retrieved total wave count")
	return total.Uint64(), nil
}

// AllWaves returns every wave recorded by the contract, oldest first
func (c *Client) AllWaves(ctx context.Context) ([]models.WaveRecord, error) {
	if err := c.checkOpen(models.MethodGetAllWaves); err != nil {
		return nil, err
	}

	var out []interface{}
	if err := c.contract.Call(c.callOpts(ctx), &out, models.MethodGetAllWaves); err != nil {
		return nil, apierrors.NewCallFailedError(models.MethodGetAllWaves, err)
	}
	if len(out) == 0 {
		return nil, apierrors.NewCallFailedError(models.MethodGetAllWaves, fmt.Errorf("empty result"))
	}

	tuples, err := convertWaves(out[0])
	if err != nil {
		return nil, apierrors.NewCallFailedError(models.MethodGetAllWaves, err)
	}

	records := make([]models.WaveRecord, 0, len(tuples))
	for _, t := range tuples {
		if !models.TimestampInRange(t.Timestamp) {
			c.logger.WithFields(logrus.Fields{
				"from":      t.Waver.Hex(),
				"timestamp": t.Timestamp,
			}).Warn("Wave timestamp out of range, clamped")
		}
		records = append(records, models.NewWaveRecord(t.Waver.Hex(), t.Timestamp, t.Message))
	}
	return records, nil
}

// convertWaves converts the anonymous tuple slice produced by the ABI decoder
func convertWaves(v interface{}) (tuples []waveTuple, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected getAllWaves result: %v", r)
		}
	}()
	return *abi.ConvertType(v, new([]waveTuple)).(*[]waveTuple), nil
}

// Wave submits wave(message) with the configured gas limit
func (c *Client) Wave(ctx context.Context, message string) (TxHandle, error) {
	if err := c.checkOpen(models.MethodWave); err != nil {
		return TxHandle{}, err
	}

	data, err := c.abi.Pack(models.MethodWave, message)
	if err != nil {
		return TxHandle{}, fmt.Errorf("failed to pack wave call: %w", err)
	}

	hash, err := c.wallet.SendTransaction(ctx, wallet.TxRequest{
		From:     c.from,
		To:       c.address,
		Data:     data,
		GasLimit: c.gasLimit,
	})
	if err != nil {
		return TxHandle{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"tx":   hash.Hex(),
		"from": c.from.Hex(),
	}).Info("Mining wave")
	return TxHandle{Hash: hash}, nil
}

// WaitForConfirmation polls for the receipt of tx until it is mined or ctx ends.
// A reverted transaction fails with a TransactionFailedError.
func (c *Client) WaitForConfirmation(ctx context.Context, tx TxHandle) (*types.Receipt, error) {
	ticker := time.NewTicker(c.confirmEvery)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, tx.Hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, apierrors.NewTransactionFailedError(tx.Hash.Hex(), "reverted")
			}
			c.logger.WithFields(logrus.Fields{
				"tx":    tx.Hash.Hex(),
				"block": receipt.BlockNumber,
			}).Info("Wave mined")
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			c.logger.WithField("tx", tx.Hash.Hex()).Trace("Transaction not yet mined")
		default:
			return nil, apierrors.NewCallFailedError("eth_getTransactionReceipt", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the client and its owned connection. Further calls fail.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.release != nil {
		c.release()
	}
}
