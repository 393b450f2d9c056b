package contract

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/wallet"
)

// ErrNodeClosed is returned by calls made after Close
var ErrNodeClosed = errors.New("node connection closed")

// Node is a node connection dialed on first use. A failed dial is returned
// to the caller and retried on the next call, so an unreachable node is
// reported by the operation that needed it.
type Node struct {
	url  string
	dial func(ctx context.Context, url string) (*ethclient.Client, error)

	mu     sync.Mutex
	client *ethclient.Client
	closed bool
}

// Ensure Node serves the contract and the keystore wallet
var (
	_ Backend             = (*Node)(nil)
	_ wallet.ChainBackend = (*Node)(nil)
)

// NewNode returns a Node for url without connecting
func NewNode(url string) *Node {
	return &Node{url: url, dial: ethclient.DialContext}
}

// URL returns the endpoint
func (n *Node) URL() string {
	return n.url
}

// Connected reports whether a connection is open
func (n *Node) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.client != nil
}

func (n *Node) conn(ctx context.Context) (*ethclient.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, ErrNodeClosed
	}
	if n.client != nil {
		return n.client, nil
	}
	client, err := n.dial(ctx, n.url)
	if err != nil {
		return nil, apierrors.NewCallFailedError("dial", err)
	}
	n.client = client
	return client, nil
}

// Close releases the connection. Later calls fail with ErrNodeClosed.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	if n.client != nil {
		n.client.Close()
		n.client = nil
	}
}

func (n *Node) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.CodeAt(ctx, account, blockNumber)
}

func (n *Node) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.CallContract(ctx, call, blockNumber)
}

func (n *Node) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.FilterLogs(ctx, q)
}

func (n *Node) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.SubscribeFilterLogs(ctx, q, ch)
}

func (n *Node) BlockNumber(ctx context.Context) (uint64, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return 0, err
	}
	return c.BlockNumber(ctx)
}

func (n *Node) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.TransactionReceipt(ctx, txHash)
}

func (n *Node) ChainID(ctx context.Context) (*big.Int, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.ChainID(ctx)
}

func (n *Node) NetworkID(ctx context.Context) (*big.Int, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.NetworkID(ctx)
}

func (n *Node) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return 0, err
	}
	return c.PendingNonceAt(ctx, account)
}

func (n *Node) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.SuggestGasTipCap(ctx)
}

func (n *Node) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c, err := n.conn(ctx)
	if err != nil {
		return nil, err
	}
	return c.HeaderByNumber(ctx, number)
}

func (n *Node) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c, err := n.conn(ctx)
	if err != nil {
		return err
	}
	return c.SendTransaction(ctx, tx)
}
