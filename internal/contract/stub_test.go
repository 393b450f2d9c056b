package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/require"

	"github.com/diogo/waveportal/internal/models"
	"github.com/diogo/waveportal/internal/wallet"
)

var testContract = common.HexToAddress(models.DefaultContractAddress)

// stubChain is a node backend running an in-memory WavePortal contract
type stubChain struct {
	t   *testing.T
	abi abi.ABI

	mu           sync.Mutex
	waves        []waveTuple
	receipts     map[common.Hash]*types.Receipt
	polls        map[common.Hash]int
	notMinedFor  int
	revert       bool
	callErr      error
	head         uint64
	logs         []types.Log
	now          int64
	subscribeErr error
	dropErr      error
	subCh        chan<- types.Log
	subscribed   chan struct{}
}

func newStubChain(t *testing.T) *stubChain {
	return &stubChain{
		t:          t,
		abi:        DefaultABI(),
		receipts:   make(map[common.Hash]*types.Receipt),
		polls:      make(map[common.Hash]int),
		head:       5,
		now:        1690000000,
		subscribed: make(chan struct{}, 1),
	}
}

func (s *stubChain) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (s *stubChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.callErr != nil {
		return nil, s.callErr
	}
	if call.To == nil || *call.To != testContract {
		return nil, fmt.Errorf("call to unexpected address")
	}
	method, err := s.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case models.MethodGetTotalWaves:
		return method.Outputs.Pack(big.NewInt(int64(len(s.waves))))
	case models.MethodGetAllWaves:
		return method.Outputs.Pack(s.waves)
	default:
		return nil, fmt.Errorf("%s is not a view method", method.Name)
	}
}

func (s *stubChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Log
	for _, lg := range s.logs {
		if q.FromBlock != nil && lg.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && lg.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		out = append(out, lg)
	}
	return out, nil
}

func (s *stubChain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.subCh = ch
	select {
	case s.subscribed <- struct{}{}:
	default:
	}
	dropErr := s.dropErr
	return event.NewSubscription(func(quit <-chan struct{}) error {
		if dropErr != nil {
			return dropErr
		}
		<-quit
		return nil
	}), nil
}

func (s *stubChain) BlockNumber(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, nil
}

func (s *stubChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.polls[hash]++
	receipt, ok := s.receipts[hash]
	if !ok || s.polls[hash] <= s.notMinedFor {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// submit executes a wave call the way the contract would and mines it
func (s *stubChain) submit(req wallet.TxRequest) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	method, err := s.abi.MethodById(req.Data[:4])
	if err != nil {
		return common.Hash{}, err
	}
	if method.Name != models.MethodWave {
		return common.Hash{}, fmt.Errorf("unexpected method %s", method.Name)
	}
	args, err := method.Inputs.Unpack(req.Data[4:])
	if err != nil {
		return common.Hash{}, err
	}
	message := args[0].(string)

	s.head++
	hash := common.BigToHash(new(big.Int).SetUint64(s.head))
	status := types.ReceiptStatusSuccessful
	if s.revert {
		status = types.ReceiptStatusFailed
	} else {
		s.waves = append(s.waves, waveTuple{Waver: req.From, Message: message, Timestamp: big.NewInt(s.now)})
		s.logs = append(s.logs, s.waveLog(req.From, s.now, message, s.head))
	}
	s.receipts[hash] = &types.Receipt{
		Status:      status,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(s.head),
	}
	return hash, nil
}

// addLog records a NewWave log in a new block
func (s *stubChain) addLog(from common.Address, ts int64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head++
	s.logs = append(s.logs, s.waveLog(from, ts, message, s.head))
}

func (s *stubChain) waveLog(from common.Address, ts int64, message string, block uint64) types.Log {
	ev := s.abi.Events[models.EventNewWave]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(ts), message)
	require.NoError(s.t, err)
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(from.Bytes())},
		Data:        data,
		BlockNumber: block,
	}
}

// push delivers a log through the active push subscription
func (s *stubChain) push(lg types.Log) {
	s.mu.Lock()
	ch := s.subCh
	s.mu.Unlock()
	ch <- lg
}

// stubWallet signs by submitting straight to the stub chain
type stubWallet struct {
	chain   *stubChain
	account common.Address
	err     error

	mu   sync.Mutex
	last wallet.TxRequest
}

func (w *stubWallet) Detect(ctx context.Context) bool { return true }

func (w *stubWallet) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{w.account}, nil
}

func (w *stubWallet) RequestAccounts(ctx context.Context) (common.Address, error) {
	return w.account, nil
}

func (w *stubWallet) NetworkVersion(ctx context.Context) (string, error) {
	return models.NetworkRinkeby, nil
}

func (w *stubWallet) SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	w.mu.Lock()
	w.last = req
	w.mu.Unlock()
	if w.err != nil {
		return common.Hash{}, w.err
	}
	return w.chain.submit(req)
}

func (w *stubWallet) Close() {}
