package wallet

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MockWallet is a scriptable Wallet for tests
type MockWallet struct {
	// Mock return values
	Present        bool
	AccountsVal    []common.Address
	AccountsErr    error
	RequestVal     common.Address
	RequestErr     error
	NetworkVal     string
	NetworkErr     error
	SendHash       common.Hash
	SendErr        error
	TerminalPrompt bool

	// Call counters/recorders
	mu           sync.Mutex
	RequestCalls int
	NetworkCalls int
	SendCalls    int
	LastTx       TxRequest
	CloseCalled  bool
}

// Ensure MockWallet implements Wallet
var _ Wallet = (*MockWallet)(nil)

func (m *MockWallet) Detect(ctx context.Context) bool {
	return m.Present
}

func (m *MockWallet) Accounts(ctx context.Context) ([]common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AccountsVal, m.AccountsErr
}

func (m *MockWallet) RequestAccounts(ctx context.Context) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCalls++
	if m.RequestErr == nil {
		m.AccountsVal = []common.Address{m.RequestVal}
	}
	return m.RequestVal, m.RequestErr
}

func (m *MockWallet) NetworkVersion(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NetworkCalls++
	return m.NetworkVal, m.NetworkErr
}

func (m *MockWallet) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCalls++
	m.LastTx = req
	return m.SendHash, m.SendErr
}

func (m *MockWallet) PromptsOnTerminal() bool {
	return m.TerminalPrompt
}

func (m *MockWallet) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
}

// Requests returns how often RequestAccounts was called
func (m *MockWallet) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCalls
}

// Sends returns how often SendTransaction was called
func (m *MockWallet) Sends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SendCalls
}
