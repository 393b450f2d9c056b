package contract

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/models"
)

// MockWavePortal is an in-memory WavePortal for tests. Wave records the
// message immediately and emits it through Events when set.
type MockWavePortal struct {
	// Mock return values
	From        string
	Now         func() time.Time
	TotalErr    error
	WaveErr     error
	ConfirmErr  error
	AllWavesErr error
	Events      *MockSubscriber

	// Call counters/recorders
	mu          sync.Mutex
	waves       []models.WaveRecord
	pending     map[common.Hash]models.WaveRecord
	WaveCalls   int
	LastMessage string
	CloseCalled bool
}

// Ensure MockWavePortal implements WavePortal
var _ WavePortal = (*MockWavePortal)(nil)

// NewMockWavePortal returns a mock preloaded with history
func NewMockWavePortal(from string, history ...models.WaveRecord) *MockWavePortal {
	return &MockWavePortal{
		From:    from,
		waves:   append([]models.WaveRecord(nil), history...),
		pending: make(map[common.Hash]models.WaveRecord),
	}
}

func (m *MockWavePortal) TotalWaves(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TotalErr != nil {
		return 0, m.TotalErr
	}
	return uint64(len(m.waves)), nil
}

func (m *MockWavePortal) Wave(ctx context.Context, message string) (TxHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WaveCalls++
	m.LastMessage = message
	if m.WaveErr != nil {
		return TxHandle{}, m.WaveErr
	}
	if m.pending == nil {
		m.pending = make(map[common.Hash]models.WaveRecord)
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	record := models.NewWaveRecord(m.From, big.NewInt(now.Unix()), message)
	hash := common.BigToHash(big.NewInt(int64(m.WaveCalls)))
	m.pending[hash] = record
	return TxHandle{Hash: hash}, nil
}

func (m *MockWavePortal) WaitForConfirmation(ctx context.Context, tx TxHandle) (*types.Receipt, error) {
	m.mu.Lock()
	if m.ConfirmErr != nil {
		m.mu.Unlock()
		return nil, m.ConfirmErr
	}
	record, ok := m.pending[tx.Hash]
	if !ok {
		m.mu.Unlock()
		return nil, apierrors.NewCallFailedError("eth_getTransactionReceipt", fmt.Errorf("unknown transaction %s", tx.Hash.Hex()))
	}
	delete(m.pending, tx.Hash)
	m.waves = append(m.waves, record)
	events := m.Events
	m.mu.Unlock()

	if events != nil {
		events.Emit(record)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash}, nil
}

func (m *MockWavePortal) AllWaves(ctx context.Context) ([]models.WaveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AllWavesErr != nil {
		return nil, m.AllWavesErr
	}
	return append([]models.WaveRecord(nil), m.waves...), nil
}

func (m *MockWavePortal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
}

// Closed reports whether Close was called
func (m *MockWavePortal) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CloseCalled
}

// MockSubscriber is a Subscriber whose events are injected with Emit
type MockSubscriber struct {
	SubscribeErr error

	mu       sync.Mutex
	handlers map[*Subscription]Handler
	Events   []string
}

// Ensure MockSubscriber implements Subscriber
var _ Subscriber = (*MockSubscriber)(nil)

func (m *MockSubscriber) Subscribe(ctx context.Context, event string, handler Handler) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	if event != models.EventNewWave {
		return nil, fmt.Errorf("%w: %s", apierrors.ErrUnknownEvent, event)
	}
	if m.handlers == nil {
		m.handlers = make(map[*Subscription]Handler)
	}

	sub := newSubscription(event, nil)
	sub.cancel = func() { sub.end(nil) }
	m.handlers[sub] = handler
	return sub, nil
}

func (m *MockSubscriber) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	delete(m.handlers, sub)
	m.mu.Unlock()
	sub.Unsubscribe()
}

// Drop ends every live subscription with err, as a lost connection does
func (m *MockSubscriber) Drop(err error) {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.handlers))
	for sub := range m.handlers {
		subs = append(subs, sub)
	}
	m.handlers = make(map[*Subscription]Handler)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.end(apierrors.NewCallFailedError("eth_subscribe", err))
	}
}

// Active returns the number of live subscriptions
func (m *MockSubscriber) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// Emit delivers record to every live subscription
func (m *MockSubscriber) Emit(record models.WaveRecord) {
	m.mu.Lock()
	handlers := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(record)
	}
}
