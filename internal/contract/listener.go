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
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/models"
)

// DefaultPollInterval is the eth_getLogs interval used when the endpoint
// cannot push notifications
const DefaultPollInterval = 4 * time.Second

var errSubscriptionClosed = errors.New("subscription closed by the node")

// Handler receives one record per NewWave event, in delivery order
type Handler func(models.WaveRecord)

// Subscriber is the event surface used by the view and the watch command
type Subscriber interface {
	Subscribe(ctx context.Context, event string, handler Handler) (*Subscription, error)
	Unsubscribe(sub *Subscription)
}

// Subscription is a registered handler. Unsubscribe stops delivery.
type Subscription struct {
	event   string
	polling bool
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	endOnce sync.Once
	err     error
}

func newSubscription(event string, cancel context.CancelFunc) *Subscription {
	return &Subscription{event: event, cancel: cancel, done: make(chan struct{})}
}

// Event returns the subscribed event name
func (s *Subscription) Event() string {
	return s.event
}

// Polling reports whether the subscription fell back to eth_getLogs polling
func (s *Subscription) Polling() bool {
	return s.polling
}

// Done is closed once delivery has stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended delivery. It is nil while the
// subscription runs and after a plain Unsubscribe.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// end records err and closes Done
func (s *Subscription) end(err error) {
	s.endOnce.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Unsubscribe stops delivery and waits for the delivery goroutine to exit.
// It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

// newWaveEvent is the decoded NewWave log
type newWaveEvent struct {
	From      common.Address
	Timestamp *big.Int
	Message   string
}

// Listener delivers NewWave events of one contract
type Listener struct {
	address      common.Address
	abi          abi.ABI
	contract     *bind.BoundContract
	backend      Backend
	pollInterval time.Duration
	logger       *logrus.Logger

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Ensure Listener implements Subscriber
var _ Subscriber = (*Listener)(nil)

// NewListener creates a listener for the contract at address
func NewListener(backend Backend, address common.Address, parsed abi.ABI, pollInterval time.Duration, logger *logrus.Logger) *Listener {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Listener{
		address:      address,
		abi:          parsed,
		contract:     bind.NewBoundContract(address, parsed, backend, nil, backend),
		backend:      backend,
		pollInterval: pollInterval,
		logger:       logger,
		subs:         make(map[*Subscription]struct{}),
	}
}

// Subscribe registers handler for event. Only NewWave is known.
// Push notifications are used when the endpoint supports them, otherwise
// new blocks are polled with eth_getLogs starting at the current head.
func (l *Listener) Subscribe(ctx context.Context, event string, handler Handler) (*Subscription, error) {
	if event != models.EventNewWave {
		return nil, fmt.Errorf("%w: %s", apierrors.ErrUnknownEvent, event)
	}
	if _, ok := l.abi.Events[event]; !ok {
		return nil, fmt.Errorf("%w: %s not in ABI", apierrors.ErrUnknownEvent, event)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(event, cancel)

	logs, watch, err := l.contract.WatchLogs(&bind.WatchOpts{Context: subCtx}, event)
	var head uint64
	switch {
	case err == nil:
	case errors.Is(err, rpc.ErrNotificationsUnsupported):
		head, err = l.backend.BlockNumber(subCtx)
		if err != nil {
			cancel()
			return nil, apierrors.NewCallFailedError("eth_blockNumber", err)
		}
		sub.polling = true
		l.logger.WithField("interval", l.pollInterval).Info("Endpoint cannot push events, polling for logs")
	default:
		cancel()
		return nil, apierrors.NewCallFailedError("eth_subscribe", err)
	}

	// registered before delivery starts; a dropped subscription removes itself
	l.mu.Lock()
	l.subs[sub] = struct{}{}
	l.mu.Unlock()

	if sub.polling {
		go l.poll(subCtx, sub, head+1, handler)
	} else {
		go l.deliverPushed(subCtx, sub, logs, watch, handler)
	}

	l.logger.WithFields(logrus.Fields{
		"event":    event,
		"contract": l.address.Hex(),
	}).Debug("Subscribed")
	return sub, nil
}

// Unsubscribe stops sub. Unknown or already stopped subscriptions are ignored.
func (l *Listener) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	l.forget(sub)
	sub.Unsubscribe()
}

// Active returns the number of running subscriptions
func (l *Listener) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *Listener) forget(sub *Subscription) {
	l.mu.Lock()
	delete(l.subs, sub)
	l.mu.Unlock()
}

// Close stops every subscription
func (l *Listener) Close() {
	l.mu.Lock()
	subs := make([]*Subscription, 0, len(l.subs))
	for sub := range l.subs {
		subs = append(subs, sub)
	}
	l.subs = make(map[*Subscription]struct{})
	l.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// deliverPushed forwards pushed logs until ctx is done or the node drops the
// subscription. A drop ends sub with a CallFailedError.
func (l *Listener) deliverPushed(ctx context.Context, sub *Subscription, logs <-chan types.Log, watch ethereum.Subscription, handler Handler) {
	var endErr error
	defer func() {
		watch.Unsubscribe()
		sub.end(endErr)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-watch.Err():
			if err == nil {
				err = errSubscriptionClosed
			}
			l.logger.WithError(err).Warn("Event subscription ended")
			l.forget(sub)
			sub.cancel()
			endErr = apierrors.NewCallFailedError("eth_subscribe", err)
			return
		case lg := <-logs:
			l.deliver(lg, handler)
		}
	}
}

func (l *Listener) poll(ctx context.Context, sub *Subscription, from uint64, handler Handler) {
	defer sub.end(nil)

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	next := from
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.pollOnce(ctx, next, handler)
			if err != nil {
				if ctx.Err() == nil {
					l.logger.WithError(err).Warn("Failed to poll logs")
				}
				continue
			}
			next = n
		}
	}
}

// pollOnce delivers the logs in [from, head] and returns the next start block
func (l *Listener) pollOnce(ctx context.Context, from uint64, handler Handler) (uint64, error) {
	head, err := l.backend.BlockNumber(ctx)
	if err != nil {
		return from, fmt.Errorf("failed to get current block: %w", err)
	}
	if head < from {
		return from, nil
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{l.address},
		Topics:    [][]common.Hash{{l.abi.Events[models.EventNewWave].ID}},
	}
	logs, err := l.backend.FilterLogs(ctx, query)
	if err != nil {
		return from, fmt.Errorf("failed to filter logs: %w", err)
	}

	for _, lg := range logs {
		if ctx.Err() != nil {
			return from, ctx.Err()
		}
		l.deliver(lg, handler)
	}
	return head + 1, nil
}

func (l *Listener) deliver(lg types.Log, handler Handler) {
	if lg.Removed {
		l.logger.WithField("tx", lg.TxHash.Hex()).Debug("Skipping removed log")
		return
	}
	record, err := l.parse(lg)
	if err != nil {
		l.logger.WithError(err).WithField("tx", lg.TxHash.Hex()).Warn("Failed to decode NewWave log")
		return
	}
	handler(record)
}

// parse decodes a NewWave log into a record
func (l *Listener) parse(lg types.Log) (models.WaveRecord, error) {
	var ev newWaveEvent
	if err := l.contract.UnpackLog(&ev, models.EventNewWave, lg); err != nil {
		return models.WaveRecord{}, err
	}
	if !models.TimestampInRange(ev.Timestamp) {
		l.logger.WithFields(logrus.Fields{
			"tx":        lg.TxHash.Hex(),
			"timestamp": ev.Timestamp,
		}).Warn("NewWave timestamp out of range, clamped")
	}
	return models.NewWaveRecord(ev.From.Hex(), ev.Timestamp, ev.Message), nil
}
