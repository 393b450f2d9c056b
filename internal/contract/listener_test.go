package contract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/logging"
	"github.com/diogo/waveportal/internal/models"
)

func newTestListener(t *testing.T, chain *stubChain) *Listener {
	t.Helper()
	l := NewListener(chain, testContract, DefaultABI(), 5*time.Millisecond, logging.Discard())
	t.Cleanup(l.Close)
	return l
}

func collect(t *testing.T, ch <-chan models.WaveRecord, n int) []models.WaveRecord {
	t.Helper()
	var out []models.WaveRecord
	for len(out) < n {
		select {
		case r := <-ch:
			out = append(out, r)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d of %d records", len(out), n)
		}
	}
	return out
}

func TestListener_UnknownEvent(t *testing.T) {
	l := newTestListener(t, newStubChain(t))

	_, err := l.Subscribe(context.Background(), "Transfer", func(models.WaveRecord) {})
	assert.ErrorIs(t, err, apierrors.ErrUnknownEvent)
}

func TestListener_PushDeliversInOrder(t *testing.T) {
	chain := newStubChain(t)
	l := newTestListener(t, chain)

	ch := make(chan models.WaveRecord, 10)
	sub, err := l.Subscribe(context.Background(), models.EventNewWave, func(r models.WaveRecord) { ch <- r })
	require.NoError(t, err)
	assert.False(t, sub.Polling())
	assert.Equal(t, models.EventNewWave, sub.Event())
	<-chain.subscribed

	def := common.HexToAddress("0xDEF")
	chain.push(chain.waveLog(def, 1690000000, "hi", 6))
	chain.push(chain.waveLog(testAccount, 1690000060, "second", 7))
	chain.push(chain.waveLog(testAccount, 1690000120, "third", 8))

	got := collect(t, ch, 3)
	assert.Equal(t, def.Hex(), got[0].Address)
	assert.Equal(t, "hi", got[0].Message)
	assert.Equal(t, time.Date(2023, 7, 22, 4, 26, 40, 0, time.UTC), got[0].Timestamp)
	assert.Equal(t, "second", got[1].Message)
	assert.Equal(t, "third", got[2].Message)
}

func TestListener_SkipsRemovedAndUndecodableLogs(t *testing.T) {
	chain := newStubChain(t)
	l := newTestListener(t, chain)

	ch := make(chan models.WaveRecord, 10)
	_, err := l.Subscribe(context.Background(), models.EventNewWave, func(r models.WaveRecord) { ch <- r })
	require.NoError(t, err)
	<-chain.subscribed

	removed := chain.waveLog(testAccount, 1, "reorged", 6)
	removed.Removed = true
	chain.push(removed)

	garbage := chain.waveLog(testAccount, 1, "x", 6)
	garbage.Data = []byte{0x01}
	chain.push(garbage)

	chain.push(chain.waveLog(testAccount, 2, "kept", 7))

	got := collect(t, ch, 1)
	assert.Equal(t, "kept", got[0].Message)
}

func TestListener_PollingFallback(t *testing.T) {
	chain := newStubChain(t)
	chain.subscribeErr = rpc.ErrNotificationsUnsupported
	chain.addLog(testAccount, 1, "history")
	l := newTestListener(t, chain)

	ch := make(chan models.WaveRecord, 10)
	sub, err := l.Subscribe(context.Background(), models.EventNewWave, func(r models.WaveRecord) { ch <- r })
	require.NoError(t, err)
	assert.True(t, sub.Polling())

	chain.addLog(testAccount, 1690000000, "one")
	chain.addLog(testAccount, 1690000001, "two")

	got := collect(t, ch, 2)
	assert.Equal(t, "one", got[0].Message)
	assert.Equal(t, "two", got[1].Message)

	chain.addLog(testAccount, 1690000002, "three")
	got = collect(t, ch, 1)
	assert.Equal(t, "three", got[0].Message)

	select {
	case r := <-ch:
		t.Fatalf("unexpected record %q", r.Message)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestListener_Unsubscribe(t *testing.T) {
	chain := newStubChain(t)
	chain.subscribeErr = rpc.ErrNotificationsUnsupported
	l := newTestListener(t, chain)

	ch := make(chan models.WaveRecord, 10)
	sub, err := l.Subscribe(context.Background(), models.EventNewWave, func(r models.WaveRecord) { ch <- r })
	require.NoError(t, err)

	l.Unsubscribe(sub)
	l.Unsubscribe(sub)
	l.Unsubscribe(nil)

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription still running after Unsubscribe")
	}

	chain.addLog(testAccount, 1, "after")
	select {
	case r := <-ch:
		t.Fatalf("record delivered after Unsubscribe: %q", r.Message)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestListener_CloseStopsAll(t *testing.T) {
	chain := newStubChain(t)
	l := NewListener(chain, testContract, DefaultABI(), 0, nil)

	sub, err := l.Subscribe(context.Background(), models.EventNewWave, func(models.WaveRecord) {})
	require.NoError(t, err)

	l.Close()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription still running after Close")
	}
}

func TestListener_ContextCancelStopsDelivery(t *testing.T) {
	chain := newStubChain(t)
	l := newTestListener(t, chain)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := l.Subscribe(ctx, models.EventNewWave, func(models.WaveRecord) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription still running after cancel")
	}
}

func TestListener_DroppedSubscriptionEndsWithError(t *testing.T) {
	chain := newStubChain(t)
	chain.dropErr = errors.New("websocket: close 1006")
	l := newTestListener(t, chain)

	sub, err := l.Subscribe(context.Background(), models.EventNewWave, func(models.WaveRecord) {})
	require.NoError(t, err)
	assert.False(t, sub.Polling())

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("dropped subscription still running")
	}
	require.Error(t, sub.Err())
	assert.True(t, apierrors.IsCallFailed(sub.Err()))
	assert.Contains(t, sub.Err().Error(), "close 1006")
	assert.Zero(t, l.Active(), "dropped subscription must be released")

	// Unsubscribe after a drop returns at once
	l.Unsubscribe(sub)
}

func TestListener_UnsubscribeLeavesNoError(t *testing.T) {
	chain := newStubChain(t)
	l := newTestListener(t, chain)

	sub, err := l.Subscribe(context.Background(), models.EventNewWave, func(models.WaveRecord) {})
	require.NoError(t, err)
	assert.Nil(t, sub.Err())
	assert.Equal(t, 1, l.Active())

	l.Unsubscribe(sub)
	assert.NoError(t, sub.Err())
	assert.Zero(t, l.Active())
}
