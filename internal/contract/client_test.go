package contract

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/logging"
	"github.com/diogo/waveportal/internal/models"
)

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000000AB")

func newTestClient(t *testing.T) (*Client, *stubChain, *stubWallet) {
	t.Helper()
	chain := newStubChain(t)
	w := &stubWallet{chain: chain, account: testAccount}
	c := New(chain, testContract, DefaultABI(), w, testAccount, Options{
		ConfirmInterval: time.Millisecond,
		Logger:          logging.Discard(),
	})
	t.Cleanup(c.Close)
	return c, chain, w
}

func TestParseABI(t *testing.T) {
	parsed, err := ParseABI(wavePortalABI)
	require.NoError(t, err)
	assert.Contains(t, parsed.Methods, models.MethodWave)
	assert.Contains(t, parsed.Events, models.EventNewWave)

	artifact := []byte(`{"contractName":"WavePortal","abi":` + string(wavePortalABI) + `,"bytecode":"0x"}`)
	_, err = ParseABI(artifact)
	assert.NoError(t, err)
}

func TestParseABI_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{abi`},
		{"artifact without abi", `{"contractName":"WavePortal"}`},
		{"missing method", `[{"inputs":[],"name":"getTotalWaves","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`},
		{"empty", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseABI([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadABI(t *testing.T) {
	def, err := LoadABI("")
	require.NoError(t, err)
	assert.Len(t, def.Methods, 3)

	path := filepath.Join(t.TempDir(), "WavePortal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"abi":`+string(wavePortalABI)+`}`), 0o600))
	loaded, err := LoadABI(path)
	require.NoError(t, err)
	assert.Equal(t, def.Events[models.EventNewWave].ID, loaded.Events[models.EventNewWave].ID)

	_, err = LoadABI(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestClient_TotalWavesIncrementsAfterConfirmedWave(t *testing.T) {
	c, chain, _ := newTestClient(t)
	chain.notMinedFor = 2
	ctx := context.Background()

	before, err := c.TotalWaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), before)

	tx, err := c.Wave(ctx, "hello")
	require.NoError(t, err)

	receipt, err := c.WaitForConfirmation(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash, receipt.TxHash)

	after, err := c.TotalWaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func TestClient_WaveRequest(t *testing.T) {
	c, _, w := newTestClient(t)

	_, err := c.Wave(context.Background(), "gm")
	require.NoError(t, err)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Equal(t, testAccount, w.last.From)
	assert.Equal(t, testContract, w.last.To)
	assert.Equal(t, uint64(300000), w.last.GasLimit)

	expected, err := DefaultABI().Pack(models.MethodWave, "gm")
	require.NoError(t, err)
	assert.Equal(t, expected, w.last.Data)
}

func TestClient_WaveCustomGasLimit(t *testing.T) {
	chain := newStubChain(t)
	w := &stubWallet{chain: chain, account: testAccount}
	c := New(chain, testContract, DefaultABI(), w, testAccount, Options{GasLimit: 500000, Logger: logging.Discard()})

	_, err := c.Wave(context.Background(), "gm")
	require.NoError(t, err)
	assert.Equal(t, uint64(500000), w.last.GasLimit)
}

func TestClient_WaveRejected(t *testing.T) {
	c, _, w := newTestClient(t)
	w.err = apierrors.NewUserRejectedError("denied")

	_, err := c.Wave(context.Background(), "gm")
	require.Error(t, err)
	assert.True(t, apierrors.IsUserRejected(err))
}

func TestClient_AllWaves(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	records, err := c.AllWaves(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, msg := range []string{"first", "second"} {
		tx, err := c.Wave(ctx, msg)
		require.NoError(t, err)
		_, err = c.WaitForConfirmation(ctx, tx)
		require.NoError(t, err)
	}

	records, err = c.AllWaves(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].Message)
	assert.Equal(t, "second", records[1].Message)
	assert.Equal(t, testAccount.Hex(), records[0].Address)
	assert.Equal(t, time.Date(2023, 7, 22, 4, 26, 40, 0, time.UTC), records[0].Timestamp)
}

func TestClient_AllWavesClampsTimestamp(t *testing.T) {
	c, chain, _ := newTestClient(t)

	chain.mu.Lock()
	chain.waves = append(chain.waves, waveTuple{
		Waver:     testAccount,
		Message:   "far future",
		Timestamp: new(big.Int).Lsh(big.NewInt(1), 100),
	})
	chain.mu.Unlock()

	records, err := c.AllWaves(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.MaxTimestamp, records[0].Timestamp)
	assert.Equal(t, "far future", records[0].Message)
}

func TestClient_WaitForConfirmationReverted(t *testing.T) {
	c, chain, _ := newTestClient(t)
	chain.revert = true
	ctx := context.Background()

	tx, err := c.Wave(ctx, "too soon")
	require.NoError(t, err)

	_, err = c.WaitForConfirmation(ctx, tx)
	require.Error(t, err)
	assert.True(t, apierrors.IsTransactionFailed(err))

	total, err := c.TotalWaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
}

func TestClient_WaitForConfirmationCancelled(t *testing.T) {
	c, _, _ := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.WaitForConfirmation(ctx, TxHandle{Hash: common.HexToHash("0x1234")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CallFailed(t *testing.T) {
	c, chain, _ := newTestClient(t)
	chain.callErr = errors.New("connection refused")

	_, err := c.TotalWaves(context.Background())
	assert.True(t, apierrors.IsCallFailed(err))

	_, err = c.AllWaves(context.Background())
	assert.True(t, apierrors.IsCallFailed(err))
}

func TestClient_Closed(t *testing.T) {
	c, _, _ := newTestClient(t)
	c.Close()
	c.Close()

	_, err := c.TotalWaves(context.Background())
	assert.True(t, apierrors.IsCallFailed(err))

	_, err = c.Wave(context.Background(), "late")
	assert.True(t, apierrors.IsCallFailed(err))
}

func TestTxHandle_String(t *testing.T) {
	h := TxHandle{Hash: common.HexToHash("0x01")}
	assert.Equal(t, h.Hash.Hex(), h.String())
}

func TestMockWavePortal(t *testing.T) {
	events := &MockSubscriber{}
	var got []models.WaveRecord
	_, err := events.Subscribe(context.Background(), models.EventNewWave, func(r models.WaveRecord) {
		got = append(got, r)
	})
	require.NoError(t, err)

	m := NewMockWavePortal("0xABC")
	m.Events = events
	m.Now = func() time.Time { return time.Unix(1690000000, 0) }
	ctx := context.Background()

	tx, err := m.Wave(ctx, "hi")
	require.NoError(t, err)
	total, _ := m.TotalWaves(ctx)
	assert.Equal(t, uint64(0), total)

	_, err = m.WaitForConfirmation(ctx, tx)
	require.NoError(t, err)
	total, _ = m.TotalWaves(ctx)
	assert.Equal(t, uint64(1), total)

	require.Len(t, got, 1)
	assert.Equal(t, "0xABC", got[0].Address)
	assert.Equal(t, "hi", got[0].Message)

	_, err = m.WaitForConfirmation(ctx, tx)
	assert.True(t, apierrors.IsCallFailed(err))
}
