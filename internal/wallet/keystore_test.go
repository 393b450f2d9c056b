package wallet

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/waveportal/internal/errors"
	"github.com/diogo/waveportal/internal/logging"
)

type fakeBackend struct {
	chainID *big.Int
	sent    *types.Transaction
	sendErr error
}

func (b *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) { return b.chainID, nil }
func (b *fakeBackend) NetworkID(ctx context.Context) (*big.Int, error) {
	return b.chainID, nil
}
func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}
func (b *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2), nil
}
func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(10)}, nil
}
func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.sent = tx
	return b.sendErr
}

func newTestKeystore(t *testing.T, passphrase string, backend ChainBackend) (*KeystoreWallet, common.Address) {
	t.Helper()

	w := NewKeystoreWallet(t.TempDir(), backend,
		WithScrypt(keystore.LightScryptN, keystore.LightScryptP),
		WithPassphraseFunc(func(common.Address) (string, error) { return passphrase, nil }),
		WithLogger(logging.Discard()),
	)
	acc, err := w.KeyStore().NewAccount("secret")
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w, acc.Address
}

func TestKeystoreWallet_DetectEmpty(t *testing.T) {
	w := NewKeystoreWallet(t.TempDir(), nil, WithScrypt(keystore.LightScryptN, keystore.LightScryptP))
	assert.False(t, w.Detect(context.Background()))

	_, err := w.RequestAccounts(context.Background())
	assert.True(t, apierrors.IsWalletMissing(err))
}

func TestKeystoreWallet_DetectMissingDir(t *testing.T) {
	w := NewKeystoreWallet(filepath.Join(t.TempDir(), "nope"), nil, WithScrypt(keystore.LightScryptN, keystore.LightScryptP))
	assert.False(t, w.Detect(context.Background()))
}

func TestKeystoreWallet_RequestAccounts(t *testing.T) {
	w, addr := newTestKeystore(t, "secret", nil)
	assert.True(t, w.Detect(context.Background()))
	assert.False(t, w.PromptsOnTerminal())

	accounts, err := w.Accounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	got, err := w.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	accounts, err = w.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accounts)
}

func TestKeystoreWallet_RequestAccountsRejected(t *testing.T) {
	tests := []struct {
		name   string
		prompt PassphraseFunc
	}{
		{"empty passphrase", func(common.Address) (string, error) { return "", nil }},
		{"wrong passphrase", func(common.Address) (string, error) { return "guess", nil }},
		{"prompt error", func(common.Address) (string, error) { return "", errors.New("interrupted") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewKeystoreWallet(t.TempDir(), nil,
				WithScrypt(keystore.LightScryptN, keystore.LightScryptP),
				WithPassphraseFunc(tt.prompt),
				WithLogger(logging.Discard()),
			)
			_, err := w.KeyStore().NewAccount("secret")
			require.NoError(t, err)

			_, err = w.RequestAccounts(context.Background())
			require.Error(t, err)
			assert.True(t, apierrors.IsUserRejected(err))
		})
	}
}

func TestKeystoreWallet_PreferredAccountMissing(t *testing.T) {
	w := NewKeystoreWallet(t.TempDir(), nil,
		WithScrypt(keystore.LightScryptN, keystore.LightScryptP),
		WithAccount("0x0000000000000000000000000000000000000001"),
	)
	_, err := w.KeyStore().NewAccount("secret")
	require.NoError(t, err)

	_, err = w.RequestAccounts(context.Background())
	assert.True(t, apierrors.IsWalletMissing(err))
}

func TestKeystoreWallet_NetworkVersion(t *testing.T) {
	w, _ := newTestKeystore(t, "secret", &fakeBackend{chainID: big.NewInt(4)})

	version, err := w.NetworkVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4", version)

	noNode := NewKeystoreWallet(t.TempDir(), nil)
	_, err = noNode.NetworkVersion(context.Background())
	assert.True(t, apierrors.IsCallFailed(err))
}

func TestKeystoreWallet_SendTransaction(t *testing.T) {
	backend := &fakeBackend{chainID: big.NewInt(4)}
	w, addr := newTestKeystore(t, "secret", backend)

	to := common.HexToAddress("0x3e80F076a2374fD26b240cf65F73Ed3E5329d6ED")
	req := TxRequest{From: addr, To: to, Data: []byte{1, 2, 3}, GasLimit: 300000}

	_, err := w.SendTransaction(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apierrors.IsUserRejected(err), "locked account must not sign")

	_, err = w.RequestAccounts(context.Background())
	require.NoError(t, err)

	hash, err := w.SendTransaction(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, backend.sent)

	tx := backend.sent
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(300000), tx.Gas())
	assert.Equal(t, &to, tx.To())
	assert.Equal(t, []byte{1, 2, 3}, tx.Data())
	assert.Equal(t, big.NewInt(22), tx.GasFeeCap())
	assert.Equal(t, big.NewInt(2), tx.GasTipCap())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(4)), tx)
	require.NoError(t, err)
	assert.Equal(t, addr, sender)
}

func TestKeystoreWallet_SendTransactionBroadcastFails(t *testing.T) {
	backend := &fakeBackend{chainID: big.NewInt(4), sendErr: errors.New("nonce too low")}
	w, addr := newTestKeystore(t, "secret", backend)

	_, err := w.RequestAccounts(context.Background())
	require.NoError(t, err)

	_, err = w.SendTransaction(context.Background(), TxRequest{From: addr, GasLimit: 21000})
	require.Error(t, err)
	assert.True(t, apierrors.IsCallFailed(err))
}

func TestKeystoreWallet_CloseLocks(t *testing.T) {
	w, addr := newTestKeystore(t, "secret", nil)

	_, err := w.RequestAccounts(context.Background())
	require.NoError(t, err)

	w.Close()
	accounts, err := w.Accounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.NotContains(t, accounts, addr)
}
