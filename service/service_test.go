package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/dal"
	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testAddress = "kaspa:qz7ulu4c25dh7fzec9zjyrmlhnkzrg4wmf89q7gzr3gfrsj3uz6xjceef60sd"

type fakeWallet struct {
	password string
	address  string
	balance  uint64
}

type fakeBackend struct {
	mtx     sync.Mutex
	wallets map[string]*fakeWallet
	txCount int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{wallets: make(map[string]*fakeWallet)}
}

func (f *fakeBackend) GetWallet(ctx context.Context, walletUUID, password string) (*model.WalletInfo, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	w, ok := f.wallets[walletUUID]
	if !ok {
		return nil, errcode.ErrWalletNotFound
	}
	if w.password != password {
		return nil, errcode.ErrWalletPasswordIncorrect
	}
	return &model.WalletInfo{UUID: walletUUID, Address: w.address, Balance: w.balance}, nil
}

func (f *fakeBackend) CreateWallet(ctx context.Context, password, walletUUID string) (*model.WalletInfo, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if _, ok := f.wallets[walletUUID]; ok {
		return nil, errcode.ErrWalletCreation
	}
	w := &fakeWallet{password: password, address: "kaspa:" + walletUUID[:8]}
	f.wallets[walletUUID] = w
	return &model.WalletInfo{UUID: walletUUID, Address: w.address}, nil
}

func (f *fakeBackend) CreateTransaction(ctx context.Context, walletUUID, password, toAddr string, amount uint64,
	inclusiveFee bool) (*model.Transaction, error) {

	f.mtx.Lock()
	defer f.mtx.Unlock()
	w, ok := f.wallets[walletUUID]
	if !ok {
		return nil, errcode.ErrWalletNotFound
	}
	if w.password != password {
		return nil, errcode.ErrWalletPasswordIncorrect
	}
	if amount > w.balance {
		return nil, errcode.ErrWalletInsufficientBalance
	}
	w.balance -= amount
	for _, other := range f.wallets {
		if other.address == toAddr {
			other.balance += amount
		}
	}
	f.txCount++
	return &model.Transaction{TxIDs: []string{"tx" + string(rune('0'+f.txCount))}, Amount: amount, ToAddr: toAddr}, nil
}

func (f *fakeBackend) fund(walletUUID string, amount uint64) {
	f.mtx.Lock()
	f.wallets[walletUUID].balance += amount
	f.mtx.Unlock()
}

type fixture struct {
	db      *gorm.DB
	backend *fakeBackend
	wallets *WalletServiceImpl
	tips    *TipServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dal.OpenMemoryDB()
	require.NoError(t, err)
	backend := newFakeBackend()
	wallets, err := NewWalletService(backend, uuid.NameSpaceOID, "entropy")
	require.NoError(t, err)
	return &fixture{
		db:      db,
		backend: backend,
		wallets: wallets,
		tips:    NewTipService(wallets, &chaincfg.MainNetParams),
	}
}

func TestNewWalletServiceValidation(t *testing.T) {
	_, err := NewWalletService(nil, uuid.NameSpaceOID, "e")
	assert.ErrorIs(t, err, errcode.ErrConfiguration)
	_, err = NewWalletService(newFakeBackend(), uuid.NameSpaceOID, "")
	assert.ErrorIs(t, err, errcode.ErrConfiguration)
}

func TestEnsureWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, created, err := f.wallets.EnsureWallet(ctx, f.db, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	walletUUID, _ := f.wallets.Credentials("alice")
	assert.Equal(t, walletUUID, info.UUID)

	again, created, err := f.wallets.EnsureWallet(ctx, f.db, "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, info.Address, again.Address)

	_, _, err = f.wallets.EnsureWallet(ctx, f.db, "")
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
}

func TestEnsureWalletRecoversRemoteWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	walletUUID, password := f.wallets.Credentials("bob")
	_, err := f.backend.CreateWallet(ctx, password, walletUUID)
	require.NoError(t, err)
	f.backend.fund(walletUUID, 42)

	info, created, err := f.wallets.EnsureWallet(ctx, f.db, "bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint64(42), info.Balance)

	balance, err := f.wallets.Balance(ctx, f.db, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), balance.Balance)
}

func TestBalanceWithoutWallet(t *testing.T) {
	f := newFixture(t)
	_, err := f.wallets.Balance(context.Background(), f.db, "nobody")
	assert.ErrorIs(t, err, errcode.ErrWalletNotFound)
}

func TestTip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tips.Tip(ctx, f.db, "m1", "alice", "bob", 1)
	assert.ErrorIs(t, err, errcode.ErrWalletNotFound)

	_, _, err = f.wallets.EnsureWallet(ctx, f.db, "alice")
	require.NoError(t, err)
	aliceUUID, _ := f.wallets.Credentials("alice")
	f.backend.fund(aliceUUID, 10*100_000_000)

	receipt, err := f.tips.Tip(ctx, f.db, "m2", "alice", "bob", 2.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(250_000_000), receipt.Amount)
	assert.Equal(t, "bob", receipt.ToUser)
	assert.Len(t, receipt.TxIDs, 1)

	bob, err := f.wallets.Balance(ctx, f.db, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(250_000_000), bob.Balance)

	// A replayed chat message returns the same receipt without sending twice.
	replayed, err := f.tips.Tip(ctx, f.db, "m2", "alice", "bob", 2.5)
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, replayed.ID)
	assert.Equal(t, 1, f.backend.txCount)

	meta, err := GetMetaInfoService().Get(ctx, f.db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.TipCount)
	assert.Equal(t, uint64(250_000_000), meta.TippedAmount)
}

func TestTipValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tips.Tip(ctx, f.db, "", "alice", "alice", 1)
	assert.ErrorIs(t, err, errcode.ErrSelfTip)

	for _, amount := range []float64{0, -1, 1e-9} {
		_, err = f.tips.Tip(ctx, f.db, "", "alice", "bob", amount)
		assert.ErrorIs(t, err, errcode.ErrInvalidAmount)
	}

	_, err = f.tips.Tip(ctx, f.db, "", "", "bob", 1)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
}

func TestTipInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.wallets.EnsureWallet(ctx, f.db, "alice")
	require.NoError(t, err)

	_, err = f.tips.Tip(ctx, f.db, "m1", "alice", "bob", 1)
	assert.ErrorIs(t, err, errcode.ErrWalletInsufficientBalance)

	failed, err := f.tips.tipInfoDao.GetByStatus(ctx, f.db, do.TipStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "insufficient")

	// The same message is not retried.
	_, err = f.tips.Tip(ctx, f.db, "m1", "alice", "bob", 1)
	assert.ErrorIs(t, err, errcode.ErrDuplicateTip)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tips.Withdraw(ctx, f.db, "w1", "alice", "kaspa:nope", 1)
	assert.ErrorIs(t, err, errcode.ErrInvalidAddress)

	_, _, err = f.wallets.EnsureWallet(ctx, f.db, "alice")
	require.NoError(t, err)
	aliceUUID, _ := f.wallets.Credentials("alice")
	f.backend.fund(aliceUUID, 100_000_000)

	receipt, err := f.tips.Withdraw(ctx, f.db, "w1", "alice", testAddress, 0.4)
	require.NoError(t, err)
	assert.True(t, receipt.Withdrawal)
	assert.Equal(t, testAddress, receipt.ToAddress)
	assert.Equal(t, uint64(40_000_000), receipt.Amount)

	receipts, count, err := f.tips.History(ctx, f.db, "alice", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, receipts, 1)
	assert.Equal(t, receipt.ID, receipts[0].ID)
}

func TestKaspaToSompi(t *testing.T) {
	sompi, err := KaspaToSompi(1.23456789)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456_789), sompi)

	sompi, err = KaspaToSompi(0.00000001)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sompi)
}

func TestRequestKey(t *testing.T) {
	assert.Equal(t, RequestKey("alice", "m1"), RequestKey("alice", "m1"))
	assert.NotEqual(t, RequestKey("alice", "m1"), RequestKey("bob", "m1"))
	assert.NotEqual(t, RequestKey("alice", ""), RequestKey("alice", ""))
	assert.Len(t, RequestKey("alice", "m1"), 64)
}

func TestRecordStats(t *testing.T) {
	db, err := dal.OpenMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, GetMetaInfoService().RecordStats(ctx, db, &model.ChainStats{DAAScore: 10, FetchedAt: time.Now()}))
	require.NoError(t, GetMetaInfoService().RecordStats(ctx, db, nil))
	meta, err := GetMetaInfoService().Get(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), meta.LastDAAScore)
}
