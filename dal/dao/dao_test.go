package dao

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kasbot/kasbot-server/dal"
	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/errcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dal.OpenMemoryDB()
	require.NoError(t, err)
	return db
}

func TestUserWalletInfoDAO(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d := GetUserWalletInfoDAOImpl()

	exist, err := d.ExistUsername(ctx, db, "alice")
	require.NoError(t, err)
	assert.False(t, exist)

	_, err = d.GetByUsername(ctx, db, "alice")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	created, err := d.Create(ctx, db, &do.UserWalletInfo{Username: "alice", WalletUUID: "uuid-a", Address: "kaspa:qqa"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = d.Create(ctx, db, &do.UserWalletInfo{Username: "alice", WalletUUID: "uuid-b"})
	assert.Error(t, err)

	info, err := d.GetByWalletUUID(ctx, db, "uuid-a")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)

	rows, err := d.UpdateAddressByUsername(ctx, db, "alice", "kaspa:qqz")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	info, err = d.GetByUsername(ctx, db, "alice")
	require.NoError(t, err)
	assert.Equal(t, "kaspa:qqz", info.Address)

	num, err := d.GetWalletNum(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), num)

	_, err = d.Create(ctx, db, nil)
	assert.Error(t, err)
	_, err = d.GetByUsername(ctx, nil, "alice")
	assert.ErrorIs(t, err, errcode.ErrNilGormDB)
}

func TestTipInfoDAO(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d := GetTipInfoDAOImpl()

	for i, tip := range []*do.TipInfo{
		{RequestKey: "k1", FromUser: "alice", ToUser: "bob", ToAddress: "kaspa:qqb", Amount: 100},
		{RequestKey: "k2", FromUser: "bob", ToUser: "alice", ToAddress: "kaspa:qqa", Amount: 200},
		{RequestKey: "k3", FromUser: "carol", ToAddress: "kaspa:qqc", Amount: 300, Withdrawal: true},
	} {
		created, err := d.Create(ctx, db, tip)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), created.ID)
	}

	_, err := d.Create(ctx, db, &do.TipInfo{RequestKey: "k1", FromUser: "x", ToAddress: "y"})
	assert.Error(t, err)

	tip, err := d.GetByRequestKey(ctx, db, "k2")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), tip.Amount)
	assert.Equal(t, do.TipStatusPending, tip.Status)

	tips, err := d.GetByUser(ctx, db, "alice", 1, 10)
	require.NoError(t, err)
	require.Len(t, tips, 2)
	assert.Equal(t, "k2", tips[0].RequestKey)

	tips, err = d.GetByUser(ctx, db, "alice", 2, 1)
	require.NoError(t, err)
	require.Len(t, tips, 1)
	assert.Equal(t, "k1", tips[0].RequestKey)

	tips, err = d.GetByUser(ctx, db, "alice", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, tips)

	count, err := d.CountByUser(ctx, db, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rows, err := d.UpdateStatusByID(ctx, db, 1, do.TipStatusSent, "tx1,tx2", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	_, err = d.UpdateStatusByID(ctx, db, 3, do.TipStatusFailed, "", "insufficient wallet balance")
	require.NoError(t, err)

	tip, err = d.GetByID(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, do.TipStatusSent, tip.Status)
	assert.Equal(t, "tx1,tx2", tip.TxIDs)

	pending, err := d.GetByStatus(ctx, db, do.TipStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "k2", pending[0].RequestKey)
}

func TestMetaInfoDAO(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d := GetMetaInfoDAOImpl()

	meta, err := d.Get(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), meta.ID)
	assert.Zero(t, meta.TipCount)

	_, err = d.AddTip(ctx, db, 150)
	require.NoError(t, err)
	_, err = d.AddTip(ctx, db, 50)
	require.NoError(t, err)
	_, err = d.AddWithdrawal(ctx, db, 70)
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, err := d.UpdateLastDAAScore(ctx, db, 1000, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	rows, err = d.UpdateLastDAAScore(ctx, db, 900, at)
	require.NoError(t, err)
	assert.Zero(t, rows)

	meta, err = d.Get(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.TipCount)
	assert.Equal(t, uint64(200), meta.TippedAmount)
	assert.Equal(t, uint64(70), meta.WithdrawnAmount)
	assert.Equal(t, uint64(1000), meta.LastDAAScore)

	_, err = d.AddTip(ctx, nil, 1)
	assert.ErrorIs(t, err, errcode.ErrNilGormDB)
}
