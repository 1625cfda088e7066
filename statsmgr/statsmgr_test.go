package statsmgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kasbot/kasbot-server/chainclient"
	"github.com/kasbot/kasbot-server/dal"
	"github.com/kasbot/kasbot-server/model"
	"github.com/kasbot/kasbot-server/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notify(m *StatsManager, daaScore uint64) {
	m.HandleChainClientNotification(&chainclient.Notification{
		Type: chainclient.NTStatsChanged,
		Data: &model.ChainStats{DAAScore: daaScore, FetchedAt: time.Now()},
	})
}

func TestRecordsEveryInterval(t *testing.T) {
	db, err := dal.OpenMemoryDB()
	require.NoError(t, err)
	m := NewStatsManager(db, 3)
	ctx := context.Background()

	notify(m, 100)
	meta, err := service.GetMetaInfoService().Get(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), meta.LastDAAScore)

	notify(m, 101)
	notify(m, 102)
	meta, err = service.GetMetaInfoService().Get(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), meta.LastDAAScore)

	notify(m, 103)
	meta, err = service.GetMetaInfoService().Get(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, uint64(103), meta.LastDAAScore)
	assert.Equal(t, uint64(103), m.LastDAAScore())
}

func TestIgnoresBadNotifications(t *testing.T) {
	db, err := dal.OpenMemoryDB()
	require.NoError(t, err)
	m := NewStatsManager(db, 0)

	notify(m, 50)
	notify(m, 10)
	assert.Equal(t, uint64(50), m.LastDAAScore())

	m.HandleChainClientNotification(&chainclient.Notification{Type: chainclient.NTStatsChanged, Data: "nope"})
	m.HandleChainClientNotification(&chainclient.Notification{
		Type: chainclient.NTIndexerUnreachable,
		Data: errors.New("down"),
	})
	assert.Equal(t, uint64(50), m.LastDAAScore())

	noDB := NewStatsManager(nil, 1)
	notify(noDB, 5)
	assert.Equal(t, uint64(0), noDB.LastDAAScore())
}
