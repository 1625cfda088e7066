package rewardmgr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kasbot/kasbot-server/chainclient"
	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	daaScore uint64
	hashRate float64
	err      error
	calls    int32
}

func (f *fakeChain) FetchStats(ctx context.Context) (*model.ChainStats, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &model.ChainStats{DAAScore: f.daaScore, HashRate: f.hashRate}, nil
}

func TestEstimateRewards(t *testing.T) {
	chain := &fakeChain{daaScore: 100_000_000, hashRate: 4e15}
	m := NewRewardManager(mainnetTable(t, emission.BoundaryAdditive), chain, 0)

	estimate, err := m.EstimateRewards(context.Background(), "1 PH/s")
	require.NoError(t, err)
	assert.Equal(t, 1e15, estimate.HashRate)
	assert.Equal(t, 4e15, estimate.NetworkHashRate)
	assert.InDelta(t, 0.25, estimate.HashShare, 1e-12)
	assert.Equal(t, uint64(100_000_000), estimate.DAAScore)
	assert.InDelta(t, 69.29565774/4, estimate.Rewards["second"], 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&chain.calls))
}

func TestEstimateRewardsErrors(t *testing.T) {
	table := mainnetTable(t, emission.BoundaryAdditive)

	m := NewRewardManager(table, &fakeChain{daaScore: 1, hashRate: 1e15}, 0)
	_, err := m.EstimateRewards(context.Background(), "lots")
	assert.ErrorIs(t, err, errcode.ErrHashRateParse)

	m = NewRewardManager(table, &fakeChain{daaScore: 1, hashRate: 0}, 0)
	_, err = m.EstimateRewards(context.Background(), "1 TH")
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)

	chain := &fakeChain{daaScore: 1, hashRate: 1e15}
	m = NewRewardManager(table, chain, 0)
	_, err = m.EstimateRewards(context.Background(), "-5 TH/s")
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
	assert.Zero(t, atomic.LoadInt32(&chain.calls))

	upstream := errors.New("indexer down")
	m = NewRewardManager(table, &fakeChain{err: upstream}, 0)
	_, err = m.EstimateRewards(context.Background(), "1 TH")
	assert.ErrorIs(t, err, upstream)

	m = NewRewardManager(nil, nil, 0)
	_, err = m.EstimateRewards(context.Background(), "1 TH")
	assert.ErrorIs(t, err, errcode.ErrConfiguration)
}

func TestCachedStats(t *testing.T) {
	chain := &fakeChain{daaScore: 5, hashRate: 1}
	m := NewRewardManager(mainnetTable(t, emission.BoundaryAdditive), chain, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.HandleChainClientNotification(&chainclient.Notification{
		Type: chainclient.NTStatsChanged,
		Data: &model.ChainStats{DAAScore: 100_000_000, HashRate: 2e15, FetchedAt: now.Add(-time.Second)},
	})

	estimate, err := m.EstimateRewards(context.Background(), "1 PH")
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), estimate.DAAScore)
	assert.InDelta(t, 0.5, estimate.HashShare, 1e-12)
	assert.Zero(t, atomic.LoadInt32(&chain.calls))

	now = now.Add(2 * time.Minute)
	estimate, err = m.EstimateRewards(context.Background(), "1 H")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), estimate.DAAScore)
	assert.Equal(t, int32(1), atomic.LoadInt32(&chain.calls))
}

func TestIgnoresMalformedNotification(t *testing.T) {
	m := NewRewardManager(mainnetTable(t, emission.BoundaryAdditive), &fakeChain{}, time.Minute)
	m.HandleChainClientNotification(&chainclient.Notification{Type: chainclient.NTStatsChanged, Data: "bogus"})
	m.HandleChainClientNotification(&chainclient.Notification{Type: chainclient.NTIndexerUnreachable, Data: errors.New("x")})
	assert.Nil(t, m.cachedStats())
}

func TestManagerCirculatingSupply(t *testing.T) {
	chain := &fakeChain{daaScore: 100_000_000}
	m := NewRewardManager(mainnetTable(t, emission.BoundaryAdditive), chain, 0)

	supply, err := m.CirculatingSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2_515_200_200_494_517_400), supply.CirculatingSupply)
	assert.Equal(t, emission.KaspaTotalSupply, supply.TotalSupply)
	assert.InDelta(t, 0.8864, supply.MintedRatio(), 1e-4)

	chain.err = errors.New("boom")
	_, err = m.CirculatingSupply(context.Background())
	assert.Error(t, err)
}

func TestManagerEstimateHashShare(t *testing.T) {
	m := NewRewardManager(mainnetTable(t, emission.BoundaryAdditive), &fakeChain{hashRate: 1e15}, 0)
	share, network, err := m.EstimateHashShare(context.Background(), "3 PH")
	require.NoError(t, err)
	assert.Equal(t, 1e15, network)
	assert.InDelta(t, 0.75, share, 1e-12)
}
