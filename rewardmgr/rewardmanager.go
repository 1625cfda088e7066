package rewardmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kasbot/kasbot-server/chainclient"
	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"
)

// ChainSource provides the live network figures the projections start from.
type ChainSource interface {
	FetchStats(ctx context.Context) (*model.ChainStats, error)
}

// RewardEstimate is the answer to a mining calculator request.
type RewardEstimate struct {
	HashRate        float64
	NetworkHashRate float64
	HashShare       float64
	DAAScore        uint64
	Rewards         Projection
}

// SupplyEstimate is the circulating supply at a DAA score.
type SupplyEstimate struct {
	DAAScore          uint64
	CirculatingSupply uint64
	TotalSupply       uint64
}

// MintedRatio returns the fraction of the total supply already emitted.
func (s *SupplyEstimate) MintedRatio() float64 {
	if s.TotalSupply == 0 {
		return 0
	}
	return float64(s.CirculatingSupply) / float64(s.TotalSupply)
}

// RewardManager answers reward and supply questions from the emission table
// and the live network figures.
type RewardManager struct {
	table *emission.Table
	chain ChainSource

	// Snapshots pushed by the chain client are used while younger than
	// maxStatsAge.
	statsMtx    sync.RWMutex
	latest      *model.ChainStats
	maxStatsAge time.Duration
	now         func() time.Time
}

func NewRewardManager(table *emission.Table, chain ChainSource, maxStatsAge time.Duration) *RewardManager {
	return &RewardManager{
		table:       table,
		chain:       chain,
		maxStatsAge: maxStatsAge,
		now:         time.Now,
	}
}

// Table returns the emission table used by the manager.
func (m *RewardManager) Table() *emission.Table {
	return m.table
}

// HandleChainClientNotification handles notifications from chain client.
func (m *RewardManager) HandleChainClientNotification(notification *chainclient.Notification) {
	switch notification.Type {
	case chainclient.NTStatsChanged:
		stats, ok := notification.Data.(*model.ChainStats)
		if !ok || stats == nil {
			log.Errorf("Reward manager accepted notification is not a chain stats snapshot.")
			return
		}
		m.statsMtx.Lock()
		m.latest = stats
		m.statsMtx.Unlock()
		log.Tracef("Reward manager updated to DAA score %v", stats.DAAScore)
	}
}

// cachedStats returns the latest pushed snapshot if it is still fresh.
func (m *RewardManager) cachedStats() *model.ChainStats {
	m.statsMtx.RLock()
	defer m.statsMtx.RUnlock()
	if m.latest == nil || m.maxStatsAge <= 0 {
		return nil
	}
	if m.now().Sub(m.latest.FetchedAt) > m.maxStatsAge {
		return nil
	}
	return m.latest
}

// networkState returns the latest network snapshot, fetching one from the
// chain source when no fresh snapshot was pushed.
func (m *RewardManager) networkState(ctx context.Context) (*model.ChainStats, error) {
	if stats := m.cachedStats(); stats != nil {
		return stats, nil
	}
	stats, err := m.chain.FetchStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get network stats: %w", err)
	}
	return stats, nil
}

// EstimateRewards parses a hash rate expression and projects the rewards of
// a miner of that size over every horizon.
func (m *RewardManager) EstimateRewards(ctx context.Context, hashRateText string) (*RewardEstimate, error) {
	if m.table == nil || m.chain == nil {
		return nil, fmt.Errorf("%w: reward manager is not initialized", errcode.ErrConfiguration)
	}
	hashRate, err := ParseHashRate(hashRateText)
	if err != nil {
		return nil, err
	}

	stats, err := m.networkState(ctx)
	if err != nil {
		return nil, err
	}
	daaScore, networkHashRate := stats.DAAScore, stats.HashRate

	share, err := HashShare(hashRate, networkHashRate)
	if err != nil {
		return nil, err
	}
	rewards, err := Project(m.table, daaScore, share)
	if err != nil {
		return nil, err
	}
	log.Debugf("Projected rewards for %v H/s at DAA score %v (share %v)", hashRate, daaScore, share)

	return &RewardEstimate{
		HashRate:        hashRate,
		NetworkHashRate: networkHashRate,
		HashShare:       share,
		DAAScore:        daaScore,
		Rewards:         rewards,
	}, nil
}

// EstimateHashShare returns the share of the live network a hash rate
// expression represents.
func (m *RewardManager) EstimateHashShare(ctx context.Context, hashRateText string) (float64, float64, error) {
	if _, err := ParseHashRate(hashRateText); err != nil {
		return 0, 0, err
	}
	stats, err := m.networkState(ctx)
	if err != nil {
		return 0, 0, err
	}
	share, err := EstimateHashShare(hashRateText, stats.HashRate)
	if err != nil {
		return 0, 0, err
	}
	return share, stats.HashRate, nil
}

// CirculatingSupply returns the supply emitted up to the current DAA score.
func (m *RewardManager) CirculatingSupply(ctx context.Context) (*SupplyEstimate, error) {
	if m.table == nil || m.chain == nil {
		return nil, fmt.Errorf("%w: reward manager is not initialized", errcode.ErrConfiguration)
	}
	stats, err := m.networkState(ctx)
	if err != nil {
		return nil, err
	}
	return &SupplyEstimate{
		DAAScore:          stats.DAAScore,
		CirculatingSupply: m.table.CirculatingSupply(stats.DAAScore),
		TotalSupply:       m.table.TotalSupply(),
	}, nil
}
