package statsmgr

import (
	"context"
	"sync"

	"github.com/kasbot/kasbot-server/chainclient"
	"github.com/kasbot/kasbot-server/constdef"
	"github.com/kasbot/kasbot-server/model"
	"github.com/kasbot/kasbot-server/service"

	"gorm.io/gorm"
)

// StatsManager persists a snapshot of the network every few refreshes of the
// chain client so the last known DAA score survives restarts.
type StatsManager struct {
	recordInterval int
	refreshes      int
	lastDAAScore   uint64
	statsLock      sync.Mutex
	db             *gorm.DB
	metaService    service.MetaInfoService
}

func NewStatsManager(db *gorm.DB, recordInterval int) *StatsManager {
	if recordInterval <= 0 {
		recordInterval = constdef.StatsRecordInterval
	}
	return &StatsManager{
		recordInterval: recordInterval,
		db:             db,
		metaService:    service.GetMetaInfoService(),
	}
}

// HandleChainClientNotification handles notifications from chain client.
func (m *StatsManager) HandleChainClientNotification(notification *chainclient.Notification) {
	switch notification.Type {

	case chainclient.NTStatsChanged:
		log.Trace("Stats manager receives new stats from chain client, updating...")
		stats, ok := notification.Data.(*model.ChainStats)
		if !ok {
			log.Errorf("Stats manager accepted notification is not a stats snapshot.")
			break
		}
		if stats == nil {
			log.Errorf("Received stats snapshot is nil")
			break
		}
		if m.db == nil {
			log.Errorf("DB is nil in stats manager.")
			return
		}

		m.statsLock.Lock()
		defer m.statsLock.Unlock()

		if stats.DAAScore < m.lastDAAScore {
			log.Warnf("DAA score went backwards from %v to %v, ignoring", m.lastDAAScore, stats.DAAScore)
			return
		}
		needRecord := m.lastDAAScore == 0 || m.refreshes%m.recordInterval == 0
		m.refreshes++
		m.lastDAAScore = stats.DAAScore
		if !needRecord {
			return
		}

		err := m.metaService.RecordStats(context.Background(), m.db, stats)
		if err != nil {
			log.Errorf("Error when recording stats at DAA score %v: %v", stats.DAAScore, err)
			return
		}
		log.Debugf("Recorded stats at DAA score %v", stats.DAAScore)

	case chainclient.NTIndexerUnreachable:
		log.Debugf("Indexer unreachable: %v", notification.Data)
	}
}

// LastDAAScore returns the highest DAA score seen so far.
func (m *StatsManager) LastDAAScore() uint64 {
	m.statsLock.Lock()
	defer m.statsLock.Unlock()
	return m.lastDAAScore
}
