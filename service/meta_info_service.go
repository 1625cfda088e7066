package service

import (
	"context"

	"github.com/kasbot/kasbot-server/dal/dao"
	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/model"

	"gorm.io/gorm"
)

type MetaInfoService interface {
	Get(ctx context.Context, tx *gorm.DB) (*do.MetaInfo, error)
	RecordStats(ctx context.Context, tx *gorm.DB, stats *model.ChainStats) error
}

type MetaInfoServiceImpl struct {
	metaInfoDao dao.MetaInfoDAO
}

var metaInfoService MetaInfoService = &MetaInfoServiceImpl{
	metaInfoDao: dao.GetMetaInfoDAOImpl(),
}

func GetMetaInfoService() MetaInfoService {
	return metaInfoService
}

func (m *MetaInfoServiceImpl) Get(ctx context.Context, tx *gorm.DB) (*do.MetaInfo, error) {
	return m.metaInfoDao.Get(ctx, tx)
}

// RecordStats remembers the highest DAA score seen by the bot.
func (m *MetaInfoServiceImpl) RecordStats(ctx context.Context, tx *gorm.DB, stats *model.ChainStats) error {
	if stats == nil {
		return nil
	}
	_, err := m.metaInfoDao.UpdateLastDAAScore(ctx, tx, stats.DAAScore, stats.FetchedAt)
	return err
}
