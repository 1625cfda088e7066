package dao

import (
	"context"
	"errors"
	"time"

	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/errcode"

	"gorm.io/gorm"
)

type MetaInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.MetaInfo) (int64, error)
	Get(ctx context.Context, tx *gorm.DB) (*do.MetaInfo, error)
	AddTip(ctx context.Context, tx *gorm.DB, amount uint64) (int64, error)
	AddWithdrawal(ctx context.Context, tx *gorm.DB, amount uint64) (int64, error)
	UpdateLastDAAScore(ctx context.Context, tx *gorm.DB, daaScore uint64, at time.Time) (int64, error)
}

type MetaInfoDAOImpl struct{}

var metaInfoDAO MetaInfoDAO = &MetaInfoDAOImpl{}

func GetMetaInfoDAOImpl() MetaInfoDAO {
	return metaInfoDAO
}

func (m *MetaInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.MetaInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("fail to create meta info: nil meta info")
	}

	info.ID = 1

	query := tx.Create(info)
	if query.Error != nil {
		return 0, query.Error
	}
	return query.RowsAffected, nil
}

func (m *MetaInfoDAOImpl) Get(ctx context.Context, tx *gorm.DB) (*do.MetaInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	metaInfo := do.MetaInfo{}
	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).First(&metaInfo)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		metaInfo.ID = 1
		metaInfo.LastStatsTime = time.Now()
		_, err := m.Create(ctx, tx, &metaInfo)
		if err != nil {
			return nil, err
		}
	} else if query.Error != nil {
		return nil, query.Error
	}

	return &metaInfo, nil
}

// ensure creates the meta row if it does not exist yet.
func (m *MetaInfoDAOImpl) ensure(ctx context.Context, tx *gorm.DB) error {
	_, err := m.Get(ctx, tx)
	return err
}

func (m *MetaInfoDAOImpl) AddTip(ctx context.Context, tx *gorm.DB, amount uint64) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}
	if err := m.ensure(ctx, tx); err != nil {
		return 0, err
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).Updates(map[string]interface{}{
		"tip_count":     gorm.Expr("tip_count + ?", 1),
		"tipped_amount": gorm.Expr("tipped_amount + ?", amount),
	})
	return query.RowsAffected, query.Error
}

func (m *MetaInfoDAOImpl) AddWithdrawal(ctx context.Context, tx *gorm.DB, amount uint64) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}
	if err := m.ensure(ctx, tx); err != nil {
		return 0, err
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).
		Update("withdrawn_amount", gorm.Expr("withdrawn_amount + ?", amount))
	return query.RowsAffected, query.Error
}

func (m *MetaInfoDAOImpl) UpdateLastDAAScore(ctx context.Context, tx *gorm.DB, daaScore uint64, at time.Time) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}
	if err := m.ensure(ctx, tx); err != nil {
		return 0, err
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ? AND last_daa_score < ?", 1, daaScore).Updates(map[string]interface{}{
		"last_daa_score":  daaScore,
		"last_stats_time": at,
	})
	return query.RowsAffected, query.Error
}
