package dao

import (
	"context"
	"errors"

	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/errcode"

	"gorm.io/gorm"
)

type TipInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.TipInfo) (*do.TipInfo, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint64) (*do.TipInfo, error)
	GetByRequestKey(ctx context.Context, tx *gorm.DB, requestKey string) (*do.TipInfo, error)
	GetByUser(ctx context.Context, tx *gorm.DB, username string, page int, num int) ([]*do.TipInfo, error)
	CountByUser(ctx context.Context, tx *gorm.DB, username string) (int64, error)
	GetByStatus(ctx context.Context, tx *gorm.DB, status int64) ([]*do.TipInfo, error)
	UpdateStatusByID(ctx context.Context, tx *gorm.DB, id uint64, status int64, txIDs string, errMsg string) (int64, error)
}

type TipInfoDAOImpl struct{}

var tipInfoDAO TipInfoDAO = &TipInfoDAOImpl{}

func GetTipInfoDAOImpl() TipInfoDAO {
	return tipInfoDAO
}

func (t *TipInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.TipInfo) (*do.TipInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	if info == nil {
		return nil, errors.New("nil tip info when creating")
	}

	query := tx.Create(info)
	return info, query.Error
}

func (t *TipInfoDAOImpl) GetByID(ctx context.Context, tx *gorm.DB, id uint64) (*do.TipInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := do.TipInfo{}
	query := tx.Model(&do.TipInfo{}).Where("id = ?", id).Take(&res)
	return &res, query.Error
}

func (t *TipInfoDAOImpl) GetByRequestKey(ctx context.Context, tx *gorm.DB, requestKey string) (*do.TipInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := do.TipInfo{}
	query := tx.Model(&do.TipInfo{}).Where("request_key = ?", requestKey).Take(&res)
	return &res, query.Error
}

// GetByUser returns the tips sent or received by username, newest first.
func (t *TipInfoDAOImpl) GetByUser(ctx context.Context, tx *gorm.DB, username string, page int, num int) ([]*do.TipInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.TipInfo, 0)
	if page <= 0 || num <= 0 {
		return res, nil
	}
	query := tx.Model(&do.TipInfo{}).Where("from_user = ? OR to_user = ?", username, username).
		Order("id desc").Offset((page - 1) * num).Limit(num).Find(&res)
	return res, query.Error
}

func (t *TipInfoDAOImpl) CountByUser(ctx context.Context, tx *gorm.DB, username string) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	var count int64
	query := tx.Model(&do.TipInfo{}).Where("from_user = ? OR to_user = ?", username, username).Count(&count)
	return count, query.Error
}

func (t *TipInfoDAOImpl) GetByStatus(ctx context.Context, tx *gorm.DB, status int64) ([]*do.TipInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.TipInfo, 0)
	query := tx.Model(&do.TipInfo{}).Where("status = ?", status).Order("id").Find(&res)
	return res, query.Error
}

func (t *TipInfoDAOImpl) UpdateStatusByID(ctx context.Context, tx *gorm.DB, id uint64, status int64, txIDs string, errMsg string) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.TipInfo{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": status,
		"tx_ids": txIDs,
		"error":  errMsg,
	})
	return query.RowsAffected, query.Error
}
