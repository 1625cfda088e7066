package dao

import (
	"context"
	"errors"

	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/errcode"

	"gorm.io/gorm"
)

type UserWalletInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.UserWalletInfo) (*do.UserWalletInfo, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*do.UserWalletInfo, error)
	GetByWalletUUID(ctx context.Context, tx *gorm.DB, walletUUID string) (*do.UserWalletInfo, error)
	ExistUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error)
	UpdateAddressByUsername(ctx context.Context, tx *gorm.DB, username string, address string) (int64, error)
	GetWalletNum(ctx context.Context, tx *gorm.DB) (int64, error)
}

type UserWalletInfoDAOImpl struct{}

var userWalletInfoDAO UserWalletInfoDAO = &UserWalletInfoDAOImpl{}

func GetUserWalletInfoDAOImpl() UserWalletInfoDAO {
	return userWalletInfoDAO
}

func (u *UserWalletInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.UserWalletInfo) (*do.UserWalletInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	if info == nil {
		return nil, errors.New("nil user wallet info when creating")
	}

	query := tx.Create(info)
	return info, query.Error
}

func (u *UserWalletInfoDAOImpl) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*do.UserWalletInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := do.UserWalletInfo{}
	query := tx.Model(&do.UserWalletInfo{}).Where("username = ?", username).Take(&res)
	return &res, query.Error
}

func (u *UserWalletInfoDAOImpl) GetByWalletUUID(ctx context.Context, tx *gorm.DB, walletUUID string) (*do.UserWalletInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := do.UserWalletInfo{}
	query := tx.Model(&do.UserWalletInfo{}).Where("wallet_uuid = ?", walletUUID).Take(&res)
	return &res, query.Error
}

func (u *UserWalletInfoDAOImpl) ExistUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	if tx == nil {
		return false, errcode.ErrNilGormDB
	}

	var count int64
	query := tx.Model(&do.UserWalletInfo{}).Where("username = ?", username).Count(&count)
	if query.Error != nil {
		return false, query.Error
	}
	return count > 0, nil
}

func (u *UserWalletInfoDAOImpl) UpdateAddressByUsername(ctx context.Context, tx *gorm.DB, username string, address string) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.UserWalletInfo{}).Where("username = ?", username).Update("address", address)
	return query.RowsAffected, query.Error
}

func (u *UserWalletInfoDAOImpl) GetWalletNum(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	var count int64
	query := tx.Model(&do.UserWalletInfo{}).Count(&count)
	return count, query.Error
}
