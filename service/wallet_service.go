package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasbot/kasbot-server/dal/dao"
	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"
	"github.com/kasbot/kasbot-server/walletclient"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WalletBackend is the custodial wallet service.
type WalletBackend interface {
	GetWallet(ctx context.Context, walletUUID, password string) (*model.WalletInfo, error)
	CreateWallet(ctx context.Context, password, walletUUID string) (*model.WalletInfo, error)
	CreateTransaction(ctx context.Context, walletUUID, password, toAddr string, amount uint64,
		inclusiveFee bool) (*model.Transaction, error)
}

type WalletService interface {
	EnsureWallet(ctx context.Context, tx *gorm.DB, username string) (*model.WalletInfo, bool, error)
	Balance(ctx context.Context, tx *gorm.DB, username string) (*model.WalletInfo, error)
	Credentials(username string) (walletUUID string, password string)
}

type WalletServiceImpl struct {
	userWalletInfoDao dao.UserWalletInfoDAO
	backend           WalletBackend
	namespace         uuid.UUID
	entropy           string
}

func NewWalletService(backend WalletBackend, namespace uuid.UUID, entropy string) (*WalletServiceImpl, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil wallet backend", errcode.ErrConfiguration)
	}
	if entropy == "" {
		return nil, fmt.Errorf("%w: empty wallet entropy", errcode.ErrConfiguration)
	}
	return &WalletServiceImpl{
		userWalletInfoDao: dao.GetUserWalletInfoDAOImpl(),
		backend:           backend,
		namespace:         namespace,
		entropy:           entropy,
	}, nil
}

// Credentials returns the wallet identifier and password of a chat user.
func (w *WalletServiceImpl) Credentials(username string) (string, string) {
	walletUUID := walletclient.UsernameToUUID(w.namespace, username)
	return walletUUID, walletclient.WalletPassword(walletUUID, w.entropy)
}

// EnsureWallet returns the wallet of username, creating it first if the user
// has none.  The boolean reports whether the wallet was created by this call.
func (w *WalletServiceImpl) EnsureWallet(ctx context.Context, tx *gorm.DB, username string) (*model.WalletInfo, bool, error) {
	if username == "" {
		return nil, false, fmt.Errorf("%w: empty username", errcode.ErrInvalidInput)
	}
	record, err := w.userWalletInfoDao.GetByUsername(ctx, tx, username)
	if err == nil {
		info, err := w.fetch(ctx, record.WalletUUID)
		return info, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	walletUUID, password := w.Credentials(username)
	info, err := w.backend.CreateWallet(ctx, password, walletUUID)
	created := true
	if errors.Is(err, errcode.ErrWalletCreation) {
		// The wallet service already knows this user, only the local record
		// is missing.
		log.Infof("Wallet %v of %v already exists, recording it", walletUUID, username)
		info, err = w.backend.GetWallet(ctx, walletUUID, password)
		created = false
	}
	if err != nil {
		return nil, false, err
	}

	_, err = w.userWalletInfoDao.Create(ctx, tx, &do.UserWalletInfo{
		Username:   username,
		WalletUUID: walletUUID,
		Address:    info.Address,
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		log.Infof("Created wallet %v for %v", walletUUID, username)
	}
	return info, created, nil
}

// Balance returns the wallet of username with its current balance.  Users
// without a wallet get ErrWalletNotFound.
func (w *WalletServiceImpl) Balance(ctx context.Context, tx *gorm.DB, username string) (*model.WalletInfo, error) {
	record, err := w.userWalletInfoDao.GetByUsername(ctx, tx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcode.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return w.fetch(ctx, record.WalletUUID)
}

func (w *WalletServiceImpl) fetch(ctx context.Context, walletUUID string) (*model.WalletInfo, error) {
	return w.backend.GetWallet(ctx, walletUUID, walletclient.WalletPassword(walletUUID, w.entropy))
}
