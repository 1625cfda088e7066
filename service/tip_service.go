package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/dal/dao"
	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	"gorm.io/gorm"
)

const maxErrorLength = 255

type TipService interface {
	Tip(ctx context.Context, tx *gorm.DB, requestID string, from string, to string, amount float64) (*model.TipReceipt, error)
	Withdraw(ctx context.Context, tx *gorm.DB, requestID string, from string, address string, amount float64) (*model.TipReceipt, error)
	History(ctx context.Context, tx *gorm.DB, username string, page int, num int) ([]*model.TipReceipt, int64, error)
}

type TipServiceImpl struct {
	tipInfoDao        dao.TipInfoDAO
	metaInfoDao       dao.MetaInfoDAO
	userWalletInfoDao dao.UserWalletInfoDAO
	wallets           *WalletServiceImpl
	params            *chaincfg.Params
}

func NewTipService(wallets *WalletServiceImpl, params *chaincfg.Params) *TipServiceImpl {
	if params == nil {
		params = chaincfg.ActiveNetParams
	}
	return &TipServiceImpl{
		tipInfoDao:        dao.GetTipInfoDAOImpl(),
		metaInfoDao:       dao.GetMetaInfoDAOImpl(),
		userWalletInfoDao: dao.GetUserWalletInfoDAOImpl(),
		wallets:           wallets,
		params:            params,
	}
}

// KaspaToSompi converts a positive amount of KAS to sompi.
func KaspaToSompi(amount float64) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, fmt.Errorf("%w: %v", errcode.ErrInvalidAmount, amount)
	}
	sompi := math.Round(amount * emission.SompiPerKaspa)
	if sompi < 1 || sompi >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %v", errcode.ErrInvalidAmount, amount)
	}
	return uint64(sompi), nil
}

// RequestKey identifies a tip request of a user.  Chat adapters replaying a
// message get the same key.  An empty requestID never collides.
func RequestKey(username, requestID string) string {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	sum := sha3.Sum256([]byte(username + "|" + requestID))
	return hex.EncodeToString(sum[:])
}

// Tip sends amount KAS from the wallet of from to the wallet of to, creating
// the wallet of the recipient if needed.
func (t *TipServiceImpl) Tip(ctx context.Context, tx *gorm.DB, requestID string, from string, to string,
	amount float64) (*model.TipReceipt, error) {

	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: empty user", errcode.ErrInvalidInput)
	}
	if from == to {
		return nil, errcode.ErrSelfTip
	}
	sompi, err := KaspaToSompi(amount)
	if err != nil {
		return nil, err
	}

	key := RequestKey(from, requestID)
	if receipt, err := t.replay(ctx, tx, key); receipt != nil || err != nil {
		return receipt, err
	}
	if err := t.requireWallet(ctx, tx, from); err != nil {
		return nil, err
	}
	recipient, _, err := t.wallets.EnsureWallet(ctx, tx, to)
	if err != nil {
		return nil, fmt.Errorf("unable to get wallet of recipient: %w", err)
	}

	tipInfo := &do.TipInfo{
		RequestKey: key,
		FromUser:   from,
		ToUser:     to,
		ToAddress:  recipient.Address,
		Amount:     sompi,
	}
	return t.send(ctx, tx, tipInfo, false)
}

// Withdraw sends amount KAS from the wallet of from to an external address.
// The network fee is taken out of the amount.
func (t *TipServiceImpl) Withdraw(ctx context.Context, tx *gorm.DB, requestID string, from string, address string,
	amount float64) (*model.TipReceipt, error) {

	if from == "" {
		return nil, fmt.Errorf("%w: empty user", errcode.ErrInvalidInput)
	}
	if !t.params.IsValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", errcode.ErrInvalidAddress, address)
	}
	sompi, err := KaspaToSompi(amount)
	if err != nil {
		return nil, err
	}

	key := RequestKey(from, requestID)
	if receipt, err := t.replay(ctx, tx, key); receipt != nil || err != nil {
		return receipt, err
	}
	if err := t.requireWallet(ctx, tx, from); err != nil {
		return nil, err
	}

	tipInfo := &do.TipInfo{
		RequestKey: key,
		FromUser:   from,
		ToAddress:  address,
		Amount:     sompi,
		Withdrawal: true,
	}
	return t.send(ctx, tx, tipInfo, true)
}

// History returns a page of the tips sent or received by username, newest
// first, and the total number of them.
func (t *TipServiceImpl) History(ctx context.Context, tx *gorm.DB, username string, page int, num int) ([]*model.TipReceipt, int64, error) {
	tipInfos, err := t.tipInfoDao.GetByUser(ctx, tx, username, page, num)
	if err != nil {
		return nil, 0, err
	}
	count, err := t.tipInfoDao.CountByUser(ctx, tx, username)
	if err != nil {
		return nil, 0, err
	}
	return model.ConvertTipInfosToReceipts(tipInfos), count, nil
}

// replay returns the receipt of an already sent request.  A request seen
// before that did not complete is reported as a duplicate.
func (t *TipServiceImpl) replay(ctx context.Context, tx *gorm.DB, key string) (*model.TipReceipt, error) {
	existing, err := t.tipInfoDao.GetByRequestKey(ctx, tx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.Status == do.TipStatusSent {
		log.Debugf("Replayed tip request %v", existing.ID)
		return model.ConvertTipInfoToReceipt(existing), nil
	}
	return nil, errcode.ErrDuplicateTip
}

func (t *TipServiceImpl) requireWallet(ctx context.Context, tx *gorm.DB, username string) error {
	exist, err := t.userWalletInfoDao.ExistUsername(ctx, tx, username)
	if err != nil {
		return err
	}
	if !exist {
		return errcode.ErrWalletNotFound
	}
	return nil
}

// send records the pending transfer, asks the wallet service for it and
// records the outcome.
func (t *TipServiceImpl) send(ctx context.Context, tx *gorm.DB, tipInfo *do.TipInfo, inclusiveFee bool) (*model.TipReceipt, error) {
	_, err := t.tipInfoDao.Create(ctx, tx, tipInfo)
	if err != nil {
		// A concurrent request with the same key won the insert.
		if _, lookupErr := t.tipInfoDao.GetByRequestKey(ctx, tx, tipInfo.RequestKey); lookupErr == nil {
			return nil, errcode.ErrDuplicateTip
		}
		return nil, err
	}

	walletUUID, password := t.wallets.Credentials(tipInfo.FromUser)
	transaction, err := t.wallets.backend.CreateTransaction(ctx, walletUUID, password, tipInfo.ToAddress,
		tipInfo.Amount, inclusiveFee)
	if err != nil {
		msg := err.Error()
		if len(msg) > maxErrorLength {
			msg = msg[:maxErrorLength]
		}
		if _, updateErr := t.tipInfoDao.UpdateStatusByID(ctx, tx, tipInfo.ID, do.TipStatusFailed, "", msg); updateErr != nil {
			log.Errorf("Unable to mark tip %v as failed: %v", tipInfo.ID, updateErr)
		}
		tipInfo.Status = do.TipStatusFailed
		return nil, err
	}

	tipInfo.TxIDs = model.JoinTxIDs(transaction.TxIDs)
	tipInfo.Status = do.TipStatusSent
	if _, err := t.tipInfoDao.UpdateStatusByID(ctx, tx, tipInfo.ID, do.TipStatusSent, tipInfo.TxIDs, ""); err != nil {
		// The transfer happened, the receipt is still returned.
		log.Errorf("Unable to mark tip %v as sent (transactions %v): %v", tipInfo.ID, tipInfo.TxIDs, err)
	}

	if tipInfo.Withdrawal {
		_, err = t.metaInfoDao.AddWithdrawal(ctx, tx, tipInfo.Amount)
	} else {
		_, err = t.metaInfoDao.AddTip(ctx, tx, tipInfo.Amount)
	}
	if err != nil {
		log.Warnf("Unable to update tip statistics: %v", err)
	}

	log.Infof("%v sent %v sompi to %v (transactions %v)", tipInfo.FromUser, tipInfo.Amount, tipInfo.ToAddress, tipInfo.TxIDs)
	return model.ConvertTipInfoToReceipt(tipInfo), nil
}
