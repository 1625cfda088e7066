package do

import "time"

type UserWalletInfo struct {
	ID         uint64 `gorm:"primaryKey"`
	Username   string `gorm:"uniqueIndex:unique_idx_username;type:varchar(100);not null"`
	WalletUUID string `gorm:"uniqueIndex:unique_idx_wallet_uuid;type:varchar(36);not null"`
	Address    string `gorm:"type:varchar(100);not null;default:''"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
