package do

import "time"

// Status of a tip or withdrawal.
const (
	TipStatusPending int64 = iota
	TipStatusSent
	TipStatusFailed
)

type TipInfo struct {
	ID uint64 `gorm:"primaryKey"`
	// RequestKey identifies the chat message that issued the tip, so a
	// replayed message does not send twice.
	RequestKey string `gorm:"uniqueIndex:unique_idx_request_key;type:varchar(64);not null"`
	FromUser   string `gorm:"index:idx_from_user;type:varchar(100);not null"`
	ToUser     string `gorm:"index:idx_to_user;type:varchar(100);not null;default:''"`
	ToAddress  string `gorm:"type:varchar(100);not null"`
	// Amount in sompi.
	Amount     uint64 `gorm:"not null;default:0"`
	TxIDs      string `gorm:"type:text"`
	Withdrawal bool   `gorm:"not null;default:false"`
	Status     int64  `gorm:"index:idx_status;not null;default:0"`
	Error      string `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
