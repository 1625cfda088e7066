package do

import "time"

type MetaInfo struct {
	ID              uint64 `gorm:"primaryKey"`
	TipCount        int64  `gorm:"default:0;not null"`
	TippedAmount    uint64 `gorm:"default:0;not null"`
	WithdrawnAmount uint64 `gorm:"default:0;not null"`
	LastDAAScore    uint64 `gorm:"default:0;not null"`
	LastStatsTime   time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
