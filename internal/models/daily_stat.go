package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyStat tracks one user's trading discipline for a single UTC day.
// The behavior guardrails read and update these rows on every check/close.
type DailyStat struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID string `gorm:"type:varchar(36);uniqueIndex:idx_daily_user_day" json:"user_id"`

	// Day is the UTC date truncated to midnight.
	Day time.Time `gorm:"uniqueIndex:idx_daily_user_day" json:"day"`

	TradesCount int `gorm:"default:0" json:"trades_count"`
	Wins        int `gorm:"default:0" json:"wins"`
	Losses      int `gorm:"default:0" json:"losses"`

	RealizedPnL       float64 `gorm:"default:0" json:"realized_pnl"`
	ConsecutiveLosses int     `gorm:"default:0" json:"consecutive_losses"`

	CooldownUntil *time.Time `json:"cooldown_until"`
}

// BeforeCreate assigns a UUID primary key.
func (d *DailyStat) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
