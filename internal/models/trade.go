package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Trade modes. LIVE is accepted only when the server is configured for it.
const (
	ModePaper = "PAPER"
	ModeLive  = "LIVE"
)

// Trade statuses. A trade goes OPEN -> CLOSED exactly once and is never deleted.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Trade represents a single journal entry for a position.
// Close-time fields (ExitPrice, ClosedAt, PnL, RR) stay nil while the trade is OPEN.
type Trade struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID string `gorm:"type:varchar(36);index:idx_trades_user_opened" json:"user_id"`

	Symbol   string `gorm:"type:varchar(32);index" json:"symbol"`
	Strategy string `gorm:"type:varchar(64);default:unknown" json:"strategy"`

	Mode   string `gorm:"type:varchar(16);default:PAPER" json:"mode"`
	Status string `gorm:"type:varchar(16);default:OPEN" json:"status"`

	OpenedAt time.Time  `gorm:"index:idx_trades_user_opened" json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at"`

	EntryPrice float64  `json:"entry_price"`
	ExitPrice  *float64 `json:"exit_price"`

	Qty float64 `json:"qty"`

	RiskPct         float64 `json:"risk_pct"`
	StopDistancePct float64 `json:"stop_distance_pct"`

	// PnL is the realized profit in quote currency; RR the reward:risk multiple.
	PnL *float64 `gorm:"column:pnl" json:"pnl"`
	RR  *float64 `json:"rr"`

	RuleViolation bool   `gorm:"default:false" json:"rule_violation"`
	Notes         string `gorm:"type:varchar(512)" json:"notes"`
}

// BeforeCreate assigns a UUID primary key and the open timestamp.
func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.OpenedAt.IsZero() {
		t.OpenedAt = time.Now().UTC()
	}
	return nil
}
