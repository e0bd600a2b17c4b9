package nexus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"nexus-backend/internal/config"
	"nexus-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenTradeRequest carries the parameters for a new journal entry.
type OpenTradeRequest struct {
	UserID          string
	Symbol          string
	Strategy        string
	EntryPrice      float64
	Qty             float64
	RiskPct         float64
	StopDistancePct float64
	Mode            string
	Notes           string
}

// CloseTradeRequest carries the realized result for an open trade.
type CloseTradeRequest struct {
	UserID        string
	TradeID       string
	ExitPrice     float64
	PnL           float64
	RR            *float64
	RuleViolation bool
	Notes         string
}

// Journal manages the trade lifecycle: entries are created OPEN, closed
// exactly once, and never deleted.
type Journal struct {
	db       *gorm.DB
	risk     *config.Risk
	trading  *config.Trading
	behavior *BehaviorService
	logger   *zap.Logger
}

// NewJournal creates the trade lifecycle service.
func NewJournal(db *gorm.DB, risk *config.Risk, trading *config.Trading, behavior *BehaviorService, logger *zap.Logger) *Journal {
	return &Journal{
		db:       db,
		risk:     risk,
		trading:  trading,
		behavior: behavior,
		logger:   logger,
	}
}

// OpenTrade validates and records a new OPEN trade.
// A user may hold at most one OPEN trade per symbol+strategy+mode.
func (j *Journal) OpenTrade(req OpenTradeRequest) (*models.Trade, error) {
	if err := j.validateOpen(&req); err != nil {
		return nil, err
	}

	trade := models.Trade{
		UserID:          req.UserID,
		Symbol:          strings.ToUpper(req.Symbol),
		Strategy:        req.Strategy,
		EntryPrice:      req.EntryPrice,
		Qty:             req.Qty,
		RiskPct:         req.RiskPct,
		StopDistancePct: req.StopDistancePct,
		Mode:            req.Mode,
		Status:          models.StatusOpen,
		Notes:           req.Notes,
	}

	err := j.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Trade
		err := tx.
			Where("user_id = ? AND symbol = ? AND strategy = ? AND mode = ? AND status = ?",
				trade.UserID, trade.Symbol, trade.Strategy, trade.Mode, models.StatusOpen).
			First(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: an OPEN %s trade for %s/%s already exists",
				ErrDuplicate, trade.Mode, trade.Symbol, trade.Strategy)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("could not check open positions: %w", err)
		}

		return tx.Create(&trade).Error
	})
	if err != nil {
		return nil, err
	}

	j.logger.Info("Trade opened",
		zap.String("trade_id", trade.ID),
		zap.String("user_id", trade.UserID),
		zap.String("symbol", trade.Symbol),
		zap.String("mode", trade.Mode),
	)
	return &trade, nil
}

func (j *Journal) validateOpen(req *OpenTradeRequest) error {
	if req.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry_price must be positive", ErrValidation)
	}
	if req.Qty <= 0 {
		return fmt.Errorf("%w: qty must be positive", ErrValidation)
	}
	if req.RiskPct <= 0 || req.RiskPct > j.risk.MaxRiskPerTradePct {
		return fmt.Errorf("%w: risk_pct must be in (0, %.2f]", ErrValidation, j.risk.MaxRiskPerTradePct)
	}
	if req.StopDistancePct <= 0 {
		return fmt.Errorf("%w: stop_distance_pct must be positive", ErrValidation)
	}

	switch req.Mode {
	case "":
		req.Mode = models.ModePaper
	case models.ModePaper:
	case models.ModeLive:
		if !j.trading.AllowLiveMode {
			return fmt.Errorf("%w: LIVE mode is disabled on this server", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: mode must be PAPER or LIVE", ErrValidation)
	}
	return nil
}

// CloseTrade transitions an OPEN trade to CLOSED and records the result.
// The status flip is a conditional update inside a transaction, so two
// concurrent closes cannot both succeed.
func (j *Journal) CloseTrade(req CloseTradeRequest) (*models.Trade, error) {
	if req.ExitPrice <= 0 {
		return nil, fmt.Errorf("%w: exit_price must be positive", ErrValidation)
	}
	if req.RR != nil && *req.RR < 0 {
		return nil, fmt.Errorf("%w: rr must not be negative", ErrValidation)
	}

	var trade models.Trade
	err := j.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", req.TradeID, req.UserID).First(&trade).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: trade %s", ErrNotFound, req.TradeID)
		}
		if err != nil {
			return fmt.Errorf("could not load trade: %w", err)
		}

		notes := trade.Notes
		if req.Notes != "" {
			if notes != "" {
				notes += "\n"
			}
			notes += req.Notes
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Trade{}).
			Where("id = ? AND status = ?", trade.ID, models.StatusOpen).
			Updates(map[string]interface{}{
				"status":         models.StatusClosed,
				"closed_at":      now,
				"exit_price":     req.ExitPrice,
				"pnl":            req.PnL,
				"rr":             req.RR,
				"rule_violation": req.RuleViolation,
				"notes":          notes,
			})
		if res.Error != nil {
			return fmt.Errorf("could not close trade: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: trade %s is not OPEN", ErrValidation, trade.ID)
		}

		return tx.First(&trade, "id = ?", trade.ID).Error
	})
	if err != nil {
		return nil, err
	}

	if err := j.behavior.UpdateOnTradeClose(req.UserID, req.PnL); err != nil {
		// The trade is already closed; losing the stat update must not
		// roll that back.
		j.logger.Error("Failed to update daily stats after close",
			zap.String("trade_id", trade.ID), zap.Error(err))
	}

	j.logger.Info("Trade closed",
		zap.String("trade_id", trade.ID),
		zap.String("user_id", trade.UserID),
		zap.Float64("pnl", req.PnL),
	)
	return &trade, nil
}

// ListTrades returns the user's trades opened in the last N days, newest first.
func (j *Journal) ListTrades(userID string, days int) ([]models.Trade, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var trades []models.Trade
	err := j.db.
		Where("user_id = ? AND opened_at >= ?", userID, since).
		Order("opened_at desc").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("could not list trades: %w", err)
	}
	return trades, nil
}
