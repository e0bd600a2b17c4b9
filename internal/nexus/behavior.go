package nexus

import (
	"errors"
	"fmt"
	"time"

	"nexus-backend/internal/config"
	"nexus-backend/internal/models"

	"gorm.io/gorm"
)

// consecutiveLossLimit triggers the cooldown once reached.
const consecutiveLossLimit = 2

// BehaviorResult is the outcome of the discipline guardrails.
type BehaviorResult struct {
	Allowed          bool
	Reasons          []string
	SuggestedActions []string
	CooldownUntil    *time.Time
}

// BehaviorService enforces beginner guardrails: a maximum number of trades
// per day and a cooldown after consecutive losses.
type BehaviorService struct {
	db  *gorm.DB
	cfg *config.Risk
}

// NewBehaviorService creates the guardrail service.
func NewBehaviorService(db *gorm.DB, cfg *config.Risk) *BehaviorService {
	return &BehaviorService{db: db, cfg: cfg}
}

// utcDay truncates an instant to its UTC date.
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GetOrCreateDaily loads the user's stat row for a day, creating it if absent.
func (s *BehaviorService) GetOrCreateDaily(userID string, day time.Time) (*models.DailyStat, error) {
	var ds models.DailyStat
	err := s.db.Where("user_id = ? AND day = ?", userID, day).First(&ds).Error
	if err == nil {
		return &ds, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("could not load daily stats: %w", err)
	}

	ds = models.DailyStat{UserID: userID, Day: day}
	if err := s.db.Create(&ds).Error; err != nil {
		return nil, fmt.Errorf("could not create daily stats: %w", err)
	}
	return &ds, nil
}

// Check decides whether the user may trade right now.
func (s *BehaviorService) Check(userID string) (BehaviorResult, error) {
	now := time.Now().UTC()

	ds, err := s.GetOrCreateDaily(userID, utcDay(now))
	if err != nil {
		return BehaviorResult{}, err
	}

	if ds.CooldownUntil != nil && now.Before(*ds.CooldownUntil) {
		return BehaviorResult{
			Allowed: false,
			Reasons: []string{fmt.Sprintf("Cooldown active until %s.", ds.CooldownUntil.Format(time.RFC3339))},
			SuggestedActions: []string{
				"Wait out the cooldown. Review last two trades.",
			},
			CooldownUntil: ds.CooldownUntil,
		}, nil
	}

	if ds.TradesCount >= s.cfg.MaxTradesPerDay {
		return BehaviorResult{
			Allowed: false,
			Reasons: []string{fmt.Sprintf("Max trades/day reached (%d/%d).", ds.TradesCount, s.cfg.MaxTradesPerDay)},
			SuggestedActions: []string{
				"Stop trading for today. Review performance.",
			},
		}, nil
	}

	return BehaviorResult{Allowed: true}, nil
}

// UpdateOnTradeClose records a realized result and arms the cooldown after
// two consecutive losses.
func (s *BehaviorService) UpdateOnTradeClose(userID string, pnl float64) error {
	now := time.Now().UTC()

	ds, err := s.GetOrCreateDaily(userID, utcDay(now))
	if err != nil {
		return err
	}

	ds.TradesCount++
	ds.RealizedPnL += pnl

	if pnl > 0 {
		ds.Wins++
		ds.ConsecutiveLosses = 0
	} else {
		ds.Losses++
		ds.ConsecutiveLosses++
	}

	if ds.ConsecutiveLosses >= consecutiveLossLimit {
		until := now.Add(time.Duration(s.cfg.CooldownMinutes) * time.Minute)
		ds.CooldownUntil = &until
	}

	if err := s.db.Save(ds).Error; err != nil {
		return fmt.Errorf("could not update daily stats: %w", err)
	}
	return nil
}

// DailyRange returns the stat rows for a user between two days inclusive,
// oldest first. Used by the weekly report.
func (s *BehaviorService) DailyRange(userID string, startDay, endDay time.Time) ([]models.DailyStat, error) {
	var rows []models.DailyStat
	err := s.db.
		Where("user_id = ? AND day BETWEEN ? AND ?", userID, startDay, endDay).
		Order("day asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("could not load daily stats range: %w", err)
	}
	return rows, nil
}
