package nexus

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"nexus-backend/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubCandles struct {
	candles []market.Candle
	err     error
}

func (s *stubCandles) GetCandles(_ context.Context, _, _ string, _ int) ([]market.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candles, nil
}

func newTestDecision(t *testing.T, src market.CandleSource) (*DecisionService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := testRiskConfig()
	svc := NewDecisionService(
		src,
		NewRegimeService(),
		NewRiskService(cfg),
		NewBehaviorService(db, cfg),
		NewSessionService(),
		cfg,
		zap.NewNop(),
	)
	return svc, db
}

// trendingCandles is a steady uptrend whose recent window is calmer than
// its history, so it classifies as trend with low volatility.
func trendingCandles() []market.Candle {
	closes := make([]float64, 300)
	for i := range closes {
		c := 100 * math.Exp(0.002*float64(i))
		if i < 240 && i%2 == 0 {
			c *= 1.004
		}
		closes[i] = c
	}
	return candlesFromCloses(closes)
}

// choppyCandles is a flat series that turns violently volatile near the
// end, so it classifies as range with high volatility.
func choppyCandles() []market.Candle {
	closes := make([]float64, 300)
	for i := range closes {
		base := 100.0
		if i >= 240 {
			if i%2 == 0 {
				base += 2.0
			} else {
				base -= 2.0
			}
		} else if i%2 == 0 {
			base += 0.02
		}
		closes[i] = base
	}
	return candlesFromCloses(closes)
}

func validCheckRequest() CheckTradeRequest {
	return CheckTradeRequest{
		UserID:          "user-1",
		Symbol:          "BTCUSDT",
		Strategy:        "mean_reversion",
		AccountEquity:   1000,
		IntendedRiskPct: 1.0,
		StopDistancePct: 0.5,
		Timeframe:       "1m",
	}
}

func TestCheckTrade(t *testing.T) {
	t.Run("AllowOnCleanTrend", func(t *testing.T) {
		svc, _ := newTestDecision(t, &stubCandles{candles: trendingCandles()})

		res, err := svc.CheckTrade(context.Background(), validCheckRequest())

		require.NoError(t, err)
		assert.Equal(t, DecisionAllow, res.Decision)
		assert.GreaterOrEqual(t, res.QualityScore, 0.55)
		// 1% of 1000 equity risks 10 USD; with a 0.5% stop that is 2000 USD notional.
		assert.InDelta(t, 10.0, res.RiskAmountUSD, 1e-9)
		assert.InDelta(t, 2000.0, res.PositionSizeUSD, 1e-9)
		// The session multiplier only scales the granted risk %.
		assert.Greater(t, res.RiskPct, 0.0)
		assert.LessOrEqual(t, res.RiskPct, 1.0)
		assert.Contains(t, res.MarketRegime, RegimeTrend)
		assert.Equal(t, VolatilityLow, res.VolatilityState)
		assert.NotEmpty(t, res.Session)
		assert.NotEmpty(t, res.SuggestedAction)
	})

	t.Run("WarnOnBreakoutInVolatileRange", func(t *testing.T) {
		svc, _ := newTestDecision(t, &stubCandles{candles: choppyCandles()})

		req := validCheckRequest()
		req.Strategy = "breakout"
		res, err := svc.CheckTrade(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, DecisionWarn, res.Decision)
		assert.Less(t, res.QualityScore, 0.55)
		assert.Contains(t, res.MarketRegime, RegimeRange)
		assert.Equal(t, VolatilityHigh, res.VolatilityState)
		// High volatility also tightens the risk cap.
		assert.InDelta(t, 5.0, res.RiskAmountUSD, 1e-9)
	})

	t.Run("BehaviorBlockShortCircuits", func(t *testing.T) {
		svc, db := newTestDecision(t, &stubCandles{candles: trendingCandles()})

		behavior := NewBehaviorService(db, testRiskConfig())
		ds, err := behavior.GetOrCreateDaily("user-1", utcDay(time.Now()))
		require.NoError(t, err)
		ds.TradesCount = 5
		require.NoError(t, db.Save(ds).Error)

		res, err := svc.CheckTrade(context.Background(), validCheckRequest())

		require.NoError(t, err)
		assert.Equal(t, DecisionBlock, res.Decision)
		assert.Equal(t, 0.0, res.QualityScore)
		assert.Contains(t, res.Reasons[0], "Max trades/day")
		assert.NotEmpty(t, res.SuggestedAction)
	})

	t.Run("ValidationErrors", func(t *testing.T) {
		svc, _ := newTestDecision(t, &stubCandles{candles: trendingCandles()})

		cases := []struct {
			name   string
			mutate func(*CheckTradeRequest)
		}{
			{"ZeroEquity", func(r *CheckTradeRequest) { r.AccountEquity = 0 }},
			{"NegativeRisk", func(r *CheckTradeRequest) { r.IntendedRiskPct = -1 }},
			{"RiskOver100", func(r *CheckTradeRequest) { r.IntendedRiskPct = 150 }},
			{"ZeroStop", func(r *CheckTradeRequest) { r.StopDistancePct = 0 }},
			{"EmptySymbol", func(r *CheckTradeRequest) { r.Symbol = "" }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				req := validCheckRequest()
				tc.mutate(&req)
				_, err := svc.CheckTrade(context.Background(), req)
				assert.ErrorIs(t, err, ErrValidation)
			})
		}
	})

	t.Run("MarketDataFailure", func(t *testing.T) {
		svc, _ := newTestDecision(t, &stubCandles{err: errors.New("connection refused")})

		_, err := svc.CheckTrade(context.Background(), validCheckRequest())

		assert.ErrorIs(t, err, ErrMarketData)
	})
}
