package nexus

import (
	"math"
	"testing"
	"time"

	"nexus-backend/internal/market"

	"github.com/stretchr/testify/assert"
)

func candlesFromCloses(closes []float64) []market.Candle {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   1,
		}
	}
	return out
}

func TestClassify(t *testing.T) {
	svc := NewRegimeService()

	t.Run("TrendingSeries", func(t *testing.T) {
		// Steady exponential drift well above the slope threshold.
		closes := make([]float64, 300)
		for i := range closes {
			closes[i] = 100 * math.Exp(0.002*float64(i))
		}

		res := svc.Classify(candlesFromCloses(closes))

		assert.Equal(t, RegimeTrend, res.Regime)
		assert.InDelta(t, 0.002, res.Slope, 1e-4)
	})

	t.Run("FlatSeriesIsRange", func(t *testing.T) {
		closes := make([]float64, 300)
		for i := range closes {
			closes[i] = 100.0
			if i%2 == 1 {
				closes[i] = 100.05
			}
		}

		res := svc.Classify(candlesFromCloses(closes))

		assert.Equal(t, RegimeRange, res.Regime)
	})

	t.Run("VolatilitySpikeIsHigh", func(t *testing.T) {
		// Calm history, then large swings in the recent window.
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

		res := svc.Classify(candlesFromCloses(closes))

		assert.Equal(t, VolatilityHigh, res.Volatility)
	})

	t.Run("ShortHistoryDefaultsLow", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100 + float64(i%3)
		}

		res := svc.Classify(candlesFromCloses(closes))

		assert.Equal(t, VolatilityLow, res.Volatility)
	})
}

func TestCombine(t *testing.T) {
	t.Run("UnanimousTrend", func(t *testing.T) {
		perTF := map[string]RegimeResult{
			"1m":  {Regime: RegimeTrend, Volatility: VolatilityLow, Slope: 0.002},
			"5m":  {Regime: RegimeTrend, Volatility: VolatilityLow, Slope: 0.002},
			"15m": {Regime: RegimeTrend, Volatility: VolatilityLow, Slope: 0.002},
		}

		res := Combine(perTF)

		assert.Equal(t, RegimeTrend, res.FinalRegime)
		assert.Equal(t, VolatilityLow, res.FinalVolatility)
		assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	})

	t.Run("MajorityRange", func(t *testing.T) {
		perTF := map[string]RegimeResult{
			"1m":  {Regime: RegimeTrend, Volatility: VolatilityLow, Slope: 0.0002},
			"5m":  {Regime: RegimeRange, Volatility: VolatilityLow, Slope: 0},
			"15m": {Regime: RegimeRange, Volatility: VolatilityLow, Slope: 0},
		}

		res := Combine(perTF)

		assert.Equal(t, RegimeRange, res.FinalRegime)
		assert.Less(t, res.Confidence, 1.0)
		assert.Greater(t, res.Confidence, 0.0)
	})

	t.Run("TwoHighVolTimeframesFlipVolatility", func(t *testing.T) {
		perTF := map[string]RegimeResult{
			"1m":  {Regime: RegimeRange, Volatility: VolatilityHigh},
			"5m":  {Regime: RegimeRange, Volatility: VolatilityHigh},
			"15m": {Regime: RegimeRange, Volatility: VolatilityLow},
		}

		res := Combine(perTF)

		assert.Equal(t, VolatilityHigh, res.FinalVolatility)
	})

	t.Run("SingleHighVolStaysLow", func(t *testing.T) {
		perTF := map[string]RegimeResult{
			"1m":  {Regime: RegimeRange, Volatility: VolatilityHigh},
			"5m":  {Regime: RegimeRange, Volatility: VolatilityLow},
			"15m": {Regime: RegimeRange, Volatility: VolatilityLow},
		}

		res := Combine(perTF)

		assert.Equal(t, VolatilityLow, res.FinalVolatility)
	})
}

func TestSessionDetect(t *testing.T) {
	svc := NewSessionService()

	cases := []struct {
		name       string
		hour       int
		session    string
		multiplier float64
	}{
		{"Asia", 3, "ASIA", 0.7},
		{"AsiaBoundary", 6, "ASIA", 0.7},
		{"EU", 10, "EU", 0.9},
		{"US", 15, "US", 1.0},
		{"LateNight", 22, "WEEKEND", 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := time.Date(2025, 6, 2, tc.hour, 30, 0, 0, time.UTC)
			s := svc.Detect(now)
			assert.Equal(t, tc.session, s.Name)
			assert.Equal(t, tc.multiplier, s.RiskMultiplier)
		})
	}
}
