package nexus

import (
	"math"
	"sort"

	"nexus-backend/internal/market"
)

// Regime and volatility labels.
const (
	RegimeTrend = "trend"
	RegimeRange = "range"

	VolatilityHigh = "high"
	VolatilityLow  = "low"
)

const (
	// regressionWindow bounds how many trailing bars feed the slope fit.
	regressionWindow = 120
	// rollingVolWindow is the sample size for each historical volatility point.
	rollingVolWindow = 30
)

// RegimeResult classifies a single timeframe.
type RegimeResult struct {
	Regime     string  // trend or range
	Volatility string  // high or low
	Slope      float64 // log-price slope per bar
	Vol        float64 // std of log returns over the window
}

// RegimeService derives trend-vs-range from the rolling slope of log price
// (least squares) and the volatility state from where the current rolling
// std of returns sits against its own history.
type RegimeService struct {
	// TrendSlopeThreshold is the minimum absolute log-price slope per bar
	// to call a trend.
	TrendSlopeThreshold float64
	// HighVolQuantile is the percentile of historical rolling vols above
	// which the current vol counts as high.
	HighVolQuantile float64
}

// NewRegimeService creates a classifier with default thresholds.
func NewRegimeService() *RegimeService {
	return &RegimeService{
		TrendSlopeThreshold: 1e-4,
		HighVolQuantile:     0.8,
	}
}

// Classify labels one series of candles.
func (s *RegimeService) Classify(candles []market.Candle) RegimeResult {
	logp := make([]float64, len(candles))
	for i, c := range candles {
		logp[i] = math.Log(c.Close + 1e-9)
	}

	window := len(logp)
	if window > regressionWindow {
		window = regressionWindow
	}

	slope := regressionSlope(logp[len(logp)-window:])

	rets := diff(logp)
	var vol float64
	if len(rets) >= window {
		vol = stddev(rets[len(rets)-window:])
	} else {
		vol = stddev(rets)
	}

	// Compare the current vol against rolling vols from the same series.
	// With too little history, default to low.
	volatility := VolatilityLow
	if len(rets) > 60 {
		vols := rollingStddev(rets, rollingVolWindow)
		if len(vols) > 10 {
			thr := quantile(vols, s.HighVolQuantile)
			if vol >= thr {
				volatility = VolatilityHigh
			}
		}
	}

	regime := RegimeRange
	if math.Abs(slope) >= s.TrendSlopeThreshold {
		regime = RegimeTrend
	}

	return RegimeResult{Regime: regime, Volatility: volatility, Slope: slope, Vol: vol}
}

// regressionSlope fits y = a + b*x over x = 0..n-1 and returns b.
func regressionSlope(y []float64) float64 {
	n := len(y)
	if n < 2 {
		return 0
	}

	xMean := float64(n-1) / 2.0
	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	var num, den float64
	for i, v := range y {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	return num / (den + 1e-9)
}

func diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))

	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// rollingStddev computes the std over each trailing window of the series.
func rollingStddev(xs []float64, window int) []float64 {
	if len(xs) < window {
		return nil
	}
	out := make([]float64, 0, len(xs)-window+1)
	for i := window; i <= len(xs); i++ {
		out = append(out, stddev(xs[i-window:i]))
	}
	return out
}

// quantile returns the q-th quantile (0..1) with linear interpolation.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
