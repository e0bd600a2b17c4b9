package nexus

import "math"

// MultiTFRegime merges per-timeframe classifications into one view.
type MultiTFRegime struct {
	FinalRegime     string
	FinalVolatility string
	Confidence      float64 // 0..1
	PerTF           map[string]RegimeResult
}

// Combine merges timeframe classifications:
// majority vote for the regime, volatility high when at least two
// timeframes are high, and confidence that grows with agreement and
// slope strength.
func Combine(perTF map[string]RegimeResult) MultiTFRegime {
	trendVotes := 0
	highVolVotes := 0
	var slopeSum float64
	for _, r := range perTF {
		if r.Regime == RegimeTrend {
			trendVotes++
		}
		if r.Volatility == VolatilityHigh {
			highVolVotes++
		}
		slopeSum += math.Abs(r.Slope)
	}

	total := len(perTF)
	rangeVotes := total - trendVotes

	finalRegime := RegimeRange
	if trendVotes > rangeVotes {
		finalRegime = RegimeTrend
	}

	finalVol := VolatilityLow
	if highVolVotes >= 2 {
		finalVol = VolatilityHigh
	}

	denom := float64(total)
	if denom < 1 {
		denom = 1
	}

	agreeRegime := float64(max(trendVotes, rangeVotes)) / denom
	volAgree := highVolVotes
	if finalVol == VolatilityLow {
		volAgree = total - highVolVotes
	}
	agreeVol := float64(volAgree) / denom

	// Normalize mean slope against a rough "strong trend" scale.
	slopeBonus := clamp01(slopeSum / denom / 0.002)

	confidence := clamp01(0.55*agreeRegime + 0.25*agreeVol + 0.20*slopeBonus)

	return MultiTFRegime{
		FinalRegime:     finalRegime,
		FinalVolatility: finalVol,
		Confidence:      confidence,
		PerTF:           perTF,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
