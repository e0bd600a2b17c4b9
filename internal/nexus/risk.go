package nexus

import (
	"fmt"

	"nexus-backend/internal/config"
)

// RiskResult is the output of position sizing.
type RiskResult struct {
	// FinalRiskPct is the risk % actually granted after caps.
	FinalRiskPct float64
	// RiskAmountUSD is the equity at risk if the stop is hit:
	// equity * final_risk_pct / 100.
	RiskAmountUSD float64
	// PositionSizeUSD is the notional that loses RiskAmountUSD when price
	// moves stop_distance_pct against the entry:
	// risk_amount / (stop_distance_pct / 100).
	PositionSizeUSD float64
	Reasons         []string
}

// RiskService sizes positions with beginner-safe caps:
// start from the intended risk %, cap at the per-trade maximum, and cap
// harder when volatility is high.
type RiskService struct {
	cfg *config.Risk
}

// NewRiskService creates a risk sizing service.
func NewRiskService(cfg *config.Risk) *RiskService {
	return &RiskService{cfg: cfg}
}

// Compute sizes a position for the given account equity and stop distance.
func (s *RiskService) Compute(accountEquity, intendedRiskPct, stopDistancePct float64, volatility string) RiskResult {
	var reasons []string

	riskPct := intendedRiskPct
	if riskPct > s.cfg.MaxRiskPerTradePct {
		riskPct = s.cfg.MaxRiskPerTradePct
		reasons = append(reasons, fmt.Sprintf("Risk capped to %.2f%% (beginner-safe limit).", s.cfg.MaxRiskPerTradePct))
	}

	if volatility == VolatilityHigh && riskPct > s.cfg.HighVolRiskCapPct {
		riskPct = s.cfg.HighVolRiskCapPct
		reasons = append(reasons, fmt.Sprintf("High volatility detected: risk reduced to %.2f%%.", s.cfg.HighVolRiskCapPct))
	}

	// Floor the stop distance to avoid divide-by-zero on degenerate input.
	if stopDistancePct < s.cfg.MinStopDistancePct {
		stopDistancePct = s.cfg.MinStopDistancePct
	}

	riskAmount := accountEquity * riskPct / 100.0
	positionSize := riskAmount / (stopDistancePct / 100.0)

	return RiskResult{
		FinalRiskPct:    riskPct,
		RiskAmountUSD:   riskAmount,
		PositionSizeUSD: positionSize,
		Reasons:         reasons,
	}
}
