package nexus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nexus-backend/internal/config"
	"nexus-backend/internal/market"

	"go.uber.org/zap"
)

// Decisions returned by the check-trade engine.
const (
	DecisionAllow = "ALLOW"
	DecisionWarn  = "WARN"
	DecisionBlock = "BLOCK"
)

// checkTimeframes are the candle series the engine always inspects,
// regardless of the timeframe the user intends to trade on.
var checkTimeframes = []string{market.Interval1m, market.Interval5m, market.Interval15m}

// candleLimit is how many bars each timeframe contributes.
const candleLimit = 300

// CheckTradeRequest is a proposed trade to validate.
type CheckTradeRequest struct {
	UserID          string
	Symbol          string
	Strategy        string
	AccountEquity   float64
	IntendedRiskPct float64
	StopDistancePct float64
	Timeframe       string
}

// DecisionResult is the engine's verdict on a proposed trade.
type DecisionResult struct {
	Decision        string   `json:"decision"`
	QualityScore    float64  `json:"quality_score"`
	RiskPct         float64  `json:"risk_pct"`
	RiskAmountUSD   float64  `json:"risk_amount_usd"`
	PositionSizeUSD float64  `json:"position_size_usd"`
	Reasons         []string `json:"reasons"`
	SuggestedAction []string `json:"suggested_actions"`
	MarketRegime    string   `json:"market_regime"`
	VolatilityState string   `json:"volatility_state"`
	Session         string   `json:"session"`
	SessionNote     string   `json:"session_note"`
}

// DecisionService combines behavior guardrails, multi-timeframe regime
// detection, risk sizing, session awareness and strategy-fit scoring into
// a single ALLOW/WARN/BLOCK verdict.
type DecisionService struct {
	candles  market.CandleSource
	regime   *RegimeService
	risk     *RiskService
	behavior *BehaviorService
	sessions *SessionService
	cfg      *config.Risk
	logger   *zap.Logger
}

// NewDecisionService wires the engine together.
func NewDecisionService(
	candles market.CandleSource,
	regime *RegimeService,
	risk *RiskService,
	behavior *BehaviorService,
	sessions *SessionService,
	cfg *config.Risk,
	logger *zap.Logger,
) *DecisionService {
	return &DecisionService{
		candles:  candles,
		regime:   regime,
		risk:     risk,
		behavior: behavior,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// CheckTrade runs the full validation pipeline for a proposed trade.
func (s *DecisionService) CheckTrade(ctx context.Context, req CheckTradeRequest) (*DecisionResult, error) {
	if err := validateCheck(req); err != nil {
		return nil, err
	}

	beh, err := s.behavior.Check(req.UserID)
	if err != nil {
		return nil, err
	}

	// Classify the market even when behavior already blocks, so the
	// caller still gets regime context.
	perTF := make(map[string]RegimeResult, len(checkTimeframes))
	for _, tf := range checkTimeframes {
		candles, err := s.candles.GetCandles(ctx, req.Symbol, tf, candleLimit)
		if err != nil {
			s.logger.Warn("Candle fetch failed",
				zap.String("symbol", req.Symbol), zap.String("interval", tf), zap.Error(err))
			return nil, fmt.Errorf("%w: %s %s: %v", ErrMarketData, req.Symbol, tf, err)
		}
		perTF[tf] = s.regime.Classify(candles)
	}
	multi := Combine(perTF)

	session := s.sessions.Detect(time.Now())

	risk := s.risk.Compute(req.AccountEquity, req.IntendedRiskPct, req.StopDistancePct, multi.FinalVolatility)
	finalRiskPct := risk.FinalRiskPct * session.RiskMultiplier

	regimeLabel := fmt.Sprintf("%s (conf %.2f)", multi.FinalRegime, multi.Confidence)

	base := DecisionResult{
		RiskPct:         finalRiskPct,
		RiskAmountUSD:   risk.RiskAmountUSD,
		PositionSizeUSD: risk.PositionSizeUSD,
		MarketRegime:    regimeLabel,
		VolatilityState: multi.FinalVolatility,
		Session:         session.Name,
		SessionNote:     session.Note,
	}

	if !beh.Allowed {
		res := base
		res.Decision = DecisionBlock
		res.QualityScore = 0
		res.Reasons = append(append([]string{}, beh.Reasons...), risk.Reasons...)
		res.SuggestedAction = append(append([]string{}, beh.SuggestedActions...),
			"Switch to paper review mode.")
		return &res, nil
	}

	quality, fitReasons := s.strategyFitScore(multi.FinalRegime, multi.FinalVolatility, req.Strategy)

	reasons := append(fitReasons, risk.Reasons...)
	var suggested []string

	if multi.Confidence < s.cfg.LowConfidenceThreshold {
		reasons = append(reasons,
			fmt.Sprintf("Low regime confidence (%.2f): conditions unclear.", multi.Confidence))

		if quality < s.cfg.WarnQualityThreshold {
			res := base
			res.Decision = DecisionBlock
			res.QualityScore = quality
			res.Reasons = reasons
			res.SuggestedAction = []string{
				"Wait for clearer market structure.",
				"Switch timeframe to 15m for confirmation.",
			}
			return &res, nil
		}
		suggested = append(suggested, "Proceed only with extra confirmation; consider reducing size.")
	}

	if quality < s.cfg.BlockQualityThreshold {
		res := base
		res.Decision = DecisionBlock
		res.QualityScore = quality
		res.Reasons = append(reasons, "Trade quality score too low.")
		res.SuggestedAction = []string{
			"Wait for a clearer setup.",
			"Consider changing strategy for the current regime.",
		}
		return &res, nil
	}

	decision := DecisionAllow
	if quality < s.cfg.WarnQualityThreshold {
		decision = DecisionWarn
		suggested = append(suggested, "Lower position size or wait for confirmation.")
	}

	if multi.FinalVolatility == VolatilityHigh {
		suggested = append(suggested, "Use wider stops or smaller size; expect faster swings.")
	}

	if len(suggested) == 0 {
		suggested = []string{"Proceed only if your setup matches your plan and stop is respected."}
	}

	res := base
	res.Decision = decision
	res.QualityScore = quality
	res.Reasons = reasons
	res.SuggestedAction = suggested
	return &res, nil
}

func validateCheck(req CheckTradeRequest) error {
	if req.AccountEquity <= 0 {
		return fmt.Errorf("%w: account_equity must be positive", ErrValidation)
	}
	if req.IntendedRiskPct <= 0 || req.IntendedRiskPct > 100 {
		return fmt.Errorf("%w: intended_risk_pct must be in (0, 100]", ErrValidation)
	}
	if req.StopDistancePct <= 0 {
		return fmt.Errorf("%w: stop_distance_pct must be positive", ErrValidation)
	}
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	return nil
}

// strategyFitScore rates how well a strategy suits the detected regime.
// Returns a score in [0, 1] and the reasons for any penalty.
func (s *DecisionService) strategyFitScore(regime, volatility, strategy string) (float64, []string) {
	var reasons []string
	score := 1.0

	if strings.Contains(strings.ToLower(strategy), "breakout") && regime == RegimeRange {
		score -= 0.35
		reasons = append(reasons, "Breakout strategy underperforms in range markets.")
	}

	switch volatility {
	case VolatilityHigh:
		score -= 0.15
		reasons = append(reasons, "High volatility increases false signals.")
	case VolatilityLow:
		score -= 0.10
		reasons = append(reasons, "Low volatility reduces momentum follow-through.")
	}

	if score < 0 {
		score = 0
	}
	return score, reasons
}
