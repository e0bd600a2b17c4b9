package nexus

import "time"

// Session describes the active crypto trading session (UTC-based).
type Session struct {
	Name           string  `json:"name"`
	Liquidity      string  `json:"liquidity"`
	RiskMultiplier float64 `json:"risk_multiplier"`
	Note           string  `json:"note"`
}

// SessionService maps the clock to a trading session and its risk multiplier.
type SessionService struct{}

// NewSessionService creates a session detector.
func NewSessionService() *SessionService {
	return &SessionService{}
}

// Detect returns the session active at the given instant.
func (s *SessionService) Detect(now time.Time) Session {
	switch hour := now.UTC().Hour(); {
	case hour < 7:
		return Session{
			Name:           "ASIA",
			Liquidity:      "low",
			RiskMultiplier: 0.7,
			Note:           "Lower volatility, prone to fake moves.",
		}
	case hour < 13:
		return Session{
			Name:           "EU",
			Liquidity:      "medium",
			RiskMultiplier: 0.9,
			Note:           "Trend formation and structure building.",
		}
	case hour < 21:
		return Session{
			Name:           "US",
			Liquidity:      "high",
			RiskMultiplier: 1.0,
			Note:           "Highest liquidity and strongest moves.",
		}
	default:
		return Session{
			Name:           "WEEKEND",
			Liquidity:      "very low",
			RiskMultiplier: 0.5,
			Note:           "Avoid trading unless exceptional setup.",
		}
	}
}
