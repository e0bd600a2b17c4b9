package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"nexus-backend/internal/auth"
	"nexus-backend/internal/market"
	"nexus-backend/internal/nexus"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := s.authSvc.Register(req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "bearer", UserID: user.ID})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := s.authSvc.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", UserID: user.ID})
}

func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.sessions.Detect(time.Now()))
}

// chartCandle is the shape charting frontends expect: unix seconds plus OHLC.
type chartCandle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

const maxCandleLimit = 500

func (s *Server) handleCandles(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "BTCUSDT")
	interval := c.DefaultQuery("interval", market.Interval5m)

	limit := 200
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxCandleLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be in 1..%d", maxCandleLimit)})
			return
		}
		limit = parsed
	}

	candles, err := s.candles.GetCandles(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: %s %s: %v", nexus.ErrMarketData, symbol, interval, err))
		return
	}

	out := make([]chartCandle, 0, len(candles))
	for _, k := range candles {
		out = append(out, chartCandle{
			Time:  k.OpenTime.Unix(),
			Open:  k.Open,
			High:  k.High,
			Low:   k.Low,
			Close: k.Close,
		})
	}
	c.JSON(http.StatusOK, out)
}

type checkTradeRequest struct {
	Symbol          string  `json:"symbol" binding:"required"`
	Strategy        string  `json:"strategy" binding:"required"`
	AccountEquity   float64 `json:"account_equity"`
	IntendedRiskPct float64 `json:"intended_risk_pct"`
	StopDistancePct float64 `json:"stop_distance_pct"`
	Timeframe       string  `json:"timeframe"`
}

func (s *Server) handleCheckTrade(c *gin.Context) {
	var req checkTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := auth.CurrentUser(c)
	res, err := s.decision.CheckTrade(c.Request.Context(), nexus.CheckTradeRequest{
		UserID:          user.ID,
		Symbol:          req.Symbol,
		Strategy:        req.Strategy,
		AccountEquity:   req.AccountEquity,
		IntendedRiskPct: req.IntendedRiskPct,
		StopDistancePct: req.StopDistancePct,
		Timeframe:       req.Timeframe,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type openTradeRequest struct {
	Symbol          string  `json:"symbol" binding:"required"`
	Strategy        string  `json:"strategy" binding:"required"`
	EntryPrice      float64 `json:"entry_price"`
	Qty             float64 `json:"qty"`
	RiskPct         float64 `json:"risk_pct"`
	StopDistancePct float64 `json:"stop_distance_pct"`
	Mode            string  `json:"mode"`
	Notes           string  `json:"notes"`
}

func (s *Server) handleOpenTrade(c *gin.Context) {
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := auth.CurrentUser(c)
	trade, err := s.journal.OpenTrade(nexus.OpenTradeRequest{
		UserID:          user.ID,
		Symbol:          req.Symbol,
		Strategy:        req.Strategy,
		EntryPrice:      req.EntryPrice,
		Qty:             req.Qty,
		RiskPct:         req.RiskPct,
		StopDistancePct: req.StopDistancePct,
		Mode:            req.Mode,
		Notes:           req.Notes,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

type closeTradeRequest struct {
	TradeID       string   `json:"trade_id" binding:"required"`
	ExitPrice     float64  `json:"exit_price"`
	PnL           float64  `json:"pnl"`
	RR            *float64 `json:"rr"`
	RuleViolation bool     `json:"rule_violation"`
	Notes         string   `json:"notes"`
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	var req closeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := auth.CurrentUser(c)
	trade, err := s.journal.CloseTrade(nexus.CloseTradeRequest{
		UserID:        user.ID,
		TradeID:       req.TradeID,
		ExitPrice:     req.ExitPrice,
		PnL:           req.PnL,
		RR:            req.RR,
		RuleViolation: req.RuleViolation,
		Notes:         req.Notes,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleListTrades(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}

	user := auth.CurrentUser(c)
	trades, err := s.journal.ListTrades(user.ID, days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

type dailyReport struct {
	Day               string  `json:"day"`
	Trades            int     `json:"trades"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	RealizedPnL       float64 `json:"realized_pnl"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	CooldownUntil     *string `json:"cooldown_until"`
}

func (s *Server) handleDailyReport(c *gin.Context) {
	user := auth.CurrentUser(c)
	day := time.Now().UTC().Truncate(24 * time.Hour)

	ds, err := s.behavior.GetOrCreateDaily(user.ID, day)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var cooldown *string
	if ds.CooldownUntil != nil {
		v := ds.CooldownUntil.Format(time.RFC3339)
		cooldown = &v
	}
	c.JSON(http.StatusOK, dailyReport{
		Day:               ds.Day.Format("2006-01-02"),
		Trades:            ds.TradesCount,
		Wins:              ds.Wins,
		Losses:            ds.Losses,
		RealizedPnL:       ds.RealizedPnL,
		ConsecutiveLosses: ds.ConsecutiveLosses,
		CooldownUntil:     cooldown,
	})
}

type weeklyReport struct {
	StartDay             string  `json:"start_day"`
	EndDay               string  `json:"end_day"`
	Trades               int     `json:"trades"`
	Wins                 int     `json:"wins"`
	Losses               int     `json:"losses"`
	RealizedPnL          float64 `json:"realized_pnl"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

func (s *Server) handleWeeklyReport(c *gin.Context) {
	user := auth.CurrentUser(c)
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -6)

	rows, err := s.behavior.DailyRange(user.ID, start, end)
	if err != nil {
		s.writeError(c, err)
		return
	}

	report := weeklyReport{
		StartDay: start.Format("2006-01-02"),
		EndDay:   end.Format("2006-01-02"),
	}
	for _, ds := range rows {
		report.Trades += ds.TradesCount
		report.Wins += ds.Wins
		report.Losses += ds.Losses
		report.RealizedPnL += ds.RealizedPnL
		if ds.ConsecutiveLosses > report.MaxConsecutiveLosses {
			report.MaxConsecutiveLosses = ds.ConsecutiveLosses
		}
	}
	c.JSON(http.StatusOK, report)
}

// writeError maps service errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, nexus.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, nexus.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, nexus.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, nexus.ErrMarketData):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
