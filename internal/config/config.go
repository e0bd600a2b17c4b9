package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Binance  Binance  `mapstructure:"binance"`
	Auth     Auth     `mapstructure:"auth"`
	Risk     Risk     `mapstructure:"risk"`
	Trading  Trading  `mapstructure:"trading"`
}

// Server holds the configuration for the HTTP server.
type Server struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Binance holds the configuration for the public market data API.
// Only public endpoints are used, so no API key is required.
type Binance struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Auth holds the configuration for token issuing.
type Auth struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`
}

// Risk holds the policy knobs for the trade risk engine.
type Risk struct {
	// MaxRiskPerTradePct caps the per-trade risk % regardless of what the user asks for.
	MaxRiskPerTradePct float64 `mapstructure:"max_risk_per_trade_pct"`
	// HighVolRiskCapPct is the stricter cap applied when volatility is classified high.
	HighVolRiskCapPct float64 `mapstructure:"high_vol_risk_cap_pct"`
	// MinStopDistancePct floors the stop distance used for sizing.
	MinStopDistancePct float64 `mapstructure:"min_stop_distance_pct"`

	MaxTradesPerDay int `mapstructure:"max_trades_per_day"`
	CooldownMinutes int `mapstructure:"cooldown_minutes"`

	LowConfidenceThreshold float64 `mapstructure:"low_confidence_threshold"`
	BlockQualityThreshold  float64 `mapstructure:"block_quality_threshold"`
	WarnQualityThreshold   float64 `mapstructure:"warn_quality_threshold"`
}

// Trading holds journal-level trading policy.
type Trading struct {
	// AllowLiveMode gates LIVE trades; the journal is paper-only by default.
	AllowLiveMode bool `mapstructure:"allow_live_mode"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

func setDefaults() {
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	viper.SetDefault("database.dsn", "nexus.db")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	viper.SetDefault("binance.base_url", "https://api.binance.com/api/v3")
	viper.SetDefault("binance.rate_limit", 20)      // requests per second
	viper.SetDefault("binance.rate_limit_burst", 5) // burst size
	viper.SetDefault("binance.timeout_seconds", 10)

	viper.SetDefault("auth.token_ttl_minutes", 60*24)

	viper.SetDefault("risk.max_risk_per_trade_pct", 1.0)
	viper.SetDefault("risk.high_vol_risk_cap_pct", 0.5)
	viper.SetDefault("risk.min_stop_distance_pct", 0.05)
	viper.SetDefault("risk.max_trades_per_day", 5)
	viper.SetDefault("risk.cooldown_minutes", 60)
	viper.SetDefault("risk.low_confidence_threshold", 0.45)
	viper.SetDefault("risk.block_quality_threshold", 0.35)
	viper.SetDefault("risk.warn_quality_threshold", 0.55)

	viper.SetDefault("trading.allow_live_mode", false)
}
