package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().SetBaseURL(server.URL)
	logger := zap.NewNop() // Use a no-op logger for tests

	c := &Client{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}

	return c, server
}

func TestGetServerTime(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		expectedTime := time.Now().UnixMilli()
		mockResponse := fmt.Sprintf(`{"serverTime": %d}`, expectedTime)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/time", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(mockResponse))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		// Act
		serverTime, err := c.GetServerTime(context.Background())

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, expectedTime, serverTime)
	})

	t.Run("APIError", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code": -1100, "msg": "Illegal parameter"}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		// Act
		serverTime, err := c.GetServerTime(context.Background())

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get server time")
		assert.Equal(t, int64(0), serverTime)
	})
}

func TestGetCandles(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange: Binance kline arrays mix numeric timestamps with string prices.
		mockResponse := `[
			[1700000000000, "100.0", "101.5", "99.5", "101.0", "1234.5", 1700000059999, "0", 10, "0", "0", "0"],
			[1700000060000, "101.0", "102.0", "100.5", "101.8", "2345.6", 1700000119999, "0", 12, "0", "0", "0"]
		]`

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/klines", r.URL.Path)
			assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
			assert.Equal(t, "1m", r.URL.Query().Get("interval"))
			assert.Equal(t, "300", r.URL.Query().Get("limit"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(mockResponse))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		// Act
		candles, err := c.GetCandles(context.Background(), "btcusdt", Interval1m, 300)

		// Assert
		assert.NoError(t, err)
		assert.Len(t, candles, 2)
		assert.Equal(t, 100.0, candles[0].Open)
		assert.Equal(t, 101.0, candles[0].Close)
		assert.Equal(t, 1234.5, candles[0].Volume)
		assert.Equal(t, time.UnixMilli(1700000000000).UTC(), candles[0].OpenTime)
		assert.Equal(t, 101.8, candles[1].Close)
	})

	t.Run("MalformedKline", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[[1700000000000, "100.0"]]`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		candles, err := c.GetCandles(context.Background(), "BTCUSDT", Interval1m, 300)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "malformed kline")
		assert.Nil(t, candles)
	})

	t.Run("RetriesOn429", func(t *testing.T) {
		// Arrange: first call is rate limited, second succeeds.
		calls := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[[1700000000000, "1", "1", "1", "1", "1", 1700000059999, "0", 1, "0", "0", "0"]]`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		// Act
		candles, err := c.GetCandles(context.Background(), "BTCUSDT", Interval5m, 10)

		// Assert
		assert.NoError(t, err)
		assert.Len(t, candles, 1)
		assert.Equal(t, 2, calls)
	})
}
