package nexus

import "errors"

// Error taxonomy surfaced to API clients. Handlers map these to 4xx/502
// responses; everything else is a 500.
var (
	// ErrValidation marks malformed or out-of-policy input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to a trade the caller does not own or
	// that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate marks an open-position policy conflict.
	ErrDuplicate = errors.New("duplicate open position")

	// ErrMarketData marks an upstream market data failure. The decision
	// engine cannot classify the market without candles.
	ErrMarketData = errors.New("market data unavailable")
)
