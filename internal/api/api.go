package api

import (
	"context"
	"time"

	"github.com/drakos74/goldmind/internal/model"
)

// Exchange exposes the low level interface for interacting with the execution venue.
// Every call may fail transiently, the caller must not assume success.
type Exchange interface {
	// Price returns the current ask price for the working symbol.
	Price(ctx context.Context) (float64, error)
	// Candles returns the ordered OHLC series for the active timeframe.
	Candles(ctx context.Context, timeframe model.Timeframe) ([]model.Candle, error)
	// SwitchTimeframe changes the active chart timeframe.
	SwitchTimeframe(ctx context.Context, timeframe model.Timeframe) error
	// OpenPositions returns the positions currently open on the venue.
	OpenPositions(ctx context.Context) ([]model.OpenPosition, error)
	// PlaceOrder opens a market order with the given protection distances.
	PlaceOrder(ctx context.Context, t model.Type, stopLoss, takeProfit float64) error
	// ClosePosition closes the currently open position.
	ClosePosition(ctx context.Context) error
	// ModifyStop moves the stop loss of the open position.
	ModifyStop(ctx context.Context, ticket string, stopLoss float64) error
	// History returns the closed trades reported by the venue since the given time.
	History(ctx context.Context, since time.Time) ([]model.ClosedTrade, error)
	// Metrics returns the live account numbers.
	Metrics(ctx context.Context) (model.AccountMetrics, error)
}

// Verdict is the strict response shape of the analysis collaborator.
type Verdict struct {
	Action     model.Type
	StopLoss   float64
	TakeProfit float64
	Reason     string
}

// Analyst is the external analysis collaborator consulted by each persona.
// A malformed response or a timeout is returned as an error and is the
// persona's own failure mode, never the council's.
type Analyst interface {
	Analyze(ctx context.Context, role string, market string, candles []model.Candle) (Verdict, error)
}
