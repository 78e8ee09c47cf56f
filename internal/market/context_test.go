package market

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakos74/goldmind/internal/model"
)

// chartVenue scripts the candle reads of the refresh sequence.
type chartVenue struct {
	candles  map[model.Timeframe][]model.Candle
	failing  map[model.Timeframe]bool
	switches []model.Timeframe
	active   model.Timeframe
}

func (v *chartVenue) Price(ctx context.Context) (float64, error) { return 2000, nil }

func (v *chartVenue) Candles(ctx context.Context, tf model.Timeframe) ([]model.Candle, error) {
	if v.failing[tf] {
		return nil, fmt.Errorf("venue glitch")
	}
	return v.candles[tf], nil
}

func (v *chartVenue) SwitchTimeframe(ctx context.Context, tf model.Timeframe) error {
	v.switches = append(v.switches, tf)
	v.active = tf
	return nil
}

func (v *chartVenue) OpenPositions(ctx context.Context) ([]model.OpenPosition, error) {
	return nil, nil
}
func (v *chartVenue) PlaceOrder(ctx context.Context, t model.Type, sl, tp float64) error {
	return nil
}
func (v *chartVenue) ClosePosition(ctx context.Context) error                 { return nil }
func (v *chartVenue) ModifyStop(ctx context.Context, t string, s float64) error { return nil }
func (v *chartVenue) History(ctx context.Context, since time.Time) ([]model.ClosedTrade, error) {
	return nil, nil
}
func (v *chartVenue) Metrics(ctx context.Context) (model.AccountMetrics, error) {
	return model.AccountMetrics{Balance: 1000, Equity: 1000}, nil
}

func bullishCandle() model.Candle {
	return model.Candle{Open: 2000, Close: 2005, High: 2006, Low: 1999}
}

func bearishCandle() model.Candle {
	return model.Candle{Open: 2000, Close: 1995, High: 2001, Low: 1994}
}

func TestContext_Refresh(t *testing.T) {
	venue := &chartVenue{
		candles: map[model.Timeframe][]model.Candle{
			model.H1:  {bullishCandle(), bullishCandle()},
			model.M15: {bullishCandle(), bearishCandle()},
		},
		failing: map[model.Timeframe]bool{},
	}
	c := NewContext(model.M5)

	updated := c.Refresh(context.Background(), venue)

	assert.Equal(t, model.Bullish, c.Trend(model.H1))
	assert.Equal(t, model.Bearish, c.Trend(model.M15))
	assert.Len(t, updated, 2)
	assert.Len(t, c.Candles(model.H1), 2)

	// the working timeframe is always restored last
	require.NotEmpty(t, venue.switches)
	assert.Equal(t, model.M5, venue.switches[len(venue.switches)-1])
	assert.Equal(t, model.M5, venue.active)
}

func TestContext_RefreshKeepsStaleTrendOnFailure(t *testing.T) {
	venue := &chartVenue{
		candles: map[model.Timeframe][]model.Candle{
			model.H1:  {bullishCandle()},
			model.M15: {bearishCandle()},
		},
		failing: map[model.Timeframe]bool{},
	}
	c := NewContext(model.M5)
	c.Refresh(context.Background(), venue)
	require.Equal(t, model.Bullish, c.Trend(model.H1))

	venue.failing[model.H1] = true
	venue.candles[model.M15] = []model.Candle{bullishCandle()}
	updated := c.Refresh(context.Background(), venue)

	// the failed timeframe keeps its previous label, the other one moves
	assert.Equal(t, model.Bullish, c.Trend(model.H1))
	assert.Equal(t, model.Bullish, c.Trend(model.M15))
	assert.Len(t, updated, 1)
	assert.Equal(t, model.M5, venue.active)
}

func TestContext_Due(t *testing.T) {
	c := NewContext(model.M5)
	now := time.Now()

	// never refreshed yet
	assert.True(t, c.Due(now, 900*time.Second, 60*time.Second))

	venue := &chartVenue{
		candles: map[model.Timeframe][]model.Candle{
			model.H1:  {bullishCandle()},
			model.M15: {bullishCandle()},
		},
		failing: map[model.Timeframe]bool{},
	}
	c.Refresh(context.Background(), venue)

	assert.False(t, c.Due(now, 900*time.Second, 60*time.Second))
	assert.True(t, c.Due(now.Add(901*time.Second), 900*time.Second, 60*time.Second))
	assert.False(t, c.Due(now.Add(61*time.Second), 900*time.Second, 60*time.Second))
}

func TestContext_DueRetriesWhileUnknown(t *testing.T) {
	venue := &chartVenue{
		candles: map[model.Timeframe][]model.Candle{},
		failing: map[model.Timeframe]bool{
			model.H1:  true,
			model.M15: true,
		},
	}
	c := NewContext(model.M5)
	c.Refresh(context.Background(), venue)
	now := time.Now()

	require.Equal(t, model.Unknown, c.Trend(model.H1))
	assert.False(t, c.Due(now, 900*time.Second, 60*time.Second))
	// the unknown higher timeframe pulls the retry in early
	assert.True(t, c.Due(now.Add(61*time.Second), 900*time.Second, 60*time.Second))
}

func TestContext_Trend_UnknownByDefault(t *testing.T) {
	c := NewContext(model.M5)
	assert.Equal(t, model.Unknown, c.Trend(model.H1))
	assert.Equal(t, model.Unknown, c.Trend(model.M15))
}
