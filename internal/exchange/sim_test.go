package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakos74/goldmind/internal/model"
)

func TestSim_OrderLifecycle(t *testing.T) {
	ctx := context.Background()
	sim := NewSim("GOLD", 42)

	price, err := sim.Price(ctx)
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)

	require.NoError(t, sim.PlaceOrder(ctx, model.Buy, 10, 20))
	assert.Error(t, sim.PlaceOrder(ctx, model.Buy, 10, 20))

	open, err := sim.OpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, model.Buy, open[0].Type)

	require.NoError(t, sim.ModifyStop(ctx, "", open[0].Entry))

	require.NoError(t, sim.ClosePosition(ctx))
	open, err = sim.OpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	history, err := sim.History(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "GOLD", history[0].Symbol)
	assert.NotEmpty(t, history[0].Ticket)
}

func TestSim_SettlesOnProtectionLevels(t *testing.T) {
	ctx := context.Background()
	sim := NewSim("GOLD", 7)

	// a stop glued to the price gets hit by the walk quickly
	require.NoError(t, sim.PlaceOrder(ctx, model.Buy, 0.01, 0))
	for i := 0; i < 1000; i++ {
		_, err := sim.Price(ctx)
		require.NoError(t, err)
		open, err := sim.OpenPositions(ctx)
		require.NoError(t, err)
		if len(open) == 0 {
			break
		}
	}

	history, err := sim.History(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Comment, "[sl")
}

func TestSim_CandlesRequireActiveTimeframe(t *testing.T) {
	ctx := context.Background()
	sim := NewSim("GOLD", 1)

	cc, err := sim.Candles(ctx, model.M5)
	require.NoError(t, err)
	assert.Len(t, cc, 30)

	_, err = sim.Candles(ctx, model.H1)
	assert.Error(t, err)

	require.NoError(t, sim.SwitchTimeframe(ctx, model.H1))
	_, err = sim.Candles(ctx, model.H1)
	assert.NoError(t, err)
}

func TestSim_FailureMode(t *testing.T) {
	ctx := context.Background()
	sim := NewSim("GOLD", 1)
	sim.Fail(true)

	_, err := sim.Price(ctx)
	assert.Error(t, err)
	_, err = sim.Metrics(ctx)
	assert.Error(t, err)

	sim.Fail(false)
	m, err := sim.Metrics(ctx)
	require.NoError(t, err)
	assert.True(t, m.Connected())
}
