package market

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/goldmind/internal/api"
	"github.com/drakos74/goldmind/internal/buffer"
	"github.com/drakos74/goldmind/internal/model"
)

const chartDepth = 100

// Context holds the last known trend labels and candle series per timeframe.
// It has a single writer, the control loop refresh, and many readers.
type Context struct {
	mu          sync.RWMutex
	trends      map[model.Timeframe]model.Trend
	charts      map[model.Timeframe]*buffer.Ring
	working     model.Timeframe
	lastRefresh time.Time
}

// NewContext creates an empty market context on the given working timeframe.
func NewContext(working model.Timeframe) *Context {
	trends := make(map[model.Timeframe]model.Trend)
	charts := make(map[model.Timeframe]*buffer.Ring)
	for _, tf := range model.Timeframes() {
		trends[tf] = model.Unknown
		charts[tf] = buffer.NewRing(chartDepth)
	}
	return &Context{
		trends:  trends,
		charts:  charts,
		working: working,
	}
}

// Trend returns the cached trend label for the timeframe.
func (c *Context) Trend(tf model.Timeframe) model.Trend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.trends[tf]; ok {
		return t
	}
	return model.Unknown
}

// Candles returns the cached series for the timeframe, oldest first.
func (c *Context) Candles(tf model.Timeframe) []model.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.charts[tf]; ok {
		return r.Get()
	}
	return nil
}

// SetCandles replaces the cached series of the working timeframe.
// The control loop feeds this every cycle.
func (c *Context) SetCandles(tf model.Timeframe, cc []model.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.charts[tf]; ok {
		r.Fill(cc)
	}
}

// Due reports whether a trend refresh should run now.
// Scheduled at the refresh interval, retried at the shorter retry interval
// while the higher timeframe is still unknown.
func (c *Context) Due(now time.Time, refresh, retry time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if now.Sub(c.lastRefresh) > refresh {
		return true
	}
	return c.trends[model.H1] == model.Unknown && now.Sub(c.lastRefresh) > retry
}

// Refresh re-reads the higher timeframes and derives their trend from the
// last candle direction. The working timeframe is always restored, even on
// failure. A failed timeframe keeps its previous cached trend.
// It returns the refreshed series for broadcasting.
func (c *Context) Refresh(ctx context.Context, exchange api.Exchange) map[model.Timeframe][]model.Candle {
	// stamp first, so a failing venue is retried on the throttled schedule
	// instead of every cycle
	c.mu.Lock()
	c.lastRefresh = time.Now()
	working := c.working
	c.mu.Unlock()

	defer func() {
		if err := exchange.SwitchTimeframe(ctx, working); err != nil {
			log.Warn().Err(err).Str("timeframe", string(working)).Msg("could not restore working timeframe")
		}
	}()

	updated := make(map[model.Timeframe][]model.Candle)
	for _, tf := range []model.Timeframe{model.H1, model.M15} {
		if err := exchange.SwitchTimeframe(ctx, tf); err != nil {
			log.Warn().Err(err).Str("timeframe", string(tf)).Msg("could not switch timeframe")
			continue
		}
		cc, err := exchange.Candles(ctx, tf)
		if err != nil || len(cc) == 0 {
			log.Warn().Err(err).Str("timeframe", string(tf)).Msg("could not read candles")
			continue
		}
		trend := cc[len(cc)-1].Direction()
		c.mu.Lock()
		c.charts[tf].Fill(cc)
		c.trends[tf] = trend
		c.mu.Unlock()
		updated[tf] = cc
		log.Info().Str("timeframe", string(tf)).Str("trend", string(trend)).Msg("trend refreshed")
	}
	return updated
}
