package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakos74/goldmind/internal/api"
	"github.com/drakos74/goldmind/internal/config"
	"github.com/drakos74/goldmind/internal/model"
	"github.com/drakos74/goldmind/internal/storage"
	"github.com/drakos74/goldmind/user/local"
)

type placedOrder struct {
	action     model.Type
	stopLoss   float64
	takeProfit float64
}

// scriptedVenue is a deterministic api.Exchange for loop tests.
type scriptedVenue struct {
	price    float64
	candles  []model.Candle
	open     []model.OpenPosition
	history  []model.ClosedTrade
	balance  float64
	failing  bool
	placed   []placedOrder
	closes   int
	modified []float64
}

func (v *scriptedVenue) err(op string) error {
	return fmt.Errorf("%s: scripted failure", op)
}

func (v *scriptedVenue) Price(ctx context.Context) (float64, error) {
	if v.failing {
		return 0, v.err("price")
	}
	return v.price, nil
}

func (v *scriptedVenue) Candles(ctx context.Context, tf model.Timeframe) ([]model.Candle, error) {
	if v.failing {
		return nil, v.err("candles")
	}
	return v.candles, nil
}

func (v *scriptedVenue) SwitchTimeframe(ctx context.Context, tf model.Timeframe) error {
	return nil
}

func (v *scriptedVenue) OpenPositions(ctx context.Context) ([]model.OpenPosition, error) {
	if v.failing {
		return nil, v.err("open-positions")
	}
	return v.open, nil
}

func (v *scriptedVenue) PlaceOrder(ctx context.Context, t model.Type, stopLoss, takeProfit float64) error {
	if v.failing {
		return v.err("place-order")
	}
	v.placed = append(v.placed, placedOrder{action: t, stopLoss: stopLoss, takeProfit: takeProfit})
	return nil
}

func (v *scriptedVenue) ClosePosition(ctx context.Context) error {
	if v.failing {
		return v.err("close-position")
	}
	v.closes++
	v.open = nil
	return nil
}

func (v *scriptedVenue) ModifyStop(ctx context.Context, ticket string, stopLoss float64) error {
	if v.failing {
		return v.err("modify-stop")
	}
	v.modified = append(v.modified, stopLoss)
	return nil
}

func (v *scriptedVenue) History(ctx context.Context, since time.Time) ([]model.ClosedTrade, error) {
	if v.failing {
		return nil, v.err("history")
	}
	return v.history, nil
}

func (v *scriptedVenue) Metrics(ctx context.Context) (model.AccountMetrics, error) {
	if v.failing {
		return model.AccountMetrics{}, v.err("metrics")
	}
	return model.AccountMetrics{Balance: v.balance, Equity: v.balance}, nil
}

// fixedAnalyst hands every persona the same verdict.
type fixedAnalyst struct {
	verdict api.Verdict
}

func (a *fixedAnalyst) Analyze(ctx context.Context, role string, market string, candles []model.Candle) (api.Verdict, error) {
	return a.verdict, nil
}

func bullishBars(n int) []model.Candle {
	cc := make([]model.Candle, n)
	for i := range cc {
		c := 2000 + float64(i)*0.1
		cc[i] = model.Candle{
			Time:  time.Now().Add(-time.Duration(n-i) * 5 * time.Minute),
			Open:  c - 0.5,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return cc
}

func newVenue() *scriptedVenue {
	return &scriptedVenue{
		price:   2000,
		candles: bullishBars(30),
		balance: 1000,
	}
}

func newTestEngine(t *testing.T, venue *scriptedVenue, analyst api.Analyst) (*Engine, *local.User) {
	t.Helper()
	cfg := config.Default()
	cfg.Account = "test"
	observer := local.NewUser(100)
	engine, err := NewEngine(cfg, venue, analyst, observer, storage.VoidShard())
	require.NoError(t, err)
	engine.state = Active
	engine.sessionStart = time.Now()
	return engine, observer
}

func TestEngine_OpensOnConsensus(t *testing.T) {
	venue := newVenue()
	analyst := &fixedAnalyst{verdict: api.Verdict{
		Action: model.Buy, StopLoss: 1990, TakeProfit: 2020, Reason: "breakout",
	}}
	engine, observer := newTestEngine(t, venue, analyst)

	engine.cycle(context.Background())

	require.Len(t, venue.placed, 1)
	assert.Equal(t, model.Buy, venue.placed[0].action)
	assert.InDelta(t, 10, venue.placed[0].stopLoss, 0.001)
	assert.InDelta(t, 20, venue.placed[0].takeProfit, 0.001)

	record, ok := engine.Ledger().Open()
	require.True(t, ok)
	assert.True(t, record.Placeholder())
	assert.Equal(t, model.Buy, record.Type)
	assert.Equal(t, 2000.0, record.OpenPrice)
	assert.InDelta(t, 1990, record.StopLoss, 0.001)
	assert.InDelta(t, 2020, record.TakeProfit, 0.001)
	assert.Len(t, record.Voters, 3)
	assert.NotEmpty(t, record.Rationale)

	_, ok = observer.Last(api.TradeEvent)
	assert.True(t, ok)
	_, ok = observer.Last(api.AnalysisEvent)
	assert.True(t, ok)
}

func TestEngine_WarmupSuppressesOpens(t *testing.T) {
	venue := newVenue()
	analyst := &fixedAnalyst{verdict: api.Verdict{
		Action: model.Buy, StopLoss: 1990, TakeProfit: 2020, Reason: "breakout",
	}}
	engine, observer := newTestEngine(t, venue, analyst)
	engine.state = Warmup

	engine.cycle(context.Background())

	assert.Empty(t, venue.placed)
	_, ok := engine.Ledger().Open()
	assert.False(t, ok)
	// observation and broadcast still run
	_, ok = observer.Last(api.AnalysisEvent)
	assert.True(t, ok)
}

func TestEngine_WarmupStillHonorsHardStop(t *testing.T) {
	venue := newVenue()
	venue.open = []model.OpenPosition{{Type: model.Buy, Entry: 2010, Profit: -9.5}}
	venue.price = 2000.5
	analyst := &fixedAnalyst{verdict: api.Verdict{Action: model.Hold, Reason: "noise"}}
	engine, _ := newTestEngine(t, venue, analyst)
	engine.state = Warmup

	engine.cycle(context.Background())

	assert.Equal(t, 1, venue.closes)
}

func TestEngine_WarmupSuppressesOtherCommands(t *testing.T) {
	venue := newVenue()
	venue.open = []model.OpenPosition{{Type: model.Buy, Entry: 2000, Profit: 2.5}}
	venue.price = 2002.5
	analyst := &fixedAnalyst{verdict: api.Verdict{Action: model.Hold, Reason: "noise"}}
	engine, _ := newTestEngine(t, venue, analyst)
	engine.state = Warmup
	require.NoError(t, engine.ledger.Create(model.Position{
		Ticket: "AUTO-1", Symbol: "GOLD", Type: model.Buy, Volume: 0.01,
		OpenPrice: 2000, StopLoss: 1990,
	}))

	engine.cycle(context.Background())

	assert.Empty(t, venue.modified)
	assert.Equal(t, 0, venue.closes)
}

func TestEngine_SkipsOpenWithoutProtection(t *testing.T) {
	venue := newVenue()
	analyst := &fixedAnalyst{verdict: api.Verdict{Action: model.Buy, Reason: "gut feeling"}}
	engine, _ := newTestEngine(t, venue, analyst)

	engine.cycle(context.Background())

	assert.Empty(t, venue.placed)
	_, ok := engine.Ledger().Open()
	assert.False(t, ok)
}

func TestEngine_ClampsProtectionGaps(t *testing.T) {
	venue := newVenue()
	analyst := &fixedAnalyst{verdict: api.Verdict{
		Action: model.Buy, StopLoss: 1950, TakeProfit: 2100, Reason: "wild levels",
	}}
	engine, _ := newTestEngine(t, venue, analyst)

	engine.cycle(context.Background())

	require.Len(t, venue.placed, 1)
	assert.InDelta(t, 15, venue.placed[0].stopLoss, 0.001)
	assert.InDelta(t, 20, venue.placed[0].takeProfit, 0.001)
}

func TestEngine_RiskCloseMarksLedger(t *testing.T) {
	venue := newVenue()
	venue.open = []model.OpenPosition{{Type: model.Buy, Entry: 2010, Profit: -9.5}}
	venue.price = 2000.5
	analyst := &fixedAnalyst{verdict: api.Verdict{Action: model.Hold, Reason: "noise"}}
	engine, _ := newTestEngine(t, venue, analyst)
	require.NoError(t, engine.ledger.Create(model.Position{
		Ticket: "AUTO-1", Symbol: "GOLD", Type: model.Buy, Volume: 0.01,
		OpenPrice: 2010, StopLoss: 2001,
	}))

	engine.cycle(context.Background())

	assert.Equal(t, 1, venue.closes)
	record, ok := engine.ledger.ByTicket("AUTO-1")
	require.True(t, ok)
	assert.True(t, record.Closed)
	assert.Contains(t, record.Rationale, "HARD-STOP")

	// the venue later reports the real ticket, the record adopts it
	venue.history = []model.ClosedTrade{{
		Ticket: "T-1", Symbol: "GOLD", Type: model.Buy, Volume: 0.01,
		Profit: -9.5, Commission: -0.4, CloseTime: time.Now(),
	}}
	engine.reconcile(context.Background())

	_, ok = engine.ledger.ByTicket("AUTO-1")
	assert.False(t, ok)
	adopted, ok := engine.ledger.ByTicket("T-1")
	require.True(t, ok)
	assert.True(t, adopted.Closed)
	assert.InDelta(t, -9.9, adopted.Profit, 0.001)
}

func TestEngine_TrailingMovesLedgerStop(t *testing.T) {
	venue := newVenue()
	venue.open = []model.OpenPosition{{Type: model.Buy, Entry: 2000, Profit: 3.5}}
	venue.price = 2003.5
	analyst := &fixedAnalyst{verdict: api.Verdict{Action: model.Hold, Reason: "noise"}}
	engine, _ := newTestEngine(t, venue, analyst)
	require.NoError(t, engine.ledger.Create(model.Position{
		Ticket: "AUTO-1", Symbol: "GOLD", Type: model.Buy, Volume: 0.01,
		OpenPrice: 2000, StopLoss: 2000.20,
	}))

	engine.cycle(context.Background())

	require.Len(t, venue.modified, 1)
	assert.InDelta(t, 2002.0, venue.modified[0], 0.001)
	record, ok := engine.ledger.ByTicket("AUTO-1")
	require.True(t, ok)
	assert.InDelta(t, 2002.0, record.StopLoss, 0.001)
}

func TestEngine_UntrackedPositionStillProtected(t *testing.T) {
	venue := newVenue()
	venue.open = []model.OpenPosition{{Type: model.Sell, Entry: 1995, Profit: -10}}
	venue.price = 2005
	analyst := &fixedAnalyst{verdict: api.Verdict{Action: model.Hold, Reason: "noise"}}
	engine, _ := newTestEngine(t, venue, analyst)

	engine.cycle(context.Background())

	assert.Equal(t, 1, venue.closes)
}

func TestEngine_VenueFailureSkipsTheCycle(t *testing.T) {
	venue := newVenue()
	venue.failing = true
	analyst := &fixedAnalyst{verdict: api.Verdict{
		Action: model.Buy, StopLoss: 1990, TakeProfit: 2020, Reason: "breakout",
	}}
	engine, observer := newTestEngine(t, venue, analyst)

	engine.cycle(context.Background())

	assert.Empty(t, venue.placed)
	_, ok := observer.Last(api.AnalysisEvent)
	assert.False(t, ok)
}

func TestEngine_RunFailsWithoutSession(t *testing.T) {
	venue := newVenue()
	venue.balance = 0
	analyst := &fixedAnalyst{verdict: api.Verdict{Action: model.Hold}}

	cfg := config.Default()
	cfg.Account = "test"
	cfg.Loop.SessionRetries = 2
	cfg.Loop.SessionBackoff = time.Millisecond
	engine, err := NewEngine(cfg, venue, analyst, local.NewUser(10), storage.VoidShard())
	require.NoError(t, err)

	err = engine.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not establish session")
	assert.Equal(t, Stopped, engine.state)
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	venue := newVenue()
	analyst := &fixedAnalyst{verdict: api.Verdict{Action: model.Hold, Reason: "noise"}}

	cfg := config.Default()
	cfg.Account = "test"
	cfg.Loop.Cadence = time.Millisecond
	cfg.Loop.Warmup = 10 * time.Millisecond
	engine, err := NewEngine(cfg, venue, analyst, local.NewUser(10), storage.VoidShard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- engine.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Equal(t, Stopped, engine.state)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop in time")
	}
}
