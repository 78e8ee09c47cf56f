package bot

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/goldmind/internal/api"
	"github.com/drakos74/goldmind/internal/config"
	"github.com/drakos74/goldmind/internal/council"
	"github.com/drakos74/goldmind/internal/ledger"
	"github.com/drakos74/goldmind/internal/market"
	"github.com/drakos74/goldmind/internal/metrics"
	"github.com/drakos74/goldmind/internal/model"
	"github.com/drakos74/goldmind/internal/risk"
	"github.com/drakos74/goldmind/internal/storage"
)

// Engine runs the decision and execution cycle for one account.
// Everything it owns is touched from its own goroutine only, the market
// context is the one shared structure and guards itself.
type Engine struct {
	account   string
	cfg       config.Settings
	exchange  api.Exchange
	publisher api.Publisher

	council    *council.Council
	risk       *risk.Manager
	ledger     *ledger.Store
	reconciler *ledger.Reconciler
	scorer     *ledger.Scorer
	market     *market.Context

	state        State
	sessionStart time.Time
	scores       map[string]int

	lastPublish   time.Time
	lastVerbose   time.Time
	lastReconcile time.Time
}

// NewEngine wires the collaborators of one account loop.
func NewEngine(cfg config.Settings, exchange api.Exchange, analyst api.Analyst, publisher api.Publisher, shard storage.Shard) (*Engine, error) {
	store, err := ledger.NewStore(cfg.Account, shard)
	if err != nil {
		return nil, fmt.Errorf("could not create ledger: %w", err)
	}

	personas := council.Members()
	names := make([]string, len(personas))
	for i, p := range personas {
		names[i] = p.Name
	}
	scorer, err := ledger.NewScorer(store, shard, names, cfg.Council.Aliases, cfg.ScoreDepth)
	if err != nil {
		return nil, fmt.Errorf("could not create scorer: %w", err)
	}

	return &Engine{
		account:    cfg.Account,
		cfg:        cfg,
		exchange:   exchange,
		publisher:  publisher,
		council:    council.New(analyst, cfg.Council.Timeout, personas...),
		risk:       risk.NewManager(cfg.Risk),
		ledger:     store,
		reconciler: ledger.NewReconciler(store),
		scorer:     scorer,
		market:     market.NewContext(model.M5),
		state:      Stopped,
	}, nil
}

// Ledger exposes the trade records of this account.
func (e *Engine) Ledger() *ledger.Store {
	return e.ledger
}

// Run drives the loop until the context is cancelled.
// It blocks, the caller owns the goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.transition(Starting)
	if err := e.establish(ctx); err != nil {
		e.transition(Stopped)
		return err
	}

	e.sessionStart = time.Now()
	e.scores = e.scorer.Recompute()
	e.transition(Warmup)
	e.status("session established, warming up")

	for ctx.Err() == nil {
		e.cycle(ctx)
		if !smartSleep(ctx, e.cfg.Loop.Cadence) {
			break
		}
	}

	e.transition(Stopping)
	e.status("stop signal received, draining")
	e.transition(Stopped)
	return nil
}

// establish waits for the venue to report a live account.
func (e *Engine) establish(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.Loop.SessionRetries; attempt++ {
		if attempt > 1 {
			if !smartSleep(ctx, e.cfg.Loop.SessionBackoff) {
				return ctx.Err()
			}
		}
		m, err := e.exchange.Metrics(ctx)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("account", e.account).Int("attempt", attempt).Msg("could not read account")
			continue
		}
		if !m.Connected() {
			lastErr = fmt.Errorf("account reports zero balance")
			log.Warn().Str("account", e.account).Int("attempt", attempt).Msg("account not connected yet")
			continue
		}
		log.Info().Str("account", e.account).Float64("balance", m.Balance).Msg("session established")
		return nil
	}
	return fmt.Errorf("could not establish session after %d attempts: %w", e.cfg.Loop.SessionRetries, lastErr)
}

// cycle runs one pass of the observe, decide, act sequence.
// Any transient venue failure skips the rest of the pass, the next cycle
// starts from a clean read.
func (e *Engine) cycle(ctx context.Context) {
	now := time.Now()

	if e.state == Warmup && now.Sub(e.sessionStart) >= e.cfg.Loop.Warmup {
		e.transition(Active)
		e.status("warmup complete, trading enabled")
	}
	warming := e.state == Warmup

	if now.Sub(e.lastPublish) >= e.cfg.Loop.PublishEvery {
		e.publishBalance(ctx)
		e.lastPublish = now
	}

	if e.market.Due(now, e.cfg.Loop.TrendRefresh, e.cfg.Loop.TrendRetry) {
		e.refreshTrends(ctx)
	}

	cc, err := e.exchange.Candles(ctx, model.M5)
	if err != nil || len(cc) == 0 {
		log.Warn().Err(err).Str("account", e.account).Msg("could not read working candles")
		return
	}
	e.market.SetCandles(model.M5, cc)

	price, err := e.exchange.Price(ctx)
	if err != nil || price <= 0 {
		log.Warn().Err(err).Str("account", e.account).Msg("could not read price")
		return
	}

	open, err := e.exchange.OpenPositions(ctx)
	if err != nil {
		log.Warn().Err(err).Str("account", e.account).Msg("could not read open positions")
		return
	}

	snapshot := market.NewSnapshot(price, cc)
	patterns := market.Patterns(cc)
	h1 := e.market.Trend(model.H1)
	m15 := e.market.Trend(model.M15)
	brief := council.Brief(snapshot, h1, m15, patterns)

	votes := e.council.Evaluate(ctx, brief, cc)
	decision := council.Synthesize(votes, h1, snapshot, council.Config{
		Quorum:   e.cfg.Council.Quorum,
		Cooldown: e.cfg.Council.Cooldown,
	}, e.ledger.LastClosed(), len(open) > 0)
	metrics.Observer.IncDecision(e.account, decision.Action.String())

	e.publisher.Publish(api.NewEvent(api.AnalysisEvent, e.account).
		WithDecision(decision).
		With("price", price).
		With("patterns", patterns))

	if now.Sub(e.lastVerbose) >= e.cfg.Loop.VerboseEvery {
		e.monitor(price, h1, m15, snapshot, decision, len(open) > 0)
		e.lastVerbose = now
	}

	if len(open) > 0 {
		e.manage(ctx, open[0], price, decision, warming)
	} else if !warming && decision.Actionable() {
		e.open(ctx, decision, price, h1, m15)
	}

	if now.Sub(e.lastReconcile) >= e.cfg.Loop.ReconcileEvery {
		e.reconcile(ctx)
		e.lastReconcile = now
	}
}

// manage runs the risk rules against the live position and executes the
// resulting command. During warmup only the hard stop fires.
// The ledger is mutated only after the venue confirmed the action.
func (e *Engine) manage(ctx context.Context, live model.OpenPosition, price float64, decision model.Decision, warming bool) {
	record, tracked := e.ledger.Open()
	if !tracked {
		// venue position without a ledger record, after a restart
		record = model.Position{
			Ticket:    model.NewTicket(),
			Symbol:    e.cfg.Execution.Symbol,
			Type:      live.Type,
			Volume:    e.cfg.Execution.Volume,
			OpenPrice: live.Entry,
		}
	}

	cmd, ok := e.risk.Assess(record, live.Profit, price, decision.Action)
	if !ok {
		return
	}
	if warming && !(cmd.Kind == risk.Close && cmd.Rule == risk.HardStop) {
		return
	}

	switch cmd.Kind {
	case risk.Close:
		if err := e.exchange.ClosePosition(ctx); err != nil {
			log.Warn().Err(err).Str("account", e.account).Str("rule", cmd.Rule).Msg("could not close position")
			metrics.Observer.IncError(e.account, "exchange")
			return
		}
		metrics.Observer.IncCommand(e.account, cmd.Rule)
		log.Info().Str("account", e.account).Str("rule", cmd.Rule).Str("reason", cmd.Reason).Msg("closed position")
		if tracked {
			record.Closed = true
			record.CloseTime = time.Now()
			record.ClosePrice = price
			record.Profit = live.Profit
			record.Rationale = fmt.Sprintf("%s\n[%s] %s", record.Rationale, strings.ToUpper(cmd.Rule), cmd.Reason)
			if err := e.ledger.Update(record.Ticket, record); err != nil {
				log.Warn().Err(err).Str("ticket", record.Ticket).Msg("could not record close")
			}
		}
		e.publisher.Publish(api.NewEvent(api.TradeEvent, e.account).
			WithMessage(fmt.Sprintf("CLOSE %s %s", record.Type, cmd.Reason)).
			With("rule", cmd.Rule).
			With("profit", live.Profit))
	case risk.ModifyStop:
		if err := e.exchange.ModifyStop(ctx, record.Ticket, cmd.StopLoss); err != nil {
			log.Warn().Err(err).Str("account", e.account).Str("rule", cmd.Rule).Msg("could not move stop")
			metrics.Observer.IncError(e.account, "exchange")
			return
		}
		metrics.Observer.IncCommand(e.account, cmd.Rule)
		log.Info().Str("account", e.account).Str("rule", cmd.Rule).Float64("stop", cmd.StopLoss).Msg("moved stop")
		if tracked {
			if err := e.ledger.UpdateStop(record.Ticket, cmd.StopLoss); err != nil {
				log.Warn().Err(err).Str("ticket", record.Ticket).Msg("could not record stop")
			}
		}
		e.publisher.Publish(api.NewEvent(api.TradeEvent, e.account).
			WithMessage(fmt.Sprintf("MODIFY %s %s", record.Type, cmd.Reason)).
			With("rule", cmd.Rule).
			With("stop_loss", cmd.StopLoss))
	}
}

// open places a market order for an actionable decision and records it in
// the ledger under a placeholder ticket.
// A decision carrying neither stop loss nor take profit is treated as
// "no safe entry" and skipped. Out of range protection levels fall back to
// the default distances.
func (e *Engine) open(ctx context.Context, decision model.Decision, price float64, h1, m15 model.Trend) {
	if decision.StopLoss == 0 && decision.TakeProfit == 0 {
		log.Info().Str("account", e.account).Str("action", decision.Action.String()).
			Msg("no safe entry, council supplied no protection levels")
		return
	}

	slGap := gap(price, decision.StopLoss, e.cfg.Execution.MaxStopGap, e.cfg.Execution.DefaultStopGap)
	tpGap := gap(price, decision.TakeProfit, e.cfg.Execution.MaxTakeGap, e.cfg.Execution.DefaultTakeGap)

	if err := e.exchange.PlaceOrder(ctx, decision.Action, slGap, tpGap); err != nil {
		log.Warn().Err(err).Str("account", e.account).Str("action", decision.Action.String()).Msg("could not place order")
		metrics.Observer.IncError(e.account, "exchange")
		return
	}
	metrics.Observer.IncOrder(e.account, decision.Action.String())

	sign := decision.Action.Sign()
	record := model.Position{
		Ticket:     model.NewTicket(),
		Symbol:     e.cfg.Execution.Symbol,
		Type:       decision.Action,
		Volume:     e.cfg.Execution.Volume,
		OpenPrice:  price,
		StopLoss:   price - sign*slGap,
		TakeProfit: price + sign*tpGap,
		OpenTime:   time.Now(),
		H1Trend:    h1,
		M15Trend:   m15,
		Voters:     decision.Voters,
		Rationale:  decision.Reason,
		Snapshot:   decision.Snapshot,
	}
	if err := e.ledger.Create(record); err != nil {
		log.Error().Err(err).Str("ticket", record.Ticket).Msg("order placed but not recorded")
	}

	log.Info().Str("account", e.account).Str("action", decision.Action.String()).
		Float64("price", price).Float64("sl", record.StopLoss).Float64("tp", record.TakeProfit).
		Strs("voters", decision.Voters).Msg("opened position")
	e.publisher.Publish(api.NewEvent(api.TradeEvent, e.account).
		WithMessage(fmt.Sprintf("OPEN %s @ %.2f", decision.Action, price)).
		With("ticket", record.Ticket).
		With("stop_loss", record.StopLoss).
		With("take_profit", record.TakeProfit).
		With("voters", decision.Voters))

	// pull the broker ticket in on the next pass
	e.lastReconcile = time.Time{}
}

// gap derives the protection distance from a price level, clamping
// degenerate levels to the default distance.
func gap(price, level, max, fallback float64) float64 {
	d := math.Abs(price - level)
	if d == 0 || d > max {
		return fallback
	}
	return d
}

// reconcile folds the venue trade history into the ledger and rebuilds the
// persona scores from the updated records.
func (e *Engine) reconcile(ctx context.Context) {
	history, err := e.exchange.History(ctx, e.sessionStart)
	if err != nil {
		log.Warn().Err(err).Str("account", e.account).Msg("could not read trade history")
		metrics.Observer.IncError(e.account, "exchange")
		return
	}

	touched, err := e.reconciler.Reconcile(history)
	if err != nil {
		log.Warn().Err(err).Str("account", e.account).Msg("reconciliation incomplete")
	}
	total := 0
	for outcome, records := range touched {
		for range records {
			metrics.Observer.IncReconciled(e.account, string(outcome))
		}
		total += len(records)
	}
	if total > 0 {
		e.publisher.Publish(api.NewEvent(api.HistoryEvent, e.account).
			With("reconciled", touched))
	}
	e.scores = e.scorer.Recompute()
}

// publishBalance broadcasts the live account metrics with the persona scores.
func (e *Engine) publishBalance(ctx context.Context) {
	m, err := e.exchange.Metrics(ctx)
	if err != nil {
		log.Warn().Err(err).Str("account", e.account).Msg("could not read account metrics")
		metrics.Observer.IncError(e.account, "exchange")
		return
	}
	metrics.Observer.SetEquity(e.account, m.Equity)
	e.publisher.Publish(api.NewEvent(api.BalanceEvent, e.account).
		With("balance", m.Balance).
		With("equity", m.Equity).
		With("scores", e.scores))
}

// refreshTrends re-reads the higher timeframes and broadcasts the series.
func (e *Engine) refreshTrends(ctx context.Context) {
	updated := e.market.Refresh(ctx, e.exchange)
	if len(updated) == 0 {
		return
	}
	event := api.NewEvent(api.ChartEvent, e.account)
	for tf, cc := range updated {
		event.With(string(tf), cc)
	}
	e.publisher.Publish(event)
}

// monitor emits the periodic human readable status line.
func (e *Engine) monitor(price float64, h1, m15 model.Trend, snapshot model.Snapshot, decision model.Decision, open bool) {
	position := "FLAT"
	if open {
		position = "OPEN"
	}
	line := fmt.Sprintf("[%s] %s %.2f | H1:%s M15:%s | RSI %.1f ATR %.2f | %s -> %s",
		e.state, position, price, h1, m15, snapshot.RSI, snapshot.ATR, strings.Join(decision.Voters, ","), decision.Action)
	log.Info().Str("account", e.account).Msg(line)
	e.publisher.Publish(api.NewEvent(api.LogEvent, e.account).WithMessage(line))
}

func (e *Engine) transition(s State) {
	if e.state == s {
		return
	}
	log.Info().Str("account", e.account).Str("from", e.state.String()).Str("to", s.String()).Msg("state change")
	e.state = s
}

func (e *Engine) status(msg string) {
	e.publisher.Publish(api.NewEvent(api.LogEvent, e.account).WithMessage(msg))
}
