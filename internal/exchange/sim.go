package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/goldmind/internal/model"
)

const (
	startPrice   = 2000.0
	startBalance = 1000.0
	walkStep     = 0.25
	pointValue   = 100.0 // profit per unit price move per unit volume
)

type simPosition struct {
	ticket     string
	t          model.Type
	volume     float64
	entry      float64
	stopLoss   float64
	takeProfit float64
	openTime   time.Time
}

// Sim is an in-memory execution venue with a random walk price.
// It backs the demo wiring and the loop tests.
type Sim struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	price     float64
	balance   float64
	symbol    string
	active    model.Timeframe
	position  *simPosition
	history   []model.ClosedTrade
	tickets   int
	failing   bool
	timescale map[model.Timeframe]time.Duration
}

// NewSim creates a sim venue on the working timeframe.
func NewSim(symbol string, seed int64) *Sim {
	return &Sim{
		rnd:     rand.New(rand.NewSource(seed)),
		price:   startPrice,
		balance: startBalance,
		symbol:  symbol,
		active:  model.M5,
		history: make([]model.ClosedTrade, 0),
		timescale: map[model.Timeframe]time.Duration{
			model.H1:  time.Hour,
			model.M15: 15 * time.Minute,
			model.M5:  5 * time.Minute,
		},
	}
}

// Fail toggles transient failure mode, every call errors while set.
func (s *Sim) Fail(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *Sim) err(op string) error {
	return fmt.Errorf("%s: venue not responding", op)
}

// Price implements api.Exchange, advancing the walk one step.
func (s *Sim) Price(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, s.err("price")
	}
	s.price += (s.rnd.Float64() - 0.5) * 2 * walkStep
	s.settle()
	return s.price, nil
}

// settle closes the open position if the walk crossed its protection levels.
func (s *Sim) settle() {
	p := s.position
	if p == nil {
		return
	}
	move := (s.price - p.entry) * p.t.Sign()
	comment := ""
	if p.stopLoss != 0 && (s.price-p.stopLoss)*p.t.Sign() <= 0 {
		comment = fmt.Sprintf("[sl %.2f]", p.stopLoss)
	} else if p.takeProfit != 0 && (s.price-p.takeProfit)*p.t.Sign() >= 0 {
		comment = fmt.Sprintf("[tp %.2f]", p.takeProfit)
	}
	if comment == "" {
		return
	}
	s.close(move*p.volume*pointValue, comment)
}

func (s *Sim) close(profit float64, comment string) {
	p := s.position
	s.tickets++
	s.balance += profit
	s.history = append(s.history, model.ClosedTrade{
		Ticket:    fmt.Sprintf("T-%06d", s.tickets),
		Symbol:    s.symbol,
		Type:      p.t,
		Volume:    p.volume,
		Profit:    profit,
		CloseTime: time.Now(),
		Comment:   comment,
	})
	s.position = nil
	log.Debug().Str("comment", comment).Float64("profit", profit).Msg("sim position closed")
}

// Candles implements api.Exchange, the requested timeframe must be active.
func (s *Sim) Candles(ctx context.Context, timeframe model.Timeframe) ([]model.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, s.err("candles")
	}
	if timeframe != s.active {
		return nil, fmt.Errorf("timeframe %s is not active", timeframe)
	}
	span := s.timescale[timeframe]
	cc := make([]model.Candle, 30)
	price := s.price
	now := time.Now()
	for i := len(cc) - 1; i >= 0; i-- {
		o := price + (s.rnd.Float64()-0.5)*2*walkStep
		h := maxf(o, price) + s.rnd.Float64()*walkStep
		l := minf(o, price) - s.rnd.Float64()*walkStep
		cc[i] = model.Candle{
			Time:  now.Add(-time.Duration(len(cc)-i) * span),
			Open:  o,
			High:  h,
			Low:   l,
			Close: price,
		}
		price = o
	}
	return cc, nil
}

// SwitchTimeframe implements api.Exchange.
func (s *Sim) SwitchTimeframe(ctx context.Context, timeframe model.Timeframe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return s.err("switch-timeframe")
	}
	s.active = timeframe
	return nil
}

// OpenPositions implements api.Exchange.
func (s *Sim) OpenPositions(ctx context.Context) ([]model.OpenPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, s.err("open-positions")
	}
	if s.position == nil {
		return []model.OpenPosition{}, nil
	}
	p := s.position
	return []model.OpenPosition{{
		Type:   p.t,
		Entry:  p.entry,
		Profit: (s.price - p.entry) * p.t.Sign() * p.volume * pointValue,
	}}, nil
}

// PlaceOrder implements api.Exchange, stopLoss and takeProfit are price
// distances from the current quote.
func (s *Sim) PlaceOrder(ctx context.Context, t model.Type, stopLoss, takeProfit float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return s.err("place-order")
	}
	if s.position != nil {
		return fmt.Errorf("a position is already open")
	}
	s.position = &simPosition{
		t:        t,
		volume:   0.01,
		entry:    s.price,
		openTime: time.Now(),
	}
	if stopLoss > 0 {
		s.position.stopLoss = s.price - t.Sign()*stopLoss
	}
	if takeProfit > 0 {
		s.position.takeProfit = s.price + t.Sign()*takeProfit
	}
	return nil
}

// ClosePosition implements api.Exchange.
func (s *Sim) ClosePosition(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return s.err("close-position")
	}
	if s.position == nil {
		return fmt.Errorf("no open position")
	}
	p := s.position
	s.close((s.price-p.entry)*p.t.Sign()*p.volume*pointValue, "")
	return nil
}

// ModifyStop implements api.Exchange.
func (s *Sim) ModifyStop(ctx context.Context, ticket string, stopLoss float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return s.err("modify-stop")
	}
	if s.position == nil {
		return fmt.Errorf("no open position")
	}
	s.position.stopLoss = stopLoss
	return nil
}

// History implements api.Exchange.
func (s *Sim) History(ctx context.Context, since time.Time) ([]model.ClosedTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, s.err("history")
	}
	out := make([]model.ClosedTrade, 0, len(s.history))
	for _, t := range s.history {
		if t.CloseTime.Before(since) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Metrics implements api.Exchange.
func (s *Sim) Metrics(ctx context.Context) (model.AccountMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return model.AccountMetrics{}, s.err("metrics")
	}
	equity := s.balance
	if p := s.position; p != nil {
		equity += (s.price - p.entry) * p.t.Sign() * p.volume * pointValue
	}
	return model.AccountMetrics{Balance: s.balance, Equity: equity}, nil
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
