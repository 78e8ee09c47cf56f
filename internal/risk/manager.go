package risk

import (
	"fmt"
	"math"

	"github.com/drakos74/goldmind/internal/config"
	"github.com/drakos74/goldmind/internal/model"
)

// Kind labels the commands the risk manager can emit.
type Kind byte

const (
	// NoCommand means the position needs no intervention this cycle.
	NoCommand Kind = iota
	// Close closes the position at market.
	Close
	// ModifyStop moves the stop loss of the position.
	ModifyStop
)

// Rule names, used for logging and metrics.
const (
	HardStop      = "hard-stop"
	StrategicTake = "strategic-take"
	Reversal      = "reversal"
	BreakEven     = "break-even"
	Trailing      = "trailing"
)

// Command is the intervention emitted for one position in one cycle.
type Command struct {
	Kind     Kind
	Rule     string
	Ticket   string
	StopLoss float64
	Reason   string
}

// Manager is the stateless risk rule set evaluated every cycle against each
// open position, independent of the current decision.
type Manager struct {
	cfg config.Risk
}

// NewManager creates a manager with the given thresholds.
func NewManager(cfg config.Risk) *Manager {
	return &Manager{cfg: cfg}
}

// Assess applies the rules in priority order, first match wins.
// position is the ledger record, profit the live unrealized pnl reported by
// the venue, price the current quote and decision the action of this cycle.
func (m *Manager) Assess(position model.Position, profit, price float64, decision model.Type) (Command, bool) {
	opposite := decision == position.Type.Inv() && decision != model.NoType

	if profit < -m.cfg.HardStop {
		return Command{
			Kind:   Close,
			Rule:   HardStop,
			Ticket: position.Ticket,
			Reason: fmt.Sprintf("pnl %.2f breached hard stop %.2f", profit, -m.cfg.HardStop),
		}, true
	}

	if opposite && profit > m.cfg.StrategicTake {
		return Command{
			Kind:   Close,
			Rule:   StrategicTake,
			Ticket: position.Ticket,
			Reason: fmt.Sprintf("locking in %.2f, council flipped to %s", profit, decision),
		}, true
	}

	if opposite && profit < -m.cfg.ReversalLoss {
		return Command{
			Kind:   Close,
			Rule:   Reversal,
			Ticket: position.Ticket,
			Reason: fmt.Sprintf("council flipped to %s at pnl %.2f", decision, profit),
		}, true
	}

	if profit >= m.cfg.BreakEvenFloor {
		candidate := round2(position.OpenPrice + position.Type.Sign()*m.cfg.BreakEvenBuffer)
		if improves(position, candidate, 0) {
			return Command{
				Kind:     ModifyStop,
				Rule:     BreakEven,
				Ticket:   position.Ticket,
				StopLoss: candidate,
				Reason:   fmt.Sprintf("pnl %.2f, stop to break even %.2f", profit, candidate),
			}, true
		}
	}

	if profit >= m.cfg.TrailingFloor {
		candidate := round2(price - position.Type.Sign()*m.cfg.TrailingGap)
		if improves(position, candidate, m.cfg.TrailingStep) {
			return Command{
				Kind:     ModifyStop,
				Rule:     Trailing,
				Ticket:   position.Ticket,
				StopLoss: candidate,
				Reason:   fmt.Sprintf("pnl %.2f, trailing stop to %.2f", profit, candidate),
			}, true
		}
	}

	return Command{}, false
}

// improves reports whether the candidate stop locks in strictly more than
// the current one, by at least the given step.
func improves(position model.Position, candidate, step float64) bool {
	current := position.StopLoss
	switch position.Type {
	case model.Buy:
		return candidate > current+step
	case model.Sell:
		return current == 0 || candidate < current-step
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
