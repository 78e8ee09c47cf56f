package council

import (
	"fmt"
	"strings"

	"github.com/drakos74/goldmind/internal/model"
)

// Config holds the synthesis parameters.
type Config struct {
	// Quorum is the number of concurring votes needed for an action.
	Quorum int
	// Cooldown degrades the decision to HOLD after a loss in the same direction.
	Cooldown bool
}

// Synthesize aggregates the votes of one cycle into a single decision.
// It is a pure function of its inputs: identical votes and context always
// yield the identical decision.
//
// lastClosed is the most recent closed ledger record (nil if none) and only
// feeds the cooldown rule, open is true while a position is managed.
func Synthesize(votes []model.Vote, h1 model.Trend, snapshot model.Snapshot, cfg Config, lastClosed *model.Position, open bool) model.Decision {
	buy, sell := 0, 0
	for _, v := range votes {
		switch v.Action {
		case model.Buy:
			buy++
		case model.Sell:
			sell++
		}
	}

	veto := ""
	switch h1.Veto() {
	case model.Buy:
		if buy > 0 {
			veto = fmt.Sprintf("H1 %s veto: %d BUY vote(s) dropped", h1, buy)
		}
		buy = 0
	case model.Sell:
		if sell > 0 {
			veto = fmt.Sprintf("H1 %s veto: %d SELL vote(s) dropped", h1, sell)
		}
		sell = 0
	}

	action := model.Hold
	if buy >= cfg.Quorum {
		action = model.Buy
	} else if sell >= cfg.Quorum {
		action = model.Sell
	}

	voters := make([]string, 0, len(votes))
	for _, v := range votes {
		if v.Action == action && action != model.Hold {
			voters = append(voters, v.Persona)
		}
	}

	decision := model.Decision{
		Action:   action,
		Reason:   rationale(action, votes, veto),
		Voters:   voters,
		Snapshot: snapshot,
	}

	if action != model.Hold {
		decision.StopLoss, decision.TakeProfit = protection(votes, action)
	}

	if cfg.Cooldown && !open && decision.Actionable() &&
		lastClosed != nil && lastClosed.Profit < 0 && lastClosed.Type == decision.Action {
		return model.Decision{
			Action:   model.Hold,
			Reason:   fmt.Sprintf("COOLDOWN: last loss was in %s direction", decision.Action),
			Voters:   voters,
			Snapshot: snapshot,
		}
	}
	return decision
}

// protection averages the stop loss and take profit of the concurring votes
// that supplied non zero values. Zeroes signal "no safe entry" downstream.
func protection(votes []model.Vote, action model.Type) (float64, float64) {
	var sl, tp float64
	var nsl, ntp int
	for _, v := range votes {
		if v.Action != action {
			continue
		}
		if v.StopLoss != 0 {
			sl += v.StopLoss
			nsl++
		}
		if v.TakeProfit != 0 {
			tp += v.TakeProfit
			ntp++
		}
	}
	if nsl > 0 {
		sl /= float64(nsl)
	}
	if ntp > 0 {
		tp /= float64(ntp)
	}
	return sl, tp
}

func rationale(action model.Type, votes []model.Vote, veto string) string {
	parts := make([]string, 0, len(votes)+2)
	parts = append(parts, fmt.Sprintf("Council: %s", action))
	for _, v := range votes {
		parts = append(parts, fmt.Sprintf("%s:%s:%s", v.Persona, v.Action, v.Reason))
	}
	if veto != "" {
		parts = append(parts, veto)
	}
	return strings.Join(parts, " | ")
}
