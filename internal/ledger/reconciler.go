package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/drakos74/goldmind/internal/model"
)

// Outcome labels what the reconciler did with a reported trade.
type Outcome string

const (
	// Updated means the profit of a known ticket changed.
	Updated Outcome = "updated"
	// Adopted means a placeholder record was matched and closed.
	Adopted Outcome = "adopted"
	// External means the trade was opened outside this system.
	External Outcome = "external"
)

// Reconciler keeps the ledger consistent with the trade history reported
// by the execution venue.
type Reconciler struct {
	store *Store
}

// NewReconciler creates a reconciler over the given ledger.
func NewReconciler(store *Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile matches the reported closed trades against the ledger.
// It returns the records it touched, keyed by outcome. Running it twice on
// the same report performs no further writes.
func (r *Reconciler) Reconcile(reported []model.ClosedTrade) (map[Outcome][]model.Position, error) {
	touched := map[Outcome][]model.Position{}
	seen := make(map[string]struct{})

	for _, trade := range reported {
		if trade.Ticket == "" {
			continue
		}
		if _, ok := seen[trade.Ticket]; ok {
			continue
		}
		seen[trade.Ticket] = struct{}{}

		net := net(trade)
		// empty rows carry no information
		if net == 0 && trade.Profit == 0 && trade.Commission == 0 {
			continue
		}

		// a known real ticket only ever gets its profit corrected
		if existing, ok := r.store.ByTicket(trade.Ticket); ok {
			if existing.Profit == net {
				continue
			}
			existing.Profit = net
			if err := r.store.Update(existing.Ticket, existing); err != nil {
				return touched, fmt.Errorf("could not update profit for %s: %w", trade.Ticket, err)
			}
			touched[Updated] = append(touched[Updated], existing)
			continue
		}

		reason := closeReason(trade.Comment)

		// adopt the oldest placeholder with the same shape
		if match, ok := r.store.OldestPlaceholder(trade.Symbol, trade.Type, trade.Volume); ok {
			placeholder := match.Ticket
			match.Ticket = trade.Ticket
			match.Profit = net
			match.CloseTime = closeTime(trade)
			match.Closed = true
			if reason != "MANUAL" && !strings.Contains(match.Rationale, "CLOSED BY") {
				match.Rationale = fmt.Sprintf("%s\n[CLOSED BY %s]", match.Rationale, reason)
			}
			if err := r.store.Update(placeholder, match); err != nil {
				return touched, fmt.Errorf("could not adopt ticket %s: %w", trade.Ticket, err)
			}
			log.Info().Str("ticket", trade.Ticket).Str("placeholder", placeholder).
				Float64("profit", net).Msg("reconciled position")
			touched[Adopted] = append(touched[Adopted], match)
			continue
		}

		// no match, the trade happened outside this system, keep the data
		external := model.Position{
			Ticket:    trade.Ticket,
			Symbol:    trade.Symbol,
			Type:      trade.Type,
			Volume:    trade.Volume,
			OpenPrice: 0,
			Profit:    net,
			CloseTime: closeTime(trade),
			Closed:    true,
			External:  true,
			Rationale: fmt.Sprintf("Manual/External Trade [%s]", reason),
		}
		if err := r.store.Create(external); err != nil {
			return touched, fmt.Errorf("could not record external trade %s: %w", trade.Ticket, err)
		}
		touched[External] = append(touched[External], external)
	}
	return touched, nil
}

// net computes the realised profit including commission, through decimals
// to avoid binary float artifacts from parsed venue numbers.
func net(trade model.ClosedTrade) float64 {
	v, _ := decimal.NewFromFloat(trade.Profit).Add(decimal.NewFromFloat(trade.Commission)).Float64()
	return v
}

func closeTime(trade model.ClosedTrade) time.Time {
	if trade.CloseTime.IsZero() {
		return time.Now()
	}
	return trade.CloseTime
}

// closeReason derives the exit cause from the venue comment.
func closeReason(comment string) string {
	c := strings.ToLower(comment)
	switch {
	case strings.Contains(c, "[sl"):
		return "SL"
	case strings.Contains(c, "[tp"):
		return "TP"
	}
	return "MANUAL"
}
