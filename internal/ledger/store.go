package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/drakos74/goldmind/internal/model"
	"github.com/drakos74/goldmind/internal/storage"
)

var (
	// ErrOpenPosition guards the single open position invariant.
	ErrOpenPosition = errors.New("an open position already exists")
	// ErrUnknownTicket means no record carries the given ticket.
	ErrUnknownTicket = errors.New("unknown ticket")
	// ErrClosedPosition guards closed records against reopening or mutation.
	ErrClosedPosition = errors.New("position is closed")
)

// State is the persisted snapshot of the ledger.
type State struct {
	Positions []model.Position `json:"positions"`
}

// Store is the durable trade ledger of one account.
// All mutation happens on the control loop goroutine, the persistence
// layer provides the durability.
type Store struct {
	account   string
	db        storage.Persistence
	positions []model.Position
}

// NewStore creates the ledger for the given account, loading any
// previously persisted state.
func NewStore(account string, shard storage.Shard) (*Store, error) {
	db, err := shard(storage.LedgerDir)
	if err != nil {
		return nil, fmt.Errorf("could not init ledger storage: %w", err)
	}
	s := &Store{
		account:   account,
		db:        db,
		positions: make([]model.Position, 0),
	}
	var state State
	err = s.db.Load(s.key(), &state)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("could not load ledger: %w", err)
	}
	s.positions = state.Positions
	log.Info().Str("account", account).Int("num", len(s.positions)).Msg("loaded ledger")
	return s, nil
}

func (s *Store) key() storage.Key {
	return storage.Key{Account: s.account, Label: "positions"}
}

func (s *Store) save() error {
	return s.db.Store(s.key(), State{Positions: s.positions})
}

// Open returns the currently open record, if any.
func (s *Store) Open() (model.Position, bool) {
	for _, p := range s.positions {
		if !p.Closed {
			return p, true
		}
	}
	return model.Position{}, false
}

// Create appends a new open record.
// At most one open record may exist per account at a time.
func (s *Store) Create(p model.Position) error {
	if !p.Closed {
		if open, ok := s.Open(); ok {
			return fmt.Errorf("ticket %s: %w", open.Ticket, ErrOpenPosition)
		}
	}
	if _, ok := s.ByTicket(p.Ticket); ok {
		return fmt.Errorf("duplicate ticket %s", p.Ticket)
	}
	p.Account = s.account
	if p.OpenTime.IsZero() {
		p.OpenTime = time.Now()
	}
	s.positions = append(s.positions, p)
	return s.save()
}

// ByTicket finds the record carrying the given ticket.
func (s *Store) ByTicket(ticket string) (model.Position, bool) {
	for _, p := range s.positions {
		if p.Ticket == ticket {
			return p, true
		}
	}
	return model.Position{}, false
}

// Update replaces the record matching the given position's previous ticket.
// A closed record is never reopened.
func (s *Store) Update(previous string, p model.Position) error {
	for i, existing := range s.positions {
		if existing.Ticket != previous {
			continue
		}
		if existing.Closed && !p.Closed {
			return fmt.Errorf("ticket %s: %w", previous, ErrClosedPosition)
		}
		p.Account = s.account
		s.positions[i] = p
		return s.save()
	}
	return fmt.Errorf("ticket %s: %w", previous, ErrUnknownTicket)
}

// UpdateStop moves the confirmed stop loss of an open record.
func (s *Store) UpdateStop(ticket string, stop float64) error {
	for i, p := range s.positions {
		if p.Ticket != ticket {
			continue
		}
		if p.Closed {
			return fmt.Errorf("ticket %s: %w", ticket, ErrClosedPosition)
		}
		s.positions[i].StopLoss = stop
		return s.save()
	}
	return fmt.Errorf("ticket %s: %w", ticket, ErrUnknownTicket)
}

// OldestPlaceholder finds the oldest placeholder record matching symbol,
// direction and volume, for ticket adoption during reconciliation.
// Open records win over records already closed by a risk command that are
// still waiting for their broker ticket.
func (s *Store) OldestPlaceholder(symbol string, t model.Type, volume float64) (model.Position, bool) {
	var match model.Position
	found := false
	v := decimal.NewFromFloat(volume)
	for _, p := range s.positions {
		if !p.Placeholder() {
			continue
		}
		if p.Symbol != symbol || p.Type != t || !decimal.NewFromFloat(p.Volume).Equal(v) {
			continue
		}
		if !found ||
			(!p.Closed && match.Closed) ||
			(p.Closed == match.Closed && p.OpenTime.Before(match.OpenTime)) {
			match = p
			found = true
		}
	}
	return match, found
}

// RecentClosed returns up to n closed records, most recently closed first.
func (s *Store) RecentClosed(n int) []model.Position {
	closed := make([]model.Position, 0)
	for _, p := range s.positions {
		if p.Closed {
			closed = append(closed, p)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].CloseTime.After(closed[j].CloseTime)
	})
	if n > 0 && len(closed) > n {
		closed = closed[:n]
	}
	return closed
}

// LastClosed returns the most recently closed record, nil if none.
func (s *Store) LastClosed() *model.Position {
	closed := s.RecentClosed(1)
	if len(closed) == 0 {
		return nil
	}
	return &closed[0]
}
