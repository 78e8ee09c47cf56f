package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketPrefix marks locally generated placeholder tickets,
// replaced by the broker ticket once reconciled.
const TicketPrefix = "AUTO-"

// NewTicket generates a placeholder ticket id for a freshly opened position.
func NewTicket() string {
	return fmt.Sprintf("%s%s", TicketPrefix, uuid.New().String())
}

// Position is the durable ledger record of one trade.
type Position struct {
	Ticket     string    `json:"ticket"`
	Account    string    `json:"account"`
	Symbol     string    `json:"symbol"`
	Type       Type      `json:"type"`
	Volume     float64   `json:"volume"`
	OpenPrice  float64   `json:"open_price"`
	ClosePrice float64   `json:"close_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Profit     float64   `json:"profit"`
	Closed     bool      `json:"closed"`
	External   bool      `json:"external"`
	OpenTime   time.Time `json:"open_time"`
	CloseTime  time.Time `json:"close_time"`

	// context snapshot at entry time
	H1Trend   Trend    `json:"h1_trend"`
	M15Trend  Trend    `json:"m15_trend"`
	Voters    []string `json:"voters"`
	Rationale string   `json:"rationale"`
	Snapshot  Snapshot `json:"snapshot"`
}

// Placeholder returns true while the record still carries a locally generated ticket.
func (p Position) Placeholder() bool {
	return strings.HasPrefix(p.Ticket, TicketPrefix)
}

// Won returns true if the closed position locked in a profit.
func (p Position) Won() bool {
	return p.Profit > 0
}

// OpenPosition is a position as observed live on the execution venue.
// The ledger record is the source of truth, this is the ground state
// the risk manager acts on.
type OpenPosition struct {
	Type   Type
	Entry  float64
	Profit float64
}

// ClosedTrade is one row of the execution venue trade history.
type ClosedTrade struct {
	Ticket     string
	Symbol     string
	Type       Type
	Volume     float64
	Profit     float64
	Commission float64
	CloseTime  time.Time
	Comment    string
}

// Net returns the realised profit including commission.
func (c ClosedTrade) Net() float64 {
	return c.Profit + c.Commission
}
