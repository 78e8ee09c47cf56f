package api

import (
	"time"

	"github.com/drakos74/goldmind/internal/model"
)

// EventType labels the broadcast payloads.
type EventType string

const (
	// LogEvent carries a human readable status line.
	LogEvent EventType = "log"
	// BalanceEvent carries live account metrics and persona scores.
	BalanceEvent EventType = "balance_update"
	// AnalysisEvent carries the decision of the current cycle.
	AnalysisEvent EventType = "analysis_update"
	// ChartEvent carries refreshed candle series.
	ChartEvent EventType = "chart_update"
	// HistoryEvent carries reconciled ledger records.
	HistoryEvent EventType = "history_update"
	// TradeEvent signals an executed command (open, close, modify).
	TradeEvent EventType = "trade_update"
)

// Event is a fire-and-forget state snapshot sent to observers.
type Event struct {
	Type    EventType      `json:"type"`
	Account string         `json:"account"`
	Time    time.Time      `json:"time"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event for the given account.
func NewEvent(t EventType, account string) *Event {
	return &Event{
		Type:    t,
		Account: account,
		Time:    time.Now(),
	}
}

// WithMessage attaches a log line to the event.
func (e *Event) WithMessage(msg string) *Event {
	e.Message = msg
	return e
}

// With attaches a payload field to the event.
func (e *Event) With(key string, value any) *Event {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// WithDecision attaches the cycle decision to the event.
func (e *Event) WithDecision(d model.Decision) *Event {
	return e.With("decision", d)
}

// Publisher pushes state snapshots to zero or more observers.
// Publishing never blocks the control loop, failures are logged and dropped.
type Publisher interface {
	Publish(event *Event)
}

// Publishers fans an event out to a group of observers.
type Publishers []Publisher

// Publish implements Publisher across the group.
func (pp Publishers) Publish(event *Event) {
	for _, p := range pp {
		p.Publish(event)
	}
}
