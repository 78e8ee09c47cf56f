package model

import "strings"

// Type defines the direction of an order or vote.
type Type byte

const (
	// NoType defines a missing action.
	NoType Type = iota
	// Buy defines a buy action.
	Buy
	// Sell defines a sell action.
	Sell
	// Hold defines an abstaining action.
	Hold
)

// Sign returns the appropriate sign for the given type for mathematical operations.
func (t Type) Sign() float64 {
	switch t {
	case Buy:
		return 1.0
	case Sell:
		return -1.0
	}
	return 0.0
}

// Inv inverts the action.
func (t Type) Inv() Type {
	switch t {
	case Buy:
		return Sell
	case Sell:
		return Buy
	}
	return NoType
}

func (t Type) String() string {
	switch t {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Hold:
		return "HOLD"
	}
	return ""
}

// ParseType parses an action label as reported by external collaborators.
func ParseType(s string) Type {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy
	case "SELL":
		return Sell
	case "HOLD":
		return Hold
	}
	return NoType
}

// MarshalText makes the type readable in persisted ledger records.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses the persisted representation.
func (t *Type) UnmarshalText(b []byte) error {
	*t = ParseType(string(b))
	return nil
}
