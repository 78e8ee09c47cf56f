package model

// Vote is the recommendation of a single persona for one cycle.
// Votes are ephemeral, only the winning rationale survives as part
// of the position context snapshot.
type Vote struct {
	Persona    string  `json:"persona"`
	Action     Type    `json:"action"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Reason     string  `json:"reason"`
}

// Decision is the synthesized single action for a cycle.
type Decision struct {
	Action     Type     `json:"action"`
	StopLoss   float64  `json:"stop_loss"`
	TakeProfit float64  `json:"take_profit"`
	Reason     string   `json:"reason"`
	Voters     []string `json:"voters"`
	Snapshot   Snapshot `json:"snapshot"`
}

// Actionable returns true if the decision asks for a new order.
func (d Decision) Actionable() bool {
	return d.Action == Buy || d.Action == Sell
}

// Opposes returns true if the decision action is the opposite of the given direction.
func (d Decision) Opposes(t Type) bool {
	return d.Action == t.Inv()
}
