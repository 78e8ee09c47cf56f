package model

// Account identifies one trading account run by the controller.
// Credentials are opaque references resolved by the execution adapter.
type Account struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credential string `json:"credential"`
	Balance    float64
	Equity     float64
	Active     bool
}

// AccountMetrics are the live numbers read from the execution venue.
type AccountMetrics struct {
	Balance float64 `json:"balance"`
	Equity  float64 `json:"equity"`
}

// Connected reports whether the venue has started returning real numbers.
func (m AccountMetrics) Connected() bool {
	return m.Balance > 0
}
