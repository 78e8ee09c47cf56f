package model

import "time"

// Timeframe defines a chart timeframe label.
type Timeframe string

const (
	// H1 is the higher timeframe used for the trend veto.
	H1 Timeframe = "h1"
	// M15 is the intermediate timeframe.
	M15 Timeframe = "m15"
	// M5 is the working timeframe of the control loop.
	M5 Timeframe = "m5"
)

// Timeframes returns all tracked timeframes, higher first.
func Timeframes() []Timeframe {
	return []Timeframe{H1, M15, M5}
}

// Trend defines the direction label for a timeframe.
type Trend string

const (
	Bullish Trend = "BULLISH"
	Bearish Trend = "BEARISH"
	// Unknown is the initial trend state and a valid steady state
	// if the refresh keeps failing.
	Unknown Trend = "UNKNOWN"
)

// Veto returns the action that this trend forbids.
func (t Trend) Veto() Type {
	switch t {
	case Bullish:
		return Sell
	case Bearish:
		return Buy
	}
	return NoType
}

// Candle defines one OHLC bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Direction derives the trend from the candle body.
func (c Candle) Direction() Trend {
	if c.Close > c.Open {
		return Bullish
	}
	return Bearish
}

// Snapshot carries the indicator values that backed a decision.
type Snapshot struct {
	Price         float64 `json:"price"`
	RSI           float64 `json:"rsi"`
	ATR           float64 `json:"atr"`
	BollingerDown float64 `json:"bollinger_down"`
	BollingerUp   float64 `json:"bollinger_up"`
}
