package council

// Persona is an independent strategy advisor producing one vote per cycle.
// Personas carry no state, the role description is the whole strategy.
type Persona struct {
	Name string
	Role string
}

// Wise is the capital preservation persona.
func Wise() Persona {
	return Persona{
		Name: "WISE",
		Role: `ROLE: Institutional Risk Manager (The Wise).
GOAL: Capital preservation and trend filtering.
RULES:
1. If RSI is between 45 and 55 the market is noise, vote HOLD.
2. If the H1 trend is BULLISH never vote SELL, if BEARISH never vote BUY.
   If the H1 trend is UNKNOWN vote HOLD.
3. Only vote for an entry on a clear break of structure in the direction
   of the H1 trend.
4. If you vote BUY set the stop loss below the most recent swing low,
   if you vote SELL set it above the most recent swing high.
   No stop loss means no trade, vote HOLD instead.`,
	}
}

// Reckless is the momentum persona.
func Reckless() Persona {
	return Persona{
		Name: "RECKLESS",
		Role: `ROLE: Aggressive Momentum Trader (The Reckless).
GOAL: Catch the breakout.
RULES:
1. Ignore RSI extremes, strong trends stay overbought or oversold.
2. A huge candle closing near its high or low is a signal in that direction.
3. If the H1 trend is BULLISH look only for BUYs, if BEARISH only for SELLs.`,
	}
}

// Analyst is the mean reversion persona.
func Analyst() Persona {
	return Persona{
		Name: "ANALYST",
		Role: `ROLE: Value Trader (The Analyst).
GOAL: Catch reversals with math and structure.
RULES:
1. Do not fade a fast moving market, wait for small candles first.
2. RSI must be extreme (below 25 or above 75) and price outside the
   bollinger bands before you consider an entry.
3. After the exhaustion, a change of character on the working timeframe
   is your trigger. Risk to reward must be better than 1:2.`,
	}
}

// Members returns the fixed council panel.
func Members() []Persona {
	return []Persona{Wise(), Reckless(), Analyst()}
}
