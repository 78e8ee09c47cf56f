package market

import "github.com/drakos74/goldmind/internal/model"

// Patterns detects simple two-candle formations on the given series.
func Patterns(cc []model.Candle) []string {
	patterns := make([]string, 0)
	if len(cc) < 2 {
		return patterns
	}
	c := cc[len(cc)-1]
	p := cc[len(cc)-2]

	body := c.Close - c.Open
	if body < 0 {
		body = -body
	}

	if p.Close < p.Open && c.Close > c.Open &&
		c.Close > p.Open && c.Open < p.Close {
		patterns = append(patterns, "BULLISH_ENGULFING")
	}

	if p.Close > p.Open && c.Close < c.Open &&
		c.Open > p.Close && c.Close < p.Open {
		patterns = append(patterns, "BEARISH_ENGULFING")
	}

	if span := c.High - c.Low; span > 0 && body/span < 0.1 {
		patterns = append(patterns, "DOJI")
	}
	return patterns
}
