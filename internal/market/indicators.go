package market

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/drakos74/goldmind/internal/model"
)

const (
	rsiPeriod       = 14
	atrPeriod       = 14
	bollingerPeriod = 20
	bollingerWidth  = 2.0
)

// RSI returns the n-period relative strength index using Wilder smoothing.
// It returns 0 if the series is shorter than the period.
func RSI(cc []model.Candle, n int) float64 {
	if n <= 0 || len(cc) <= n {
		return 0
	}
	var gain, loss, rsi float64
	for i := 1; i < len(cc); i++ {
		d := cc[i].Close - cc[i-1].Close
		if i <= n {
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
			if i == n {
				gain /= float64(n)
				loss /= float64(n)
				rsi = toRSI(gain, loss)
			}
		} else {
			up, down := 0.0, 0.0
			if d > 0 {
				up = d
			} else {
				down = -d
			}
			gain = (gain*float64(n-1) + up) / float64(n)
			loss = (loss*float64(n-1) + down) / float64(n)
			rsi = toRSI(gain, loss)
		}
	}
	return rsi
}

func toRSI(gain, loss float64) float64 {
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}

// ATR returns the n-period average true range.
func ATR(cc []model.Candle, n int) float64 {
	if n <= 0 || len(cc) <= n {
		return 0
	}
	trs := make([]float64, 0, len(cc)-1)
	for i := 1; i < len(cc); i++ {
		tr := math.Max(cc[i].High-cc[i].Low,
			math.Max(math.Abs(cc[i].High-cc[i-1].Close), math.Abs(cc[i].Low-cc[i-1].Close)))
		trs = append(trs, tr)
	}
	atr := stat.Mean(trs[:n], nil)
	for _, tr := range trs[n:] {
		atr = (atr*float64(n-1) + tr) / float64(n)
	}
	return atr
}

// Bollinger returns the lower and upper band of the n-period bollinger channel.
func Bollinger(cc []model.Candle, n int, width float64) (float64, float64) {
	if n <= 1 || len(cc) < n {
		return 0, 0
	}
	closes := make([]float64, n)
	for i, c := range cc[len(cc)-n:] {
		closes[i] = c.Close
	}
	mean, std := stat.MeanStdDev(closes, nil)
	return mean - width*std, mean + width*std
}

// NewSnapshot computes the indicator snapshot backing one decision cycle.
func NewSnapshot(price float64, cc []model.Candle) model.Snapshot {
	down, up := Bollinger(cc, bollingerPeriod, bollingerWidth)
	return model.Snapshot{
		Price:         price,
		RSI:           RSI(cc, rsiPeriod),
		ATR:           ATR(cc, atrPeriod),
		BollingerDown: down,
		BollingerUp:   up,
	}
}
