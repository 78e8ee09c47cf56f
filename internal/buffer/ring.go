package buffer

import "github.com/drakos74/goldmind/internal/model"

// Ring is a ring buffer keeping the last x candles of a timeframe.
type Ring struct {
	index  int
	count  int
	values []model.Candle
}

// NewRing creates a new ring with the given buffer size.
func NewRing(size int) *Ring {
	return &Ring{
		values: make([]model.Candle, size),
	}
}

// Size returns the number of elements within the ring.
func (r *Ring) Size() int {
	if r.count < len(r.values) {
		return r.count
	}
	return len(r.values)
}

// Push adds a candle to the ring, evicting the oldest one when full.
func (r *Ring) Push(c model.Candle) {
	r.values[r.index] = c
	r.index = r.next(r.index)
	r.count++
}

// Fill replaces the ring contents with the given series.
func (r *Ring) Fill(cc []model.Candle) {
	r.index = 0
	r.count = 0
	for _, c := range cc {
		r.Push(c)
	}
}

func (r *Ring) next(index int) int {
	return (index + 1) % len(r.values)
}

// Get returns an ordered slice of the ring elements, oldest first.
func (r *Ring) Get() []model.Candle {
	l := r.Size()
	v := make([]model.Candle, l)
	for i := 0; i < l; i++ {
		idx := i
		if r.count > l {
			idx = (r.index + i) % len(r.values)
		}
		v[i] = r.values[idx]
	}
	return v
}

// Last returns the most recent candle, if any.
func (r *Ring) Last() (model.Candle, bool) {
	if r.Size() == 0 {
		return model.Candle{}, false
	}
	last := r.index - 1
	if last < 0 {
		last = len(r.values) - 1
	}
	return r.values[last], true
}
