package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Pair identifies a currency pair such as EUR/USD.
type Pair struct {
	Base  string `json:"base" yaml:"base"`
	Quote string `json:"quote" yaml:"quote"`
}

// NewPair builds a Pair with upper-cased currency codes.
func NewPair(base, quote string) Pair {
	return Pair{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}
}

// ParsePair parses "EUR/USD", "EUR_USD" or "EURUSD".
func ParsePair(s string) (Pair, error) {
	s = strings.TrimSpace(s)
	for _, sep := range []string{"/", "_", "-"} {
		if base, quote, ok := strings.Cut(s, sep); ok {
			if base == "" || quote == "" {
				break
			}
			return NewPair(base, quote), nil
		}
	}
	if len(s) == 6 {
		return NewPair(s[:3], s[3:]), nil
	}
	return Pair{}, fmt.Errorf("invalid pair %q", s)
}

func (p Pair) String() string { return p.Base + "/" + p.Quote }

// FileKey is the underscore form used in file names and cache keys.
func (p Pair) FileKey() string { return p.Base + "_" + p.Quote }

// Inverse returns QUOTE/BASE.
func (p Pair) Inverse() Pair { return Pair{Base: p.Quote, Quote: p.Base} }

// Bar is a single daily OHLC record.
type Bar struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// PriceSeries is an immutable, strictly time-ordered OHLC sequence for one pair.
type PriceSeries struct {
	pair Pair
	bars []Bar
}

// NewPriceSeries validates bars and returns a series that owns a private copy of them.
// Prices must be finite and positive, since returns divide by them.
func NewPriceSeries(pair Pair, bars []Bar) (*PriceSeries, error) {
	owned := make([]Bar, len(bars))
	copy(owned, bars)
	for i, b := range owned {
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s bar %d has non-finite price", ErrInvalidSeries, pair, i)
			}
			if v <= 0 {
				return nil, fmt.Errorf("%w: %s bar %d has non-positive price %g", ErrInvalidSeries, pair, i, v)
			}
		}
		if i > 0 && !b.Time.After(owned[i-1].Time) {
			return nil, fmt.Errorf("%w: %s timestamps not strictly increasing at %s",
				ErrInvalidSeries, pair, b.Time.Format(time.DateOnly))
		}
	}
	return &PriceSeries{pair: pair, bars: owned}, nil
}

func (s *PriceSeries) Pair() Pair { return s.pair }

func (s *PriceSeries) Len() int { return len(s.bars) }

// Bar returns the i-th bar; negative indexes count from the end.
func (s *PriceSeries) Bar(i int) Bar {
	if i < 0 {
		i += len(s.bars)
	}
	return s.bars[i]
}

// Last returns the most recent bar. It panics on an empty series.
func (s *PriceSeries) Last() Bar { return s.bars[len(s.bars)-1] }

// Bars returns a copy of all bars.
func (s *PriceSeries) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

func (s *PriceSeries) Closes() []float64 { return s.column(func(b Bar) float64 { return b.Close }) }
func (s *PriceSeries) Highs() []float64  { return s.column(func(b Bar) float64 { return b.High }) }
func (s *PriceSeries) Lows() []float64   { return s.column(func(b Bar) float64 { return b.Low }) }

// Times returns the bar timestamps in order.
func (s *PriceSeries) Times() []time.Time {
	out := make([]time.Time, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Time
	}
	return out
}

// Since returns a new series with bars strictly after cutoff.
func (s *PriceSeries) Since(cutoff time.Time) *PriceSeries {
	start := len(s.bars)
	for i, b := range s.bars {
		if b.Time.After(cutoff) {
			start = i
			break
		}
	}
	return &PriceSeries{pair: s.pair, bars: s.bars[start:len(s.bars):len(s.bars)]}
}

func (s *PriceSeries) column(f func(Bar) float64) []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = f(b)
	}
	return out
}

// Quote is a realtime exchange rate observation.
type Quote struct {
	Pair Pair      `json:"pair"`
	Rate float64   `json:"rate"`
	Bid  float64   `json:"bid"`
	Ask  float64   `json:"ask"`
	Time time.Time `json:"time"`
}

// SpreadPct returns the bid/ask spread as a percentage of the bid, or 0 without a bid.
func (q Quote) SpreadPct() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 0
	}
	return (q.Ask - q.Bid) / q.Bid * 100
}
