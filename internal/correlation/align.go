package correlation

import (
	"fmt"
	"time"

	"ForexLens/internal/model"
)

// Aligned holds the closes of two series on their common timestamps.
type Aligned struct {
	Times []time.Time
	Left  []float64
	Right []float64
}

// Len returns the number of common timestamps.
func (a Aligned) Len() int { return len(a.Times) }

// Align inner-joins two series on bar timestamps. Both inputs are strictly
// ordered, so a single merge pass is enough.
func Align(left, right *model.PriceSeries) (Aligned, error) {
	lb, rb := left.Bars(), right.Bars()
	out := Aligned{}
	i, j := 0, 0
	for i < len(lb) && j < len(rb) {
		lt, rt := lb[i].Time, rb[j].Time
		switch {
		case lt.Equal(rt):
			out.Times = append(out.Times, lt)
			out.Left = append(out.Left, lb[i].Close)
			out.Right = append(out.Right, rb[j].Close)
			i++
			j++
		case lt.Before(rt):
			i++
		default:
			j++
		}
	}
	if out.Len() == 0 {
		return Aligned{}, fmt.Errorf("%w: %s and %s", model.ErrAlignmentEmpty, left.Pair(), right.Pair())
	}
	return out, nil
}
