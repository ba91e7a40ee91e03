package correlation

import (
	"fmt"

	"ForexLens/internal/calculator"
	"ForexLens/internal/model"
)

// DefaultWindow is the rolling correlation window in bars.
const DefaultWindow = 30

// Engine computes correlations of daily returns between aligned series.
type Engine struct {
	window int
}

// NewEngine returns an Engine with the given rolling window. Windows shorter
// than two bars fall back to DefaultWindow.
func NewEngine(window int) *Engine {
	if window <= 1 {
		window = DefaultWindow
	}
	return &Engine{window: window}
}

// Window returns the rolling window in bars.
func (e *Engine) Window() int { return e.window }

// Rolling aligns left and right, then computes the Pearson correlation of
// daily returns over each trailing window. The result carries the full-overlap
// coefficient, the rolling series, its latest value and mean, and the trend tag.
//
// It fails with ErrAlignmentEmpty when the series share no timestamps and with
// ErrInsufficientData when the overlap is shorter than the window or no window
// yields a defined correlation.
func (e *Engine) Rolling(left, right *model.PriceSeries) (model.CorrelationResult, error) {
	res := model.CorrelationResult{
		Left:   left.Pair(),
		Right:  right.Pair(),
		Window: e.window,
		Trend:  model.CorrelationDecreasing,
	}
	al, err := Align(left, right)
	if err != nil {
		return res, err
	}
	res.Overlap = al.Len()
	if al.Len() < e.window {
		return res, fmt.Errorf("%w for %s/%s correlation: need %d common bars, have %d",
			model.ErrInsufficientData, left.Pair(), right.Pair(), e.window, al.Len())
	}

	lr := calculator.Returns(al.Left, 1)
	rr := calculator.Returns(al.Right, 1)
	if c, err := calculator.Pearson(lr, rr); err == nil {
		res.Coefficient = c
	}

	var sum float64
	var defined int
	// lr[k] is the return into al.Times[k+1].
	for end := e.window - 1; end < len(lr); end++ {
		start := end - e.window + 1
		c, err := calculator.Pearson(lr[start:end+1], rr[start:end+1])
		if err != nil {
			continue
		}
		res.Rolling = append(res.Rolling, model.CorrelationPoint{Time: al.Times[end+1], Value: c})
		if c.Defined {
			sum += c.V
			defined++
		}
	}
	if defined == 0 {
		return res, fmt.Errorf("%w for %s/%s rolling correlation: no defined %d-bar window",
			model.ErrInsufficientData, left.Pair(), right.Pair(), e.window)
	}

	res.Current = res.Rolling[len(res.Rolling)-1].Value
	res.Average = model.Some(sum / float64(defined))
	res.Trend = Trend(res.Current, res.Average)
	return res, nil
}

// Trend is increasing only when current is strictly above average. Ties and
// an undefined current resolve to decreasing.
func Trend(current, average model.Value) model.CorrelationTrend {
	if current.Defined && average.Defined && current.V > average.V {
		return model.CorrelationIncreasing
	}
	return model.CorrelationDecreasing
}
