package model

import "time"

// CorrelationTrend compares the latest rolling correlation with its mean.
type CorrelationTrend string

const (
	CorrelationIncreasing CorrelationTrend = "increasing"
	CorrelationDecreasing CorrelationTrend = "decreasing"
)

// CorrelationPoint is one rolling-window correlation sample.
type CorrelationPoint struct {
	Time  time.Time `json:"time"`
	Value Value     `json:"value"`
}

// CorrelationResult is the rolling correlation of daily returns between two series.
type CorrelationResult struct {
	Left        Pair               `json:"left"`
	Right       Pair               `json:"right"`
	Window      int                `json:"window"`
	Overlap     int                `json:"overlap"`
	Coefficient Value              `json:"coefficient"`
	Rolling     []CorrelationPoint `json:"rolling"`
	Current     Value              `json:"current_correlation"`
	Average     Value              `json:"avg_correlation"`
	Trend       CorrelationTrend   `json:"correlation_trend"`
}

// CorrelationMatrix holds static pairwise correlations of aligned closes.
// Cells are undefined where two series do not overlap enough.
type CorrelationMatrix struct {
	Labels []string  `json:"labels"`
	Cells  [][]Value `json:"cells"`
}

// At returns the cell for two labels.
func (m CorrelationMatrix) At(a, b string) Value {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return None()
	}
	return m.Cells[i][j]
}

func (m CorrelationMatrix) index(label string) int {
	for i, l := range m.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// CorrelationExtreme is one off-diagonal cell of a matrix.
type CorrelationExtreme struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Value float64 `json:"value"`
}
