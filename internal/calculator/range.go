package calculator

import (
	"errors"
	"fmt"
	"math"

	"ForexLens/internal/model"
)

// PriceRange scans all bars and returns the highest high and the lowest low.
func PriceRange(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// RollingMax returns max(values[end-window+1 .. end]).
func RollingMax(values []float64, window, end int) (float64, error) {
	if err := checkWindow(len(values), window, end); err != nil {
		return 0, err
	}
	m := math.Inf(-1)
	for i := end - window + 1; i <= end; i++ {
		if values[i] > m {
			m = values[i]
		}
	}
	return m, nil
}

// RollingMin returns min(values[end-window+1 .. end]).
func RollingMin(values []float64, window, end int) (float64, error) {
	if err := checkWindow(len(values), window, end); err != nil {
		return 0, err
	}
	m := math.Inf(1)
	for i := end - window + 1; i <= end; i++ {
		if values[i] < m {
			m = values[i]
		}
	}
	return m, nil
}

func checkWindow(n, window, end int) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}
	if end < 0 || end >= n {
		return fmt.Errorf("index %d out of range for %d values", end, n)
	}
	if end+1 < window {
		return fmt.Errorf("%w for %d-bar window ending at %d", model.ErrInsufficientData, window, end)
	}
	return nil
}
