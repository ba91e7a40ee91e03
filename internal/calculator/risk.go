package calculator

import (
	"fmt"
	"math"

	"ForexLens/internal/model"
)

// DefaultRiskFreeRate is the annual risk-free rate used by the Sharpe ratio.
const DefaultRiskFreeRate = 0.02

// VaRPercentile is the lower tail percentile for the 95% historical VaR.
const VaRPercentile = 5

// CalculateRisk computes historical VaR(95%), max drawdown, the Sharpe ratio
// and the single-series beta proxy. Use BenchmarkBeta for a market beta.
func CalculateRisk(s *model.PriceSeries, riskFreeRate float64) (model.RiskMetrics, []model.FieldIssue, error) {
	n := s.Len()
	if n < 2 {
		return model.RiskMetrics{}, nil, fmt.Errorf("%w for risk metrics: need 2 bars, have %d", model.ErrInsufficientData, n)
	}
	closes := s.Closes()
	returns := Returns(closes, DailyLag)
	var missing issues

	r := model.RiskMetrics{
		MaxDrawdown: model.Some(MaxDrawdown(closes)),
		BetaMode:    model.BetaSelfVolatility,
	}

	if v, err := Percentile(returns, VaRPercentile); err == nil {
		r.VaR95 = model.Some(v)
	}

	if sharpe, err := SharpeRatio(returns, riskFreeRate); err == nil {
		r.SharpeRatio = model.Some(sharpe)
	} else {
		missing.need("risk_metrics.sharpe_ratio", 3, n)
	}

	if sd, err := SampleStdDev(returns); err == nil {
		r.Beta = model.Some(sd)
	} else {
		missing.need("risk_metrics.beta", 3, n)
	}
	return r, missing, nil
}

// MaxDrawdown returns min((p - runningMax) / runningMax). The result is <= 0.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	peak := prices[0]
	worst := 0.0
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak == 0 {
			continue
		}
		if dd := (p - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// SharpeRatio is sqrt(252) * mean(excess) / stdev(excess), with excess daily
// returns over riskFreeRate/252. It is 0 when the excess returns do not vary.
func SharpeRatio(returns []float64, riskFreeRate float64) (float64, error) {
	daily := riskFreeRate / TradingDays
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - daily
	}
	sd, err := SampleStdDev(excess)
	if err != nil {
		return 0, err
	}
	if sd == 0 {
		return 0, nil
	}
	return math.Sqrt(TradingDays) * Mean(excess) / sd, nil
}

// BenchmarkBeta is cov(returns, market) / var(market) over aligned returns.
func BenchmarkBeta(returns, market []float64) (model.Value, error) {
	cov, err := Covariance(returns, market)
	if err != nil {
		return model.None(), err
	}
	sd, err := SampleStdDev(market)
	if err != nil {
		return model.None(), err
	}
	if sd == 0 {
		return model.None(), nil
	}
	return model.Some(cov / (sd * sd)), nil
}
