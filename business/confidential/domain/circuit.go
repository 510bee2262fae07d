package domain

import (
	"math"
	"math/bits"
)

// Thresholds used by the circuits. Sizes are in lamports.
const (
	largeOrderSize  = 10_000_000_000
	mediumOrderSize = 1_000_000_000

	highVolatility     = 500
	elevatedVolatility = 300
	moderateVolatility = 200

	strongPriceMove = 1000
	goodSharpe      = 100
	winRateNeutral  = 5000
	winRateStrong   = 6000
	aggressiveRisk  = 200
)

// ComputePlan derives a StrategyPlan from preferences, history and the curve.
// PlanID is left empty; the caller assigns it.
func ComputePlan(prefs UserPreferences, hist UserHistory, curve CurveState) StrategyPlan {
	base := prefs.RiskAppetite
	switch {
	case hist.RecentPnL < 0:
		base += 50
	case hist.WinRate < winRateNeutral:
		base += 30
	default:
		base = max(0, base-20)
	}
	risk := min(MaxScore, base+curve.Volatility/10)

	mode := ModeNormal
	switch {
	case risk > 200:
		mode = ModeMaxGhost
	case risk > 100:
		mode = ModeStealth
	}

	var slices int64 = 3
	switch {
	case prefs.DesiredSize > largeOrderSize:
		slices = 8
	case prefs.DesiredSize > mediumOrderSize:
		slices = 5
	}

	var window int64 = 300
	switch {
	case curve.Volatility > highVolatility:
		window = 60
	case curve.Volatility > moderateVolatility:
		window = 120
	}

	maxNotional := prefs.DesiredSize
	if prefs.RiskAppetite > aggressiveRisk && hist.WinRate > winRateStrong {
		maxNotional = satMul(prefs.DesiredSize, 2)
	}

	return StrategyPlan{
		RecommendedMode: mode,
		NumSlices:       slices,
		SliceSizeBase:   prefs.DesiredSize / slices,
		TimingWindowSec: window,
		RiskLevel:       risk,
		MaxNotional:     maxNotional,
	}
}

// ComputeRiskAssessment scores portfolio and trade risk.
func ComputeRiskAssessment(portfolio PortfolioContext, perf PerformanceHistory, market MarketConditions) RiskAssessment {
	var exposureRatio int64 = MaxScore
	if portfolio.TotalCapital > 0 {
		exposureRatio = mulDiv(portfolio.CurrentExposure, MaxScore, portfolio.TotalCapital)
	}
	portfolioRisk := min(MaxScore, max(100, exposureRatio))

	var tradeRisk int64 = 100
	switch {
	case market.CurveVolatility > highVolatility:
		tradeRisk = 255
	case market.CurveVolatility > elevatedVolatility:
		tradeRisk = 200
	}

	overall := (portfolioRisk + tradeRisk) / 2
	switch {
	case perf.TotalPnL < 0:
		overall = min(MaxScore, overall+50)
	case perf.SharpeRatio > goodSharpe:
		overall = max(0, overall-30)
	}

	rec := RecommendProceed
	switch {
	case overall > 200:
		rec = RecommendAvoid
	case overall > 150:
		rec = RecommendCaution
	}

	return RiskAssessment{
		OverallRiskScore: overall,
		PortfolioRisk:    portfolioRisk,
		TradeRisk:        tradeRisk,
		Recommendation:   rec,
	}
}

// ComputeCurveEvaluation recommends size, price target and timing.
func ComputeCurveEvaluation(sizing SizingPreferences, constraints UserConstraints, metrics CurveMetrics) ExecutionRecommendation {
	candidate := sizing.TargetSize
	if productExceeds(sizing.MaxSize, 2, metrics.LiquidityDepth) {
		candidate = mulDiv(metrics.LiquidityDepth, 3, 4)
	}
	size := min(sizing.MaxSize, max(sizing.MinSize, candidate))

	price := metrics.CurrentPrice
	switch {
	case metrics.PriceChange24h > strongPriceMove:
		price = mulDiv(metrics.CurrentPrice, 101, 100)
	case metrics.PriceChange24h < -strongPriceMove:
		price = mulDiv(metrics.CurrentPrice, 99, 100)
	}

	var urgency int64 = 100
	switch {
	case productBelow(metrics.SellPressure, 2, metrics.BuyPressure):
		urgency = 200
	case productBelow(metrics.BuyPressure, 2, metrics.SellPressure):
		urgency = 50
	}
	urgency = (urgency + constraints.PriorityLevel) / 2

	var confidence int64 = 100
	switch {
	case productBelow(size, 3, metrics.LiquidityDepth):
		confidence = 200
	case metrics.LiquidityDepth > size:
		confidence = 150
	}

	var timing int64 = 300
	if urgency > 200 {
		timing = 60
	}

	return ExecutionRecommendation{
		RecommendedSize:  size,
		EntryPriceTarget: price,
		ExecutionUrgency: urgency,
		OptimalTiming:    min(constraints.TimeConstraintSec, timing),
		ConfidenceScore:  confidence,
	}
}

// satMul multiplies non-negative a and b, saturating at math.MaxInt64.
func satMul(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return a * b
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo)
}

// mulDiv returns floor(a*b/c) for non-negative a, b and positive c. The
// product is kept at 128 bits; only the quotient saturates at math.MaxInt64.
func mulDiv(a, b, c int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(c) {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, uint64(c))
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// productExceeds reports whether a*b > c without overflow. Operands are non-negative.
func productExceeds(a, b, c int64) bool {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return hi != 0 || lo > uint64(c)
}

// productBelow reports whether a*b < c without overflow. Operands are non-negative.
func productBelow(a, b, c int64) bool {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return hi == 0 && lo < uint64(c)
}
