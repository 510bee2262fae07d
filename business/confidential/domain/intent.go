package domain

// Score bounds shared by 0..255 fields.
const (
	MaxScore       = 255
	MaxBasisPoints = 10_000
)

// UserPreferences are the trader's private execution preferences.
type UserPreferences struct {
	DesiredSize       int64 `json:"desired_size"`
	SlippageTolerance int64 `json:"slippage_tolerance"`
	RiskAppetite      int64 `json:"risk_appetite"`
	PreferredHoldTime int64 `json:"preferred_hold_time"`
}

func (p UserPreferences) Validate() error {
	return check("user preferences").
		nonNegative("desired_size", p.DesiredSize).
		between("slippage_tolerance", p.SlippageTolerance, 0, MaxBasisPoints).
		between("risk_appetite", p.RiskAppetite, 0, MaxScore).
		nonNegative("preferred_hold_time", p.PreferredHoldTime).
		result()
}

// UserHistory summarizes past trading. RecentPnL may be negative.
type UserHistory struct {
	RecentPnL   int64 `json:"recent_pnl"`
	WinRate     int64 `json:"win_rate"`
	AvgHoldTime int64 `json:"avg_hold_time"`
	TotalTrades int64 `json:"total_trades"`
}

func (h UserHistory) Validate() error {
	return check("user history").
		between("win_rate", h.WinRate, 0, MaxBasisPoints).
		nonNegative("avg_hold_time", h.AvgHoldTime).
		nonNegative("total_trades", h.TotalTrades).
		result()
}

// CurveState is the public bonding curve snapshot used for planning.
type CurveState struct {
	CurrentPrice   int64 `json:"current_price"`
	LiquidityDepth int64 `json:"liquidity_depth"`
	Volatility     int64 `json:"volatility"`
	RecentVolume   int64 `json:"recent_volume"`
}

func (c CurveState) Validate() error {
	return check("curve state").
		nonNegative("current_price", c.CurrentPrice).
		nonNegative("liquidity_depth", c.LiquidityDepth).
		nonNegative("volatility", c.Volatility).
		nonNegative("recent_volume", c.RecentVolume).
		result()
}

// PortfolioContext describes capital and exposure. Exposure above capital is allowed.
type PortfolioContext struct {
	TotalCapital         int64 `json:"total_capital"`
	CurrentExposure      int64 `json:"current_exposure"`
	DiversificationScore int64 `json:"diversification_score"`
	LeverageRatio        int64 `json:"leverage_ratio"`
}

func (p PortfolioContext) Validate() error {
	return check("portfolio context").
		nonNegative("total_capital", p.TotalCapital).
		nonNegative("current_exposure", p.CurrentExposure).
		between("diversification_score", p.DiversificationScore, 0, MaxScore).
		nonNegative("leverage_ratio", p.LeverageRatio).
		result()
}

// PerformanceHistory summarizes realized performance. TotalPnL and SharpeRatio may be negative.
type PerformanceHistory struct {
	TotalPnL         int64 `json:"total_pnl"`
	SharpeRatio      int64 `json:"sharpe_ratio"`
	MaxDrawdown      int64 `json:"max_drawdown"`
	ConsistencyScore int64 `json:"consistency_score"`
}

func (p PerformanceHistory) Validate() error {
	return check("performance history").
		between("max_drawdown", p.MaxDrawdown, 0, MaxBasisPoints).
		between("consistency_score", p.ConsistencyScore, 0, MaxScore).
		result()
}

// MarketConditions is public market data for risk scoring.
type MarketConditions struct {
	CurveVolatility int64 `json:"curve_volatility"`
	LiquidityRisk   int64 `json:"liquidity_risk"`
	MarketSentiment int64 `json:"market_sentiment"`
}

func (m MarketConditions) Validate() error {
	return check("market conditions").
		nonNegative("curve_volatility", m.CurveVolatility).
		between("liquidity_risk", m.LiquidityRisk, 0, MaxScore).
		between("market_sentiment", m.MarketSentiment, -128, 127).
		result()
}

// SizingPreferences bound the position size.
type SizingPreferences struct {
	TargetSize           int64 `json:"target_size"`
	MinSize              int64 `json:"min_size"`
	MaxSize              int64 `json:"max_size"`
	CapitalAllocationPct int64 `json:"capital_allocation_pct"`
}

func (s SizingPreferences) Validate() error {
	c := check("sizing preferences").
		nonNegative("target_size", s.TargetSize).
		nonNegative("min_size", s.MinSize).
		nonNegative("max_size", s.MaxSize).
		between("capital_allocation_pct", s.CapitalAllocationPct, 0, 100)
	if s.MinSize > s.MaxSize {
		c.fail("min_size", "must not exceed max_size")
	}
	return c.result()
}

// UserConstraints limit execution.
type UserConstraints struct {
	MaxSlippageBps    int64 `json:"max_slippage_bps"`
	TimeConstraintSec int64 `json:"time_constraint_sec"`
	PriorityLevel     int64 `json:"priority_level"`
}

func (u UserConstraints) Validate() error {
	return check("user constraints").
		between("max_slippage_bps", u.MaxSlippageBps, 0, MaxBasisPoints).
		nonNegative("time_constraint_sec", u.TimeConstraintSec).
		between("priority_level", u.PriorityLevel, 0, MaxScore).
		result()
}

// CurveMetrics is public curve data for execution timing. PriceChange24h may be negative.
type CurveMetrics struct {
	CurrentPrice   int64 `json:"current_price"`
	PriceChange24h int64 `json:"price_change_24h"`
	LiquidityDepth int64 `json:"liquidity_depth"`
	BuyPressure    int64 `json:"buy_pressure"`
	SellPressure   int64 `json:"sell_pressure"`
}

func (c CurveMetrics) Validate() error {
	return check("curve metrics").
		nonNegative("current_price", c.CurrentPrice).
		nonNegative("liquidity_depth", c.LiquidityDepth).
		nonNegative("buy_pressure", c.BuyPressure).
		nonNegative("sell_pressure", c.SellPressure).
		result()
}
