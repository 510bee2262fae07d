package domain

// Execution modes for a StrategyPlan.
const (
	ModeNormal   = "normal"
	ModeStealth  = "stealth"
	ModeMaxGhost = "max_ghost"
)

// Risk recommendations.
const (
	RecommendProceed = "proceed"
	RecommendCaution = "caution"
	RecommendAvoid   = "avoid"
)

// StrategyPlan is the confidential execution plan.
type StrategyPlan struct {
	PlanID          string `json:"plan_id"`
	RecommendedMode string `json:"recommended_mode"`
	NumSlices       int64  `json:"num_slices"`
	SliceSizeBase   int64  `json:"slice_size_base"`
	TimingWindowSec int64  `json:"timing_window_sec"`
	RiskLevel       int64  `json:"risk_level"`
	MaxNotional     int64  `json:"max_notional"`
}

func (p StrategyPlan) Validate() error {
	return check("strategy plan").
		oneOf("recommended_mode", p.RecommendedMode, ModeNormal, ModeStealth, ModeMaxGhost).
		between("num_slices", p.NumSlices, 1, 1<<20).
		nonNegative("slice_size_base", p.SliceSizeBase).
		nonNegative("timing_window_sec", p.TimingWindowSec).
		between("risk_level", p.RiskLevel, 0, MaxScore).
		nonNegative("max_notional", p.MaxNotional).
		result()
}

// RiskAssessment is the confidential risk score.
type RiskAssessment struct {
	OverallRiskScore int64  `json:"overall_risk_score"`
	PortfolioRisk    int64  `json:"portfolio_risk"`
	TradeRisk        int64  `json:"trade_risk"`
	Recommendation   string `json:"recommendation"`
}

func (r RiskAssessment) Validate() error {
	return check("risk assessment").
		between("overall_risk_score", r.OverallRiskScore, 0, MaxScore).
		between("portfolio_risk", r.PortfolioRisk, 0, MaxScore).
		between("trade_risk", r.TradeRisk, 0, MaxScore).
		oneOf("recommendation", r.Recommendation, RecommendProceed, RecommendCaution, RecommendAvoid).
		result()
}

// ExecutionRecommendation is the confidential curve evaluation.
type ExecutionRecommendation struct {
	RecommendedSize  int64 `json:"recommended_size"`
	EntryPriceTarget int64 `json:"entry_price_target"`
	ExecutionUrgency int64 `json:"execution_urgency"`
	OptimalTiming    int64 `json:"optimal_timing"`
	ConfidenceScore  int64 `json:"confidence_score"`
}

func (e ExecutionRecommendation) Validate() error {
	return check("execution recommendation").
		nonNegative("recommended_size", e.RecommendedSize).
		nonNegative("entry_price_target", e.EntryPriceTarget).
		between("execution_urgency", e.ExecutionUrgency, 0, MaxScore).
		nonNegative("optimal_timing", e.OptimalTiming).
		between("confidence_score", e.ConfidenceScore, 0, MaxScore).
		result()
}
