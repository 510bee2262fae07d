package main

import (
	"fmt"
	"time"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/asset"
	"github.com/evalysfun/evalys-arcium-bridge-service/pkg/ui"
)

// fields summarizes a bridge response. Sizes are shown in SOL.
func fields(res any) []ui.Field {
	switch r := res.(type) {
	case *domain.StrategyPlan:
		return []ui.Field{
			{Label: "plan id", Value: r.PlanID},
			{Label: "mode", Value: r.RecommendedMode},
			{Label: "slices", Value: fmt.Sprintf("%d x %s", r.NumSlices, asset.FromInt64(r.SliceSizeBase).StringFixed(4))},
			{Label: "timing window", Value: (time.Duration(r.TimingWindowSec) * time.Second).String()},
			{Label: "risk level", Value: fmt.Sprintf("%d/255", r.RiskLevel)},
			{Label: "max notional", Value: asset.FromInt64(r.MaxNotional).StringFixed(4)},
		}
	case *domain.RiskAssessment:
		return []ui.Field{
			{Label: "overall risk", Value: fmt.Sprintf("%d/255", r.OverallRiskScore)},
			{Label: "portfolio risk", Value: fmt.Sprintf("%d/255", r.PortfolioRisk)},
			{Label: "trade risk", Value: fmt.Sprintf("%d/255", r.TradeRisk)},
			{Label: "recommendation", Value: r.Recommendation},
		}
	case *domain.ExecutionRecommendation:
		return []ui.Field{
			{Label: "size", Value: asset.FromInt64(r.RecommendedSize).StringFixed(4)},
			{Label: "entry target", Value: fmt.Sprintf("%d", r.EntryPriceTarget)},
			{Label: "urgency", Value: fmt.Sprintf("%d/255", r.ExecutionUrgency)},
			{Label: "timing", Value: (time.Duration(r.OptimalTiming) * time.Second).String()},
			{Label: "confidence", Value: fmt.Sprintf("%d/255", r.ConfidenceScore)},
		}
	default:
		return nil
	}
}
