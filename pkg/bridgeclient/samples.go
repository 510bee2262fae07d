package bridgeclient

import (
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/httpapi"
)

// SamplePlanRequest is a 1 SOL order from a trader with a good record.
func SamplePlanRequest() httpapi.PlanRequest {
	return httpapi.PlanRequest{
		UserPreferences: domain.UserPreferences{
			DesiredSize:       1_000_000_000,
			SlippageTolerance: 100,
			RiskAppetite:      150,
			PreferredHoldTime: 3600,
		},
		UserHistory: domain.UserHistory{
			RecentPnL:   5_000_000,
			WinRate:     6500,
			AvgHoldTime: 1800,
			TotalTrades: 50,
		},
		CurveState: domain.CurveState{
			CurrentPrice:   1_000_000,
			LiquidityDepth: 5_000_000_000,
			Volatility:     300,
			RecentVolume:   10_000_000_000,
		},
	}
}

// SampleRiskScoreRequest is a 10 SOL portfolio with 30% exposure.
func SampleRiskScoreRequest() httpapi.RiskScoreRequest {
	return httpapi.RiskScoreRequest{
		PortfolioContext: domain.PortfolioContext{
			TotalCapital:         10_000_000_000,
			CurrentExposure:      3_000_000_000,
			DiversificationScore: 180,
			LeverageRatio:        10000,
		},
		PerformanceHistory: domain.PerformanceHistory{
			TotalPnL:         2_000_000,
			SharpeRatio:      120,
			MaxDrawdown:      2000,
			ConsistencyScore: 200,
		},
		MarketConditions: domain.MarketConditions{
			CurveVolatility: 400,
			LiquidityRisk:   100,
			MarketSentiment: 50,
		},
	}
}

// SampleCurveEvalRequest sizes a 0.5 SOL entry on a shallow curve.
func SampleCurveEvalRequest() httpapi.CurveEvalRequest {
	return httpapi.CurveEvalRequest{
		SizingPreferences: domain.SizingPreferences{
			TargetSize:           500_000_000,
			MinSize:              100_000_000,
			MaxSize:              1_000_000_000,
			CapitalAllocationPct: 10,
		},
		UserConstraints: domain.UserConstraints{
			MaxSlippageBps:    200,
			TimeConstraintSec: 300,
			PriorityLevel:     150,
		},
		CurveMetrics: domain.CurveMetrics{
			CurrentPrice:   1_000_000,
			PriceChange24h: 500,
			LiquidityDepth: 2_000_000_000,
			BuyPressure:    150,
			SellPressure:   100,
		},
	}
}
