package httpapi

import (
	"net/http"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
)

// PlanRequest is the body of POST /arcium/plan.
type PlanRequest struct {
	UserPreferences domain.UserPreferences `json:"user_preferences"`
	UserHistory     domain.UserHistory     `json:"user_history"`
	CurveState      domain.CurveState      `json:"curve_state"`
}

// RiskScoreRequest is the body of POST /arcium/risk-score.
type RiskScoreRequest struct {
	PortfolioContext   domain.PortfolioContext   `json:"portfolio_context"`
	PerformanceHistory domain.PerformanceHistory `json:"performance_history"`
	MarketConditions   domain.MarketConditions   `json:"market_conditions"`
}

// CurveEvalRequest is the body of POST /arcium/curve-eval.
type CurveEvalRequest struct {
	SizingPreferences domain.SizingPreferences `json:"sizing_preferences"`
	UserConstraints   domain.UserConstraints   `json:"user_constraints"`
	CurveMetrics      domain.CurveMetrics      `json:"curve_metrics"`
}

// HealthResponse is the body of the health routes.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: a.config.ServiceName})
}

func (a *API) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := decodeStrict(w, r, a.config.MaxBodyBytes, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	plan, err := a.bridge.GetConfidentialPlan(r.Context(), req.UserPreferences, req.UserHistory, req.CurveState)
	if err != nil {
		a.failed(r, "plan", err)
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (a *API) handleRiskScore(w http.ResponseWriter, r *http.Request) {
	var req RiskScoreRequest
	if err := decodeStrict(w, r, a.config.MaxBodyBytes, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	assessment, err := a.bridge.GetRiskScore(r.Context(), req.PortfolioContext, req.PerformanceHistory, req.MarketConditions)
	if err != nil {
		a.failed(r, "risk-score", err)
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (a *API) handleCurveEval(w http.ResponseWriter, r *http.Request) {
	var req CurveEvalRequest
	if err := decodeStrict(w, r, a.config.MaxBodyBytes, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	rec, err := a.bridge.GetCurveEvaluation(r.Context(), req.SizingPreferences, req.UserConstraints, req.CurveMetrics)
	if err != nil {
		a.failed(r, "curve-eval", err)
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) failed(r *http.Request, endpoint string, err error) {
	a.logger.Error(r.Context(), "error in "+endpoint+" endpoint", "code", apperror.GetCode(err))
}
