package bridgeclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/ledger"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/mxe"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/httpapi"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
	"github.com/evalysfun/evalys-arcium-bridge-service/pkg/bridgeclient"
)

const (
	programID     = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"
	clusterOffset = 1078779259
)

func newBridge(t *testing.T) *bridgeclient.Client {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "bridgeclient-test", nil)

	cluster, err := mxe.NewLocalCluster(mxe.DefaultLocalConfig(programID, clusterOffset), log)
	require.NoError(t, err)
	cluster.Start(context.Background())
	t.Cleanup(cluster.Stop)

	receipts := ledger.NewMemoryLedger(time.Minute)
	t.Cleanup(receipts.Close)

	bridge, err := app.NewBridgeService(cluster, receipts, app.BridgeConfig{
		ProgramID:          programID,
		ClusterOffset:      clusterOffset,
		ComputationTimeout: 5 * time.Second,
		ReceiptMaxAge:      time.Minute,
		ReceiptMaxSkew:     5 * time.Second,
	}, log)
	require.NoError(t, err)

	api := httpapi.New(httpapi.Config{ServiceName: "evalys-arcium-bridge"}, bridge, log)
	t.Cleanup(api.Close)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := bridgeclient.New(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return client
}

func TestClient_Samples(t *testing.T) {
	c := newBridge(t)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	planReq := bridgeclient.SamplePlanRequest()
	plan, err := c.Plan(ctx, planReq)
	require.NoError(t, err)
	want := domain.ComputePlan(planReq.UserPreferences, planReq.UserHistory, planReq.CurveState)
	if diff := cmp.Diff(want, *plan, cmpopts.IgnoreFields(domain.StrategyPlan{}, "PlanID")); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, plan.PlanID)

	riskReq := bridgeclient.SampleRiskScoreRequest()
	risk, err := c.RiskScore(ctx, riskReq)
	require.NoError(t, err)
	if diff := cmp.Diff(domain.ComputeRiskAssessment(riskReq.PortfolioContext, riskReq.PerformanceHistory, riskReq.MarketConditions), *risk); diff != "" {
		t.Errorf("risk mismatch (-want +got):\n%s", diff)
	}

	curveReq := bridgeclient.SampleCurveEvalRequest()
	rec, err := c.CurveEval(ctx, curveReq)
	require.NoError(t, err)
	if diff := cmp.Diff(domain.ComputeCurveEvaluation(curveReq.SizingPreferences, curveReq.UserConstraints, curveReq.CurveMetrics), *rec); diff != "" {
		t.Errorf("curve mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_DecodesErrors(t *testing.T) {
	c := newBridge(t)

	req := bridgeclient.SamplePlanRequest()
	req.UserPreferences.RiskAppetite = 999

	_, err := c.Plan(context.Background(), req)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidIntent, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
	assert.Equal(t, "risk_appetite: must be within 0..255", appErr.Context)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := bridgeclient.New(url, time.Second)
	require.NoError(t, err)

	_, err = c.Health(context.Background())
	assert.Equal(t, apperror.CodeExternalServiceError, apperror.GetCode(err))
}
