package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/ledger"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/mxe"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
)

const (
	programID     = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"
	clusterOffset = 1078779259
)

var (
	prefs  = domain.UserPreferences{DesiredSize: 987_654_321, SlippageTolerance: 50, RiskAppetite: 120, PreferredHoldTime: 3600}
	hist   = domain.UserHistory{RecentPnL: 15_000, WinRate: 6500, AvgHoldTime: 1800, TotalTrades: 42}
	curve  = domain.CurveState{CurrentPrice: 1_000_000, LiquidityDepth: 50_000_000, Volatility: 300, RecentVolume: 2_000_000}
	port   = domain.PortfolioContext{TotalCapital: 10_000_000, CurrentExposure: 3_000_000, DiversificationScore: 140, LeverageRatio: 1}
	perf   = domain.PerformanceHistory{TotalPnL: -5000, SharpeRatio: 80, MaxDrawdown: 2500, ConsistencyScore: 100}
	market = domain.MarketConditions{CurveVolatility: 400, LiquidityRisk: 90, MarketSentiment: -10}
	sizing = domain.SizingPreferences{TargetSize: 400_000, MinSize: 100_000, MaxSize: 1_000_000, CapitalAllocationPct: 20}
	limits = domain.UserConstraints{MaxSlippageBps: 100, TimeConstraintSec: 120, PriorityLevel: 180}
	cmetr  = domain.CurveMetrics{CurrentPrice: 2_000_000, PriceChange24h: 1500, LiquidityDepth: 5_000_000, BuyPressure: 900, SellPressure: 300}
)

// scriptedMXE wraps a local cluster so tests can count calls and tamper with
// what comes back.
type scriptedMXE struct {
	*mxe.LocalCluster

	keyCalls    atomic.Int32
	submitCalls atomic.Int32

	submitErr error
	hang      bool
	tamper    func(*domain.ComputationOutcome)
	keyGate   chan struct{} // if set, ClusterKeys waits for it to close
}

func (s *scriptedMXE) ClusterKeys(ctx context.Context) (*domain.ClusterInfo, error) {
	s.keyCalls.Add(1)
	if s.keyGate != nil {
		select {
		case <-s.keyGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.LocalCluster.ClusterKeys(ctx)
}

func (s *scriptedMXE) Submit(ctx context.Context, req domain.ComputationRequest) error {
	s.submitCalls.Add(1)
	if s.submitErr != nil {
		return s.submitErr
	}
	return s.LocalCluster.Submit(ctx, req)
}

func (s *scriptedMXE) Await(ctx context.Context, id string) (*domain.ComputationOutcome, error) {
	if s.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	out, err := s.LocalCluster.Await(ctx, id)
	if err != nil || s.tamper == nil {
		return out, err
	}
	tampered := *out
	tampered.Receipt.Signature = append([]byte(nil), out.Receipt.Signature...)
	tampered.SealedResult = append([]byte(nil), out.SealedResult...)
	s.tamper(&tampered)
	return &tampered, nil
}

type failingLedger struct{}

func (failingLedger) Seen(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingLedger) Record(context.Context, domain.Receipt) error {
	return errors.New("connection refused")
}

type harness struct {
	svc    *app.BridgeService
	mxe    *scriptedMXE
	ledger *ledger.MemoryLedger
	logs   *bytes.Buffer
}

type harnessOpts struct {
	clusterProgram string
	cfg            func(*app.BridgeConfig)
	ledger         app.ReceiptLedger
	opts           []app.BridgeOption
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()

	var logs bytes.Buffer
	log := logger.New(&logs, logger.LevelDebug, "bridge-test", nil)

	program := programID
	if o.clusterProgram != "" {
		program = o.clusterProgram
	}
	cluster, err := mxe.NewLocalCluster(mxe.DefaultLocalConfig(program, clusterOffset), logger.New(io.Discard, logger.LevelError, "mxe", nil))
	require.NoError(t, err)
	cluster.Start(context.Background())
	t.Cleanup(cluster.Stop)

	mem := ledger.NewMemoryLedger(time.Minute)
	t.Cleanup(mem.Close)

	var l app.ReceiptLedger = mem
	if o.ledger != nil {
		l = o.ledger
	}

	cfg := app.BridgeConfig{
		ProgramID:          programID,
		ClusterOffset:      clusterOffset,
		ComputationTimeout: 5 * time.Second,
		ReceiptMaxAge:      time.Minute,
		ReceiptMaxSkew:     10 * time.Second,
	}
	if o.cfg != nil {
		o.cfg(&cfg)
	}

	scripted := &scriptedMXE{LocalCluster: cluster}
	svc, err := app.NewBridgeService(scripted, l, cfg, log, o.opts...)
	require.NoError(t, err)

	return &harness{svc: svc, mxe: scripted, ledger: mem, logs: &logs}
}

func requireAppError(t *testing.T, err error, code apperror.Code, status int) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.StatusCode)
}

func TestBridgeService_Computes(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	ctx := context.Background()

	plan, err := h.svc.GetConfidentialPlan(ctx, prefs, hist, curve)
	require.NoError(t, err)
	want := domain.ComputePlan(prefs, hist, curve)
	_, err = uuid.Parse(plan.PlanID)
	require.NoError(t, err, "plan id should be the computation id")
	want.PlanID = plan.PlanID
	assert.Equal(t, want, *plan)

	risk, err := h.svc.GetRiskScore(ctx, port, perf, market)
	require.NoError(t, err)
	assert.Equal(t, domain.ComputeRiskAssessment(port, perf, market), *risk)

	rec, err := h.svc.GetCurveEvaluation(ctx, sizing, limits, cmetr)
	require.NoError(t, err)
	assert.Equal(t, domain.ComputeCurveEvaluation(sizing, limits, cmetr), *rec)

	assert.Equal(t, int32(1), h.mxe.keyCalls.Load(), "cluster keys are pinned after the first fetch")
	assert.Equal(t, 3, h.ledger.Len())
}

func TestBridgeService_LogsNoPrivateInputs(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	_, err := h.svc.GetConfidentialPlan(context.Background(), prefs, hist, curve)
	require.NoError(t, err)

	logs := h.logs.String()
	assert.Contains(t, logs, "received strategy plan")
	assert.NotContains(t, logs, strconv.FormatInt(prefs.DesiredSize, 10))
}

func TestBridgeService_InvalidIntent(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	bad := prefs
	bad.RiskAppetite = 300
	_, err := h.svc.GetConfidentialPlan(context.Background(), bad, hist, curve)
	requireAppError(t, err, apperror.CodeInvalidIntent, http.StatusUnprocessableEntity)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "risk_appetite: must be within 0..255", appErr.Context)
	assert.NotContains(t, err.Error(), "300")
	assert.Zero(t, h.mxe.submitCalls.Load())
}

func TestBridgeService_RejectsUntrustedOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(*domain.ComputationOutcome)
	}{
		{
			name:   "forged signature",
			tamper: func(o *domain.ComputationOutcome) { o.Receipt.Signature[0] ^= 0xff },
		},
		{
			name:   "swapped result",
			tamper: func(o *domain.ComputationOutcome) { o.SealedResult[len(o.SealedResult)-1] ^= 0x01 },
		},
		{
			name:   "receipt for another computation",
			tamper: func(o *domain.ComputationOutcome) { o.Receipt.ComputationID = uuid.NewString() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, harnessOpts{})
			h.mxe.tamper = tt.tamper

			_, err := h.svc.GetRiskScore(context.Background(), port, perf, market)
			requireAppError(t, err, apperror.CodeReceiptVerificationFailed, http.StatusBadGateway)
			assert.Zero(t, h.ledger.Len())
		})
	}
}

func TestBridgeService_RejectsReplayedReceipt(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.mxe.tamper = func(o *domain.ComputationOutcome) {
		require.NoError(t, h.ledger.Record(context.Background(), o.Receipt))
	}

	_, err := h.svc.GetCurveEvaluation(context.Background(), sizing, limits, cmetr)
	requireAppError(t, err, apperror.CodeReceiptVerificationFailed, http.StatusBadGateway)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "reason: replayed", appErr.Context)
}

func TestBridgeService_RejectsStaleReceipt(t *testing.T) {
	h := newHarness(t, harnessOpts{opts: []app.BridgeOption{
		app.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }),
	}})

	// The cluster stamps receipts an hour after the bridge's clock.
	_, err := h.svc.GetRiskScore(context.Background(), port, perf, market)
	requireAppError(t, err, apperror.CodeReceiptVerificationFailed, http.StatusBadGateway)
}

func TestBridgeService_ComputationFailed(t *testing.T) {
	h := newHarness(t, harnessOpts{clusterProgram: "11111111111111111111111111111111"})

	_, err := h.svc.GetRiskScore(context.Background(), port, perf, market)
	requireAppError(t, err, apperror.CodeComputationFailed, http.StatusBadGateway)
}

func TestBridgeService_Timeout(t *testing.T) {
	h := newHarness(t, harnessOpts{cfg: func(c *app.BridgeConfig) { c.ComputationTimeout = 20 * time.Millisecond }})
	h.mxe.hang = true

	_, err := h.svc.GetRiskScore(context.Background(), port, perf, market)
	requireAppError(t, err, apperror.CodeComputationTimeout, http.StatusGatewayTimeout)
}

func TestBridgeService_MXEUnavailable(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.mxe.submitErr = apperror.New(apperror.CodeCircuitOpen, apperror.WithStatusCode(http.StatusServiceUnavailable))

	_, err := h.svc.GetRiskScore(context.Background(), port, perf, market)
	requireAppError(t, err, apperror.CodeCircuitOpen, http.StatusServiceUnavailable)

	h.mxe.submitErr = errors.New("dial tcp: connection refused")
	_, err = h.svc.GetRiskScore(context.Background(), port, perf, market)
	requireAppError(t, err, apperror.CodeMXESubmitFailed, http.StatusServiceUnavailable)
}

func TestBridgeService_LedgerFailsClosed(t *testing.T) {
	h := newHarness(t, harnessOpts{ledger: failingLedger{}})

	_, err := h.svc.GetRiskScore(context.Background(), port, perf, market)
	requireAppError(t, err, apperror.CodeLedgerUnavailable, http.StatusServiceUnavailable)
}

func TestBridgeService_ClusterOffsetMismatch(t *testing.T) {
	h := newHarness(t, harnessOpts{cfg: func(c *app.BridgeConfig) { c.ClusterOffset = 1 }})

	_, err := h.svc.GetRiskScore(context.Background(), port, perf, market)
	requireAppError(t, err, apperror.CodeInvalidClusterKey, http.StatusBadGateway)
	assert.Zero(t, h.mxe.submitCalls.Load())
}

func TestBridgeService_ConcurrentCallersShareKeyFetch(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.mxe.keyGate = make(chan struct{})

	// The first caller starts the fetch and then gives up.
	quitter, quit := context.WithCancel(context.Background())
	quitErr := make(chan error, 1)
	go func() {
		_, err := h.svc.GetRiskScore(quitter, port, perf, market)
		quitErr <- err
	}()
	require.Eventually(t, func() bool { return h.mxe.keyCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.GetRiskScore(context.Background(), port, perf, market)
			errs <- err
		}()
	}

	quit()
	select {
	case err := <-quitErr:
		requireAppError(t, err, apperror.CodeServiceUnavailable, http.StatusServiceUnavailable)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller stayed blocked on the shared key fetch")
	}

	close(h.mxe.keyGate)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), h.mxe.keyCalls.Load(), "one fetch serves every caller")
}
