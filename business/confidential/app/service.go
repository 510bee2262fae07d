package app

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apm"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/sealbox"
)

// BridgeConfig holds the settings the bridge needs per computation.
type BridgeConfig struct {
	ProgramID          string
	ClusterOffset      uint64
	ComputationTimeout time.Duration
	ReceiptMaxAge      time.Duration
	ReceiptMaxSkew     time.Duration
}

// BridgeOption customises a BridgeService.
type BridgeOption func(*BridgeService)

// WithClock overrides the time source used for request stamps and receipt freshness.
func WithClock(now func() time.Time) BridgeOption {
	return func(s *BridgeService) { s.now = now }
}

// WithRandom overrides the entropy source for ephemeral keys.
func WithRandom(r io.Reader) BridgeOption {
	return func(s *BridgeService) { s.rand = r }
}

// BridgeService runs confidential computations on the MXE and only releases
// results whose receipts verify.
type BridgeService struct {
	mxe    MXEClient
	ledger ReceiptLedger
	config BridgeConfig
	logger logger.LoggerInterface

	now  func() time.Time
	rand io.Reader

	keys      atomic.Pointer[pinnedKeys]
	keysFetch singleflight.Group

	tracer  apm.Tracer
	metrics *bridgeMetrics
}

type pinnedKeys struct {
	encryption sealbox.PublicKey
	signing    ed25519.PublicKey
}

// NewBridgeService creates a BridgeService.
func NewBridgeService(mxe MXEClient, ledger ReceiptLedger, cfg BridgeConfig, log logger.LoggerInterface, opts ...BridgeOption) (*BridgeService, error) {
	m, err := newBridgeMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	s := &BridgeService{
		mxe:     mxe,
		ledger:  ledger,
		config:  cfg,
		logger:  log,
		now:     time.Now,
		tracer:  apm.NewTracer(tracerName),
		metrics: m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetConfidentialPlan computes an execution plan from private preferences and history.
func (s *BridgeService) GetConfidentialPlan(ctx context.Context, prefs domain.UserPreferences, hist domain.UserHistory, curve domain.CurveState) (*domain.StrategyPlan, error) {
	s.logger.Info(ctx, "requesting confidential strategy plan")

	var plan domain.StrategyPlan
	id, err := s.execute(ctx, domain.PlanIntent{Preferences: prefs, History: hist, Curve: curve}, &plan)
	if err != nil {
		return nil, err
	}
	plan.PlanID = id

	s.logger.Info(ctx, "received strategy plan",
		"mode", plan.RecommendedMode,
		"risk", plan.RiskLevel,
	)
	return &plan, nil
}

// GetRiskScore computes a risk assessment from a private portfolio and performance history.
func (s *BridgeService) GetRiskScore(ctx context.Context, portfolio domain.PortfolioContext, perf domain.PerformanceHistory, market domain.MarketConditions) (*domain.RiskAssessment, error) {
	s.logger.Info(ctx, "requesting confidential risk score")

	var assessment domain.RiskAssessment
	if _, err := s.execute(ctx, domain.RiskIntent{Portfolio: portfolio, Performance: perf, Market: market}, &assessment); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "received risk assessment",
		"score", assessment.OverallRiskScore,
		"recommendation", assessment.Recommendation,
	)
	return &assessment, nil
}

// GetCurveEvaluation computes sizing and timing for a trade against curve metrics.
func (s *BridgeService) GetCurveEvaluation(ctx context.Context, sizing domain.SizingPreferences, constraints domain.UserConstraints, metrics domain.CurveMetrics) (*domain.ExecutionRecommendation, error) {
	s.logger.Info(ctx, "requesting confidential curve evaluation")

	var rec domain.ExecutionRecommendation
	if _, err := s.execute(ctx, domain.CurveIntent{Sizing: sizing, Constraints: constraints, Metrics: metrics}, &rec); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "received curve evaluation",
		"size", rec.RecommendedSize,
		"urgency", rec.ExecutionUrgency,
	)
	return &rec, nil
}

type result interface {
	Validate() error
}

// execute runs intent through the MXE and decodes the verified result into out.
// It returns the computation id.
func (s *BridgeService) execute(ctx context.Context, intent domain.Intent, out result) (string, error) {
	kind := intent.Kind()
	start := s.now()

	ctx, span := s.tracer.Start(ctx, "bridge."+string(kind), attribute.String("computation.kind", string(kind)))
	defer span.End()

	id, outcome, err := s.run(ctx, intent, out)

	s.metrics.computations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
	s.metrics.duration.Record(ctx, float64(s.now().Sub(start).Milliseconds()),
		metric.WithAttributes(attribute.String("kind", string(kind))))

	if err != nil {
		span.Fail(err)
		s.logger.Warn(ctx, "confidential computation failed",
			"kind", kind,
			"computation_id", id,
			"outcome", outcome,
			"code", apperror.GetCode(err),
		)
		return id, err
	}

	span.Succeed()
	s.logger.Debug(ctx, "confidential computation completed",
		"kind", kind,
		"computation_id", id,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return id, nil
}

func (s *BridgeService) run(ctx context.Context, intent domain.Intent, out result) (string, string, error) {
	kind := intent.Kind()

	if err := intent.Validate(); err != nil {
		return "", outcomeInvalid, invalidIntent(err)
	}

	keys, err := s.clusterKeys(ctx)
	if err != nil {
		return "", classify(err), err
	}

	ephemeral, err := sealbox.GenerateKeyPair(s.rand)
	if err != nil {
		return "", outcomeError, apperror.Internal(apperror.CodeEncryptionFailed, "stage: ephemeral key", err)
	}
	session, err := sealbox.NewSession(ephemeral, keys.encryption, sealbox.Client)
	if err != nil {
		return "", outcomeError, apperror.New(apperror.CodeInvalidClusterKey,
			apperror.WithCause(err))
	}

	id := uuid.NewString()
	span := s.tracer.FromContext(ctx)
	span.SetAttributes(attribute.String("computation.id", id))

	req, err := s.buildRequest(id, intent, session, ephemeral.Public)
	if err != nil {
		return id, outcomeError, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.config.ComputationTimeout)
	defer cancel()

	if err := s.mxe.Submit(cctx, req); err != nil {
		err = s.mxeError(ctx, err, apperror.CodeMXESubmitFailed, "stage: submit")
		return id, classify(err), err
	}

	outcome, err := s.mxe.Await(cctx, id)
	if err != nil {
		err = s.mxeError(ctx, err, apperror.CodeMXEConnectionFailed, "stage: await")
		return id, classify(err), err
	}

	if err := s.verify(ctx, keys, outcome, req); err != nil {
		return id, classify(err), err
	}

	plaintext, err := session.Open(outcome.SealedResult, domain.PayloadAAD(id, kind))
	if err != nil {
		return id, outcomeRejected, apperror.New(apperror.CodeDecryptionFailed,
			apperror.WithCause(err),
			apperror.WithContext("stage: open result"),
			apperror.WithStatusCode(http.StatusBadGateway))
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return id, outcomeRejected, invalidResult(err)
	}
	if err := out.Validate(); err != nil {
		return id, outcomeRejected, invalidResult(err)
	}

	if err := s.ledger.Record(ctx, outcome.Receipt); err != nil {
		if errors.Is(err, domain.ErrReceiptReplayed) {
			s.rejectReceipt(ctx, "replayed")
			return id, outcomeRejected, receiptRejected(err, "replayed")
		}
		return id, outcomeUnavailable, ledgerUnavailable(err)
	}

	return id, outcomeOK, nil
}

func (s *BridgeService) buildRequest(id string, intent domain.Intent, session *sealbox.Session, clientKey sealbox.PublicKey) (domain.ComputationRequest, error) {
	private, err := json.Marshal(intent.Private())
	if err != nil {
		return domain.ComputationRequest{}, apperror.Internal(apperror.CodeEncryptionFailed, "stage: encode private inputs", err)
	}
	public, err := json.Marshal(intent.Public())
	if err != nil {
		return domain.ComputationRequest{}, apperror.Internal(apperror.CodeEncryptionFailed, "stage: encode public inputs", err)
	}

	sealed, err := session.Seal(private, domain.PayloadAAD(id, intent.Kind()))
	if err != nil {
		return domain.ComputationRequest{}, apperror.Internal(apperror.CodeEncryptionFailed, "stage: seal", err)
	}

	return domain.ComputationRequest{
		ID:            id,
		ProgramID:     s.config.ProgramID,
		ClusterOffset: s.config.ClusterOffset,
		Payload: domain.ConfidentialPayload{
			Kind:      intent.Kind(),
			Public:    public,
			Sealed:    sealed,
			ClientKey: clientKey[:],
		},
		SubmittedAt: s.now().UnixMilli(),
	}, nil
}

// verify accepts the outcome only if its receipt is signed by the pinned
// cluster key, matches req and has not been seen before.
func (s *BridgeService) verify(ctx context.Context, keys *pinnedKeys, outcome *domain.ComputationOutcome, req domain.ComputationRequest) error {
	policy := domain.ReceiptPolicy{
		ClusterKey: keys.signing,
		MaxAge:     s.config.ReceiptMaxAge,
		MaxSkew:    s.config.ReceiptMaxSkew,
	}

	if err := policy.Verify(outcome.Receipt, req, outcome.SealedResult, s.now()); err != nil {
		if errors.Is(err, domain.ErrReceiptStatus) {
			return apperror.New(apperror.CodeComputationFailed,
				apperror.WithContext("stage: execute"))
		}
		reason := rejectionReason(err)
		s.rejectReceipt(ctx, reason)
		return receiptRejected(err, reason)
	}

	seen, err := s.ledger.Seen(ctx, outcome.Receipt.ReceiptID)
	if err != nil {
		return ledgerUnavailable(err)
	}
	if seen {
		s.rejectReceipt(ctx, "replayed")
		return receiptRejected(domain.ErrReceiptReplayed, "replayed")
	}
	return nil
}

func (s *BridgeService) rejectReceipt(ctx context.Context, reason string) {
	s.metrics.receiptRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// clusterKeys fetches the cluster keys once and pins them for the lifetime
// of the service. Concurrent callers share one fetch; a caller whose ctx ends
// stops waiting without cancelling the fetch for the others.
func (s *BridgeService) clusterKeys(ctx context.Context) (*pinnedKeys, error) {
	if k := s.keys.Load(); k != nil {
		return k, nil
	}

	ch := s.keysFetch.DoChan("cluster_keys", func() (any, error) {
		if k := s.keys.Load(); k != nil {
			return k, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.keyFetchTimeout())
		defer cancel()
		return s.fetchClusterKeys(fctx)
	})

	select {
	case <-ctx.Done():
		return nil, s.mxeError(ctx, ctx.Err(), apperror.CodeMXEConnectionFailed, "stage: cluster keys")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pinnedKeys), nil
	}
}

func (s *BridgeService) fetchClusterKeys(ctx context.Context) (*pinnedKeys, error) {
	info, err := s.mxe.ClusterKeys(ctx)
	if err != nil {
		return nil, s.mxeError(ctx, err, apperror.CodeMXEConnectionFailed, "stage: cluster keys")
	}

	enc, err := sealbox.ParsePublicKey(info.EncryptionKey)
	if err != nil || len(info.SigningKey) != ed25519.PublicKeySize {
		return nil, apperror.New(apperror.CodeInvalidClusterKey,
			apperror.WithCause(err))
	}
	if info.ClusterOffset != s.config.ClusterOffset {
		return nil, apperror.New(apperror.CodeInvalidClusterKey,
			apperror.WithContext("cluster offset mismatch"))
	}

	k := &pinnedKeys{
		encryption: enc,
		signing:    ed25519.PublicKey(append([]byte(nil), info.SigningKey...)),
	}
	s.keys.Store(k)
	s.logger.Info(ctx, "pinned cluster keys",
		"cluster_offset", info.ClusterOffset,
		"encryption_key", enc.String(),
	)
	return k, nil
}

func (s *BridgeService) keyFetchTimeout() time.Duration {
	if s.config.ComputationTimeout > 0 {
		return s.config.ComputationTimeout
	}
	return 30 * time.Second
}

// mxeError normalises errors from the MXE port. Deadline expiry becomes a
// timeout, AppErrors pass through, anything else is wrapped with code.
func (s *BridgeService) mxeError(ctx context.Context, err error, code apperror.Code, stage string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.New(apperror.CodeComputationTimeout,
			apperror.WithCause(err),
			apperror.WithContext(stage))
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return apperror.New(apperror.CodeServiceUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(stage+": cancelled"))
	case apperror.IsAppError(err):
		return err
	default:
		return apperror.External(code, stage, err)
	}
}

func invalidIntent(err error) error {
	detail := "validation failed"
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		detail = verr.Detail()
	}
	return apperror.New(apperror.CodeInvalidIntent,
		apperror.WithMessage(err.Error()),
		apperror.WithCause(err),
		apperror.WithContext(detail))
}

func invalidResult(err error) error {
	return apperror.New(apperror.CodeInvalidResult,
		apperror.WithCause(err),
		apperror.WithContext("stage: decode result"))
}

func receiptRejected(err error, reason string) error {
	return apperror.New(apperror.CodeReceiptVerificationFailed,
		apperror.WithCause(err),
		apperror.WithContext("reason: "+reason))
}

func ledgerUnavailable(err error) error {
	return apperror.New(apperror.CodeLedgerUnavailable,
		apperror.WithCause(err),
		apperror.WithStatusCode(http.StatusServiceUnavailable))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrReceiptSignature), errors.Is(err, domain.ErrReceiptSigner):
		return "signature"
	case errors.Is(err, domain.ErrReceiptBinding):
		return "binding"
	case errors.Is(err, domain.ErrReceiptResult):
		return "result_hash"
	case errors.Is(err, domain.ErrReceiptStale):
		return "stale"
	case errors.Is(err, domain.ErrReceiptVersion):
		return "version"
	default:
		return "unknown"
	}
}

// classify maps an error to its metric outcome label.
func classify(err error) string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return outcomeError
	}
	switch appErr.Code {
	case apperror.CodeComputationTimeout:
		return outcomeTimeout
	case apperror.CodeComputationFailed:
		return outcomeFailed
	case apperror.CodeReceiptVerificationFailed, apperror.CodeInvalidClusterKey:
		return outcomeRejected
	case apperror.CodeInvalidIntent:
		return outcomeInvalid
	}
	if appErr.StatusCode == http.StatusServiceUnavailable {
		return outcomeUnavailable
	}
	return outcomeError
}
