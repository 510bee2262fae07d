// Package mxe provides MXE cluster backends: an in-process cluster and a
// client for a remote cluster gateway.
package mxe

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/cache"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/sealbox"
)

const (
	tracerName = "github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/mxe"
	meterName  = tracerName

	signingSeedInfo = "evalys-bridge/v1/ed25519"
)

// Ensure LocalCluster implements MXEClient.
var _ app.MXEClient = (*LocalCluster)(nil)

// LocalConfig holds configuration for the in-process cluster.
type LocalConfig struct {
	ProgramID     string
	ClusterOffset uint64
	Seed          []byte        // key seed; empty = random keys
	Workers       int           // concurrent computations
	QueueSize     int           // pending computations before Submit fails
	Retention     time.Duration // how long terminal computations stay queryable
}

// DefaultLocalConfig returns sensible defaults.
func DefaultLocalConfig(programID string, clusterOffset uint64) LocalConfig {
	return LocalConfig{
		ProgramID:     programID,
		ClusterOffset: clusterOffset,
		Workers:       4,
		QueueSize:     64,
		Retention:     10 * time.Minute,
	}
}

type localMetrics struct {
	queueDepth   metric.Int64UpDownCounter
	computations metric.Int64Counter
}

// job is a computation tracked by the cluster.
type job struct {
	req domain.ComputationRequest

	mu       sync.Mutex
	state    domain.ComputationState
	watchers []chan domain.ComputationState
	done     chan struct{}
}

func (j *job) snapshot() domain.ComputationState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// transition moves the job to status and notifies watchers. Terminal
// transitions close done and the watcher channels.
func (j *job) transition(status domain.ComputationStatus, outcome *domain.ComputationOutcome) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.state.Status = status
	j.state.Outcome = outcome
	for _, w := range j.watchers {
		w <- j.state
	}
	if status.Terminal() {
		for _, w := range j.watchers {
			close(w)
		}
		j.watchers = nil
		close(j.done)
	}
}

// LocalCluster runs confidential computations in process. It holds the
// cluster's X25519 and Ed25519 keys, opens sealed payloads, runs the circuit,
// seals the result to the client and signs a receipt.
type LocalCluster struct {
	config LocalConfig
	logger logger.LoggerInterface

	encryption sealbox.KeyPair
	signing    ed25519.PrivateKey

	jobs  *cache.Cache[string, *job]
	queue chan *job

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	wg      sync.WaitGroup

	now func() time.Time

	tracer  trace.Tracer
	metrics *localMetrics
}

// NewLocalCluster creates a cluster. Keys derive from cfg.Seed when set.
func NewLocalCluster(cfg LocalConfig, log logger.LoggerInterface) (*LocalCluster, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 10 * time.Minute
	}

	enc, sign, err := clusterKeys(cfg.Seed)
	if err != nil {
		return nil, err
	}

	c := &LocalCluster{
		config:     cfg,
		logger:     log,
		encryption: enc,
		signing:    sign,
		jobs:       cache.New[string, *job](time.Minute),
		queue:      make(chan *job, cfg.QueueSize),
		stop:       make(chan struct{}),
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

func clusterKeys(seed []byte) (sealbox.KeyPair, ed25519.PrivateKey, error) {
	if len(seed) == 0 {
		enc, err := sealbox.GenerateKeyPair(nil)
		if err != nil {
			return sealbox.KeyPair{}, nil, err
		}
		_, sign, err := ed25519.GenerateKey(nil)
		if err != nil {
			return sealbox.KeyPair{}, nil, fmt.Errorf("generate signing key: %w", err)
		}
		return enc, sign, nil
	}

	enc, err := sealbox.KeyPairFromSeed(seed)
	if err != nil {
		return sealbox.KeyPair{}, nil, err
	}
	signSeed, err := sealbox.Expand(seed, signingSeedInfo, ed25519.SeedSize)
	if err != nil {
		return sealbox.KeyPair{}, nil, err
	}
	return enc, ed25519.NewKeyFromSeed(signSeed), nil
}

func (c *LocalCluster) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &localMetrics{}

	c.metrics.queueDepth, err = meter.Int64UpDownCounter(
		"mxe_local_queue_depth",
		metric.WithDescription("Computations waiting for a local worker"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return err
	}

	c.metrics.computations, err = meter.Int64Counter(
		"mxe_local_computations_total",
		metric.WithDescription("Computations executed by the local cluster"),
		metric.WithUnit("{computation}"),
	)
	return err
}

// Start launches the worker pool. It is safe to call more than once.
func (c *LocalCluster) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true

	for i := 0; i < c.config.Workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	c.logger.Info(ctx, "local MXE cluster started",
		"workers", c.config.Workers,
		"queue_size", c.config.QueueSize,
		"cluster_offset", c.config.ClusterOffset,
	)
}

// Stop stops the workers and waits for in-flight computations.
func (c *LocalCluster) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stop)
	c.mu.Unlock()

	c.wg.Wait()
	c.jobs.Close()
}

// ClusterKeys returns the cluster's public keys.
func (c *LocalCluster) ClusterKeys(context.Context) (*domain.ClusterInfo, error) {
	return &domain.ClusterInfo{
		ClusterOffset: c.config.ClusterOffset,
		EncryptionKey: append([]byte(nil), c.encryption.Public[:]...),
		SigningKey:    append([]byte(nil), c.signing.Public().(ed25519.PublicKey)...),
	}, nil
}

// Submit queues req. It fails fast when the queue is full.
func (c *LocalCluster) Submit(ctx context.Context, req domain.ComputationRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return apperror.New(apperror.CodeServiceUnavailable,
			apperror.WithContext("local cluster stopped"),
			apperror.WithStatusCode(http.StatusServiceUnavailable))
	}
	if req.ID == "" {
		return apperror.Validation(apperror.CodeRequiredField, "computation id")
	}

	j := &job{
		req:   req,
		state: domain.ComputationState{ID: req.ID, Status: domain.StatusQueued},
		done:  make(chan struct{}),
	}
	if !c.jobs.SetIfAbsent(ctx, req.ID, j, c.config.Retention) {
		return apperror.Conflict(apperror.CodeInvalidState, "computation id already submitted")
	}

	select {
	case c.queue <- j:
		c.metrics.queueDepth.Add(ctx, 1)
		return nil
	default:
		c.jobs.Delete(ctx, req.ID)
		return apperror.New(apperror.CodeMXEQueueFull,
			apperror.WithStatusCode(http.StatusServiceUnavailable))
	}
}

// Await blocks until the computation is terminal.
func (c *LocalCluster) Await(ctx context.Context, computationID string) (*domain.ComputationOutcome, error) {
	j, ok := c.jobs.Get(ctx, computationID)
	if !ok {
		return nil, apperror.NotFound(apperror.CodeComputationNotFound, "computation "+computationID)
	}

	select {
	case <-j.done:
		return j.snapshot().Outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status returns the current state of a computation.
func (c *LocalCluster) Status(ctx context.Context, computationID string) (domain.ComputationState, error) {
	j, ok := c.jobs.Get(ctx, computationID)
	if !ok {
		return domain.ComputationState{}, apperror.NotFound(apperror.CodeComputationNotFound, "computation "+computationID)
	}
	return j.snapshot(), nil
}

// Watch streams state transitions of a computation, starting with its
// current state. The channel closes after the terminal state.
func (c *LocalCluster) Watch(ctx context.Context, computationID string) (<-chan domain.ComputationState, error) {
	j, ok := c.jobs.Get(ctx, computationID)
	if !ok {
		return nil, apperror.NotFound(apperror.CodeComputationNotFound, "computation "+computationID)
	}

	// Buffered for every possible transition so transition never blocks.
	ch := make(chan domain.ComputationState, 4)

	j.mu.Lock()
	defer j.mu.Unlock()
	ch <- j.state
	if j.state.Status.Terminal() {
		close(ch)
	} else {
		j.watchers = append(j.watchers, ch)
	}
	return ch, nil
}

func (c *LocalCluster) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			c.drain()
			return
		case j := <-c.queue:
			c.metrics.queueDepth.Add(context.Background(), -1)
			c.execute(j)
		}
	}
}

// drain fails whatever is still queued so awaiting callers return.
func (c *LocalCluster) drain() {
	for {
		select {
		case j := <-c.queue:
			c.metrics.queueDepth.Add(context.Background(), -1)
			c.finish(context.Background(), j, nil, errors.New("cluster stopped"))
		default:
			return
		}
	}
}

func (c *LocalCluster) execute(j *job) {
	ctx, span := c.tracer.Start(context.Background(), "mxe.local.execute",
		trace.WithAttributes(
			attribute.String("computation.id", j.req.ID),
			attribute.String("computation.kind", string(j.req.Payload.Kind)),
		),
	)
	defer span.End()

	j.transition(domain.StatusRunning, nil)

	sealed, err := c.compute(j.req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "computation failed")
	}
	c.finish(ctx, j, sealed, err)
}

// compute opens the request, runs the circuit and seals the result.
func (c *LocalCluster) compute(req domain.ComputationRequest) ([]byte, error) {
	if req.ProgramID != c.config.ProgramID {
		return nil, errors.New("program id mismatch")
	}
	if req.ClusterOffset != c.config.ClusterOffset {
		return nil, errors.New("cluster offset mismatch")
	}

	clientKey, err := sealbox.ParsePublicKey(req.Payload.ClientKey)
	if err != nil {
		return nil, err
	}
	session, err := sealbox.NewSession(c.encryption, clientKey, sealbox.Cluster)
	if err != nil {
		return nil, err
	}

	aad := domain.PayloadAAD(req.ID, req.Payload.Kind)
	private, err := session.Open(req.Payload.Sealed, aad)
	if err != nil {
		return nil, err
	}

	result, err := domain.Evaluate(req.Payload.Kind, private, req.Payload.Public)
	if err != nil {
		return nil, err
	}
	return session.Seal(result, aad)
}

// finish signs a receipt for j and marks it terminal.
func (c *LocalCluster) finish(ctx context.Context, j *job, sealed []byte, cause error) {
	status := domain.StatusCompleted
	if cause != nil {
		status = domain.StatusFailed
		sealed = nil
	}

	receipt := domain.Receipt{
		Version:       domain.ReceiptVersion,
		ReceiptID:     uuid.NewString(),
		ComputationID: j.req.ID,
		Kind:          j.req.Payload.Kind,
		Status:        status,
		ClusterOffset: c.config.ClusterOffset,
		Timestamp:     c.now().UnixMilli(),
	}
	if hash, err := j.req.Hash(); err == nil {
		receipt.RequestHash = hash
	}
	if sealed != nil {
		receipt.ResultHash = domain.Digest(sealed)
	}
	if err := receipt.Sign(c.signing); err != nil {
		c.logger.Error(ctx, "failed to sign receipt", "computation_id", j.req.ID, "error", err)
	}

	c.metrics.computations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(j.req.Payload.Kind)),
		attribute.String("status", string(status)),
	))
	if cause != nil {
		// Causes may name or quote circuit inputs.
		c.logger.Warn(ctx, "local computation failed",
			"computation_id", j.req.ID,
			"kind", j.req.Payload.Kind,
			"cause", logger.Redact(cause),
		)
	}

	j.transition(status, &domain.ComputationOutcome{Receipt: receipt, SealedResult: sealed})
}
