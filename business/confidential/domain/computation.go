package domain

import (
	"encoding/json"
	"fmt"
)

// ComputationKind names the confidential circuit to run.
type ComputationKind string

const (
	KindStrategyPlan ComputationKind = "strategy_plan"
	KindRiskScore    ComputationKind = "risk_score"
	KindCurveEval    ComputationKind = "curve_eval"
)

// ComputationStatus tracks a computation through the MXE.
type ComputationStatus string

const (
	StatusQueued    ComputationStatus = "queued"
	StatusRunning   ComputationStatus = "running"
	StatusCompleted ComputationStatus = "completed"
	StatusFailed    ComputationStatus = "failed"
)

// Terminal reports whether no further transitions happen.
func (s ComputationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Intent is a validated set of circuit inputs. Private inputs are sealed
// before leaving the bridge; public inputs travel in plaintext.
type Intent interface {
	Kind() ComputationKind
	Validate() error
	Private() any
	Public() any
}

// PlanIntent feeds the strategy plan circuit.
type PlanIntent struct {
	Preferences UserPreferences `json:"user_preferences"`
	History     UserHistory     `json:"user_history"`
	Curve       CurveState      `json:"curve_state"`
}

func (PlanIntent) Kind() ComputationKind { return KindStrategyPlan }

func (i PlanIntent) Validate() error {
	return firstError(i.Preferences.Validate(), i.History.Validate(), i.Curve.Validate())
}

func (i PlanIntent) Private() any {
	return struct {
		Preferences UserPreferences `json:"user_preferences"`
		History     UserHistory     `json:"user_history"`
	}{i.Preferences, i.History}
}

func (i PlanIntent) Public() any { return i.Curve }

// RiskIntent feeds the risk score circuit.
type RiskIntent struct {
	Portfolio   PortfolioContext   `json:"portfolio_context"`
	Performance PerformanceHistory `json:"performance_history"`
	Market      MarketConditions   `json:"market_conditions"`
}

func (RiskIntent) Kind() ComputationKind { return KindRiskScore }

func (i RiskIntent) Validate() error {
	return firstError(i.Portfolio.Validate(), i.Performance.Validate(), i.Market.Validate())
}

func (i RiskIntent) Private() any {
	return struct {
		Portfolio   PortfolioContext   `json:"portfolio_context"`
		Performance PerformanceHistory `json:"performance_history"`
	}{i.Portfolio, i.Performance}
}

func (i RiskIntent) Public() any { return i.Market }

// CurveIntent feeds the curve evaluation circuit.
type CurveIntent struct {
	Sizing      SizingPreferences `json:"sizing_preferences"`
	Constraints UserConstraints   `json:"user_constraints"`
	Metrics     CurveMetrics      `json:"curve_metrics"`
}

func (CurveIntent) Kind() ComputationKind { return KindCurveEval }

func (i CurveIntent) Validate() error {
	return firstError(i.Sizing.Validate(), i.Constraints.Validate(), i.Metrics.Validate())
}

func (i CurveIntent) Private() any {
	return struct {
		Sizing      SizingPreferences `json:"sizing_preferences"`
		Constraints UserConstraints   `json:"user_constraints"`
	}{i.Sizing, i.Constraints}
}

func (i CurveIntent) Public() any { return i.Metrics }

// Evaluate rebuilds an intent from its private and public halves, validates
// it and runs the matching circuit, returning the JSON encoded result.
func Evaluate(kind ComputationKind, private, public []byte) ([]byte, error) {
	var result any

	switch kind {
	case KindStrategyPlan:
		var in PlanIntent
		if err := decodeHalves(private, &in, public, &in.Curve); err != nil {
			return nil, err
		}
		if err := in.Validate(); err != nil {
			return nil, err
		}
		result = ComputePlan(in.Preferences, in.History, in.Curve)
	case KindRiskScore:
		var in RiskIntent
		if err := decodeHalves(private, &in, public, &in.Market); err != nil {
			return nil, err
		}
		if err := in.Validate(); err != nil {
			return nil, err
		}
		result = ComputeRiskAssessment(in.Portfolio, in.Performance, in.Market)
	case KindCurveEval:
		var in CurveIntent
		if err := decodeHalves(private, &in, public, &in.Metrics); err != nil {
			return nil, err
		}
		if err := in.Validate(); err != nil {
			return nil, err
		}
		result = ComputeCurveEvaluation(in.Sizing, in.Constraints, in.Metrics)
	default:
		return nil, fmt.Errorf("unknown computation kind %q", kind)
	}

	return json.Marshal(result)
}

func decodeHalves(private []byte, privDst any, public []byte, pubDst any) error {
	if err := json.Unmarshal(private, privDst); err != nil {
		return fmt.Errorf("decode private inputs: %w", err)
	}
	if err := json.Unmarshal(public, pubDst); err != nil {
		return fmt.Errorf("decode public inputs: %w", err)
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ConfidentialPayload carries an intent across the trust boundary.
// Sealed holds the private inputs as a sealbox (nonce || ciphertext+tag), so
// the nonce has no field of its own. Public is readable by anyone.
type ConfidentialPayload struct {
	Kind      ComputationKind `json:"kind"`
	Public    json.RawMessage `json:"public"`
	Sealed    []byte          `json:"sealed"`
	ClientKey []byte          `json:"client_key"`
}

// ComputationRequest is what the bridge submits to the MXE.
type ComputationRequest struct {
	ID            string              `json:"id"`
	ProgramID     string              `json:"program_id"`
	ClusterOffset uint64              `json:"cluster_offset"`
	Payload       ConfidentialPayload `json:"payload"`
	SubmittedAt   int64               `json:"submitted_at"` // unix millis
}

// Hash is the SHA3-256 digest of the canonical request encoding.
func (r ComputationRequest) Hash() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return Digest(b), nil
}

// ComputationOutcome is what the MXE hands back once a computation is terminal.
type ComputationOutcome struct {
	Receipt      Receipt `json:"receipt"`
	SealedResult []byte  `json:"sealed_result,omitempty"`
}

// ComputationState is the polled view of a computation.
type ComputationState struct {
	ID      string              `json:"id"`
	Status  ComputationStatus   `json:"status"`
	Outcome *ComputationOutcome `json:"outcome,omitempty"`
}

// ClusterInfo is the public key material a cluster publishes.
type ClusterInfo struct {
	ClusterOffset uint64 `json:"cluster_offset"`
	EncryptionKey []byte `json:"encryption_key"` // x25519
	SigningKey    []byte `json:"signing_key"`    // ed25519
}

// PayloadAAD binds a sealed box to its computation.
func PayloadAAD(computationID string, kind ComputationKind) []byte {
	return []byte(computationID + "|" + string(kind))
}
