package ui

import "time"

// Kind identifies one of the three bridge computations.
type Kind int

const (
	KindPlan Kind = iota
	KindRisk
	KindCurve
)

// Kinds lists the computations in display order.
var Kinds = []Kind{KindPlan, KindRisk, KindCurve}

func (k Kind) String() string {
	switch k {
	case KindPlan:
		return "Strategy Plan"
	case KindRisk:
		return "Risk Score"
	case KindCurve:
		return "Curve Evaluation"
	default:
		return "Unknown"
	}
}

// Field is one labelled value of a result.
type Field struct {
	Label string
	Value string
}

// ResultMsg carries a finished computation back to the model.
type ResultMsg struct {
	Kind    Kind
	Fields  []Field
	Latency time.Duration
	Err     error
}

// HealthMsg reports the bridge health check.
type HealthMsg struct {
	Service string
	Err     error
}
