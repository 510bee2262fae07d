// Package app contains application services and port definitions for the confidential bridge context.
package app

import (
	"context"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/domain"
)

// MXEClient submits computations to a multi-party execution cluster.
type MXEClient interface {
	// ClusterKeys returns the cluster's published key material.
	ClusterKeys(ctx context.Context) (*domain.ClusterInfo, error)

	// Submit enqueues a computation. It returns once the cluster has accepted it.
	Submit(ctx context.Context, req domain.ComputationRequest) error

	// Await blocks until the computation is terminal or ctx is done.
	Await(ctx context.Context, computationID string) (*domain.ComputationOutcome, error)
}

// ReceiptLedger remembers receipts that have already been accepted.
type ReceiptLedger interface {
	// Seen reports whether a receipt id was recorded before.
	Seen(ctx context.Context, receiptID string) (bool, error)

	// Record stores the receipt. It returns domain.ErrReceiptReplayed when
	// the receipt id is already present.
	Record(ctx context.Context, r domain.Receipt) error
}
