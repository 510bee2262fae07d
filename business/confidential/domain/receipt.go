package domain

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/crypto/sha3"
)

// ReceiptVersion is the receipt schema emitted by the cluster.
const ReceiptVersion = 1

// Receipt is the cluster's signed attestation of a computation.
type Receipt struct {
	Version       int               `json:"version"`
	ReceiptID     string            `json:"receipt_id"`
	ComputationID string            `json:"computation_id"`
	Kind          ComputationKind   `json:"kind"`
	RequestHash   []byte            `json:"request_hash"`
	ResultHash    []byte            `json:"result_hash,omitempty"`
	Status        ComputationStatus `json:"status"`
	ClusterOffset uint64            `json:"cluster_offset"`
	ClusterKey    []byte            `json:"cluster_key"` // ed25519 public key
	Timestamp     int64             `json:"timestamp"`   // unix millis
	Signature     []byte            `json:"signature"`
}

// SigningBytes is the canonical encoding covered by the signature.
func (r Receipt) SigningBytes() ([]byte, error) {
	unsigned := r
	unsigned.Signature = nil
	return json.Marshal(unsigned)
}

// Sign fills ClusterKey and Signature using key.
func (r *Receipt) Sign(key ed25519.PrivateKey) error {
	r.ClusterKey = key.Public().(ed25519.PublicKey)
	msg, err := r.SigningBytes()
	if err != nil {
		return err
	}
	r.Signature = ed25519.Sign(key, msg)
	return nil
}

// Receipt verification failures.
var (
	ErrReceiptSignature = errors.New("receipt signature invalid")
	ErrReceiptSigner    = errors.New("receipt signed by unexpected key")
	ErrReceiptBinding   = errors.New("receipt does not match request")
	ErrReceiptResult    = errors.New("receipt result hash mismatch")
	ErrReceiptStatus    = errors.New("receipt status is not completed")
	ErrReceiptStale     = errors.New("receipt timestamp outside accepted window")
	ErrReceiptVersion   = errors.New("unsupported receipt version")
	ErrReceiptReplayed  = errors.New("receipt already recorded")
)

// ReceiptPolicy holds what a receipt must satisfy before its result is trusted.
type ReceiptPolicy struct {
	ClusterKey ed25519.PublicKey
	MaxAge     time.Duration
	MaxSkew    time.Duration
}

// Verify checks r against the submitted request and the sealed result, in
// order: version, signer, signature, request binding, status, freshness,
// result hash. It returns the first failure.
func (p ReceiptPolicy) Verify(r Receipt, req ComputationRequest, sealedResult []byte, now time.Time) error {
	if r.Version != ReceiptVersion {
		return ErrReceiptVersion
	}
	if len(p.ClusterKey) != ed25519.PublicKeySize || !bytes.Equal(r.ClusterKey, p.ClusterKey) {
		return ErrReceiptSigner
	}

	msg, err := r.SigningBytes()
	if err != nil {
		return ErrReceiptSignature
	}
	if !ed25519.Verify(p.ClusterKey, msg, r.Signature) {
		return ErrReceiptSignature
	}

	reqHash, err := req.Hash()
	if err != nil {
		return ErrReceiptBinding
	}
	if r.ComputationID != req.ID || r.Kind != req.Payload.Kind ||
		r.ClusterOffset != req.ClusterOffset || !bytes.Equal(r.RequestHash, reqHash) {
		return ErrReceiptBinding
	}

	if r.Status != StatusCompleted {
		return ErrReceiptStatus
	}

	ts := time.UnixMilli(r.Timestamp)
	if now.Sub(ts) > p.MaxAge || ts.Sub(now) > p.MaxSkew {
		return ErrReceiptStale
	}

	if !bytes.Equal(r.ResultHash, Digest(sealedResult)) {
		return ErrReceiptResult
	}

	return nil
}

// Digest is SHA3-256.
func Digest(b []byte) []byte {
	h := sha3.Sum256(b)
	return h[:]
}
