package domain

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func signedFixture(t *testing.T) (ReceiptPolicy, Receipt, ComputationRequest, []byte, ed25519.PrivateKey, time.Time) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	now := time.UnixMilli(1_760_000_000_000)
	req := ComputationRequest{
		ID:            "c-1",
		ProgramID:     "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS",
		ClusterOffset: 1078779259,
		Payload: ConfidentialPayload{
			Kind:      KindStrategyPlan,
			Public:    []byte(`{"current_price":1}`),
			Sealed:    []byte("sealed"),
			ClientKey: make([]byte, 32),
		},
		SubmittedAt: now.UnixMilli(),
	}
	reqHash, err := req.Hash()
	if err != nil {
		t.Fatal(err)
	}

	sealed := []byte("sealed-result")
	r := Receipt{
		Version:       ReceiptVersion,
		ReceiptID:     "r-1",
		ComputationID: req.ID,
		Kind:          req.Payload.Kind,
		RequestHash:   reqHash,
		ResultHash:    Digest(sealed),
		Status:        StatusCompleted,
		ClusterOffset: req.ClusterOffset,
		Timestamp:     now.UnixMilli(),
	}
	if err := r.Sign(priv); err != nil {
		t.Fatal(err)
	}

	policy := ReceiptPolicy{ClusterKey: pub, MaxAge: 5 * time.Minute, MaxSkew: 30 * time.Second}
	return policy, r, req, sealed, priv, now
}

func TestReceiptPolicy_Verify(t *testing.T) {
	policy, good, req, sealed, priv, now := signedFixture(t)

	resign := func(r Receipt) Receipt {
		if err := r.Sign(priv); err != nil {
			t.Fatal(err)
		}
		return r
	}

	_, otherPriv, _ := ed25519.GenerateKey(rand.Reader)

	tests := []struct {
		name    string
		receipt func() Receipt
		sealed  []byte
		now     time.Time
		want    error
	}{
		{"valid", func() Receipt { return good }, sealed, now, nil},
		{"tampered status after signing", func() Receipt {
			r := good
			r.Status = StatusFailed
			return r
		}, sealed, now, ErrReceiptSignature},
		{"signed by another cluster", func() Receipt {
			r := good
			r.Sign(otherPriv)
			return r
		}, sealed, now, ErrReceiptSigner},
		{"different computation", func() Receipt {
			r := good
			r.ComputationID = "c-2"
			return resign(r)
		}, sealed, now, ErrReceiptBinding},
		{"different request hash", func() Receipt {
			r := good
			r.RequestHash = Digest([]byte("other"))
			return resign(r)
		}, sealed, now, ErrReceiptBinding},
		{"failed computation", func() Receipt {
			r := good
			r.Status = StatusFailed
			return resign(r)
		}, sealed, now, ErrReceiptStatus},
		{"older than ten minutes", func() Receipt { return good }, sealed, now.Add(10 * time.Minute), ErrReceiptStale},
		{"from the future", func() Receipt { return good }, sealed, now.Add(-time.Minute), ErrReceiptStale},
		{"swapped result", func() Receipt { return good }, []byte("other-result"), now, ErrReceiptResult},
		{"unknown version", func() Receipt {
			r := good
			r.Version = 2
			return resign(r)
		}, sealed, now, ErrReceiptVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Verify(tt.receipt(), req, tt.sealed, tt.now)
			if !errors.Is(err, tt.want) {
				t.Errorf("Verify() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestComputationRequest_HashIsStable(t *testing.T) {
	_, _, req, _, _, _ := signedFixture(t)

	h1, err := req.Hash()
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := req.Hash()
	if string(h1) != string(h2) {
		t.Error("hash not deterministic")
	}

	req.Payload.Sealed = []byte("tampered")
	h3, _ := req.Hash()
	if string(h1) == string(h3) {
		t.Error("hash ignores sealed payload")
	}
	if len(h1) != 32 {
		t.Errorf("hash length = %d", len(h1))
	}
}
