// Package domain holds Solana account and cluster models.
package domain

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the size of a Solana account address.
const PublicKeySize = 32

var ErrInvalidPublicKey = errors.New("invalid public key: must be a base58 encoded 32 byte key")

// PublicKey is a Solana account address.
type PublicKey [PublicKeySize]byte

// ProgramID addresses an on-chain program such as the MXE program.
type ProgramID = PublicKey

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != PublicKeySize {
		return pk, ErrInvalidPublicKey
	}
	copy(pk[:], raw)
	return pk, nil
}

// ParseProgramID decodes a base58 program address.
func ParseProgramID(s string) (ProgramID, error) {
	return ParsePublicKey(s)
}

// String returns the base58 form.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsZero reports whether pk is the all-zero address.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// LoadKeypairPublicKey reads a Solana CLI keypair file (a JSON array of 64
// bytes: seed then public key) and returns its public key.
func LoadKeypairPublicKey(path string) (PublicKey, error) {
	var pk PublicKey

	data, err := os.ReadFile(path)
	if err != nil {
		return pk, fmt.Errorf("read keypair: %w", err)
	}

	var raw []byte
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return pk, fmt.Errorf("decode keypair: %w", err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return pk, fmt.Errorf("decode keypair: want %d bytes, got %d", ed25519.PrivateKeySize, len(ints))
	}
	raw = make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return pk, fmt.Errorf("decode keypair: byte %d out of range", i)
		}
		raw[i] = byte(v)
	}

	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]).Public().(ed25519.PublicKey)
	if !ed25519.PublicKey(raw[ed25519.SeedSize:]).Equal(derived) {
		return pk, errors.New("decode keypair: public key does not match seed")
	}
	copy(pk[:], derived)
	return pk, nil
}

// AccountInfo is the subset of getAccountInfo the bridge uses.
type AccountInfo struct {
	Lamports   uint64
	Owner      PublicKey
	Executable bool
}

// ClusterStatus summarizes a reachability check.
type ClusterStatus struct {
	Healthy         bool
	Slot            uint64
	ProgramDeployed bool
	CheckedAt       time.Time
	Err             error
}

// Ready reports whether the cluster answered and the program is deployed.
func (s ClusterStatus) Ready() bool {
	return s.Healthy && s.ProgramDeployed
}
