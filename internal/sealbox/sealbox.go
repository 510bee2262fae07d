// Package sealbox seals payloads between two X25519 parties.
//
// Both sides run ECDH over their key pairs, expand the shared point with
// HKDF-SHA256 into one AES-256-GCM key per direction, and bind every box to
// caller supplied additional data. A box is nonce || ciphertext+tag.
package sealbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of X25519 public and private keys.
const KeySize = curve25519.ScalarSize

const (
	requestInfo = "evalys-bridge/v1/request"
	resultInfo  = "evalys-bridge/v1/result"
	seedInfo    = "evalys-bridge/v1/x25519"
)

var (
	ErrInvalidKey = errors.New("sealbox: invalid public key")
	ErrShortBox   = errors.New("sealbox: box too short")
	ErrOpen       = errors.New("sealbox: message authentication failed")
)

// PublicKey is an X25519 public key.
type PublicKey [KeySize]byte

// String returns the hex encoding of the key.
func (k PublicKey) String() string { return hex.EncodeToString(k[:]) }

// ParsePublicKey accepts a raw 32 byte key.
func ParsePublicKey(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// KeyPair is an X25519 key pair.
type KeyPair struct {
	Public  PublicKey
	private [KeySize]byte
}

// GenerateKeyPair draws a fresh key pair from r, or crypto/rand when r is nil.
func GenerateKeyPair(r io.Reader) (KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	var scalar [KeySize]byte
	if _, err := io.ReadFull(r, scalar[:]); err != nil {
		return KeyPair{}, fmt.Errorf("generate key: %w", err)
	}
	return keyPairFromScalar(scalar)
}

// KeyPairFromSeed derives a deterministic key pair from operator supplied
// seed material.
func KeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) == 0 {
		return KeyPair{}, errors.New("sealbox: empty seed")
	}
	scalar, err := Expand(seed, seedInfo, KeySize)
	if err != nil {
		return KeyPair{}, err
	}
	var s [KeySize]byte
	copy(s[:], scalar)
	return keyPairFromScalar(s)
}

func keyPairFromScalar(scalar [KeySize]byte) (KeyPair, error) {
	pub, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("derive public key: %w", err)
	}
	kp := KeyPair{private: scalar}
	copy(kp.Public[:], pub)
	return kp, nil
}

// Expand stretches secret into n bytes of key material bound to info.
func Expand(secret []byte, info string, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return out, nil
}

// Role selects which direction a session seals in.
type Role int

const (
	// Client seals requests and opens results.
	Client Role = iota
	// Cluster opens requests and seals results.
	Cluster
)

// Session holds the directional keys between two parties.
type Session struct {
	seal cipher.AEAD
	open cipher.AEAD
}

// NewSession runs X25519 between local and peer and derives the session keys.
// Low order peer keys are rejected.
func NewSession(local KeyPair, peer PublicKey, role Role) (*Session, error) {
	shared, err := curve25519.X25519(local.private[:], peer[:])
	if err != nil {
		return nil, ErrInvalidKey
	}

	// Salt is client key then cluster key on both sides.
	salt := make([]byte, 0, 2*KeySize)
	if role == Client {
		salt = append(append(salt, local.Public[:]...), peer[:]...)
	} else {
		salt = append(append(salt, peer[:]...), local.Public[:]...)
	}

	reqAEAD, err := newAEAD(shared, salt, requestInfo)
	if err != nil {
		return nil, err
	}
	resAEAD, err := newAEAD(shared, salt, resultInfo)
	if err != nil {
		return nil, err
	}

	if role == Client {
		return &Session{seal: reqAEAD, open: resAEAD}, nil
	}
	return &Session{seal: resAEAD, open: reqAEAD}, nil
}

func newAEAD(shared, salt []byte, info string) (cipher.AEAD, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext, binding it to aad.
func (s *Session) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.seal.NonceSize(), s.seal.NonceSize()+len(plaintext)+s.seal.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.seal.Seal(nonce, nonce, plaintext, aad), nil
}

// Open authenticates and decrypts a box produced by the peer's Seal.
func (s *Session) Open(box, aad []byte) ([]byte, error) {
	ns := s.open.NonceSize()
	if len(box) < ns+s.open.Overhead() {
		return nil, ErrShortBox
	}
	plaintext, err := s.open.Open(nil, box[:ns], box[ns:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
