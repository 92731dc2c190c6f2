package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"

	HashSHA256  = "sha256"
	HashSHA512  = "sha512"
	HashSHA3256 = "sha3-256"
)

// ErrBadSignature is returned by Verify when the signature does not match.
var ErrBadSignature = errors.New("keys: signature does not verify")

// Signer signs digests of messages with an operator key.
type Signer interface {
	Algorithm() string
	IssuerKey() string
	// Sign returns base64(signature over hash(message)).
	Sign(message []byte, hashAlg string) (string, error)
}

// Digest hashes message with hashAlg (sha256, sha512 or sha3-256).
func Digest(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case HashSHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case HashSHA512:
		s := sha512.Sum512(message)
		return s[:], nil
	case HashSHA3256:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// NewSigner builds a signer for alg from a 32-byte seed.
func NewSigner(alg string, seed []byte) (Signer, error) {
	switch alg {
	case AlgEd25519, "":
		return NewEd25519Signer(seed)
	case AlgDilithium3:
		return NewDilithium3Signer(seed)
	default:
		return nil, fmt.Errorf("unsupported signature algorithm: %q", alg)
	}
}

type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes", SeedSize)
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Algorithm() string { return AlgEd25519 }

func (s *Ed25519Signer) IssuerKey() string {
	pub := s.priv.Public().(ed25519.PublicKey)
	return AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub)
}

func (s *Ed25519Signer) Sign(message []byte, hashAlg string) (string, error) {
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.priv, digest)), nil
}

type Dilithium3Signer struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

// NewDilithium3Signer derives a dilithium3 keypair deterministically from seed.
func NewDilithium3Signer(seed []byte) (*Dilithium3Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes", SeedSize)
	}
	pub, priv, err := mode3.GenerateKey(bytes.NewReader(seed))
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{pub: pub, priv: priv}, nil
}

func (s *Dilithium3Signer) Algorithm() string { return AlgDilithium3 }

func (s *Dilithium3Signer) IssuerKey() string {
	b, _ := s.pub.MarshalBinary()
	return AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(b)
}

func (s *Dilithium3Signer) Sign(message []byte, hashAlg string) (string, error) {
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks sigB64 over hash(message) against an issuer key string.
func Verify(issuerKey, hashAlg string, message []byte, sigB64 string) error {
	alg, enc, ok := strings.Cut(issuerKey, ":")
	if !ok {
		return fmt.Errorf("invalid issuer key encoding")
	}
	pub, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return fmt.Errorf("invalid issuer key base64: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return err
	}

	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid ed25519 public key length")
		}
		if len(sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return ErrBadSignature
		}
		return nil
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
		if len(sig) != mode3.SignatureSize || !mode3.Verify(&pk, digest, sig) {
			return ErrBadSignature
		}
		return nil
	default:
		return fmt.Errorf("unsupported issuer key algorithm: %q", alg)
	}
}
