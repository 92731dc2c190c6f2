package keys

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func seed(b byte) []byte {
	s := make([]byte, SeedSize)
	for i := range s {
		s[i] = b + byte(i)
	}
	return s
}

func TestSigners_SignAndVerify(t *testing.T) {
	for _, alg := range []string{AlgEd25519, AlgDilithium3} {
		for _, hashAlg := range []string{HashSHA256, HashSHA512, HashSHA3256} {
			t.Run(alg+"/"+hashAlg, func(t *testing.T) {
				s, err := NewSigner(alg, seed(1))
				if err != nil {
					t.Fatalf("NewSigner: %v", err)
				}
				if s.Algorithm() != alg || !strings.HasPrefix(s.IssuerKey(), alg+":") {
					t.Fatalf("unexpected signer identity %q / %q", s.Algorithm(), s.IssuerKey())
				}
				msg := []byte("ledger snapshot")
				sig, err := s.Sign(msg, hashAlg)
				if err != nil {
					t.Fatalf("Sign: %v", err)
				}
				if err := Verify(s.IssuerKey(), hashAlg, msg, sig); err != nil {
					t.Fatalf("Verify: %v", err)
				}
				if err := Verify(s.IssuerKey(), hashAlg, []byte("tampered"), sig); !errors.Is(err, ErrBadSignature) {
					t.Fatalf("tampered message: got %v", err)
				}
			})
		}
	}
}

func TestSigners_Deterministic(t *testing.T) {
	for _, alg := range []string{AlgEd25519, AlgDilithium3} {
		a, _ := NewSigner(alg, seed(7))
		b, _ := NewSigner(alg, seed(7))
		c, _ := NewSigner(alg, seed(8))
		if a.IssuerKey() != b.IssuerKey() {
			t.Fatalf("%s: same seed gave different keys", alg)
		}
		if a.IssuerKey() == c.IssuerKey() {
			t.Fatalf("%s: different seeds gave the same key", alg)
		}
	}
}

func TestSigner_Rejects(t *testing.T) {
	if _, err := NewSigner("rsa", seed(1)); err == nil {
		t.Fatalf("expected unsupported algorithm error")
	}
	if _, err := NewSigner(AlgEd25519, []byte("short")); err == nil {
		t.Fatalf("expected seed length error")
	}
	s, _ := NewEd25519Signer(seed(1))
	if _, err := s.Sign([]byte("x"), "md5"); err == nil {
		t.Fatalf("expected unsupported hash error")
	}
	if err := Verify("nocolon", HashSHA256, nil, ""); err == nil {
		t.Fatalf("expected issuer key encoding error")
	}
}

func TestDeriveRoleSeed(t *testing.T) {
	root := seed(3)
	a, err := DeriveRoleSeed(root, "ledger-main")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	b, _ := DeriveRoleSeed(root, "ledger-main")
	c, _ := DeriveRoleSeed(root, "ledger-test")
	if string(a) != string(b) || string(a) == string(c) || len(a) != SeedSize {
		t.Fatalf("role derivation not deterministic or not role-specific")
	}
	if _, err := DeriveRoleSeed(root, "bad role"); err == nil {
		t.Fatalf("expected role validation error")
	}
	if _, err := DeriveRoleSeed([]byte("short"), "x"); err == nil {
		t.Fatalf("expected root seed length error")
	}
}

func TestSeedFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "operator.key")
	if err := WriteSeedFile(path, seed(9), false); err != nil {
		t.Fatalf("WriteSeedFile: %v", err)
	}
	if err := WriteSeedFile(path, seed(9), false); err == nil {
		t.Fatalf("expected refusal to overwrite without overwrite=true")
	}
	if err := WriteSeedFile(path, seed(10), true); err != nil {
		t.Fatalf("WriteSeedFile overwrite: %v", err)
	}
	got, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if string(got) != string(seed(10)) {
		t.Fatalf("seed round trip mismatch")
	}

	if _, err := ParseSeedHex("0x" + strings.Repeat("ab", SeedSize) + "\n"); err != nil {
		t.Fatalf("ParseSeedHex with prefix: %v", err)
	}
	if _, err := ParseSeedHex("abcd"); err == nil {
		t.Fatalf("expected length error")
	}
}
