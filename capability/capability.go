// Package capability holds the ledger's internal authority.
//
// A Vault mints exactly one Token when it is created and never hands it out.
// Code that needs authority runs inside Vault.Authorize, which passes a Proof
// that is only live for the duration of that single call.
package capability

import (
	"sync"

	"github.com/google/uuid"

	"xdao.co/stakeledger/fault"
)

// Token is the singleton authority value. It has no exported fields and no
// exported constructor; the only way to obtain one is NewVault, which keeps it.
type Token struct {
	identity uuid.UUID
}

// Vault owns a Token.
type Vault struct {
	token *Token
}

// NewVault mints a fresh Token and returns the vault holding it.
func NewVault() *Vault {
	return &Vault{token: &Token{identity: uuid.New()}}
}

// Identity returns the resource identity of the held token. Registries are
// gated on this value. Knowing the identity does not grant authority.
func (v *Vault) Identity() uuid.UUID {
	if v == nil || v.token == nil {
		return uuid.Nil
	}
	return v.token.identity
}

// Authorize runs fn with a proof of the held token. The proof is revoked when
// fn returns, so retaining it past the call is useless.
func (v *Vault) Authorize(fn func(p *Proof) error) error {
	if v == nil || v.token == nil {
		return fault.New(fault.KindUnauthorized, "STAKE-CAP-001", "capability vault is empty")
	}
	p := &Proof{token: v.token, live: true}
	defer p.revoke()
	return fn(p)
}

// Proof is a scoped proof of a Token.
type Proof struct {
	mu    sync.Mutex
	token *Token
	live  bool
}

func (p *Proof) revoke() {
	p.mu.Lock()
	p.live = false
	p.mu.Unlock()
}

// Check returns nil when p is a live proof of the token with the given identity.
func (p *Proof) Check(identity uuid.UUID) error {
	if p == nil {
		return fault.New(fault.KindUnauthorized, "STAKE-CAP-002", "capability proof required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == nil {
		return fault.New(fault.KindUnauthorized, "STAKE-CAP-002", "capability proof required")
	}
	if !p.live {
		return fault.New(fault.KindUnauthorized, "STAKE-CAP-003", "capability proof used outside its scope")
	}
	if identity == uuid.Nil || p.token.identity != identity {
		return fault.New(fault.KindUnauthorized, "STAKE-CAP-004", "capability proof does not match the required token")
	}
	return nil
}
