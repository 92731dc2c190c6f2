package storage

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/stakeledger/cidutil"
)

// Backend is a CAS with the name it was configured under.
type Backend struct {
	Name string
	CAS  CAS
}

// Tiered writes snapshots to its first backend and reads through the rest in
// order. The order is the configured one, never a map order.
type Tiered struct {
	Backends []Backend
}

var _ CAS = Tiered{}

func (t Tiered) Put(b []byte) (cid.Cid, error) {
	if len(t.Backends) == 0 || t.Backends[0].CAS == nil {
		return cid.Undef, errors.New("storage: tiered CAS has no primary backend")
	}
	return t.Backends[0].CAS.Put(b)
}

func (t Tiered) Get(id cid.Cid) ([]byte, error) {
	return readThrough(t.Backends, id)
}

func (t Tiered) Has(id cid.Cid) bool { return hasAny(t.Backends, id) }

// Mirrored writes every snapshot to all backends and fails unless each one
// reports the CID computed locally from the bytes.
type Mirrored struct {
	Backends []Backend
}

var _ CAS = Mirrored{}

// PutEach writes b to every backend and returns what each one reported.
func (m Mirrored) PutEach(b []byte) (cid.Cid, map[string]cid.Cid, error) {
	if len(m.Backends) == 0 {
		return cid.Undef, nil, errors.New("storage: mirrored CAS has no backends")
	}
	want, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return cid.Undef, nil, err
	}

	got := make(map[string]cid.Cid, len(m.Backends))
	for _, be := range m.Backends {
		if be.CAS == nil {
			return cid.Undef, got, fmt.Errorf("storage: backend %q is nil", be.Name)
		}
		id, err := be.CAS.Put(b)
		if err != nil {
			return cid.Undef, got, fmt.Errorf("storage: backend %q: %w", be.Name, err)
		}
		got[be.Name] = id
		if !id.Equals(want) {
			return cid.Undef, got, fmt.Errorf("%w: backend %q returned %s", ErrCIDMismatch, be.Name, id)
		}
	}
	return want, got, nil
}

func (m Mirrored) Put(b []byte) (cid.Cid, error) {
	id, _, err := m.PutEach(b)
	return id, err
}

func (m Mirrored) Get(id cid.Cid) ([]byte, error) {
	return readThrough(m.Backends, id)
}

func (m Mirrored) Has(id cid.Cid) bool { return hasAny(m.Backends, id) }

// readThrough returns the first hit. A backend error other than not-found
// stops the walk.
func readThrough(backends []Backend, id cid.Cid) ([]byte, error) {
	for _, be := range backends {
		if be.CAS == nil {
			continue
		}
		b, err := be.CAS.Get(id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func hasAny(backends []Backend, id cid.Cid) bool {
	for _, be := range backends {
		if be.CAS != nil && be.CAS.Has(id) {
			return true
		}
	}
	return false
}
