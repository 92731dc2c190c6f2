// Package memory is an in-process CAS, used by tests and by `stakeledger run`
// when no state directory is configured.
package memory

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/stakeledger/cidutil"
	"xdao.co/stakeledger/storage"
)

// CAS keeps objects in a map keyed by CID string.
type CAS struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ storage.CAS = (*CAS)(nil)

func New() *CAS {
	return &CAS{objects: map[string][]byte{}}
}

func (c *CAS) Put(b []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return cid.Undef, err
	}
	key := id.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.objects[key]; ok {
		if string(existing) != string(b) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	c.objects[key] = append([]byte(nil), b...)
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	c.mu.RLock()
	b, ok := c.objects[id.String()]
	c.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.objects[id.String()]
	return ok
}

// Len returns the number of stored objects.
func (c *CAS) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}
