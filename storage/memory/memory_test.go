package memory

import (
	"testing"

	"xdao.co/stakeledger/storage"
	"xdao.co/stakeledger/storage/testkit"
)

func TestMemory_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		return New()
	})
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	c := New()
	id, err := c.Put([]byte("abc"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := c.Get(id)
	got[0] = 'z'
	again, _ := c.Get(id)
	if string(again) != "abc" {
		t.Fatalf("stored object was mutated through Get: %q", again)
	}
	if c.Len() != 1 {
		t.Fatalf("Len: got %d", c.Len())
	}
}
