// Package snapshot turns ledger state into canonical, content-addressed bytes.
//
// Canonical form is compact JSON of model.LedgerState with credentials sorted
// by id and a single trailing newline. Decode rejects anything that does not
// re-encode to the same bytes, so one state has exactly one CID.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ipfs/go-cid"

	"xdao.co/stakeledger/cidutil"
	"xdao.co/stakeledger/model"
	"xdao.co/stakeledger/storage"
)

var (
	ErrNotCanonical = errors.New("snapshot: bytes are not in canonical form")
	ErrBadSeal      = errors.New("snapshot: seal does not match state")
)

// Encode returns the canonical bytes of st.
func Encode(st model.LedgerState) ([]byte, error) {
	st.Credentials = append([]model.CredentialState(nil), st.Credentials...)
	sort.Slice(st.Credentials, func(i, j int) bool { return st.Credentials[i].ID < st.Credentials[j].ID })
	if st.Credentials == nil {
		st.Credentials = []model.CredentialState{}
	}
	b, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Decode parses canonical bytes.
func Decode(b []byte) (model.LedgerState, error) {
	var st model.LedgerState
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		return model.LedgerState{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	again, err := Encode(st)
	if err != nil {
		return model.LedgerState{}, err
	}
	if !bytes.Equal(again, b) {
		return model.LedgerState{}, ErrNotCanonical
	}
	return st, nil
}

// CID returns the content id of st's canonical bytes.
func CID(st model.LedgerState) (cid.Cid, error) {
	b, err := Encode(st)
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.CIDv1RawSHA256CID(b)
}

// Save writes st to cas and returns its CID.
func Save(cas storage.CAS, st model.LedgerState) (cid.Cid, error) {
	if cas == nil {
		return cid.Undef, errors.New("snapshot: nil CAS")
	}
	b, err := Encode(st)
	if err != nil {
		return cid.Undef, err
	}
	return cas.Put(b)
}

// Load reads and decodes the state stored under id.
func Load(cas storage.CAS, id cid.Cid) (model.LedgerState, error) {
	if cas == nil {
		return model.LedgerState{}, errors.New("snapshot: nil CAS")
	}
	b, err := cas.Get(id)
	if storage.IsIntegrity(err) {
		return model.LedgerState{}, fmt.Errorf("snapshot: state %s failed verification: %w", id, err)
	}
	if err != nil {
		return model.LedgerState{}, err
	}
	return Decode(b)
}
