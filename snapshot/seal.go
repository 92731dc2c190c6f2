package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/stakeledger/cidutil"
	"xdao.co/stakeledger/keys"
	"xdao.co/stakeledger/model"
	"xdao.co/stakeledger/storage"
)

// SealVersion is the current SealedState schema version.
const SealVersion = 1

// Seal saves st to cas and signs its canonical bytes with signer.
// It returns the seal and the CID under which the seal itself is stored.
func Seal(cas storage.CAS, st model.LedgerState, signer keys.Signer, hashAlg string) (model.SealedState, cid.Cid, error) {
	if signer == nil {
		return model.SealedState{}, cid.Undef, errors.New("snapshot: nil signer")
	}
	if hashAlg == "" {
		hashAlg = keys.HashSHA256
	}
	stateBytes, err := Encode(st)
	if err != nil {
		return model.SealedState{}, cid.Undef, err
	}
	stateID, err := Save(cas, st)
	if err != nil {
		return model.SealedState{}, cid.Undef, err
	}
	sig, err := signer.Sign(stateBytes, hashAlg)
	if err != nil {
		return model.SealedState{}, cid.Undef, err
	}
	sealed := model.SealedState{
		Version:      SealVersion,
		StateCID:     stateID.String(),
		IssuerKey:    signer.IssuerKey(),
		SignatureAlg: signer.Algorithm(),
		HashAlg:      hashAlg,
		Signature:    sig,
	}
	sealBytes, err := encodeSeal(sealed)
	if err != nil {
		return model.SealedState{}, cid.Undef, err
	}
	sealID, err := cas.Put(sealBytes)
	if err != nil {
		return model.SealedState{}, cid.Undef, err
	}
	return sealed, sealID, nil
}

// VerifySeal checks that stateBytes match the sealed CID and signature.
// If trustedKey is non-empty the seal must also be issued by that key.
func VerifySeal(sealed model.SealedState, stateBytes []byte, trustedKey string) error {
	if sealed.Version != SealVersion {
		return fmt.Errorf("snapshot: unsupported seal version %d", sealed.Version)
	}
	if trustedKey != "" && sealed.IssuerKey != trustedKey {
		return fmt.Errorf("%w: issued by an untrusted key", ErrBadSeal)
	}
	if got := cidutil.CIDv1RawSHA256(stateBytes); got != sealed.StateCID {
		return fmt.Errorf("%w: state CID %s, sealed %s", ErrBadSeal, got, sealed.StateCID)
	}
	if err := keys.Verify(sealed.IssuerKey, sealed.HashAlg, stateBytes, sealed.Signature); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSeal, err)
	}
	return nil
}

// LoadSealed reads a seal from cas, fetches the state it names and verifies both.
func LoadSealed(cas storage.CAS, sealID cid.Cid, trustedKey string) (model.SealedState, model.LedgerState, error) {
	b, err := cas.Get(sealID)
	if err != nil {
		return model.SealedState{}, model.LedgerState{}, err
	}
	var sealed model.SealedState
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sealed); err != nil {
		return model.SealedState{}, model.LedgerState{}, fmt.Errorf("snapshot: decode seal: %w", err)
	}
	stateID, err := cidutil.Parse(sealed.StateCID)
	if err != nil {
		return model.SealedState{}, model.LedgerState{}, fmt.Errorf("%w: %v", ErrBadSeal, err)
	}
	stateBytes, err := cas.Get(stateID)
	if err != nil {
		return model.SealedState{}, model.LedgerState{}, err
	}
	if err := VerifySeal(sealed, stateBytes, trustedKey); err != nil {
		return model.SealedState{}, model.LedgerState{}, err
	}
	st, err := Decode(stateBytes)
	if err != nil {
		return model.SealedState{}, model.LedgerState{}, err
	}
	return sealed, st, nil
}

func encodeSeal(s model.SealedState) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
