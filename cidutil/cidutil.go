// Package cidutil derives content identifiers for ledger snapshots and blobs.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256CID returns a CIDv1 using the "raw" multicodec and a sha2-256
// multihash of data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// CIDv1RawSHA256 is CIDv1RawSHA256CID rendered as a string. It returns "" only
// if hashing fails, which cannot happen for sha2-256 with default length.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// Parse decodes s and requires it to be a defined CIDv1 raw sha2-256 id.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, fmt.Errorf("cidutil: undefined cid")
	}
	prefix := id.Prefix()
	if prefix.Version != 1 || prefix.Codec != cid.Raw || prefix.MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("cidutil: %s is not a CIDv1 raw sha2-256 id", s)
	}
	return id, nil
}
