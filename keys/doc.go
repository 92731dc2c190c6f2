// Package keys provides operator signing keys used to seal ledger snapshots.
//
// Issuer keys are rendered as "<alg>:" + base64(public key). Supported
// algorithms are ed25519 and dilithium3 (post-quantum). Seeds are 32 bytes
// and are stored on disk as a single hex line.
package keys
