package model

// FormatVersion is the current LedgerState schema version.
const FormatVersion = 1

// LedgerState is the durable projection of one ledger instance.
//
// The capability token is never part of the state; a restored ledger mints a
// fresh one.
type LedgerState struct {
	Version         int               `json:"version" yaml:"version"`
	RegistryAddress string            `json:"registryAddress" yaml:"registryAddress"`
	Metadata        map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Resource        ResourceState     `json:"resource" yaml:"resource"`
	PoolBalance     string            `json:"poolBalance" yaml:"poolBalance"`
	Credentials     []CredentialState `json:"credentials" yaml:"credentials"`
}

// ResourceState describes the pooled resource.
type ResourceState struct {
	Address      string `json:"address" yaml:"address"`
	Symbol       string `json:"symbol" yaml:"symbol"`
	Divisibility int32  `json:"divisibility" yaml:"divisibility"`
}

// CredentialState is the data attached to one credential.
type CredentialState struct {
	ID           string `json:"id" yaml:"id"`
	AmountStaked string `json:"amountStaked" yaml:"amountStaked"`
}

// SealedState pairs canonical state bytes with an operator signature.
type SealedState struct {
	Version      int    `json:"version"`
	StateCID     string `json:"stateCID"`
	IssuerKey    string `json:"issuerKey"`
	SignatureAlg string `json:"signatureAlg"`
	HashAlg      string `json:"hashAlg"`
	Signature    string `json:"signature"`
}

// StepReceipt reports one executed script step.
type StepReceipt struct {
	Line         int         `json:"line"`
	Op           string      `json:"op"`
	Member       string      `json:"member,omitempty"`
	CredentialID string      `json:"credentialId,omitempty"`
	Amount       string      `json:"amount,omitempty"`
	Error        *CodedError `json:"error,omitempty"`
}

// RunReport is the machine-readable result of `stakeledger run --json`.
type RunReport struct {
	Receipts []StepReceipt `json:"receipts"`
	StateCID string        `json:"stateCID,omitempty"`
	SealCID  string        `json:"sealCID,omitempty"`
	Error    *CodedError   `json:"error,omitempty"`
}
