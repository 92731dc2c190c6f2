// Package config loads the stakeledger CLI and daemon configuration.
//
// The file is YAML (JSON is accepted as a subset):
//
//	log:
//	  level: info
//	ledger:
//	  symbol: XRD
//	  badge_name: Club Badge
//	storage:
//	  write_policy: all
//	  backends:
//	    - {name: primary, kind: localfs, dir: /var/lib/stakeledger}
//	    - {name: scratch, kind: memory}
//	seal:
//	  key_file: /etc/stakeledger/operator.seed
//	  algorithm: dilithium3
//	  hash: sha3-256
//	serve:
//	  listen: 127.0.0.1:7780
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"xdao.co/stakeledger/keys"
)

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Storage StorageConfig `yaml:"storage"`
	Seal    SealConfig    `yaml:"seal"`
	Serve   ServeConfig   `yaml:"serve"`
}

type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type LedgerConfig struct {
	Symbol    string `yaml:"symbol"`
	BadgeName string `yaml:"badge_name"`
}

// SealConfig selects the operator key snapshots are sealed with. Sealing is
// off when KeyFile is empty.
type SealConfig struct {
	KeyFile   string `yaml:"key_file"`
	Algorithm string `yaml:"algorithm"`
	Hash      string `yaml:"hash"`
	// TrustedKey, when set, is the only issuer key accepted on load.
	TrustedKey string `yaml:"trusted_key"`
}

type ServeConfig struct {
	Listen      string `yaml:"listen"`
	MaxMsgBytes int    `yaml:"max_msg_bytes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Ledger: LedgerConfig{Symbol: "XRD"},
		Storage: StorageConfig{
			Backends: []BackendConfig{{Name: "memory", Kind: KindMemory}},
		},
		Seal:  SealConfig{Algorithm: keys.AlgEd25519, Hash: keys.HashSHA256},
		Serve: ServeConfig{Listen: "127.0.0.1:7780"},
	}
}

// LoadFile reads path over Default and validates the result.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes b over Default. Unknown keys are rejected.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.Ledger.Symbol == "" {
		return errors.New("config: ledger.symbol is required")
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if c.Seal.KeyFile != "" {
		switch c.Seal.Algorithm {
		case keys.AlgEd25519, keys.AlgDilithium3:
		default:
			return fmt.Errorf("config: seal.algorithm %q is not supported", c.Seal.Algorithm)
		}
		if _, err := keys.Digest(c.Seal.Hash, nil); err != nil {
			return fmt.Errorf("config: seal.hash: %w", err)
		}
	}
	if c.Serve.MaxMsgBytes < 0 {
		return errors.New("config: serve.max_msg_bytes must not be negative")
	}
	return nil
}

// Signer loads the sealing key. It returns nil, nil when sealing is off.
func (s SealConfig) Signer() (keys.Signer, error) {
	if s.KeyFile == "" {
		return nil, nil
	}
	seed, err := keys.LoadSeedFile(s.KeyFile)
	if err != nil {
		return nil, err
	}
	return keys.NewSigner(s.Algorithm, seed)
}
