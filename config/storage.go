package config

import (
	"errors"
	"fmt"

	"xdao.co/stakeledger/storage"
	"xdao.co/stakeledger/storage/localfs"
	"xdao.co/stakeledger/storage/memory"
)

// Backend kinds.
const (
	KindMemory  = "memory"
	KindLocalFS = "localfs"
)

// Write policies.
const (
	// WriteFirst writes to the first backend; reads fall back in order.
	WriteFirst = "first"
	// WriteAll writes to every backend and requires identical CIDs.
	WriteAll = "all"
)

// StorageConfig lists the CAS backends snapshots are written to, in read
// order.
type StorageConfig struct {
	WritePolicy string          `yaml:"write_policy"`
	// Preferred names the backend moved to the front of Backends.
	Preferred   string          `yaml:"preferred"`
	Backends    []BackendConfig `yaml:"backends"`
}

type BackendConfig struct {
	// Name identifies the backend in logs and per-backend CID reports.
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Dir is the store directory for localfs.
	Dir string `yaml:"dir"`
}

func (s StorageConfig) Validate() error {
	if len(s.Backends) == 0 {
		return errors.New("config: at least one storage backend is required")
	}
	seen := make(map[string]struct{}, len(s.Backends))
	for i, b := range s.Backends {
		if b.Name == "" {
			return fmt.Errorf("config: storage.backends[%d]: name is required", i)
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("config: duplicate storage backend %q", b.Name)
		}
		seen[b.Name] = struct{}{}
		switch b.Kind {
		case KindMemory:
		case KindLocalFS:
			if b.Dir == "" {
				return fmt.Errorf("config: storage backend %q: dir is required for localfs", b.Name)
			}
		default:
			return fmt.Errorf("config: storage backend %q: unknown kind %q", b.Name, b.Kind)
		}
	}
	if _, ok := seen[s.Preferred]; s.Preferred != "" && !ok {
		return fmt.Errorf("config: storage.preferred %q is not a configured backend", s.Preferred)
	}
	switch s.WritePolicy {
	case "", WriteFirst, WriteAll:
		return nil
	default:
		return fmt.Errorf("config: invalid storage.write_policy %q", s.WritePolicy)
	}
}

// Open builds the configured CAS. A single backend is returned as is;
// several are combined per WritePolicy.
//
// If preferred is non-empty, that backend is moved to the front so it takes
// the writes under WriteFirst. An empty preferred falls back to s.Preferred.
func (s StorageConfig) Open(preferred string) (storage.CAS, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if preferred == "" {
		preferred = s.Preferred
	}

	ordered := append([]BackendConfig(nil), s.Backends...)
	if preferred != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferred {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("config: preferred backend %q not found", preferred)
		}
		b := ordered[idx]
		copy(ordered[1:idx+1], ordered[:idx])
		ordered[0] = b
	}

	backends := make([]storage.Backend, 0, len(ordered))
	for _, b := range ordered {
		cas, err := openBackend(b)
		if err != nil {
			return nil, fmt.Errorf("config: open backend %q: %w", b.Name, err)
		}
		backends = append(backends, storage.Backend{Name: b.Name, CAS: cas})
	}

	if len(backends) == 1 {
		return backends[0].CAS, nil
	}
	if s.WritePolicy == WriteAll {
		return storage.Mirrored{Backends: backends}, nil
	}
	return storage.Tiered{Backends: backends}, nil
}

func openBackend(b BackendConfig) (storage.CAS, error) {
	switch b.Kind {
	case KindMemory:
		return memory.New(), nil
	case KindLocalFS:
		return localfs.New(b.Dir)
	default:
		return nil, fmt.Errorf("unknown kind %q", b.Kind)
	}
}
