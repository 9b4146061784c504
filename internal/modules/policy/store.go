package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/falconadvisor/falcon/internal/domain"
)

// document is the on-disk policy format, YAML or JSON.
type document struct {
	Version string          `yaml:"version" json:"version"`
	Rules   map[string]Rule `yaml:"rules" json:"rules"`
}

// Store publishes immutable policy snapshots. Current() is a lock-free
// atomic read; Load and Reload validate before swapping and fail closed.
type Store struct {
	snap atomic.Pointer[Snapshot]
	path string
	log  zerolog.Logger
}

// NewStore creates a policy store reading from path. An empty path means
// the built-in default rule set.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  log.With().Str("service", "policy").Logger(),
	}
}

// Load reads, validates and publishes the policy. On failure the previous
// snapshot (if any) stays active.
func (s *Store) Load() (*Snapshot, error) {
	var (
		snap *Snapshot
		err  error
	)
	if s.path == "" {
		snap, err = newSnapshot("builtin-v1", DefaultRules())
	} else {
		snap, err = s.loadFile(s.path)
	}
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Policy load failed, previous snapshot retained")
		return nil, domain.NewConfigurationError("policy load failed", err)
	}

	old := s.snap.Swap(snap)
	evt := s.log.Info().
		Str("version", snap.Version).
		Str("checksum", snap.Checksum).
		Int("rules", snap.Len())
	if old != nil {
		evt = evt.Str("previous_version", old.Version)
	}
	evt.Msg("Policy snapshot published")

	return snap, nil
}

// Reload re-runs Load. Kept as a separate name so call sites read as the
// explicit operator action it is.
func (s *Store) Reload() (*Snapshot, error) {
	return s.Load()
}

// Current returns the active snapshot, or an error if no policy has been
// loaded yet.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, domain.NewConfigurationError("no policy loaded", nil)
	}
	return snap, nil
}

func (s *Store) loadFile(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy document: %w", err)
	}
	return parseDocument(raw, filepath.Ext(path))
}

// parseDocument validates a policy document and builds its snapshot.
func parseDocument(raw []byte, ext string) (*Snapshot, error) {
	var doc document
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported policy format %q (want .yaml, .yml or .json)", ext)
	}

	if doc.Version == "" {
		doc.Version = "v1"
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("policy document has no rules")
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for id, r := range doc.Rules {
		if r.ID == "" {
			r.ID = id
		} else if r.ID != id {
			return nil, fmt.Errorf("rule key %q does not match rule_id %q", id, r.ID)
		}
		if err := r.validate(); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	return newSnapshot(doc.Version, rules)
}
