package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/falconadvisor/falcon/internal/domain"
)

// Snapshot is one published policy version. Immutable after construction;
// readers share it freely.
type Snapshot struct {
	Version  string
	Checksum string
	LoadedAt time.Time

	rules []Rule // ordered by rule id
	index map[string]int
}

func newSnapshot(version string, rules []Rule) (*Snapshot, error) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	index := make(map[string]int, len(sorted))
	for i, r := range sorted {
		if _, dup := index[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %s", r.ID)
		}
		index[r.ID] = i
	}

	checksum, err := checksumRules(version, sorted)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Version:  version,
		Checksum: checksum,
		LoadedAt: time.Now().UTC(),
		rules:    sorted,
		index:    index,
	}, nil
}

// checksumRules computes a sha256 over the canonical JSON of the sorted
// rule set. Two documents with the same rules always hash identically
// regardless of source formatting.
func checksumRules(version string, sorted []Rule) (string, error) {
	canonical := struct {
		Version string `json:"version"`
		Rules   []Rule `json:"rules"`
	}{Version: version, Rules: sorted}

	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy for checksum: %w", err)
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Rules returns all rules in id order.
func (s *Snapshot) Rules() []Rule {
	return s.rules
}

// Rule returns the rule with the given id, if present.
func (s *Snapshot) Rule(id string) (Rule, bool) {
	i, ok := s.index[id]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// ForClient returns the rules applicable to the given client type, in id
// order.
func (s *Snapshot) ForClient(ct domain.ClientType) []Rule {
	var out []Rule
	for _, r := range s.rules {
		if r.AppliesToClient(ct) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of rules.
func (s *Snapshot) Len() int {
	return len(s.rules)
}
