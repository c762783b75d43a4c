package ted

import (
	"fmt"
	"os"
	"slices"

	"github.com/germanamz/dialogue/pkg/featurizer"
	"github.com/germanamz/dialogue/pkg/modeldir"
	"github.com/germanamz/dialogue/pkg/policy"
	"gopkg.in/yaml.v3"
)

// meta is the persisted form of a policy. Model weights are owned by the
// training framework and are not part of it.
type meta struct {
	Policy     string `yaml:"policy"`
	Priority   int    `yaml:"priority"`
	Featurizer string `yaml:"featurizer"`
	MaxHistory *int   `yaml:"max_history,omitempty"`
	Config     Config `yaml:"config"`
}

// Persist writes the policy metadata into dir, creating it if needed.
func (p *Policy) Persist(dir string) error {
	d := modeldir.New(dir)
	if err := d.EnsureStructure(); err != nil {
		return fmt.Errorf("ted: persist: %w", err)
	}

	data, err := yaml.Marshal(meta{
		Policy:     Name,
		Priority:   p.priority,
		Featurizer: p.featurizer.Name(),
		MaxHistory: p.featurizer.MaxHistory(),
		Config:     p.config,
	})
	if err != nil {
		return fmt.Errorf("ted: persist: %w", err)
	}

	if err := os.WriteFile(d.MetaPath(Name), data, 0o600); err != nil {
		return fmt.Errorf("ted: persist: %w", err)
	}

	return nil
}

// Load restores a policy from metadata written by Persist. The returned
// policy has no model.
func Load(dir string) (*Policy, error) {
	d := modeldir.New(dir)

	data, err := os.ReadFile(d.MetaPath(Name))
	if err != nil {
		return nil, fmt.Errorf("ted: load: %w", err)
	}

	m, err := decodeMeta(data, Name)
	if err != nil {
		return nil, fmt.Errorf("ted: load: %w", err)
	}

	p, err := fromMeta(m)
	if err != nil {
		return nil, fmt.Errorf("ted: load: %w", err)
	}

	return p, nil
}

// RewriteMeta validates metadata persisted under legacyName, a former name of
// this policy, and re-encodes it under Name. Nothing is written; the caller
// decides where the result goes.
func RewriteMeta(data []byte, legacyName string) ([]byte, error) {
	m, err := decodeMeta(data, Name, legacyName)
	if err != nil {
		return nil, fmt.Errorf("ted: rewrite metadata: %w", err)
	}

	if _, err := fromMeta(m); err != nil {
		return nil, fmt.Errorf("ted: rewrite metadata: %w", err)
	}

	m.Policy = Name

	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("ted: rewrite metadata: %w", err)
	}

	return out, nil
}

func decodeMeta(data []byte, accepted ...string) (meta, error) {
	// Keys missing from older metadata keep their default values.
	m := meta{Priority: policy.DefaultPriority, Config: Defaults()}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return meta{}, fmt.Errorf("parse metadata: %w", err)
	}

	if !slices.Contains(accepted, m.Policy) {
		return meta{}, fmt.Errorf("metadata belongs to policy %q", m.Policy)
	}

	return m, nil
}

func fromMeta(m meta) (*Policy, error) {
	feat, ok := featurizer.ByName(m.Featurizer, m.MaxHistory)
	if !ok {
		return nil, fmt.Errorf("%w: unknown featurizer %q", ErrInvalidConfig, m.Featurizer)
	}

	if err := m.Config.Validate(); err != nil {
		return nil, err
	}

	return &Policy{
		priority:   m.Priority,
		featurizer: feat,
		config:     m.Config.resolve(),
	}, nil
}
