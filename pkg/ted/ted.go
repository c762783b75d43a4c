// Package ted implements construction of the transformer embedding dialogue
// policy. The policy embeds dialogue states and system actions into a shared
// space and predicts the action whose embedding is most similar to the
// current dialogue. Training and inference run in the model-training
// framework; this package owns the policy's constructor contract, its
// hyperparameter defaults and their validation, and persistence of its
// metadata.
package ted

import (
	"fmt"

	"github.com/germanamz/dialogue/pkg/featurizer"
	"github.com/germanamz/dialogue/pkg/policy"
)

// Name is the registered name of the policy.
const Name = "TEDPolicy"

// Args holds the constructor inputs. The zero value builds a policy with
// default priority, a full-dialogue featurizer and default hyperparameters.
type Args struct {
	// Featurizer is used as-is when set. It cannot be combined with
	// MaxHistory.
	Featurizer featurizer.TrackerFeaturizer
	// Priority defaults to policy.DefaultPriority when nil.
	Priority *int
	// MaxHistory selects a max-history featurizer when Featurizer is nil.
	MaxHistory *int
	// Model is an already trained model to wrap.
	Model policy.Model
	// Overrides are hyperparameters keyed by their configuration names.
	Overrides map[string]any
}

// Int returns a pointer to v, for the optional fields of Args.
func Int(v int) *int { return &v }

// Policy is a constructed transformer embedding dialogue policy. It is
// immutable after construction and safe for concurrent use.
type Policy struct {
	priority   int
	featurizer featurizer.TrackerFeaturizer
	model      policy.Model
	config     Config
}

// New builds a policy from args. Configuration errors wrap ErrInvalidConfig.
func New(args Args) (*Policy, error) {
	if args.Featurizer != nil && args.MaxHistory != nil {
		return nil, fmt.Errorf("ted: %w: max_history cannot be set together with a featurizer; set it on the featurizer instead", ErrInvalidConfig)
	}

	priority := policy.DefaultPriority
	if args.Priority != nil {
		priority = *args.Priority
	}

	feat := args.Featurizer
	if feat == nil {
		var err error
		if feat, err = standardFeaturizer(args.MaxHistory); err != nil {
			return nil, err
		}
	}

	cfg, err := Defaults().Merge(args.Overrides)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Policy{
		priority:   priority,
		featurizer: feat,
		model:      args.Model,
		config:     cfg.resolve(),
	}, nil
}

func standardFeaturizer(maxHistory *int) (featurizer.TrackerFeaturizer, error) {
	if maxHistory == nil {
		return featurizer.FullDialogue(), nil
	}

	if *maxHistory < 1 {
		return nil, fmt.Errorf("ted: %w: max_history must be at least 1, got %d", ErrInvalidConfig, *maxHistory)
	}

	return featurizer.MaxHistory(*maxHistory), nil
}

// Name returns the policy name.
func (p *Policy) Name() string { return Name }

// Priority returns the priority used to break ties between policies.
func (p *Policy) Priority() int { return p.priority }

// Featurizer returns the tracker featurizer.
func (p *Policy) Featurizer() featurizer.TrackerFeaturizer { return p.featurizer }

// MaxHistory returns the featurizer's history window, or nil when the whole
// dialogue is used.
func (p *Policy) MaxHistory() *int { return p.featurizer.MaxHistory() }

// Model returns the wrapped model, or nil when the policy has not been
// trained.
func (p *Policy) Model() policy.Model { return p.model }

// Config returns a copy of the resolved configuration.
func (p *Policy) Config() Config { return p.config.clone() }

// ConfigMap returns the resolved configuration keyed by configuration names.
func (p *Policy) ConfigMap() map[string]any { return p.config.Map() }
