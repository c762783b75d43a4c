// Package ensemble builds the set of dialogue policies described by a policy
// configuration file. Policies are looked up by name in a registry, so files
// that still use deprecated names keep working.
package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/germanamz/dialogue/pkg/policy"
	"github.com/germanamz/dialogue/pkg/registry"
	"github.com/germanamz/dialogue/pkg/ted"
	"github.com/germanamz/dialogue/pkg/warnings"
)

// Member is a built policy together with the name it was configured under.
type Member struct {
	// ConfiguredName is the name from the configuration file, which may be a
	// deprecated alias of the built policy's name.
	ConfiguredName string
	Policy         policy.Policy
}

// Ensemble is an ordered set of built policies.
type Ensemble struct {
	members []Member
}

// Option configures New.
type Option func(*options)

type options struct {
	registry *registry.Registry
	emitter  *warnings.Emitter
	log      *slog.Logger
}

// WithRegistry sets the registry policies are looked up in.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithEmitter sets the emitter warnings are raised through.
func WithEmitter(e *warnings.Emitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// New validates cfg and builds every policy it names.
func New(ctx context.Context, cfg Config, opts ...Option) (*Ensemble, error) {
	o := options{
		registry: registry.Default(),
		emitter:  warnings.Default(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(cfg.Policies))
	for i, pc := range cfg.Policies {
		p, err := o.registry.Build(pc.Name, ted.Args{
			Priority:   pc.Priority,
			MaxHistory: pc.MaxHistory,
			Overrides:  pc.Overrides,
		}, o.emitter)
		if err != nil {
			return nil, fmt.Errorf("ensemble: policy %d (%s): %w", i, pc.Name, err)
		}

		o.log.DebugContext(ctx, "policy built",
			"policy", pc.Name,
			"priority", p.Priority(),
		)

		members = append(members, Member{ConfiguredName: pc.Name, Policy: p})
	}

	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Policy.Priority() > members[j].Policy.Priority()
	})

	checkPriorities(ctx, o, members)

	return &Ensemble{members: members}, nil
}

// checkPriorities warns about policies sharing a priority, since ties between
// them are then broken by configuration order only.
func checkPriorities(ctx context.Context, o options, members []Member) {
	byPriority := make(map[int][]string)
	var order []int
	for _, m := range members {
		prio := m.Policy.Priority()
		if _, seen := byPriority[prio]; !seen {
			order = append(order, prio)
		}
		byPriority[prio] = append(byPriority[prio], m.ConfiguredName)
	}

	for _, prio := range order {
		names := byPriority[prio]
		if len(names) < 2 {
			continue
		}

		err := o.emitter.Raise(ctx, warnings.Warning{
			Category: warnings.CategoryUser,
			Message: fmt.Sprintf("Found policies %s with same priority %d in the ensemble. "+
				"When personalizing priorities, be sure to give all policies different priorities.",
				strings.Join(names, ", "), prio),
			Docs:   policy.DocsBaseURL() + "/core/policies/",
			Source: "ensemble",
		})
		if err != nil {
			o.log.DebugContext(ctx, "priority warning not delivered", "error", err)
		}
	}
}

// Members returns the policies ordered by descending priority. Policies with
// equal priority keep their configuration order.
func (e *Ensemble) Members() []Member {
	out := make([]Member, len(e.members))
	copy(out, e.members)

	return out
}

// Policies returns the built policies in the same order as Members.
func (e *Ensemble) Policies() []policy.Policy {
	out := make([]policy.Policy, len(e.members))
	for i, m := range e.members {
		out[i] = m.Policy
	}

	return out
}
