// Package embedding keeps the old EmbeddingPolicy name working. Constructing
// it builds the transformer embedding dialogue policy from the ted package
// with the same arguments and raises a deprecation warning pointing callers
// at the new name.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/germanamz/dialogue/pkg/modeldir"
	"github.com/germanamz/dialogue/pkg/policy"
	"github.com/germanamz/dialogue/pkg/ted"
	"github.com/germanamz/dialogue/pkg/warnings"
)

const (
	// Name is the deprecated policy name.
	Name = "EmbeddingPolicy"
	// Replacement is the name callers should migrate to.
	Replacement = ted.Name
)

// Option configures how the deprecation warning is delivered.
type Option func(*options)

type options struct {
	ctx     context.Context
	emitter *warnings.Emitter
	log     *slog.Logger
}

// WithEmitter raises the warning through e instead of warnings.Default().
func WithEmitter(e *warnings.Emitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithLogger sets the logger used to report warnings that could not be
// delivered.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithContext sets the context passed to warning handlers.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

func buildOptions(opts []Option) options {
	o := options{ctx: context.Background(), log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.emitter == nil {
		o.emitter = warnings.Default()
	}

	return o
}

// Defaults returns the default hyperparameters, which are those of the
// replacement policy.
func Defaults() ted.Config {
	return ted.Defaults()
}

// New builds the replacement policy from args unchanged and raises one
// deprecation warning. Errors from the replacement are returned as-is and no
// warning is raised for them. Failure to deliver the warning never affects
// the result.
func New(args ted.Args, opts ...Option) (*ted.Policy, error) {
	p, err := ted.New(args)
	if err != nil {
		return nil, err
	}

	warn(buildOptions(opts))

	return p, nil
}

// Load restores a policy persisted under either name. Metadata written under
// the deprecated name is validated and moved to the replacement's name first;
// invalid legacy metadata is left where it is.
func Load(dir string, opts ...Option) (*ted.Policy, error) {
	o := buildOptions(opts)

	rewrite := func(data []byte) ([]byte, error) { return ted.RewriteMeta(data, Name) }
	if _, err := modeldir.MigrateMeta(modeldir.New(dir), Name, Replacement, rewrite); err != nil {
		return nil, fmt.Errorf("embedding: load: %w", err)
	}

	p, err := ted.Load(dir)
	if err != nil {
		return nil, err
	}

	warn(o)

	return p, nil
}

// Warning returns the deprecation notice raised on construction.
func Warning() warnings.Warning {
	return warnings.Warning{
		Category: warnings.CategoryDeprecation,
		Message:  fmt.Sprintf("'%s' is deprecated. Use '%s' instead.", Name, Replacement),
		Docs:     policy.DocsBaseURL() + "/core/policies/",
		Source:   Name,
	}
}

func warn(o options) {
	if err := o.emitter.Raise(o.ctx, Warning()); err != nil && o.log != nil {
		o.log.DebugContext(o.ctx, "deprecation warning not delivered",
			"policy", Name,
			"error", err,
		)
	}
}
