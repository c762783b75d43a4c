// Package registry maps policy names used in configuration files to the
// constructors that build them. Deprecated names stay registered so existing
// configurations keep loading.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/germanamz/dialogue/pkg/embedding"
	"github.com/germanamz/dialogue/pkg/policy"
	"github.com/germanamz/dialogue/pkg/ted"
	"github.com/germanamz/dialogue/pkg/warnings"
)

// ErrUnknownPolicy is returned by Build for names that are not registered.
var ErrUnknownPolicy = errors.New("unknown policy")

// Factory builds a policy. Deprecated factories raise their notice through
// the given emitter.
type Factory func(args ted.Args, emitter *warnings.Emitter) (policy.Policy, error)

// Entry describes a registered policy.
type Entry struct {
	Name        string
	Description string
	Deprecated  bool
	// Replacement is the name to use instead of a deprecated entry.
	Replacement string
}

// Registry is a thread-safe directory of policy factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	entries   map[string]Entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		entries:   make(map[string]Entry),
	}
}

// Register adds a policy factory. If a policy with the same name already
// exists, it is replaced.
func (r *Registry) Register(e Entry, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[e.Name] = factory
	r.entries[e.Name] = e
}

// Get returns the entry for the named policy and true, or a zero Entry and
// false if not found.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// List returns all registry entries sorted by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// Build constructs the named policy. A nil emitter means warnings.Default().
func (r *Registry) Build(name string, args ted.Args, emitter *warnings.Emitter) (policy.Policy, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: %w %q", ErrUnknownPolicy, name)
	}

	if emitter == nil {
		emitter = warnings.Default()
	}

	return f(args, emitter)
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry with the built-in policies
// registered.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
		RegisterBuiltins(defaultReg)
	})

	return defaultReg
}

// RegisterBuiltins registers the policies shipped with this module.
func RegisterBuiltins(r *Registry) {
	r.Register(Entry{
		Name:        ted.Name,
		Description: "Transformer embedding dialogue policy",
	}, newTED)

	r.Register(Entry{
		Name:        embedding.Name,
		Description: "Deprecated name of " + embedding.Replacement,
		Deprecated:  true,
		Replacement: embedding.Replacement,
	}, newEmbedding)
}

func newTED(args ted.Args, _ *warnings.Emitter) (policy.Policy, error) {
	p, err := ted.New(args)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func newEmbedding(args ted.Args, emitter *warnings.Emitter) (policy.Policy, error) {
	p, err := embedding.New(args, embedding.WithEmitter(emitter))
	if err != nil {
		return nil, err
	}

	return p, nil
}
