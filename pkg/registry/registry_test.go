package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/germanamz/dialogue/pkg/featurizer"
	"github.com/germanamz/dialogue/pkg/policy"
	"github.com/germanamz/dialogue/pkg/ted"
	"github.com/germanamz/dialogue/pkg/warnings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPolicy struct{ priority int }

func (s stubPolicy) Name() string { return "Stub" }

func (s stubPolicy) Priority() int { return s.priority }

func (s stubPolicy) Featurizer() featurizer.TrackerFeaturizer { return featurizer.FullDialogue() }

func countingEmitter() (*warnings.Emitter, *int) {
	n := 0
	e := warnings.NewEmitter(
		warnings.WithLogger(nil),
		warnings.WithHandler(func(context.Context, warnings.Warning) error {
			n++
			return nil
		}),
	)
	return e, &n
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := New()
	r.Register(Entry{Name: "Stub", Description: "Does nothing"}, func(args ted.Args, _ *warnings.Emitter) (policy.Policy, error) {
		return stubPolicy{}, nil
	})

	e, ok := r.Get("Stub")

	require.True(t, ok)
	assert.Equal(t, "Does nothing", e.Description)
}

func TestRegistryGetMissing(t *testing.T) {
	_, ok := New().Get("nonexistent")

	assert.False(t, ok)
}

func TestRegistryList(t *testing.T) {
	r := New()
	noop := func(ted.Args, *warnings.Emitter) (policy.Policy, error) { return stubPolicy{}, nil }
	r.Register(Entry{Name: "charlie"}, noop)
	r.Register(Entry{Name: "alpha"}, noop)
	r.Register(Entry{Name: "bravo"}, noop)

	entries := r.List()

	require.Len(t, entries, 3)
	assert.Equal(t, "alpha", entries[0].Name)
	assert.Equal(t, "bravo", entries[1].Name)
	assert.Equal(t, "charlie", entries[2].Name)
}

func TestRegistryBuildUnknown(t *testing.T) {
	_, err := New().Build("KerasPolicy", ted.Args{}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Contains(t, err.Error(), "KerasPolicy")
}

func TestRegistryBuildPassesArgs(t *testing.T) {
	r := New()
	r.Register(Entry{Name: "Stub"}, func(args ted.Args, _ *warnings.Emitter) (policy.Policy, error) {
		return stubPolicy{priority: *args.Priority}, nil
	})

	p, err := r.Build("Stub", ted.Args{Priority: ted.Int(9)}, nil)

	require.NoError(t, err)
	assert.Equal(t, 9, p.Priority())
}

func TestRegistryBuildFactoryError(t *testing.T) {
	boom := errors.New("boom")
	r := New()
	r.Register(Entry{Name: "Broken"}, func(ted.Args, *warnings.Emitter) (policy.Policy, error) {
		return nil, boom
	})

	_, err := r.Build("Broken", ted.Args{}, nil)

	assert.ErrorIs(t, err, boom)
}

func TestBuiltins(t *testing.T) {
	r := New()
	RegisterBuiltins(r)

	entries := r.List()
	require.Len(t, entries, 2)

	assert.Equal(t, "EmbeddingPolicy", entries[0].Name)
	assert.True(t, entries[0].Deprecated)
	assert.Equal(t, "TEDPolicy", entries[0].Replacement)

	assert.Equal(t, "TEDPolicy", entries[1].Name)
	assert.False(t, entries[1].Deprecated)
}

func TestBuildDeprecatedWarnsOnce(t *testing.T) {
	r := New()
	RegisterBuiltins(r)
	e, n := countingEmitter()

	p, err := r.Build("EmbeddingPolicy", ted.Args{Overrides: map[string]any{"epochs": 5}}, e)
	require.NoError(t, err)

	assert.Equal(t, "TEDPolicy", p.Name())
	assert.Equal(t, 1, *n)

	_, err = r.Build("TEDPolicy", ted.Args{}, e)
	require.NoError(t, err)
	assert.Equal(t, 1, *n, "the replacement does not warn")
}

func TestBuildAliasAndReplacementAgree(t *testing.T) {
	r := New()
	RegisterBuiltins(r)
	e, _ := countingEmitter()
	args := ted.Args{Priority: ted.Int(2), MaxHistory: ted.Int(5), Overrides: map[string]any{"embedding_dimension": 30}}

	alias, err := r.Build("EmbeddingPolicy", args, e)
	require.NoError(t, err)
	direct, err := r.Build("TEDPolicy", args, e)
	require.NoError(t, err)

	assert.Equal(t, direct.Priority(), alias.Priority())
	assert.Equal(t, direct.(policy.Configurable).ConfigMap(), alias.(policy.Configurable).ConfigMap())
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, Default(), Default())

	_, ok := Default().Get("EmbeddingPolicy")
	assert.True(t, ok)
}
