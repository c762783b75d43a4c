package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/germanamz/dialogue/pkg/modeldir"
	"github.com/germanamz/dialogue/pkg/ted"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
policies:
  - name: EmbeddingPolicy
    priority: 3
    max_history: 5
    epochs: 100
  - name: TEDPolicy
`

func newTestEnv(t *testing.T, config string) (*env, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))

	var out, errOut bytes.Buffer
	e := newEnv(&commonOptions{configPath: path}, &out, &errOut)

	return e, &out, &errOut
}

func TestRunList(t *testing.T) {
	e, out, _ := newTestEnv(t, testConfig)

	require.NoError(t, runList(e))

	assert.Contains(t, out.String(), "EmbeddingPolicy")
	assert.Contains(t, out.String(), "(deprecated, use TEDPolicy)")
	assert.Contains(t, out.String(), "TEDPolicy")
}

func TestRunValidate(t *testing.T) {
	e, out, errOut := newTestEnv(t, testConfig)

	require.NoError(t, runValidate(e))

	assert.Contains(t, out.String(), "EmbeddingPolicy -> TEDPolicy")
	assert.Contains(t, out.String(), "priority 3")
	assert.Contains(t, out.String(), "2 policies OK, 1 warnings")
	assert.Contains(t, errOut.String(), "'EmbeddingPolicy' is deprecated. Use 'TEDPolicy' instead.")
}

func TestRunValidateCountsWarnings(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   string
	}{
		{"none", "policies:\n  - name: TEDPolicy\n", "1 policies OK, 0 warnings"},
		{"shared priority", "policies:\n  - name: TEDPolicy\n  - name: TEDPolicy\n    epochs: 2\n", "2 policies OK, 1 warnings"},
		{"deprecated and shared priority", "policies:\n  - name: EmbeddingPolicy\n  - name: TEDPolicy\n", "2 policies OK, 2 warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, out, _ := newTestEnv(t, tt.config)

			require.NoError(t, runValidate(e))

			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestRunValidateInvalid(t *testing.T) {
	e, _, _ := newTestEnv(t, "policies:\n  - name: TEDPolicy\n    loss_type: hinge\n")

	err := runValidate(e)

	require.Error(t, err)
	assert.ErrorIs(t, err, ted.ErrInvalidConfig)
}

func TestRunShow(t *testing.T) {
	e, out, _ := newTestEnv(t, testConfig)

	require.NoError(t, runShow(e))

	assert.Contains(t, out.String(), "name: EmbeddingPolicy")
	assert.Contains(t, out.String(), "policy: TEDPolicy")
	assert.Contains(t, out.String(), "max_history: 5")
	assert.Contains(t, out.String(), "epochs: 100")
	assert.Contains(t, out.String(), "similarity_type: inner")
}

func TestRunDiff(t *testing.T) {
	e, out, _ := newTestEnv(t, testConfig)

	require.NoError(t, runDiff(e))

	assert.Contains(t, out.String(), "-epochs: 1")
	assert.Contains(t, out.String(), "+epochs: 100")
	assert.NotContains(t, out.String(), "similarity_type")
	assert.Contains(t, out.String(), "same as defaults")
}

func TestRunDiffResolvedDefaults(t *testing.T) {
	e, out, _ := newTestEnv(t, "policies:\n  - name: TEDPolicy\n")

	require.NoError(t, runDiff(e))

	assert.Contains(t, out.String(), "same as defaults")
	assert.NotContains(t, out.String(), "@@")
}

func TestRunPersist(t *testing.T) {
	e, out, _ := newTestEnv(t, testConfig)
	dir := t.TempDir()

	require.NoError(t, runPersist(e, dir))

	d := modeldir.New(filepath.Join(dir, "policy_0_TEDPolicy"))
	assert.Equal(t, []string{"TEDPolicy"}, d.Policies())

	loaded, err := ted.Load(d.Root())
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Priority())
	assert.Equal(t, 100, loaded.Config().Epochs)

	assert.Contains(t, out.String(), "policy_1_TEDPolicy")
}

func TestRunMissingConfig(t *testing.T) {
	var out, errOut bytes.Buffer
	e := newEnv(&commonOptions{configPath: "/no/such/config.yml"}, &out, &errOut)

	assert.Error(t, runValidate(e))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DIALOGUE_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DIALOGUE_TEST_DOTENV") })

	require.NoError(t, loadDotEnv(path))

	assert.Equal(t, "loaded", os.Getenv("DIALOGUE_TEST_DOTENV"))
}
