// Package policy holds the pieces every dialogue policy shares: the default
// priority, the documentation location used in user-facing notices, and the
// interfaces for the collaborators a policy is constructed with.
package policy

import (
	"os"
	"strings"

	"github.com/germanamz/dialogue/pkg/featurizer"
)

// DefaultPriority is used when a policy is configured without an explicit
// priority. Higher priorities win ties between equally confident policies.
const DefaultPriority = 1

// defaultDocsBaseURL is the documentation root used when DIALOGUE_DOCS_URL is
// not set.
const defaultDocsBaseURL = "https://rasa.com/docs/rasa"

// DocsBaseURL returns the documentation root without a trailing slash.
// It can be overridden with the DIALOGUE_DOCS_URL environment variable.
func DocsBaseURL() string {
	if s := strings.TrimSpace(os.Getenv("DIALOGUE_DOCS_URL")); s != "" {
		return strings.TrimRight(s, "/")
	}

	return defaultDocsBaseURL
}

// Policy is a constructed dialogue policy.
type Policy interface {
	Name() string
	Priority() int
	Featurizer() featurizer.TrackerFeaturizer
}

// Configurable is implemented by policies that expose their resolved
// hyperparameters.
type Configurable interface {
	ConfigMap() map[string]any
}

// Model is an opaque, already trained model a policy can be constructed
// around instead of training one.
type Model interface {
	Name() string
}
