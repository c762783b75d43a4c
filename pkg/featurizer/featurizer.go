// Package featurizer describes how a dialogue tracker is cut into training
// states. The descriptors carry configuration only; turning tracker states
// into feature vectors is done by the training framework.
package featurizer

const (
	// NameMaxHistory identifies a featurizer that looks at a bounded window
	// of past turns.
	NameMaxHistory = "MaxHistoryTrackerFeaturizer"

	// NameFullDialogue identifies a featurizer that looks at the whole
	// conversation.
	NameFullDialogue = "FullDialogueTrackerFeaturizer"
)

// TrackerFeaturizer is the featurizer collaborator a policy is built with.
type TrackerFeaturizer interface {
	Name() string
	// MaxHistory returns the window size, or nil when the whole dialogue is
	// used.
	MaxHistory() *int
}

type descriptor struct {
	name       string
	maxHistory *int
}

func (d descriptor) Name() string { return d.name }

func (d descriptor) MaxHistory() *int {
	if d.maxHistory == nil {
		return nil
	}

	n := *d.maxHistory
	return &n
}

// MaxHistory returns a featurizer limited to the last n turns.
func MaxHistory(n int) TrackerFeaturizer {
	return descriptor{name: NameMaxHistory, maxHistory: &n}
}

// FullDialogue returns a featurizer that uses every turn of the dialogue.
func FullDialogue() TrackerFeaturizer {
	return descriptor{name: NameFullDialogue}
}

// ByName reconstructs a descriptor from its persisted name. It returns false
// for names it does not know.
func ByName(name string, maxHistory *int) (TrackerFeaturizer, bool) {
	switch name {
	case NameMaxHistory:
		if maxHistory == nil {
			return nil, false
		}
		return MaxHistory(*maxHistory), true
	case NameFullDialogue:
		return FullDialogue(), true
	default:
		return nil, false
	}
}
