package domain

// StateDiff describes the side effects of a transition between two dialogue states.
// It is serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id,omitempty"`

	CurrentContext *string `json:"current_context,omitempty"`
	CurrentMood    *string `json:"current_mood,omitempty"`

	// Set deltas only carry additions: every set of the dialogue state is append-only.
	Concepts    []string `json:"concepts,omitempty"`
	Visited     []string `json:"visited,omitempty"`
	Unlocked    []string `json:"unlocked,omitempty"`
	Exhausted   []string `json:"exhausted,omitempty"`
	SharedItems []string `json:"shared_items,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *DialogueState) *StateDiff {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		oldState = &DialogueState{}
	}

	diff := &StateDiff{SessionID: newState.SessionID}

	if oldState.CurrentContext != newState.CurrentContext {
		ctx := newState.CurrentContext
		diff.CurrentContext = &ctx
	}
	if oldState.CurrentMood != newState.CurrentMood {
		mood := newState.CurrentMood
		diff.CurrentMood = &mood
	}

	diff.Concepts = newState.OwnedConcepts.Minus(oldState.OwnedConcepts)
	diff.Visited = newState.Visited.Minus(oldState.Visited)
	diff.Unlocked = newState.UnlockedContexts.Minus(oldState.UnlockedContexts)
	diff.Exhausted = newState.ExhaustedTriggers.Minus(oldState.ExhaustedTriggers)
	diff.SharedItems = newState.SharedItems.Minus(oldState.SharedItems)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentContext == nil &&
		d.CurrentMood == nil &&
		len(d.Concepts) == 0 &&
		len(d.Visited) == 0 &&
		len(d.Unlocked) == 0 &&
		len(d.Exhausted) == 0 &&
		len(d.SharedItems) == 0
}
