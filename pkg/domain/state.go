package domain

// MoodNeutral is the mood a dialogue starts in.
const MoodNeutral = "neutral"

// DialogueState is the mutable snapshot of one player/persona interaction.
// It is changed only by applying moves.
type DialogueState struct {
	SessionID string `json:"session_id,omitempty"`

	// CurrentContext is always a valid context id of the loaded world.
	CurrentContext string `json:"current_context"`

	// OwnedConcepts only grows.
	OwnedConcepts Set `json:"owned_concepts"`

	Visited Set `json:"visited"`

	// UnlockedContexts holds statically locked contexts opened during play.
	UnlockedContexts Set `json:"unlocked_contexts"`

	ExhaustedTriggers Set `json:"exhausted_triggers"`

	CurrentMood string `json:"current_mood"`

	SharedItems Set `json:"shared_items"`

	ActivePersona string `json:"active_persona,omitempty"`

	// ActiveQuest and Gold feed the NPC initiative policy.
	ActiveQuest string `json:"active_quest,omitempty"`
	Gold        int    `json:"gold,omitempty"`

	// Sealed holds an encrypted snapshot of the whole state when the session
	// store seals at rest. The other fields of such an envelope are empty.
	Sealed string `json:"sealed,omitempty"`
}

// NewDialogueState creates a state positioned at start, with start visited.
func NewDialogueState(persona, start string) *DialogueState {
	return &DialogueState{
		CurrentContext:    start,
		OwnedConcepts:     NewSet(),
		Visited:           NewSet(start),
		UnlockedContexts:  NewSet(),
		ExhaustedTriggers: NewSet(),
		CurrentMood:       MoodNeutral,
		SharedItems:       NewSet(),
		ActivePersona:     persona,
	}
}

// Clone returns a deep copy.
func (s *DialogueState) Clone() *DialogueState {
	if s == nil {
		return nil
	}
	c := *s
	c.OwnedConcepts = s.OwnedConcepts.Clone()
	c.Visited = s.Visited.Clone()
	c.UnlockedContexts = s.UnlockedContexts.Clone()
	c.ExhaustedTriggers = s.ExhaustedTriggers.Clone()
	c.SharedItems = s.SharedItems.Clone()
	return &c
}

// Normalize replaces nil sets (e.g. after decoding a sparse document) with empty ones.
func (s *DialogueState) Normalize() {
	if s.OwnedConcepts == nil {
		s.OwnedConcepts = NewSet()
	}
	if s.Visited == nil {
		s.Visited = NewSet()
	}
	if s.UnlockedContexts == nil {
		s.UnlockedContexts = NewSet()
	}
	if s.ExhaustedTriggers == nil {
		s.ExhaustedTriggers = NewSet()
	}
	if s.SharedItems == nil {
		s.SharedItems = NewSet()
	}
	if s.CurrentMood == "" {
		s.CurrentMood = MoodNeutral
	}
}

// PlayerState is the physical-mode snapshot used for world navigation.
type PlayerState struct {
	PlayerID            string         `json:"player_id"`
	CurrentLocation     string         `json:"current_location"`
	Inventory           map[string]int `json:"inventory,omitempty"`
	Abilities           map[string]int `json:"abilities,omitempty"`
	DiscoveredLocations Set            `json:"discovered_locations,omitempty"`
}

// HasAbility reports whether the player has ability at any level.
func (p PlayerState) HasAbility(ability string) bool {
	return p.Abilities[ability] > 0
}

// HasItem reports whether the inventory holds at least one of item.
func (p PlayerState) HasItem(item string) bool {
	return p.Inventory[item] > 0
}
