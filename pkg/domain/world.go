package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DirectionBidirectional marks a connection that can be traversed both ways.
const DirectionBidirectional = "bidirectional"

// Connection is a directed edge between two contexts (or two locations).
type Connection struct {
	To        string `json:"to" yaml:"to" mapstructure:"to"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty" mapstructure:"direction"`
}

// Bidirectional reports whether the reverse edge exists as well.
func (c Connection) Bidirectional() bool {
	return c.Direction == DirectionBidirectional
}

// UnlockAction describes a named multi-requirement unlock ("deploy-*") offered by a context.
type UnlockAction struct {
	Action   string   `json:"action" yaml:"action" mapstructure:"action"`
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty" mapstructure:"requires"`
}

// ContextProperties holds the gating and effect data of a dialogue context.
type ContextProperties struct {
	IsLocked        bool           `json:"is_locked,omitempty" yaml:"is_locked,omitempty" mapstructure:"is_locked"`
	RequiredConcept string         `json:"required_concept,omitempty" yaml:"required_concept,omitempty" mapstructure:"required_concept"`
	RequiredCombo   []string       `json:"required_combo,omitempty" yaml:"required_combo,omitempty" mapstructure:"required_combo"`
	ProvidesConcept string         `json:"provides_concept,omitempty" yaml:"provides_concept,omitempty" mapstructure:"provides_concept"`
	InducesMood     string         `json:"induces_mood,omitempty" yaml:"induces_mood,omitempty" mapstructure:"induces_mood"`
	IsStart         bool           `json:"is_start,omitempty" yaml:"is_start,omitempty" mapstructure:"is_start"`
	Difficulty      float64        `json:"difficulty,omitempty" yaml:"difficulty,omitempty" mapstructure:"difficulty"`
	UnlockActions   []UnlockAction `json:"unlock_actions,omitempty" yaml:"unlock_actions,omitempty" mapstructure:"unlock_actions"`
}

// HasCombo reports whether the context is gated by a two-concept combination.
func (p ContextProperties) HasCombo() bool {
	return len(p.RequiredCombo) == 2 && p.RequiredCombo[0] != "" && p.RequiredCombo[1] != ""
}

// Context is a node of the dialogue graph.
type Context struct {
	ID          string            `json:"id" yaml:"id" mapstructure:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Connections []Connection      `json:"connections,omitempty" yaml:"connections,omitempty" mapstructure:"connections"`
	Properties  ContextProperties `json:"properties" yaml:"properties,omitempty" mapstructure:"properties"`
}

// TriggerProperties holds side effects of activating a trigger.
type TriggerProperties struct {
	ProvidesSharedItems []string `json:"provides_shared_items,omitempty" yaml:"provides_shared_items,omitempty" mapstructure:"provides_shared_items"`
}

// Trigger is a conversational beat that yields a concept when activated.
// An empty ParentContext makes the trigger global.
type Trigger struct {
	ID            string            `json:"id" yaml:"id" mapstructure:"id"`
	ParentContext string            `json:"parent_context,omitempty" yaml:"parent_context,omitempty" mapstructure:"parent_context"`
	Requires      string            `json:"requires,omitempty" yaml:"requires,omitempty" mapstructure:"requires"`
	RequiredTag   string            `json:"required_tag,omitempty" yaml:"required_tag,omitempty" mapstructure:"required_tag"`
	Yields        string            `json:"yields,omitempty" yaml:"yields,omitempty" mapstructure:"yields"`
	Properties    TriggerProperties `json:"properties" yaml:"properties,omitempty" mapstructure:"properties"`
}

// Global reports whether the trigger fires from any context.
func (t Trigger) Global() bool {
	return t.ParentContext == ""
}

// Concept is a unit of knowledge owned by the player.
type Concept struct {
	ID   string `json:"id" yaml:"id" mapstructure:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
}

// BehaviorRule is a mood-gated persona action, optionally requiring a tagged item.
type BehaviorRule struct {
	ID                 string `json:"id" yaml:"id" mapstructure:"id"`
	Mood               string `json:"mood" yaml:"mood" mapstructure:"mood"`
	RequiresHoldingTag string `json:"requires_holding_tag,omitempty" yaml:"requires_holding_tag,omitempty" mapstructure:"requires_holding_tag"`
	RequiresWearingTag string `json:"requires_wearing_tag,omitempty" yaml:"requires_wearing_tag,omitempty" mapstructure:"requires_wearing_tag"`
}

// Tag returns the item tag the rule needs, if any.
func (r BehaviorRule) Tag() string {
	if r.RequiresHoldingTag != "" {
		return r.RequiresHoldingTag
	}
	return r.RequiresWearingTag
}

// Worn reports whether the required tag must come from worn equipment.
func (r BehaviorRule) Worn() bool {
	return r.RequiresHoldingTag == "" && r.RequiresWearingTag != ""
}

// Item is a piece of persona equipment.
type Item struct {
	ID       string   `json:"id" yaml:"id" mapstructure:"id"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	PDDLTags []string `json:"pddl_tags,omitempty" yaml:"pddl_tags,omitempty" mapstructure:"pddl_tags"`
}

// HasTag reports whether the item carries tag.
func (i Item) HasTag(tag string) bool {
	for _, t := range i.PDDLTags {
		if t == tag {
			return true
		}
	}
	return false
}

// CategoryClothes is the only equipment category treated as worn.
const CategoryClothes = "clothes"

// EquipmentCategory groups items under a category name.
type EquipmentCategory struct {
	Category string `json:"category" yaml:"category" mapstructure:"category"`
	Items    []Item `json:"items" yaml:"items" mapstructure:"items"`
}

// Worn reports whether items of this category are worn rather than held.
func (c EquipmentCategory) Worn() bool {
	return c.Category == CategoryClothes
}

// Equipment is an ordered list of categories. Declaration order matters:
// item lookups by tag return the first match in this order.
type Equipment []EquipmentCategory

// FindByTag returns the first item carrying tag among worn (worn=true) or held categories.
func (e Equipment) FindByTag(tag string, worn bool) (Item, bool) {
	items := e.ItemsByTag(tag, worn)
	if len(items) == 0 {
		return Item{}, false
	}
	return items[0], true
}

// ItemsByTag returns every item carrying tag among worn (worn=true) or held
// categories, in declaration order. An item listed twice is returned once.
func (e Equipment) ItemsByTag(tag string, worn bool) []Item {
	var out []Item
	seen := NewSet()
	for _, cat := range e {
		if cat.Worn() != worn {
			continue
		}
		for _, item := range cat.Items {
			if item.HasTag(tag) && seen.Add(item.ID) {
				out = append(out, item)
			}
		}
	}
	return out
}

// UnmarshalYAML accepts either an ordered mapping of category to items
// or a sequence of {category, items} records.
func (e *Equipment) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var cats []EquipmentCategory
		if err := node.Decode(&cats); err != nil {
			return err
		}
		*e = cats
		return nil
	case yaml.MappingNode:
		cats := make(Equipment, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var items []Item
			if err := node.Content[i+1].Decode(&items); err != nil {
				return fmt.Errorf("equipment category %q: %w", node.Content[i].Value, err)
			}
			cats = append(cats, EquipmentCategory{Category: node.Content[i].Value, Items: items})
		}
		*e = cats
		return nil
	default:
		return fmt.Errorf("equipment: unexpected yaml node kind %d", node.Kind)
	}
}

// Persona is the NPC the player is talking to.
type Persona struct {
	ID             string                    `json:"id" yaml:"id" mapstructure:"id"`
	Name           string                    `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Tags           []string                  `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`
	StartContext   string                    `json:"start_context,omitempty" yaml:"start_context,omitempty" mapstructure:"start_context"`
	BehaviorRules  []BehaviorRule            `json:"behavior_rules,omitempty" yaml:"behavior_rules,omitempty" mapstructure:"behavior_rules"`
	Equipment      Equipment                 `json:"equipment,omitempty" yaml:"equipment,omitempty" mapstructure:"equipment"`
	WorldOverrides map[string]map[string]any `json:"world_overrides,omitempty" yaml:"world_overrides,omitempty" mapstructure:"world_overrides"`
}

// HasTag reports whether the persona carries tag.
func (p Persona) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Position is a 2D coordinate on the world map.
type Position struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
}

// UnmarshalYAML accepts [x, y] as well as {x: .., y: ..}.
func (p *Position) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var xy []float64
		if err := node.Decode(&xy); err != nil {
			return err
		}
		if len(xy) != 2 {
			return fmt.Errorf("position: want 2 coordinates, got %d", len(xy))
		}
		p.X, p.Y = xy[0], xy[1]
		return nil
	}
	type plain Position
	return node.Decode((*plain)(p))
}

// LocationProperties holds gating and layout data of a map location.
type LocationProperties struct {
	IsLocked        bool      `json:"is_locked,omitempty" yaml:"is_locked,omitempty" mapstructure:"is_locked"`
	RequiredConcept string    `json:"required_concept,omitempty" yaml:"required_concept,omitempty" mapstructure:"required_concept"`
	Position        *Position `json:"position,omitempty" yaml:"position,omitempty" mapstructure:"position"`
	MovementCost    float64   `json:"movement_cost,omitempty" yaml:"movement_cost,omitempty" mapstructure:"movement_cost"`
}

// Location is a node of the physical world map.
type Location struct {
	ID          string             `json:"id" yaml:"id" mapstructure:"id"`
	Name        string             `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Connections []Connection       `json:"connections,omitempty" yaml:"connections,omitempty" mapstructure:"connections"`
	Contains    []string           `json:"contains,omitempty" yaml:"contains,omitempty" mapstructure:"contains"`
	Properties  LocationProperties `json:"properties" yaml:"properties,omitempty" mapstructure:"properties"`
}

// World is the raw, unindexed content produced by a loader.
type World struct {
	Contexts  []Context  `json:"contexts,omitempty"`
	Triggers  []Trigger  `json:"triggers,omitempty"`
	Concepts  []Concept  `json:"concepts,omitempty"`
	Personas  []Persona  `json:"personas,omitempty"`
	Locations []Location `json:"locations,omitempty"`
}

// Merge appends other's records to w.
func (w *World) Merge(other World) {
	w.Contexts = append(w.Contexts, other.Contexts...)
	w.Triggers = append(w.Triggers, other.Triggers...)
	w.Concepts = append(w.Concepts, other.Concepts...)
	w.Personas = append(w.Personas, other.Personas...)
	w.Locations = append(w.Locations, other.Locations...)
}
