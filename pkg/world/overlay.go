package world

import (
	"fmt"
	"sort"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// overlay returns a shallow copy of s whose contexts carry p's world overrides.
// Override keys are merged into the context properties, except name and
// description which replace the top-level fields. A nested "properties" map is
// merged the same way.
func (s *Store) overlay(p domain.Persona) (*Store, error) {
	view := *s
	view.persona = &p
	view.overlays = nil

	if len(p.WorldOverrides) == 0 {
		return &view, nil
	}

	view.contexts = make(map[string]domain.Context, len(s.contexts))
	for id, c := range s.contexts {
		view.contexts[id] = c
	}

	ids := make([]string, 0, len(p.WorldOverrides))
	for id := range p.WorldOverrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		base, ok := view.contexts[id]
		if !ok {
			// Overrides for unknown contexts are reported by the validator.
			continue
		}
		merged, err := ApplyOverride(base, p.WorldOverrides[id])
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", id, err)
		}
		view.contexts[id] = merged
	}
	return &view, nil
}

// ApplyOverride merges override keys into c and returns the result. c is not modified.
func ApplyOverride(c domain.Context, override map[string]any) (domain.Context, error) {
	props := make(map[string]any)
	if err := mapstructure.Decode(c.Properties, &props); err != nil {
		return c, fmt.Errorf("flatten properties: %w", err)
	}

	merge := func(src map[string]any) error {
		for k, v := range src {
			switch k {
			case "name":
				if err := decodeWeak(v, &c.Name); err != nil {
					return fmt.Errorf("name: %w", err)
				}
			case "description":
				if err := decodeWeak(v, &c.Description); err != nil {
					return fmt.Errorf("description: %w", err)
				}
			default:
				props[k] = v
			}
		}
		return nil
	}

	nested, hasNested := override["properties"].(map[string]any)
	top := make(map[string]any, len(override))
	for k, v := range override {
		if k == "properties" && hasNested {
			continue
		}
		top[k] = v
	}
	if err := merge(top); err != nil {
		return c, err
	}
	if hasNested {
		if err := merge(nested); err != nil {
			return c, err
		}
	}

	var out domain.ContextProperties
	if err := decodeWeak(props, &out); err != nil {
		return c, fmt.Errorf("properties: %w", err)
	}
	c.Properties = out
	return c, nil
}

func decodeWeak(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
