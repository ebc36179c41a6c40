package loam

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Metadata is the frontmatter of a world document. Keys follow the YAML
// atlas field names (connections, properties, yields, ...), plus "type"
// naming the record kind.
type Metadata map[string]any

// Record kinds.
const (
	KindContext  = "context"
	KindTrigger  = "trigger"
	KindConcept  = "concept"
	KindPersona  = "persona"
	KindLocation = "location"
)

// dirKinds infers the kind of a document without a "type" key from its
// top-level folder.
var dirKinds = map[string]string{
	"contexts":  KindContext,
	"triggers":  KindTrigger,
	"concepts":  KindConcept,
	"personas":  KindPersona,
	"locations": KindLocation,
	"regions":   KindLocation,
}

func (m Metadata) str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// decode maps frontmatter onto a domain record. Strict loam repositories
// hand numbers over as json.Number, which weak decoding accepts.
func decode(in Metadata, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(equipmentHook, positionHook),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(in))
}

var (
	equipmentType = reflect.TypeOf(domain.Equipment{})
	positionType  = reflect.TypeOf(domain.Position{})
)

// equipmentHook accepts equipment written as a category mapping. Frontmatter
// maps lose key order, so categories come out sorted by name; use the list
// form when item lookup order matters.
func equipmentHook(from, to reflect.Type, data any) (any, error) {
	if to != equipmentType || from.Kind() != reflect.Map {
		return data, nil
	}
	raw := reflect.ValueOf(data)
	keys := make([]string, 0, raw.Len())
	byKey := make(map[string]any, raw.Len())
	for _, k := range raw.MapKeys() {
		name := fmt.Sprint(k.Interface())
		keys = append(keys, name)
		byKey[name] = raw.MapIndex(k).Interface()
	}
	sort.Strings(keys)
	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]any{"category": k, "items": byKey[k]})
	}
	return out, nil
}

// positionHook accepts [x, y].
func positionHook(from, to reflect.Type, data any) (any, error) {
	if to != positionType || (from.Kind() != reflect.Slice && from.Kind() != reflect.Array) {
		return data, nil
	}
	v := reflect.ValueOf(data)
	if v.Len() != 2 {
		return nil, fmt.Errorf("position: want 2 coordinates, got %d", v.Len())
	}
	return map[string]any{"x": v.Index(0).Interface(), "y": v.Index(1).Interface()}, nil
}
