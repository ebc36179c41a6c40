package atlas

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"gopkg.in/yaml.v3"
)

// TypePersonaGroup marks a persona file holding several personas.
const TypePersonaGroup = "persona_group"

// Loader reads a world from a directory of YAML atlases.
//
// Two layouts are understood. The flat one:
//
//	<dir>/personas/*.yaml   persona atlases (persona_group or single persona)
//	<dir>/contexts/*.yaml   one context per file, id defaults to the file stem
//	<dir>/triggers/*.yaml   one trigger per file, id defaults to the file stem
//	<dir>/concepts/*.yaml   one concept per file, or a concepts.yaml list
//	<dir>/regions/*.yaml    region atlases with a locations list
//
// and the nested one, where the social files live under social_world/nodes
// and the regions under world/nodes.
//
// Records are merged by id in load order: atlases first, then single-record
// files. A later record replaces an earlier one in place.
type Loader struct {
	dir    string
	strict bool
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Loader) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithStrict controls malformed file handling. Strict loaders (the default)
// fail the whole load; lenient ones log the file and skip it.
func WithStrict(strict bool) Option {
	return func(a *Loader) { a.strict = strict }
}

// New creates a loader rooted at dir.
func New(dir string, opts ...Option) *Loader {
	l := &Loader{dir: dir, strict: true, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the root directory.
func (l *Loader) Dir() string { return l.dir }

type personaEntry struct {
	domain.Persona `yaml:",inline"`
	Contexts       []domain.Context `yaml:"contexts,omitempty"`
	Triggers       []domain.Trigger `yaml:"triggers,omitempty"`
	Concepts       []domain.Concept `yaml:"concepts,omitempty"`
}

type personaFile struct {
	Type     string           `yaml:"type"`
	Personas []personaEntry   `yaml:"personas"`
	Concepts []domain.Concept `yaml:"concepts"`
}

type regionFile struct {
	ID        string           `yaml:"id"`
	Locations []locationRecord `yaml:"locations"`
}

// locationRecord accepts contains either as a flat id list or grouped by
// category (npcs, items, objects).
type locationRecord struct {
	domain.Location `yaml:",inline"`
}

func (r *locationRecord) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ID          string                    `yaml:"id"`
		Name        string                    `yaml:"name"`
		Connections []domain.Connection       `yaml:"connections"`
		Contains    yaml.Node                 `yaml:"contains"`
		Properties  domain.LocationProperties `yaml:"properties"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	r.Location = domain.Location{ID: raw.ID, Name: raw.Name, Connections: raw.Connections, Properties: raw.Properties}
	contains, err := decodeContains(&raw.Contains)
	if err != nil {
		return fmt.Errorf("location %q: %w", raw.ID, err)
	}
	r.Contains = contains
	return nil
}

func decodeContains(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.SequenceNode:
		var out []string
		for _, item := range node.Content {
			id, err := entityID(item)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
		return out, nil
	case yaml.MappingNode:
		var out []string
		for i := 0; i+1 < len(node.Content); i += 2 {
			ids, err := decodeContains(node.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("contains.%s: %w", node.Content[i].Value, err)
			}
			out = append(out, ids...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("contains: unexpected yaml node kind %d", node.Kind)
	}
}

// entityID accepts "id" or {id: ...}.
func entityID(node *yaml.Node) (string, error) {
	if node.Kind == yaml.ScalarNode {
		return node.Value, nil
	}
	var e struct {
		ID string `yaml:"id"`
	}
	if err := node.Decode(&e); err != nil {
		return "", err
	}
	if e.ID == "" {
		return "", errors.New("contained entity without id")
	}
	return e.ID, nil
}

// Load implements ports.WorldLoader.
func (l *Loader) Load(ctx context.Context) (domain.World, error) {
	if _, err := os.Stat(l.dir); err != nil {
		return domain.World{}, fmt.Errorf("atlas dir: %w", err)
	}
	social := l.root("social_world", "nodes")
	physical := l.root("world", "nodes")

	b := newBuilder()
	steps := []struct {
		dir  string
		read func(path, stem string, b *builder) error
	}{
		{filepath.Join(social, "personas"), readPersonaFile},
		{filepath.Join(social, "contexts"), readContextFile},
		{filepath.Join(social, "triggers"), readTriggerFile},
		{filepath.Join(social, "concepts"), readConceptFile},
		{filepath.Join(physical, "regions"), readRegionFile},
	}
	for _, step := range steps {
		if err := l.readDir(ctx, step.dir, b, step.read); err != nil {
			return domain.World{}, err
		}
	}
	list := filepath.Join(social, "concepts.yaml")
	if _, err := os.Stat(list); err == nil {
		if err := l.guard(list, readConceptList(list, b)); err != nil {
			return domain.World{}, err
		}
	}

	w := b.world()
	l.logger.Debug("atlas loaded", "dir", l.dir,
		"contexts", len(w.Contexts), "triggers", len(w.Triggers),
		"personas", len(w.Personas), "locations", len(w.Locations))
	return w, nil
}

// root returns dir/<parts...> when it exists, else dir.
func (l *Loader) root(parts ...string) string {
	nested := filepath.Join(append([]string{l.dir}, parts...)...)
	if info, err := os.Stat(nested); err == nil && info.IsDir() {
		return nested
	}
	return l.dir
}

func (l *Loader) readDir(ctx context.Context, dir string, b *builder, read func(path, stem string, b *builder) error) error {
	files, err := yamlFiles(dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := l.guard(path, read(path, stem, b)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) guard(path string, err error) error {
	if err == nil {
		return nil
	}
	if l.strict {
		return fmt.Errorf("load %s: %w", path, err)
	}
	l.logger.Error("skipping malformed atlas file", "path", path, "err", err)
	return nil
}

// yamlFiles lists *.yaml and *.yml files of dir in name order.
// A missing directory yields nothing.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func readPersonaFile(path, stem string, b *builder) error {
	var head personaFile
	if err := decodeFile(path, &head); err != nil {
		return err
	}
	if head.Type == TypePersonaGroup {
		for _, c := range head.Concepts {
			b.concept(c)
		}
		for _, p := range head.Personas {
			if p.ID == "" {
				return errors.New("persona_group entry without id")
			}
			b.persona(p)
		}
		return nil
	}

	var single personaEntry
	if err := decodeFile(path, &single); err != nil {
		return err
	}
	if single.ID == "" {
		single.ID = stem
	}
	b.persona(single)
	return nil
}

func readContextFile(path, stem string, b *builder) error {
	var c domain.Context
	if err := decodeFile(path, &c); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = stem
	}
	b.context(c)
	return nil
}

func readTriggerFile(path, stem string, b *builder) error {
	var t domain.Trigger
	if err := decodeFile(path, &t); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = stem
	}
	b.trigger(t)
	return nil
}

func readConceptFile(path, stem string, b *builder) error {
	var c domain.Concept
	if err := decodeFile(path, &c); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = stem
	}
	b.concept(c)
	return nil
}

// readConceptList reads either a bare list or {concepts: [...]}.
func readConceptList(path string, b *builder) error {
	var node yaml.Node
	if err := decodeFile(path, &node); err != nil {
		return err
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil
	}
	doc := node.Content[0]
	var list []domain.Concept
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&list); err != nil {
			return err
		}
	case yaml.MappingNode:
		var wrapped struct {
			Concepts []domain.Concept `yaml:"concepts"`
		}
		if err := doc.Decode(&wrapped); err != nil {
			return err
		}
		list = wrapped.Concepts
	default:
		return errors.New("concepts: expected a list or a mapping")
	}
	for _, c := range list {
		b.concept(c)
	}
	return nil
}

func readRegionFile(path, _ string, b *builder) error {
	var r regionFile
	if err := decodeFile(path, &r); err != nil {
		return err
	}
	for _, loc := range r.Locations {
		if loc.ID == "" {
			continue
		}
		b.location(loc.Location)
	}
	return nil
}
