package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader adapts a Loam repository to the ports.WorldLoader interface.
// Every document is one world record: frontmatter carries the fields, the
// body becomes the description of a context.
type Loader struct {
	Repo   *loam.TypedRepository[Metadata]
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[Metadata], opts ...Option) *Loader {
	l := &Loader{Repo: repo, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open initializes a read-only, strict Loam repository at path and wraps it.
func Open(path string, opts ...Option) (*Loader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(abs,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[Metadata](repo), opts...), nil
}

// Load implements ports.WorldLoader.
func (l *Loader) Load(ctx context.Context) (domain.World, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return domain.World{}, fmt.Errorf("loam list failed: %w", err)
	}

	type entry struct {
		id, path, kind, body string
		meta                 Metadata
	}
	seen := make(map[string]string)
	entries := make([]entry, 0, len(docs))
	for _, doc := range docs {
		meta := doc.Data
		if meta == nil {
			meta = Metadata{}
		}
		kind := meta.str("type")
		if kind == "" {
			kind = dirKinds[topDir(doc.ID)]
		}
		if kind == "" {
			l.logger.Debug("skipping untyped document", "doc", doc.ID)
			continue
		}

		rawID := meta.str("id")
		if rawID == "" {
			rawID = filepath.Base(doc.ID)
		}
		id := trimExtension(rawID)

		key := kind + "/" + id
		if existing, ok := seen[key]; ok {
			return domain.World{}, fmt.Errorf("collision detected: %s '%s' is defined in both '%s' and '%s'", kind, id, existing, doc.ID)
		}
		seen[key] = doc.ID
		entries = append(entries, entry{id: id, path: doc.ID, kind: kind, body: strings.TrimSpace(doc.Content), meta: meta})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	var w domain.World
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return domain.World{}, err
		}
		fields := make(Metadata, len(e.meta))
		for k, v := range e.meta {
			if k != "type" {
				fields[k] = v
			}
		}
		fields["id"] = e.id

		if err := l.add(&w, e.kind, fields, e.body); err != nil {
			return domain.World{}, fmt.Errorf("decode %s: %w", e.path, err)
		}
	}
	return w, nil
}

func (l *Loader) add(w *domain.World, kind string, fields Metadata, body string) error {
	switch kind {
	case KindContext:
		var c domain.Context
		if err := decode(fields, &c); err != nil {
			return err
		}
		if c.Description == "" {
			c.Description = body
		}
		w.Contexts = append(w.Contexts, c)
	case KindTrigger:
		var t domain.Trigger
		if err := decode(fields, &t); err != nil {
			return err
		}
		w.Triggers = append(w.Triggers, t)
	case KindConcept:
		var c domain.Concept
		if err := decode(fields, &c); err != nil {
			return err
		}
		w.Concepts = append(w.Concepts, c)
	case KindPersona:
		var p domain.Persona
		if err := decode(fields, &p); err != nil {
			return err
		}
		w.Personas = append(w.Personas, p)
	case KindLocation:
		var loc domain.Location
		if err := decode(fields, &loc); err != nil {
			return err
		}
		w.Locations = append(w.Locations, loc)
	default:
		return fmt.Errorf("unknown record type %q", kind)
	}
	return nil
}

func topDir(docID string) string {
	slashed := filepath.ToSlash(docID)
	if i := strings.Index(slashed, "/"); i > 0 {
		return slashed[:i]
	}
	return ""
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				l.logger.Debug("world document changed", "doc", evt.ID)
				// Coalesce: one pending signal is enough to trigger a reload.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
