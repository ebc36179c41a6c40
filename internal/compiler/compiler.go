package compiler

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/internal/moves"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
)

//go:embed domains
var domainFS embed.FS

var socialTemplate = template.Must(template.New("social.pddl.tmpl").
	Funcs(template.FuncMap{"join": func(s []string) string { return strings.Join(s, " ") }}).
	ParseFS(domainFS, "domains/social.pddl.tmpl"))

// Domain names used in rendered problems.
const (
	SocialDomain     = "narrative-flow"
	NavigationDomain = "world-navigation"
)

// Compilation is a domain/problem pair ready for the planner.
type Compilation struct {
	Domain  string
	Problem *Problem
}

// ProblemText renders the problem.
func (c *Compilation) ProblemText() string {
	return c.Problem.Render()
}

// Compiler turns the world and a state into planning problems. It shares the
// agent id and NPC policy with the move validator so both describe the same moves.
type Compiler struct {
	store  *world.Store
	agent  string
	policy moves.NPCPolicy
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithAgent sets the agent object name.
func WithAgent(agent string) Option {
	return func(c *Compiler) { c.agent = agent }
}

// WithNPCPolicy sets the NPC initiative policy.
func WithNPCPolicy(p moves.NPCPolicy) Option {
	return func(c *Compiler) { c.policy = p }
}

// New creates a Compiler over the base store.
func New(store *world.Store, opts ...Option) *Compiler {
	c := &Compiler{
		store:  store,
		agent:  moves.DefaultAgent,
		policy: moves.DefaultNPCPolicy(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type behaviorAction struct {
	ID, Mood, Tag, Relation string
}

// socialConstants are the persona-specific constants of the social domain.
type socialConstants struct {
	Moods     []string
	Tags      []string
	Behaviors []behaviorAction
	Unlocks   []string
}

func (s socialConstants) names() []string {
	out := append([]string(nil), s.Moods...)
	out = append(out, s.Tags...)
	for _, b := range s.Behaviors {
		out = append(out, b.ID)
	}
	return append(out, s.Unlocks...)
}

func constantsFor(view *world.Store, persona domain.Persona) socialConstants {
	moods := domain.NewSet(domain.MoodNeutral)
	tags := domain.NewSet()
	var behaviors []behaviorAction
	seen := domain.NewSet()
	for _, r := range persona.BehaviorRules {
		if r.ID == "" || !seen.Add(r.ID) {
			continue
		}
		b := behaviorAction{ID: r.ID, Mood: r.Mood, Tag: r.Tag(), Relation: "holding"}
		if r.Worn() {
			b.Relation = "wearing"
		}
		if r.Mood != "" {
			moods.Add(r.Mood)
		}
		if b.Tag != "" {
			tags.Add(b.Tag)
		}
		behaviors = append(behaviors, b)
	}

	unlocks := domain.NewSet()
	for _, id := range view.ContextIDs() {
		c, _ := view.Context(id)
		for _, ua := range c.Properties.UnlockActions {
			if moves.ValidUnlockAction(ua.Action) {
				unlocks.Add(ua.Action)
			}
		}
	}

	return socialConstants{
		Moods:     moods.Sorted(),
		Tags:      tags.Sorted(),
		Behaviors: behaviors,
		Unlocks:   unlocks.Sorted(),
	}
}

func renderSocialDomain(consts socialConstants) (string, error) {
	var buf bytes.Buffer
	if err := socialTemplate.Execute(&buf, consts); err != nil {
		return "", fmt.Errorf("render social domain: %w", err)
	}
	return buf.String(), nil
}

var navigationDomain = func() string {
	raw, err := domainFS.ReadFile("domains/navigation.pddl")
	if err != nil {
		panic(err)
	}
	return string(raw)
}()

// NavigationDomainText returns the static world-navigation domain.
func NavigationDomainText() string {
	return navigationDomain
}

// navigationAbilities are the ability constants of the navigation domain.
var navigationAbilities = []string{"charisma", "combat"}

func sortedUnique(in []string) []string {
	return domain.NewSet(in...).Sorted()
}
