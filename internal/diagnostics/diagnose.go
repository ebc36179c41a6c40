package diagnostics

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// Kind classifies a diagnosis.
type Kind string

const (
	KindFogOfWar          Kind = "fog_of_war"
	KindNoPhysicalPath    Kind = "no_physical_path"
	KindBlocked           Kind = "blocked"
	KindPreconditionUnmet Kind = "precondition_unmet"
	KindNoAchiever        Kind = "no_achiever"
	KindTimeout           Kind = "timeout"
	KindFallback          Kind = "fallback"
)

// Diagnosis explains why no plan was found. It is advisory only.
type Diagnosis struct {
	Kind        Kind     `json:"kind"`
	Message     string   `json:"message"`
	Goal        string   `json:"goal,omitempty"`
	Target      string   `json:"target,omitempty"`
	Location    string   `json:"location,omitempty"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	Requirement string   `json:"requirement,omitempty"`
	Action      string   `json:"action,omitempty"`
	Missing     []string `json:"missing,omitempty"`
}

func (d Diagnosis) String() string { return d.Message }

// Fallback is the generic diagnosis used when nothing more specific applies.
func Fallback(goal string) Diagnosis {
	return Diagnosis{
		Kind:    KindFallback,
		Goal:    goal,
		Message: fmt.Sprintf("No plan found for goal '%s' – check reachability or complex interactions.", goal),
	}
}

// Timeout reports a solver that exceeded its deadline.
func Timeout(goal string, after time.Duration) Diagnosis {
	return Diagnosis{
		Kind:    KindTimeout,
		Goal:    goal,
		Message: fmt.Sprintf("Planner timed out after %s while solving goal '%s'.", after, goal),
	}
}

// Explainer inspects compiled domain and problem texts after a failed solve.
type Explainer struct {
	logger *slog.Logger
}

// Option configures an Explainer.
type Option func(*Explainer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Explainer) { e.logger = l }
}

// New creates an Explainer.
func New(opts ...Option) *Explainer {
	e := &Explainer{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explain diagnoses an unsolvable problem without calling the solver again.
// player is optional; when nil the controllable agent of the problem is used.
// Explain never panics: any failure degrades to Fallback.
func (e *Explainer) Explain(domainText, problemText string, player *domain.PlayerState) (d Diagnosis) {
	goal := ""
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("diagnosis failed", "err", r)
			d = Fallback(goal)
		}
	}()

	problem, err := Parse(problemText)
	if err != nil {
		e.logger.Debug("problem not parseable", "err", err)
		return Fallback(goal)
	}
	goalSec := problem.Section(":goal")
	if goalSec == nil || len(goalSec.List) < 2 {
		return Fallback(goal)
	}
	goal = goalSec.List[1].String()

	facts := readFacts(problem.Section(":init"))
	agent := facts.agent(player)
	here := facts.locations[agent]
	if player != nil && player.CurrentLocation != "" {
		here = player.CurrentLocation
	}

	var actions []action
	if root, err := Parse(domainText); err == nil {
		actions = readActions(root)
	} else {
		e.logger.Debug("domain not parseable", "err", err)
	}

	holds := facts.holds(player, agent)
	for _, atom := range Atoms(goalSec.List[1]) {
		if holds.Has(atomKey(atom)) {
			continue
		}
		pred, args := atom.Head(), atom.Args()

		if len(args) > 1 {
			if d, ok := facts.reachability(agent, here, args[len(args)-1]); ok {
				d.Goal = goal
				return d
			}
		}

		if actions == nil {
			continue
		}
		var achievers []action
		for _, a := range actions {
			if a.adds[pred] {
				achievers = append(achievers, a)
			}
		}
		if len(achievers) == 0 {
			return Diagnosis{
				Kind:    KindNoAchiever,
				Goal:    goal,
				Target:  pred,
				Message: fmt.Sprintf("No plan found – no actions achieve predicate '%s'.", pred),
			}
		}
		for _, a := range achievers {
			if d, ok := facts.unmet(a, agent, player); ok {
				d.Goal = goal
				return d
			}
		}
	}
	return Fallback(goal)
}

type edge struct{ from, to string }

// facts is the part of an initial state the explainer looks at.
type facts struct {
	locations    map[string]string
	places       domain.Set
	accessible   domain.Set
	paths        map[string][]string
	blocked      map[edge]string
	abilities    map[string]domain.Set
	items        map[string]domain.Set
	controllable []string
	// init holds every ground atom of :init, keyed by atomKey.
	init domain.Set
}

// atomKey is the case-insensitive identity of a ground atom.
func atomKey(n *Node) string {
	return strings.ToLower(n.String())
}

// holds returns the atoms true in the initial state. The player's own
// abilities, inventory and position count too.
func (f *facts) holds(player *domain.PlayerState, agent string) domain.Set {
	if player == nil {
		return f.init
	}
	out := f.init.Clone()
	for k, n := range player.Abilities {
		if n > 0 {
			out.Add(strings.ToLower("(has-ability " + agent + " " + k + ")"))
		}
	}
	for k, n := range player.Inventory {
		if n > 0 {
			out.Add(strings.ToLower("(has-item " + agent + " " + k + ")"))
		}
	}
	if player.CurrentLocation != "" {
		out.Add(strings.ToLower("(at " + agent + " " + player.CurrentLocation + ")"))
	}
	return out
}

func readFacts(init *Node) *facts {
	f := &facts{
		locations:  make(map[string]string),
		places:     domain.NewSet(),
		accessible: domain.NewSet(),
		paths:      make(map[string][]string),
		blocked:    make(map[edge]string),
		abilities:  make(map[string]domain.Set),
		items:      make(map[string]domain.Set),
		init:       domain.NewSet(),
	}
	if init == nil {
		return f
	}
	add := func(m map[string]domain.Set, k, v string) {
		if m[k] == nil {
			m[k] = domain.NewSet()
		}
		m[k].Add(v)
	}
	for _, n := range init.List[1:] {
		f.init.Add(atomKey(n))
		args := n.Args()
		switch n.Head() {
		case "at":
			if len(args) == 2 {
				f.locations[args[0]] = args[1]
				f.places.Add(args[1])
			}
		case "accessible":
			if len(args) == 1 {
				f.accessible.Add(args[0])
				f.places.Add(args[0])
			}
		case "path":
			if len(args) == 2 {
				f.paths[args[0]] = append(f.paths[args[0]], args[1])
				f.places.Add(args[0])
				f.places.Add(args[1])
			}
		case "blocked":
			if len(args) == 3 {
				f.blocked[edge{args[0], args[1]}] = args[2]
			}
		case "has-ability":
			if len(args) == 2 {
				add(f.abilities, args[0], args[1])
			}
		case "has-item":
			if len(args) == 2 {
				add(f.items, args[0], args[1])
			}
		case "controllable":
			if len(args) == 1 {
				f.controllable = append(f.controllable, args[0])
			}
		}
	}
	return f
}

func (f *facts) agent(player *domain.PlayerState) string {
	if player != nil && player.PlayerID != "" {
		return player.PlayerID
	}
	if len(f.controllable) > 0 {
		return f.controllable[0]
	}
	return ""
}

// reachability checks fog of war and the physical route to target.
// Targets that are locations themselves skip the fog check.
func (f *facts) reachability(agent, here, target string) (Diagnosis, bool) {
	if target == agent {
		return Diagnosis{}, false
	}
	loc, placed := f.locations[target]
	if !placed {
		if !f.places.Has(target) {
			return Diagnosis{}, false
		}
		loc = target
	} else if !f.accessible.Has(loc) {
		return Diagnosis{
			Kind:     KindFogOfWar,
			Target:   target,
			Location: loc,
			Message:  fmt.Sprintf("Target '%s' is at '%s', which is in the 'Fog of War' (not discovered/accessible yet).", target, loc),
		}, true
	}
	if here == "" || here == loc {
		return Diagnosis{}, false
	}

	route, ok := f.route(here, loc)
	if !ok {
		return Diagnosis{
			Kind:     KindNoPhysicalPath,
			Target:   target,
			Location: loc,
			From:     here,
			To:       loc,
			Message: fmt.Sprintf("Cannot reach '%s': No physical path found from '%s' to '%s' in the world graph.",
				target, here, loc),
		}, true
	}
	for _, e := range route {
		if req, ok := f.blocked[e]; ok {
			return Diagnosis{
				Kind:        KindBlocked,
				Target:      target,
				Location:    loc,
				From:        e.from,
				To:          e.to,
				Requirement: req,
				Message: fmt.Sprintf("Cannot reach '%s': Path is blocked between '%s' and '%s' by '%s'.",
					target, e.from, e.to, req),
			}, true
		}
	}
	return Diagnosis{}, false
}

// route is a BFS over path facts, ignoring locks. It returns the edges of the
// shortest route.
func (f *facts) route(from, to string) ([]edge, bool) {
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			var out []edge
			for n := to; n != from; n = prev[n] {
				out = append([]edge{{prev[n], n}}, out...)
			}
			return out, true
		}
		for _, n := range f.paths[cur] {
			if _, seen := prev[n]; !seen {
				prev[n] = cur
				queue = append(queue, n)
			}
		}
	}
	return nil, false
}

// unmet reports an achiever whose ability or item preconditions the agent
// cannot meet. Like the solver's disjunctive reading, holding any one of the
// required abilities is enough.
func (f *facts) unmet(a action, agent string, player *domain.PlayerState) (Diagnosis, bool) {
	have := f.abilities[agent]
	items := f.items[agent]
	if player != nil {
		have, items = domain.NewSet(), domain.NewSet()
		for k, n := range player.Abilities {
			if n > 0 {
				have.Add(k)
			}
		}
		for k, n := range player.Inventory {
			if n > 0 {
				items.Add(k)
			}
		}
	}

	check := func(pred, what string, owned domain.Set) (Diagnosis, bool) {
		required := a.constants[pred]
		if len(required) == 0 {
			return Diagnosis{}, false
		}
		for _, r := range required {
			if owned.Has(r) {
				return Diagnosis{}, false
			}
		}
		return Diagnosis{
			Kind:    KindPreconditionUnmet,
			Action:  a.name,
			Missing: required,
			Message: fmt.Sprintf("No plan found because preconditions for action '%s' are not met: missing required %s (%s).",
				a.name, what, strings.Join(required, ", ")),
		}, true
	}
	if d, ok := check("has-ability", "abilities", have); ok {
		return d, true
	}
	return check("has-item", "items", items)
}

type action struct {
	name string
	adds map[string]bool
	// constants holds, per precondition predicate, the ground last arguments.
	constants map[string][]string
}

func readActions(root *Node) []action {
	var out []action
	for _, c := range root.List {
		if c.Head() != ":action" || len(c.List) < 2 {
			continue
		}
		a := action{name: c.List[1].Atom, adds: map[string]bool{}, constants: map[string][]string{}}
		for i := 2; i+1 < len(c.List); i++ {
			switch strings.ToLower(c.List[i].Atom) {
			case ":precondition":
				i++
				seen := domain.NewSet()
				for _, lit := range Atoms(c.List[i]) {
					args := lit.Args()
					if len(args) == 0 {
						continue
					}
					last := args[len(args)-1]
					if strings.HasPrefix(last, "?") || !seen.Add(lit.Head()+" "+last) {
						continue
					}
					a.constants[lit.Head()] = append(a.constants[lit.Head()], last)
				}
			case ":effect":
				i++
				for _, lit := range Atoms(c.List[i]) {
					a.adds[lit.Head()] = true
				}
			case ":parameters":
				i++
			}
		}
		for k := range a.constants {
			sort.Strings(a.constants[k])
		}
		out = append(out, a)
	}
	return out
}
