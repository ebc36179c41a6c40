package validator

import (
	"fmt"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/internal/moves"
	"github.com/VasyaLutiy/daqs-v5.0/internal/pathfind"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
)

// Severity of an issue. Errors make a world unusable; warnings are inconsistencies
// that the engine tolerates by skipping the offending record.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of Validate.
type Issue struct {
	Severity Severity `json:"severity"`
	Kind     string   `json:"kind"`
	ID       string   `json:"id"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.ID, i.Message)
}

// Report collects the issues of a world.
type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) add(sev Severity, kind, id, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Kind: kind, ID: id, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the error-level issues.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-level issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err returns nil when the report has no errors.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.ID + ": " + e.Message
	}
	return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(lines, "\n- "))
}

// Validate checks the store for dangling references, malformed gates and
// contexts that cannot be reached from any start.
func Validate(s *world.Store) Report {
	var r Report
	known := func(id string) bool {
		_, ok := s.Concept(id)
		return ok
	}
	concept := func(owner, field, id string) {
		if id != "" && !known(id) {
			r.add(SeverityWarning, "undeclared_concept", owner, "%s references undeclared concept %q", field, id)
		}
	}

	for _, id := range s.ContextIDs() {
		c, _ := s.Context(id)
		p := c.Properties
		for _, conn := range c.Connections {
			if !s.HasContext(conn.To) {
				r.add(SeverityWarning, "dangling_connection", id, "connection to unknown context %q", conn.To)
			}
		}
		concept(id, "required_concept", p.RequiredConcept)
		concept(id, "provides_concept", p.ProvidesConcept)
		if len(p.RequiredCombo) > 0 {
			if len(p.RequiredCombo) != 2 {
				r.add(SeverityWarning, "bad_combo", id, "required_combo needs exactly two concepts, has %d", len(p.RequiredCombo))
			}
			for _, k := range p.RequiredCombo {
				concept(id, "required_combo", k)
			}
		}
		if p.IsLocked && p.RequiredConcept == "" && !p.HasCombo() && len(p.UnlockActions) == 0 {
			r.add(SeverityWarning, "sealed", id, "locked without any way to unlock it")
		}
		for _, ua := range p.UnlockActions {
			if !moves.ValidUnlockAction(ua.Action) {
				r.add(SeverityWarning, "bad_unlock_action", id, "unlock action %q must start with %q", ua.Action, domain.PrefixDeploy)
			}
			for _, k := range ua.Requires {
				concept(id, "unlock action "+ua.Action, k)
			}
		}
	}

	for _, id := range s.TriggerIDs() {
		t, _ := s.Trigger(id)
		if t.Yields == "" {
			r.add(SeverityWarning, "empty_yield", id, "trigger yields nothing")
		}
		if !t.Global() && !s.HasContext(t.ParentContext) {
			r.add(SeverityWarning, "dangling_trigger", id, "parent context %q not found", t.ParentContext)
		}
		concept(id, "yields", t.Yields)
		concept(id, "requires", t.Requires)
	}

	starts := domain.NewSet()
	if start, err := s.StartContext(""); err == nil {
		starts.Add(start)
	}
	for _, id := range s.PersonaIDs() {
		p, _ := s.Persona(id)
		if p.StartContext != "" && !s.HasContext(p.StartContext) {
			r.add(SeverityError, "unknown_start", id, "start context %q not found", p.StartContext)
		}
		for ctx := range p.WorldOverrides {
			if !s.HasContext(ctx) {
				r.add(SeverityWarning, "dangling_override", id, "override for unknown context %q", ctx)
			}
		}
		for _, rule := range p.BehaviorRules {
			if rule.ID == "" {
				r.add(SeverityWarning, "anonymous_rule", id, "behavior rule without id")
			}
		}
		if start, err := s.StartContext(id); err == nil {
			starts.Add(start)
		}
	}
	if len(s.ContextIDs()) > 0 && len(starts) == 0 {
		r.add(SeverityError, "no_start", "", "no context is flagged is_start and no persona names a start context")
	}

	// Reachability ignores locks: a locked context behind a connection is reachable in principle.
	reached := domain.NewSet()
	for _, start := range starts.Sorted() {
		for _, id := range pathfind.FindAllReachable(s.Neighbors, start, len(s.ContextIDs())) {
			reached.Add(id)
		}
	}
	for _, id := range s.ContextIDs() {
		if len(starts) > 0 && !reached.Has(id) {
			r.add(SeverityWarning, "unreachable", id, "not reachable from any start context")
		}
	}

	for _, id := range s.LocationIDs() {
		l, _ := s.Location(id)
		for _, conn := range l.Connections {
			if _, ok := s.Location(conn.To); !ok {
				r.add(SeverityWarning, "dangling_connection", id, "connection to unknown location %q", conn.To)
			}
		}
	}
	return r
}
