package compiler

import (
	"sort"
	"strings"
)

// Fact is a ground atom of the initial state.
type Fact struct {
	Predicate string
	Args      []string
}

// F builds a fact.
func F(predicate string, args ...string) Fact {
	return Fact{Predicate: predicate, Args: args}
}

func (f Fact) String() string {
	if len(f.Args) == 0 {
		return "(" + f.Predicate + ")"
	}
	return "(" + f.Predicate + " " + strings.Join(f.Args, " ") + ")"
}

// ObjectGroup is a typed block of the :objects section.
type ObjectGroup struct {
	Type  string
	Names []string
}

// Problem is a compiled planning problem.
type Problem struct {
	Name    string
	Domain  string
	Objects []ObjectGroup
	Init    []Fact
	Goal    string
}

// Has reports whether f is part of the initial state.
func (p *Problem) Has(f Fact) bool {
	want := f.String()
	for _, got := range p.Init {
		if got.String() == want {
			return true
		}
	}
	return false
}

// Facts returns the initial facts with the given predicate.
func (p *Problem) Facts(predicate string) []Fact {
	var out []Fact
	for _, f := range p.Init {
		if f.Predicate == predicate {
			out = append(out, f)
		}
	}
	return out
}

// ObjectsOf returns the declared objects of type typ.
func (p *Problem) ObjectsOf(typ string) []string {
	for _, g := range p.Objects {
		if g.Type == typ {
			return g.Names
		}
	}
	return nil
}

// Render prints the problem in PDDL.
func (p *Problem) Render() string {
	var b strings.Builder
	b.WriteString("(define (problem " + p.Name + ")\n")
	b.WriteString("  (:domain " + p.Domain + ")\n")
	b.WriteString("  (:objects\n")
	for _, g := range p.Objects {
		if len(g.Names) == 0 {
			continue
		}
		b.WriteString("    " + strings.Join(g.Names, " ") + " - " + g.Type + "\n")
	}
	b.WriteString("  )\n")
	b.WriteString("  (:init\n")
	for _, f := range p.Init {
		b.WriteString("    " + f.String() + "\n")
	}
	b.WriteString("  )\n")
	b.WriteString("  (:goal " + p.Goal + ")\n")
	b.WriteString(")\n")
	return b.String()
}

// builder accumulates objects and facts, dropping duplicates.
type builder struct {
	types   []string
	objects map[string]map[string]bool
	// reserved names are domain constants and must not be redeclared as objects.
	reserved map[string]bool
	facts    map[string]Fact
}

func newBuilder(types []string, reserved ...[]string) *builder {
	b := &builder{
		types:    types,
		objects:  make(map[string]map[string]bool, len(types)),
		reserved: make(map[string]bool),
		facts:    make(map[string]Fact),
	}
	for _, t := range types {
		b.objects[t] = make(map[string]bool)
	}
	for _, names := range reserved {
		for _, n := range names {
			b.reserved[n] = true
		}
	}
	return b
}

func (b *builder) object(typ string, names ...string) {
	for _, n := range names {
		if n == "" || b.reserved[n] {
			continue
		}
		b.objects[typ][n] = true
	}
}

func (b *builder) declared(typ, name string) bool {
	return b.objects[typ][name] || b.reserved[name]
}

func (b *builder) fact(predicate string, args ...string) {
	for _, a := range args {
		if a == "" {
			return
		}
	}
	f := F(predicate, args...)
	b.facts[f.String()] = f
}

// problem freezes the builder. Objects are sorted per type and facts sorted
// lexicographically so equal inputs render byte-identical problems.
func (b *builder) problem(name, domainName, goal string) *Problem {
	p := &Problem{Name: name, Domain: domainName, Goal: goal}
	for _, t := range b.types {
		names := make([]string, 0, len(b.objects[t]))
		for n := range b.objects[t] {
			names = append(names, n)
		}
		sort.Strings(names)
		p.Objects = append(p.Objects, ObjectGroup{Type: t, Names: names})
	}
	keys := make([]string, 0, len(b.facts))
	for k := range b.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Init = append(p.Init, b.facts[k])
	}
	return p
}
