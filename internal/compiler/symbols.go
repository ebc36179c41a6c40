package compiler

import (
	"strings"
)

// symbols maps case-folded names to the spelling used in a compilation.
// A folded name shared by two spellings maps to "" and is left alone.
type symbols map[string]string

func (t symbols) add(name string) {
	key := strings.ToLower(name)
	if prev, ok := t[key]; ok && prev != name {
		t[key] = ""
		return
	}
	t[key] = name
}

func (t symbols) resolve(name string) (string, bool) {
	got := t[strings.ToLower(name)]
	return got, got != ""
}

// Canonical rewrites plan steps to the spelling of the compiled domain and
// problem. Planners fold case on output; ids such as "A" or "Trig_Gate" come
// back lowercased or uppercased and would no longer match the world.
// Action names resolve against the domain's actions and arguments against the
// problem's objects, init facts and goal. Unknown verbs are lowercased; unknown
// or ambiguous arguments pass through unchanged, and so do comments.
func (c *Compilation) Canonical(lines []string) []string {
	actions, objects := c.symbolTables()
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if strings.HasPrefix(s, ";") {
			out = append(out, line)
			continue
		}
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		f := strings.Fields(s)
		if len(f) == 0 {
			out = append(out, line)
			continue
		}
		if verb, ok := actions.resolve(f[0]); ok {
			f[0] = verb
		} else {
			f[0] = strings.ToLower(f[0])
		}
		for i := 1; i < len(f); i++ {
			if arg, ok := objects.resolve(f[i]); ok {
				f[i] = arg
			}
		}
		out = append(out, "("+strings.Join(f, " ")+")")
	}
	return out
}

func (c *Compilation) symbolTables() (actions, objects symbols) {
	actions = symbols{}
	rest := c.Domain
	for {
		i := strings.Index(rest, "(:action")
		if i < 0 {
			break
		}
		rest = rest[i+len("(:action"):]
		if f := strings.Fields(rest); len(f) > 0 {
			actions.add(f[0])
		}
	}

	objects = symbols{}
	if c.Problem == nil {
		return actions, objects
	}
	for _, g := range c.Problem.Objects {
		for _, name := range g.Names {
			objects.add(name)
		}
	}
	for _, fact := range c.Problem.Init {
		for _, arg := range fact.Args {
			objects.add(arg)
		}
	}
	// Goal atoms may name objects absent from init; skip the head of each list.
	toks := strings.Fields(strings.NewReplacer("(", " ( ", ")", " ) ").Replace(c.Problem.Goal))
	for i, tok := range toks {
		if tok == "(" || tok == ")" || (i > 0 && toks[i-1] == "(") {
			continue
		}
		objects.add(tok)
	}
	return actions, objects
}
