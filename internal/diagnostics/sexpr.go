package diagnostics

import (
	"errors"
	"strings"
)

var (
	errUnbalanced = errors.New("unbalanced parentheses")
	errEmpty      = errors.New("empty expression")
)

// Node is an s-expression: an atom or a list.
type Node struct {
	Atom string
	List []*Node
}

// IsList reports whether n is a list.
func (n *Node) IsList() bool { return n != nil && n.Atom == "" }

// Head returns the first atom of a list, lower-cased.
func (n *Node) Head() string {
	if !n.IsList() || len(n.List) == 0 || n.List[0].IsList() {
		return ""
	}
	return strings.ToLower(n.List[0].Atom)
}

// Args returns the atoms after the head. Nested lists are skipped.
func (n *Node) Args() []string {
	if !n.IsList() || len(n.List) < 2 {
		return nil
	}
	out := make([]string, 0, len(n.List)-1)
	for _, c := range n.List[1:] {
		if !c.IsList() {
			out = append(out, c.Atom)
		}
	}
	return out
}

// Section returns the first child list whose head is name, e.g. ":init".
func (n *Node) Section(name string) *Node {
	if !n.IsList() {
		return nil
	}
	for _, c := range n.List {
		if c.Head() == name {
			return c
		}
	}
	return nil
}

func (n *Node) String() string {
	if n == nil {
		return ""
	}
	if !n.IsList() {
		return n.Atom
	}
	parts := make([]string, len(n.List))
	for i, c := range n.List {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	comment := false
	for _, r := range text {
		if comment {
			if r == '\n' {
				comment = false
			}
			continue
		}
		switch r {
		case ';':
			flush()
			comment = true
		case '(', ')':
			flush()
			tokens = append(tokens, string(r))
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// Parse reads the first s-expression of text.
func Parse(text string) (*Node, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, errEmpty
	}
	n, _, err := read(tokens)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func read(tokens []string) (*Node, []string, error) {
	if len(tokens) == 0 {
		return nil, nil, errUnbalanced
	}
	tok := tokens[0]
	tokens = tokens[1:]
	switch tok {
	case ")":
		return nil, nil, errUnbalanced
	case "(":
		list := &Node{List: []*Node{}}
		for {
			if len(tokens) == 0 {
				return nil, nil, errUnbalanced
			}
			if tokens[0] == ")" {
				return list, tokens[1:], nil
			}
			var child *Node
			var err error
			child, tokens, err = read(tokens)
			if err != nil {
				return nil, nil, err
			}
			list.List = append(list.List, child)
		}
	default:
		return &Node{Atom: tok}, tokens, nil
	}
}

// Atoms flattens a logical expression into its positive literals. Literals
// under not are dropped. Quantifier variable lists are skipped.
func Atoms(n *Node) []*Node {
	if !n.IsList() {
		return nil
	}
	switch n.Head() {
	case "and", "or":
		var out []*Node
		for _, c := range n.List[1:] {
			out = append(out, Atoms(c)...)
		}
		return out
	case "not":
		return nil
	case "forall", "exists":
		if len(n.List) < 3 {
			return nil
		}
		return Atoms(n.List[2])
	case "when", "imply":
		if len(n.List) < 3 {
			return nil
		}
		return Atoms(n.List[2])
	case "":
		return nil
	default:
		return []*Node{n}
	}
}
