package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/internal/diagnostics"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Render turns markdown into terminal output.
type Render func(markdown string) (string, error)

// NewRenderer returns a glamour renderer with an auto-detected light/dark style.
// When plain is set, or glamour cannot be initialised, markdown is returned
// as is, which keeps piped output diffable.
func NewRenderer(plain bool) Render {
	if plain {
		return func(md string) (string, error) { return md, nil }
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(md string) (string, error) { return md, nil }
	}
	return r.Render
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// StateMarkdown describes where the dialogue stands: the current context,
// mood, owned concepts and the legal moves numbered from 1.
func StateMarkdown(c domain.Context, state *domain.DialogueState, moves []domain.Move) string {
	var sb strings.Builder
	title := c.Name
	if title == "" {
		title = c.ID
	}
	fmt.Fprintf(&sb, "## %s\n\n", title)
	if c.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", c.Description)
	}
	fmt.Fprintf(&sb, "- **context**: `%s`\n", state.CurrentContext)
	fmt.Fprintf(&sb, "- **mood**: %s\n", state.CurrentMood)
	if state.ActivePersona != "" {
		fmt.Fprintf(&sb, "- **persona**: %s\n", state.ActivePersona)
	}
	if concepts := state.OwnedConcepts.Sorted(); len(concepts) > 0 {
		fmt.Fprintf(&sb, "- **concepts**: %s\n", codeList(concepts))
	}
	if items := state.SharedItems.Sorted(); len(items) > 0 {
		fmt.Fprintf(&sb, "- **shared items**: %s\n", codeList(items))
	}

	sb.WriteString("\n### Moves\n\n")
	if len(moves) == 0 {
		sb.WriteString("_No legal moves._\n")
	}
	for i, mv := range moves {
		fmt.Fprintf(&sb, "%d. `%s`\n", i+1, mv)
	}
	return sb.String()
}

// PlanMarkdown lists plan steps, or explains the failure when diag is set.
func PlanMarkdown(goal string, steps []string, diag *diagnostics.Diagnosis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Plan for `%s`\n\n", goal)
	if diag != nil {
		fmt.Fprintf(&sb, "> **%s**: %s\n", diag.Kind, diag.Message)
		if len(diag.Missing) > 0 {
			fmt.Fprintf(&sb, ">\n> missing: %s\n", codeList(diag.Missing))
		}
		return sb.String()
	}
	if len(steps) == 0 {
		sb.WriteString("_Already satisfied._\n")
	}
	for i, s := range steps {
		fmt.Fprintf(&sb, "%d. `%s`\n", i+1, s)
	}
	return sb.String()
}

// DiffMarkdown summarises the side effects of one move.
func DiffMarkdown(diff *domain.StateDiff) string {
	if diff == nil {
		return "_Nothing changed._\n"
	}
	var sb strings.Builder
	if diff.CurrentContext != nil {
		fmt.Fprintf(&sb, "- entered `%s`\n", *diff.CurrentContext)
	}
	if diff.CurrentMood != nil {
		fmt.Fprintf(&sb, "- mood is now %s\n", *diff.CurrentMood)
	}
	for _, row := range []struct {
		label string
		ids   []string
	}{
		{"learned", diff.Concepts},
		{"unlocked", diff.Unlocked},
		{"exhausted", diff.Exhausted},
		{"received", diff.SharedItems},
	} {
		if len(row.ids) > 0 {
			fmt.Fprintf(&sb, "- %s %s\n", row.label, codeList(row.ids))
		}
	}
	return sb.String()
}

func codeList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "`" + id + "`"
	}
	return strings.Join(quoted, ", ")
}
