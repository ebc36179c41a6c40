package graph

import (
	"fmt"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	// Unlocked lists statically locked nodes that have been opened.
	Unlocked []string
}

// GenerateMermaid renders the dialogue graph as a Mermaid flowchart.
// Shapes: start contexts are ((circles)), locked contexts {{hexagons}}, the
// rest [rectangles]. Edges into locked contexts carry the requirement as label.
// Locked contexts are always styled; visited and current only with an overlay.
func GenerateMermaid(store *world.Store, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range store.ContextIDs() {
		c, _ := store.Context(id)
		opener, closer := "[", "]"
		switch {
		case c.Properties.IsStart:
			opener, closer = "((", "))"
		case c.Properties.IsLocked:
			opener, closer = "{{", "}}"
		}
		label := c.ID
		if c.Name != "" && c.Name != c.ID {
			label = c.Name + "<br/>" + c.ID
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(id), opener, escape(label), closer)
	}

	drawn := make(map[[2]string]bool)
	for _, id := range store.ContextIDs() {
		c, _ := store.Context(id)
		for _, conn := range c.Connections {
			if !store.HasContext(conn.To) || drawn[[2]string{id, conn.To}] {
				continue
			}
			drawn[[2]string{id, conn.To}] = true
			if conn.Bidirectional() {
				drawn[[2]string{conn.To, id}] = true
			}
			sb.WriteString(edge(id, conn.To, conn.Bidirectional(), requirement(store, conn.To)))
		}
	}

	var locked []string
	for _, id := range store.ContextIDs() {
		if store.Locked(id) && (overlay == nil || !contains(overlay.Unlocked, id)) {
			locked = append(locked, id)
		}
	}
	if len(locked) > 0 || overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef locked fill:#eceff1,stroke:#b71c1c,stroke-dasharray:5 3,color:#000;\n")
	}
	for _, id := range locked {
		fmt.Fprintf(&sb, "    class %s locked;\n", sanitizeMermaidID(id))
	}
	writeOverlay(&sb, overlay)
	return sb.String()
}

// GenerateWorldMermaid renders the physical world map. Location items are
// listed under the name; locked locations are hexagons.
func GenerateWorldMermaid(store *world.Store, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, id := range store.LocationIDs() {
		loc, _ := store.Location(id)
		opener, closer := "[", "]"
		if loc.Properties.IsLocked {
			opener, closer = "{{", "}}"
		}
		label := id
		if loc.Name != "" && loc.Name != id {
			label = loc.Name
		}
		if len(loc.Contains) > 0 {
			label += "<br/>(" + strings.Join(loc.Contains, ", ") + ")"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(id), opener, escape(label), closer)
	}

	drawn := make(map[[2]string]bool)
	for _, id := range store.LocationIDs() {
		loc, _ := store.Location(id)
		for _, conn := range loc.Connections {
			target, ok := store.Location(conn.To)
			if !ok || drawn[[2]string{id, conn.To}] {
				continue
			}
			drawn[[2]string{id, conn.To}] = true
			if conn.Bidirectional() {
				drawn[[2]string{conn.To, id}] = true
			}
			sb.WriteString(edge(id, conn.To, conn.Bidirectional(), target.Properties.RequiredConcept))
		}
	}
	writeOverlay(&sb, overlay)
	return sb.String()
}

func requirement(store *world.Store, id string) string {
	c, ok := store.Context(id)
	if !ok || !c.Properties.IsLocked {
		return ""
	}
	var parts []string
	if c.Properties.RequiredConcept != "" {
		parts = append(parts, c.Properties.RequiredConcept)
	}
	if c.Properties.HasCombo() {
		parts = append(parts, strings.Join(c.Properties.RequiredCombo, " + "))
	}
	for _, ua := range c.Properties.UnlockActions {
		parts = append(parts, ua.Action)
	}
	return strings.Join(parts, " / ")
}

func edge(from, to string, both bool, label string) string {
	arrow := "-->"
	if both {
		arrow = "<-->"
	}
	if label != "" {
		arrow = fmt.Sprintf("%s|\"%s\"|", arrow, escape(label))
	}
	return fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(from), arrow, sanitizeMermaidID(to))
}

func writeOverlay(sb *strings.Builder, overlay *GraphOverlay) {
	if overlay == nil {
		return
	}
	// Force black text for contrast on both light and dark themes.
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

	seen := make(map[string]bool)
	for _, id := range overlay.VisitedNodes {
		safeID := sanitizeMermaidID(id)
		if safeID == "" || seen[safeID] || id == overlay.CurrentNode {
			continue
		}
		seen[safeID] = true
		fmt.Fprintf(sb, "    class %s visited;\n", safeID)
	}
	if overlay.CurrentNode != "" {
		fmt.Fprintf(sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func escape(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
