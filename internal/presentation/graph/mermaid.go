package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/ivy/internal/dto"
)

// GraphOverlay marks observables to highlight on the graph.
type GraphOverlay struct {
	Written []string
}

// GenerateMermaid produces a Mermaid flowchart of a scenario's data flow.
// It applies semantic shapes:
// - Record: [("Cylinder")]
// - Sequence: [/Parallelogram/]
// - Tree: (("Circle"))
// Derivations are self-loops labelled with their expression; the tree's attribute
// record uses a dotted edge, its children sources solid numbered edges.
func GenerateMermaid(sc *dto.Scenario, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, id := range slices.Sorted(maps.Keys(sc.Records)) {
		fmt.Fprintf(&sb, "    %s[(\"%s\")]\n", recordID(id), id)
	}
	for _, id := range slices.Sorted(maps.Keys(sc.Sequences)) {
		fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", sequenceID(id), id)
	}

	for _, d := range sc.Derived {
		label := strings.ReplaceAll(fmt.Sprintf("%s = %s", d.Key, d.Expr), "\"", "'")
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", recordID(d.Record), label, recordID(d.Record))
	}

	if t := sc.Tree; t != nil {
		fmt.Fprintf(&sb, "    tree((\"&lt;%s&gt;\"))\n", t.Tag)
		if t.Attrs != "" {
			fmt.Fprintf(&sb, "    %s -. attrs .-> tree\n", recordID(t.Attrs))
		}
		for i, id := range t.Children {
			fmt.Fprintf(&sb, "    %s -- \"%d\" --> tree\n", sequenceID(id), i)
		}
	}

	if overlay != nil && len(overlay.Written) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef written fill:#d1fae5,stroke:#047857,stroke-width:2px,color:#000;\n")
		seen := make(map[string]bool)
		for _, id := range overlay.Written {
			var safeID string
			if _, ok := sc.Records[id]; ok {
				safeID = recordID(id)
			} else if _, ok := sc.Sequences[id]; ok {
				safeID = sequenceID(id)
			} else {
				continue
			}
			if !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s written;\n", safeID)
			}
		}
	}

	return sb.String()
}

// WrittenBy lists the observables the scenario steps write, in step order.
func WrittenBy(sc *dto.Scenario) []string {
	var out []string
	for _, st := range sc.Steps {
		if st.Op == dto.OpWrite {
			out = append(out, st.Record)
		} else {
			out = append(out, st.Sequence)
		}
	}
	return out
}

func recordID(id string) string {
	return "r_" + sanitizeMermaidID(id)
}

func sequenceID(id string) string {
	return "s_" + sanitizeMermaidID(id)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
