package graph

import (
	"fmt"
	"strings"
)

// Node is one instance in a link graph.
type Node struct {
	ID string
	// Events is the number of events the instance emitted. Zero leaves the
	// label bare.
	Events int
	// Parents are the IDs of the nodes this one is linked under.
	Parents []string
}

// Overlay marks nodes for highlighting.
type Overlay struct {
	// Emitted are nodes that delivered at least one batch.
	Emitted []string
	// Root is the node whose views were watching.
	Root string
}

// GenerateMermaid produces a Mermaid flowchart of the link graph. Edges point
// from parent to child, the direction batches do not travel:
// - Roots (no parents): ((Circle))
// - Default: [Rectangle]
// - An edge back to an ancestor (a cycle): dotted arrow
func GenerateMermaid(nodes []Node, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	parents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		parents[n.ID] = n.Parents
	}

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		if len(node.Parents) == 0 {
			opener, closer = "((", "))"
		}

		text := strings.ReplaceAll(node.ID, "\"", "'")
		if node.Events > 0 {
			text = fmt.Sprintf("%s <br/> %d events", text, node.Events)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, text, closer)

		for _, p := range node.Parents {
			arrow := "-->"
			if reaches(parents, p, node.ID) {
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(p), arrow, safeID)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef emitted fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef root fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Emitted {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s emitted;\n", safeID)
			}
		}
		if overlay.Root != "" {
			fmt.Fprintf(&sb, "    class %s root;\n", sanitizeMermaidID(overlay.Root))
		}
	}

	return sb.String()
}

// reaches reports whether target is an ancestor of from (or from itself),
// following parent edges.
func reaches(parents map[string][]string, from, target string) bool {
	visited := map[string]bool{}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		queue = append(queue, parents[cur]...)
	}
	return false
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
