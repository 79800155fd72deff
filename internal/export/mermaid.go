package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// GenerateMermaid produces a Mermaid graph LR diagram from a graph store.
// Resources are grouped into per-kind subgraphs; dependencies become arrows
// labeled with their kind.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	resources, err := store.ListResources(ctx, "")
	if err != nil {
		return "", fmt.Errorf("list resources: %w", err)
	}

	deps, err := store.GetAllDependencies(ctx)
	if err != nil {
		return "", fmt.Errorf("get dependencies: %w", err)
	}

	// Build path → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(path string) string {
		if id, ok := nodeIDs[path]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[path] = id
		return id
	}

	byKind := make(map[graph.ResourceKind][]graph.Resource)
	for _, res := range resources {
		byKind[res.Kind] = append(byKind[res.Kind], res)
	}
	kinds := make([]graph.ResourceKind, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	// Emit per-kind subgraphs. ListResources already orders members by path.
	for _, kind := range kinds {
		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(string(kind)+"_kind"), kind))
		for _, res := range byKind[kind] {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(res.Path), shortPath(res.Path)))
		}
		sb.WriteString("  end\n")
	}

	// Emit dependency edges. Endpoints outside the node map would mint a
	// bare node outside every subgraph, so those edges are skipped.
	for _, dep := range deps {
		srcID, ok := nodeIDs[dep.Source]
		if !ok {
			continue
		}
		tgtID, ok := nodeIDs[dep.Target]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", srcID, dep.Kind, tgtID))
	}

	return sb.String(), nil
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "res://"), "/")
	if len(parts) <= 2 {
		return strings.Join(parts, "/")
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
