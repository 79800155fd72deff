package graph

import (
	"context"
	"strings"
)

// ComputeClusters finds connected components in the resource graph and
// stores them as Clusters.
//
// Algorithm:
//  1. Build an undirected adjacency list from dependency edges among the given resources.
//  2. Find connected components via BFS.
//  3. For each component with >= 2 members, compute a cohesion score and store the cluster.
func ComputeClusters(ctx context.Context, store Store, resources []Resource) ([]Cluster, error) {
	memberPaths := make(map[string]bool, len(resources))
	for _, r := range resources {
		memberPaths[r.Path] = true
	}

	adj, err := buildAdjacency(ctx, store, resources)
	if err != nil {
		return nil, err
	}

	// BFS to find connected components. Resources arrive in inventory
	// order, so component discovery order is stable.
	visited := make(map[string]bool, len(resources))
	var clusters []Cluster

	for _, r := range resources {
		if visited[r.Path] {
			continue
		}
		component := bfsComponent(r.Path, adj, visited)
		if len(component) < 2 {
			continue
		}
		cohesion := computeCohesion(component, adj, memberPaths)
		cluster := Cluster{
			Name:     clusterName(component),
			Cohesion: cohesion,
			Members:  component,
		}
		if err := store.AddCluster(ctx, cluster); err != nil {
			return nil, err
		}
		clusters = append(clusters, cluster)
	}

	return clusters, nil
}

// buildAdjacency constructs a bidirectional adjacency list from dependency
// edges using a single pass over all edges.
func buildAdjacency(ctx context.Context, store Store, resources []Resource) (map[string]map[string]bool, error) {
	adj := make(map[string]map[string]bool, len(resources))
	for _, r := range resources {
		adj[r.Path] = make(map[string]bool)
	}

	deps, err := store.GetAllDependencies(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range deps {
		// Only include edges between known resources.
		if adj[d.Source] != nil && adj[d.Target] != nil {
			adj[d.Source][d.Target] = true
			adj[d.Target][d.Source] = true
		}
	}

	return adj, nil
}

// bfsComponent performs BFS from start on the adjacency list and returns
// all reachable nodes in a stable order. It marks visited nodes as it goes.
func bfsComponent(start string, adj map[string]map[string]bool, visited map[string]bool) []string {
	var component []string
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for _, neighbor := range setToSlice(adj[node]) {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	return component
}

// computeCohesion calculates internal_edges / (internal_edges + external_edges)
// for a connected component. Internal edges connect two members; external
// edges connect a member to a non-member resource.
func computeCohesion(component []string, adj map[string]map[string]bool, allResources map[string]bool) float64 {
	memberSet := make(map[string]bool, len(component))
	for _, m := range component {
		memberSet[m] = true
	}

	internalEdges := 0
	externalEdges := 0

	// Count each undirected internal edge once (when m < neighbor);
	// external edges always count outbound.
	for _, m := range component {
		for neighbor := range adj[m] {
			if memberSet[neighbor] {
				if m < neighbor {
					internalEdges++
				}
			} else if allResources[neighbor] {
				externalEdges++
			}
		}
	}

	total := internalEdges + externalEdges
	if total == 0 {
		return 0
	}
	return float64(internalEdges) / float64(total)
}

// clusterName derives a display name for a component: the longest common
// logical-path prefix, falling back to the first member.
func clusterName(component []string) string {
	if name := longestCommonPrefix(component); name != "" && name != "res://" {
		return name
	}
	return component[0]
}

// longestCommonPrefix finds the longest common path prefix among a set of
// logical paths. Returns an empty string if no common prefix is found.
func longestCommonPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	if len(paths) == 1 {
		return paths[0]
	}

	prefix := paths[0]
	for _, p := range paths[1:] {
		for !strings.HasPrefix(p, prefix) {
			// Trim to the last path separator (excluding any trailing slash).
			trimmed := strings.TrimRight(prefix, "/")
			idx := strings.LastIndex(trimmed, "/")
			if idx < 0 {
				return ""
			}
			prefix = trimmed[:idx+1] // keep the trailing slash
			if prefix == "/" || prefix == "" {
				return prefix
			}
		}
	}

	// Ensure prefix ends at a directory boundary.
	if !strings.HasSuffix(prefix, "/") {
		idx := strings.LastIndex(prefix, "/")
		if idx >= 0 {
			prefix = prefix[:idx+1]
		}
	}

	return prefix
}
