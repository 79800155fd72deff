package graph

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu        sync.RWMutex
	resources map[string]Resource // key: logical path
	deps      []Dependency
	clusters  []Cluster
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		resources: make(map[string]Resource),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddResource stores a resource keyed by its logical path.
func (m *MemStore) AddResource(_ context.Context, res Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[res.Path] = res
	return nil
}

// AddDependency appends a dependency to the internal slice.
func (m *MemStore) AddDependency(_ context.Context, dep Dependency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps = append(m.deps, dep)
	return nil
}

// AddCluster appends a cluster to the internal slice.
func (m *MemStore) AddCluster(_ context.Context, c Cluster) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = append(m.clusters, c)
	return nil
}

// GetResource returns the resource for the given logical path, or
// ErrNotFound.
func (m *MemStore) GetResource(_ context.Context, path string) (*Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.resources[path]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

// ListResources returns resources of the given kind ordered by path. An
// empty kind returns the whole inventory.
func (m *MemStore) ListResources(_ context.Context, kind ResourceKind) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Resource
	for _, path := range m.sortedPaths() {
		res := m.resources[path]
		if kind == "" || res.Kind == kind {
			out = append(out, res)
		}
	}
	return out, nil
}

// QueryResources returns resources whose name or path contains query
// (case-insensitive), ordered by path, up to limit results. A limit <= 0
// returns all matches.
func (m *MemStore) QueryResources(_ context.Context, query string, limit int) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowerQuery := strings.ToLower(query)
	var results []Resource
	for _, path := range m.sortedPaths() {
		res := m.resources[path]
		if strings.Contains(strings.ToLower(res.Name), lowerQuery) ||
			strings.Contains(strings.ToLower(res.Path), lowerQuery) {
			results = append(results, res)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// GetAllDependencies returns a copy of all dependencies in the store.
func (m *MemStore) GetAllDependencies(_ context.Context) ([]Dependency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Dependency, len(m.deps))
	copy(out, m.deps)
	return out, nil
}

// GetDependencies performs a BFS over dependency edges from path in the
// given direction, up to maxDepth hops. It returns one DependencyChain per
// reachable resource.
func (m *MemStore) GetDependencies(_ context.Context, path string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	// BFS state: each entry tracks the path from the start to the current node.
	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{path: true}
	queue := []bfsEntry{{id: path, path: []string{path}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, DependencyChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// neighbors returns paths reachable from id in one hop along the given
// direction. A Source -> Target edge means Source references Target, so
// upstream follows sources to their targets and downstream runs the edges
// in reverse.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	var result []string
	for _, d := range m.deps {
		switch direction {
		case DirectionUpstream:
			if d.Source == id {
				result = append(result, d.Target)
			}
		case DirectionDownstream:
			if d.Target == id {
				result = append(result, d.Source)
			}
		}
	}
	sort.Strings(result)
	return result
}

// AssessImpact computes the blast radius of changing the given resources:
// every resource that references a changed one, directly or transitively.
func (m *MemStore) AssessImpact(_ context.Context, changed []string) (*ImpactResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	changedSet := make(map[string]bool, len(changed))
	for _, p := range changed {
		changedSet[p] = true
	}

	// DirectlyAffected: resources whose dependency targets a changed one.
	directSet := make(map[string]bool)
	for _, d := range m.deps {
		if changedSet[d.Target] && !changedSet[d.Source] {
			directSet[d.Source] = true
		}
	}

	// TransitivelyAffected: expand from the direct set until no new
	// resources appear.
	allAffected := make(map[string]bool, len(directSet))
	frontier := make(map[string]bool, len(directSet))
	for k := range directSet {
		allAffected[k] = true
		frontier[k] = true
	}

	for len(frontier) > 0 {
		nextFrontier := make(map[string]bool)
		for _, d := range m.deps {
			if frontier[d.Target] && !changedSet[d.Source] && !allAffected[d.Source] {
				allAffected[d.Source] = true
				nextFrontier[d.Source] = true
			}
		}
		frontier = nextFrontier
	}

	result := &ImpactResult{
		DirectlyAffected:     setToSlice(directSet),
		TransitivelyAffected: setToSlice(allAffected),
	}
	for p := range allAffected {
		switch m.resources[p].Kind {
		case KindScene:
			result.AffectedScenes++
		case KindScript:
			result.AffectedScripts++
		}
	}
	if len(m.resources) > 0 {
		result.RiskScore = float64(len(result.TransitivelyAffected)) / float64(len(m.resources))
	}
	return result, nil
}

// GetClusters returns all stored clusters.
func (m *MemStore) GetClusters(_ context.Context) ([]Cluster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Cluster, len(m.clusters))
	copy(out, m.clusters)
	return out, nil
}

// Stats returns counts over the stored graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &GraphStats{
		ResourceCount:   len(m.resources),
		DependencyCount: len(m.deps),
		ClusterCount:    len(m.clusters),
	}
	for _, res := range m.resources {
		if isSingleton(res) {
			stats.SingletonCount++
		}
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// sortedPaths returns the resource keys in sorted order. Callers hold mu.
func (m *MemStore) sortedPaths() []string {
	paths := make([]string, 0, len(m.resources))
	for p := range m.resources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// isSingleton reports whether a resource carries the singleton marker.
func isSingleton(res Resource) bool {
	b, ok := res.Properties["singleton"].(bool)
	return ok && b
}

// setToSlice converts a string set to a sorted slice.
func setToSlice(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
