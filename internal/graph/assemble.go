package graph

import (
	"path"
	"strings"
)

// depKey is the identity of a dependency fact.
type depKey struct {
	source string
	target string
	kind   DependencyKind
}

// Assemble applies kind-level filtering and deduplication to the merged
// dependency list. A dependency whose target extension maps to an excluded
// kind is dropped even when the target was never inventoried, keeping the
// filter consistent for cross-file inferred edges. Duplicate
// (source, target, kind) facts collapse to the first seen, preserving its
// context. Input order is also the output order.
func Assemble(deps []Dependency, filters Filters) []Dependency {
	excluded := filters.ExcludedExtensions()
	seen := make(map[depKey]bool, len(deps))
	out := make([]Dependency, 0, len(deps))
	for _, dep := range deps {
		ext := strings.ToLower(path.Ext(dep.Target))
		if excluded[ext] {
			continue
		}
		key := depKey{source: dep.Source, target: dep.Target, kind: dep.Kind}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, dep)
	}
	return out
}

// CountByDependencyKind returns a kind histogram over a dependency list.
func CountByDependencyKind(deps []Dependency) map[DependencyKind]int {
	counts := make(map[DependencyKind]int)
	for _, dep := range deps {
		counts[dep.Kind]++
	}
	return counts
}
