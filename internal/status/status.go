// Package status aggregates an analysis result into the statistics report
// surfaced by the CLI, the MCP tools and the analysis service.
package status

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/gdgraph/internal/analyzer"
	"github.com/dusk-indust/gdgraph/internal/graph"
)

// sampleLimit caps how many dependencies the formatted banner lists.
const sampleLimit = 10

// Report is the statistics view of one analysis run.
type Report struct {
	ProjectName       string                       `json:"project_name"`
	TotalResources    int                          `json:"total_resources"`
	TotalDependencies int                          `json:"total_dependencies"`
	ByType            map[graph.ResourceKind]int   `json:"by_type"`
	Autoloads         []string                     `json:"autoloads"`
	DependencyTypes   map[graph.DependencyKind]int `json:"dependency_types"`
	Filters           graph.Filters                `json:"filters"`

	// OrphanResources lists resources no assembled dependency touches on
	// either end, sorted by path.
	OrphanResources []string `json:"orphan_resources"`

	samples []graph.Dependency
}

// Build computes the report for a finished run.
func Build(result *analyzer.Result) *Report {
	deps := result.Dependencies

	autoloads := make([]string, 0, len(result.Singletons))
	for name := range result.Singletons {
		autoloads = append(autoloads, name)
	}
	sort.Strings(autoloads)

	touched := make(map[string]bool, len(deps)*2)
	for _, dep := range deps {
		touched[dep.Source] = true
		touched[dep.Target] = true
	}
	orphans := make([]string, 0)
	for _, path := range result.Inventory.Paths() {
		if !touched[path] {
			orphans = append(orphans, path)
		}
	}

	samples := deps
	if len(samples) > sampleLimit {
		samples = samples[:sampleLimit]
	}

	return &Report{
		ProjectName:       result.ProjectName,
		TotalResources:    result.Inventory.Len(),
		TotalDependencies: len(deps),
		ByType:            result.Inventory.CountByKind(),
		Autoloads:         autoloads,
		DependencyTypes:   graph.CountByDependencyKind(deps),
		Filters:           result.Filters,
		OrphanResources:   orphans,
		samples:           samples,
	}
}

// Format renders the report as the text banner the CLI prints.
func (r *Report) Format() string {
	var b strings.Builder
	banner := strings.Repeat("=", 50)

	fmt.Fprintf(&b, "%s\n", banner)
	fmt.Fprintf(&b, "Project: %s\n", r.ProjectName)
	fmt.Fprintf(&b, "%s\n", banner)

	if names := r.Filters.ExcludedNames(); len(names) > 0 {
		fmt.Fprintf(&b, "Excluded: %s\n", strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, "\nTotal resources: %d\n", r.TotalResources)
	fmt.Fprintf(&b, "Total dependencies: %d\n", r.TotalDependencies)

	b.WriteString("\nResources by type:\n")
	for _, kind := range sortedKeys(r.ByType) {
		fmt.Fprintf(&b, "  %s: %d\n", kind, r.ByType[kind])
	}

	if len(r.Autoloads) > 0 {
		fmt.Fprintf(&b, "\nAutoload singletons: %s\n", strings.Join(r.Autoloads, ", "))
	}

	b.WriteString("\nDependency types:\n")
	for _, kind := range sortedKeys(r.DependencyTypes) {
		fmt.Fprintf(&b, "  %s: %d\n", kind, r.DependencyTypes[kind])
	}

	if len(r.samples) > 0 {
		fmt.Fprintf(&b, "\nSample dependencies (first %d):\n", len(r.samples))
		for _, dep := range r.samples {
			fmt.Fprintf(&b, "  %s --[%s]--> %s\n", dep.Source, dep.Kind, dep.Target)
		}
	}

	if len(r.OrphanResources) > 0 {
		fmt.Fprintf(&b, "\nOrphan resources (%d):\n", len(r.OrphanResources))
		for _, path := range r.OrphanResources {
			fmt.Fprintf(&b, "  %s\n", path)
		}
	}

	return b.String()
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
