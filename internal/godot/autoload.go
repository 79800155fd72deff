package godot

import (
	"regexp"
	"sort"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// ContentFunc returns the content of a scanned resource by its disk path.
// The analyzer passes a cached reader so scripts touched during extraction
// are not read twice.
type ContentFunc func(diskPath string) ([]byte, error)

// SingletonUsage scans every script body for references to autoload
// singletons, the registered name followed by a dot, and records one
// uses_autoload dependency per referencing script. A singleton's own script
// is skipped, and scripts that cannot be read are silently left out.
// Singletons and scripts are visited in path order so repeated runs emit
// dependencies in the same order.
func SingletonUsage(singletons graph.SingletonTable, inv *graph.Inventory, read ContentFunc) []graph.Dependency {
	var deps []graph.Dependency

	names := make([]string, 0, len(singletons))
	for name := range singletons {
		names = append(names, name)
	}
	sort.Strings(names)

	scripts := inv.ByKind(graph.KindScript)

	for _, name := range names {
		target := singletons[name]
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\.`)
		for _, res := range scripts {
			if res.Path == target {
				continue
			}
			content, err := read(res.DiskPath)
			if err != nil {
				continue
			}
			if re.Match(content) {
				deps = append(deps, graph.Dependency{
					Source:  res.Path,
					Target:  target,
					Kind:    graph.DepUsesAutoload,
					Context: "Uses singleton: " + name,
				})
			}
		}
	}
	return deps
}
