package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// Populate writes an analysis result into a store: schema, resources in
// path order, dependencies, then clusters. Dependencies pointing at paths
// the scan never produced (broken references in scenes or scripts) stay in
// the Result for reporting but are not stored, so both store backends hold
// the same graph.
func Populate(ctx context.Context, store graph.Store, result *Result) error {
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	resources := result.Inventory.Resources()
	for _, res := range resources {
		if err := store.AddResource(ctx, *res); err != nil {
			return fmt.Errorf("add resource %s: %w", res.Path, err)
		}
	}

	dangling := 0
	for _, dep := range result.Dependencies {
		if _, ok := result.Inventory.Get(dep.Source); !ok {
			dangling++
			continue
		}
		if _, ok := result.Inventory.Get(dep.Target); !ok {
			dangling++
			continue
		}
		if err := store.AddDependency(ctx, dep); err != nil {
			return fmt.Errorf("add dependency %s -> %s: %w", dep.Source, dep.Target, err)
		}
	}
	if dangling > 0 {
		slog.Default().Debug("dangling dependencies not stored", "count", dangling)
	}

	values := make([]graph.Resource, len(resources))
	for i, res := range resources {
		values[i] = *res
	}
	if _, err := graph.ComputeClusters(ctx, store, values); err != nil {
		return fmt.Errorf("compute clusters: %w", err)
	}
	return nil
}
