package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

func TestPopulate(t *testing.T) {
	ctx := context.Background()

	inv := graph.NewInventory()
	inv.Add(&graph.Resource{Path: "res://ui/hud.tscn", Kind: graph.KindScene, Name: "[Scene] hud"})
	inv.Add(&graph.Resource{Path: "res://ui/hud.gd", Kind: graph.KindScript, Name: "[Script] hud"})
	inv.Add(&graph.Resource{Path: "res://menu.tscn", Kind: graph.KindScene, Name: "[Scene] menu"})

	result := &Result{
		ProjectName: "Fixture",
		Inventory:   inv,
		Dependencies: []graph.Dependency{
			{Source: "res://ui/hud.tscn", Target: "res://ui/hud.gd", Kind: graph.DepHasScript, Context: "attached script"},
			// Broken reference: the target was never scanned.
			{Source: "res://ui/hud.gd", Target: "res://missing.gd", Kind: graph.DepExtends, Context: "extends res://missing.gd"},
		},
	}

	store := graph.NewMemStore()
	require.NoError(t, Populate(ctx, store, result))

	t.Run("resources stored", func(t *testing.T) {
		all, err := store.ListResources(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("dangling dependency dropped", func(t *testing.T) {
		deps, err := store.GetAllDependencies(ctx)
		require.NoError(t, err)
		require.Len(t, deps, 1)
		assert.Equal(t, "res://ui/hud.gd", deps[0].Target)
	})

	t.Run("clusters computed", func(t *testing.T) {
		clusters, err := store.GetClusters(ctx)
		require.NoError(t, err)
		require.Len(t, clusters, 1, "hud pair forms the only multi-member component")
		assert.ElementsMatch(t, []string{"res://ui/hud.tscn", "res://ui/hud.gd"}, clusters[0].Members)
	})

	t.Run("stats reflect stored graph", func(t *testing.T) {
		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.ResourceCount)
		assert.Equal(t, 1, stats.DependencyCount)
		assert.Equal(t, 1, stats.ClusterCount)
	})
}

func TestPopulate_EndToEnd(t *testing.T) {
	root := crawlerProject(t)
	result := runAnalyzer(t, Options{Root: root})

	store := graph.NewMemStore()
	require.NoError(t, Populate(context.Background(), store, result))

	ctx := context.Background()

	// Every analyzed dependency has scanned endpoints in this fixture, so
	// the stored graph matches the result exactly.
	deps, err := store.GetAllDependencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Dependencies, deps)

	// Impact of the base script reaches the whole inheritance chain.
	impact, err := store.AssessImpact(ctx, []string{"res://scripts/base.gd"})
	require.NoError(t, err)
	assert.Contains(t, impact.DirectlyAffected, "res://scripts/player.gd")
}
