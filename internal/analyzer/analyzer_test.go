package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/gdgraph/internal/godot"
	"github.com/dusk-indust/gdgraph/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeTree materializes the given relative-path -> content map under a
// fresh temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// crawlerProject is a small but complete project: two wired scenes, a
// script inheritance chain, a preload, an autoload singleton used from two
// scripts, and one texture.
func crawlerProject(t *testing.T) string {
	t.Helper()
	return writeTree(t, map[string]string{
		"project.godot": `config_version=5

[application]

config/name="Crawler"

[autoload]

Global="*res://scripts/global.gd"
`,
		"scenes/main.tscn": `[gd_scene load_steps=3 format=3]

[ext_resource type="Script" path="res://scripts/main.gd" id="1_m"]
[ext_resource type="PackedScene" path="res://scenes/player.tscn" id="2_p"]

[node name="Main" type="Node2D"]
script = ExtResource("1_m")

[node name="Player" parent="." instance=ExtResource("2_p")]
`,
		"scenes/player.tscn": `[gd_scene load_steps=3 format=3]

[ext_resource type="Script" path="res://scripts/player.gd" id="1_pl"]
[ext_resource type="Texture2D" path="res://assets/player.png" id="2_tx"]

[node name="Player" type="CharacterBody2D"]
script = ExtResource("1_pl")
`,
		"scenes/hud.tscn": "[gd_scene format=3]\n",
		"scripts/main.gd": `extends Node2D

func _ready():
	Global.start()
`,
		"scripts/player.gd": `extends "res://scripts/base.gd"

class_name Player

signal died

const Hud = preload("res://scenes/hud.tscn")

func _hurt():
	Global.add_score(1)
`,
		"scripts/base.gd":   "extends CharacterBody2D\n",
		"scripts/global.gd": "extends Node\n\nvar score = 0\n",
		"assets/player.png": "png-bytes",
	})
}

func runAnalyzer(t *testing.T, opts Options) *Result {
	t.Helper()
	a, err := New(opts, nil)
	require.NoError(t, err)
	result, err := a.Run(context.Background())
	require.NoError(t, err)
	return result
}

// ---------------------------------------------------------------------------
// TestAnalyzer_Run
// ---------------------------------------------------------------------------

func TestAnalyzer_Run(t *testing.T) {
	root := crawlerProject(t)
	result := runAnalyzer(t, Options{Root: root})

	t.Run("project settings", func(t *testing.T) {
		assert.Equal(t, "Crawler", result.ProjectName)
		assert.Equal(t, graph.SingletonTable{"Global": "res://scripts/global.gd"}, result.Singletons)
	})

	t.Run("inventory", func(t *testing.T) {
		assert.Equal(t, []string{
			"res://assets/player.png",
			"res://scenes/hud.tscn",
			"res://scenes/main.tscn",
			"res://scenes/player.tscn",
			"res://scripts/base.gd",
			"res://scripts/global.gd",
			"res://scripts/main.gd",
			"res://scripts/player.gd",
		}, result.Inventory.Paths())
	})

	t.Run("singleton folded onto scanned script", func(t *testing.T) {
		res, ok := result.Inventory.Get("res://scripts/global.gd")
		require.True(t, ok)
		assert.Equal(t, graph.KindScript, res.Kind, "scanned kind survives the overlay")
		assert.Equal(t, "[Autoload] Global", res.Name)
		assert.Equal(t, "Global", res.Properties["autoload_name"])
		assert.Equal(t, true, res.Properties["singleton"])
	})

	t.Run("dependencies", func(t *testing.T) {
		require.Len(t, result.Dependencies, 11)

		// Extraction order follows the sorted inventory; usage edges come
		// last. Spot-check the interesting ones.
		assert.Equal(t, graph.Dependency{
			Source:  "res://scenes/main.tscn",
			Target:  "res://scripts/main.gd",
			Kind:    graph.DepUsesScript,
			Context: "ext_resource: Script",
		}, result.Dependencies[0])

		assert.Equal(t, graph.Dependency{
			Source:  "res://scenes/main.tscn",
			Target:  "res://scenes/player.tscn",
			Kind:    graph.DepInstances,
			Context: "node instance: Player",
		}, result.Dependencies[2])

		assert.Equal(t, graph.Dependency{
			Source:  "res://scripts/player.gd",
			Target:  "res://scripts/base.gd",
			Kind:    graph.DepExtends,
			Context: "extends res://scripts/base.gd",
		}, result.Dependencies[7])

		assert.Equal(t, graph.Dependency{
			Source:  "res://scripts/main.gd",
			Target:  "res://scripts/global.gd",
			Kind:    graph.DepUsesAutoload,
			Context: "Uses singleton: Global",
		}, result.Dependencies[9])

		counts := graph.CountByDependencyKind(result.Dependencies)
		assert.Equal(t, map[graph.DependencyKind]int{
			graph.DepUsesScript:    2,
			graph.DepUsesScene:     1,
			graph.DepUsesTexture:   1,
			graph.DepInstances:     1,
			graph.DepHasScript:     2,
			graph.DepExtends:       1,
			graph.DepPreloadsScene: 1,
			graph.DepUsesAutoload:  2,
		}, counts)
	})

	t.Run("meta", func(t *testing.T) {
		player, ok := result.Meta["res://scripts/player.gd"]
		require.True(t, ok)
		assert.Equal(t, "Player", player.ClassName)
		assert.Equal(t, []string{"died"}, player.Signals)

		// Scripts with a builtin parent and no references produce nothing.
		_, ok = result.Meta["res://scripts/base.gd"]
		assert.False(t, ok)
	})
}

// ---------------------------------------------------------------------------
// TestAnalyzer_Filters
// ---------------------------------------------------------------------------

func TestAnalyzer_Filters(t *testing.T) {
	root := crawlerProject(t)
	result := runAnalyzer(t, Options{Root: root, Filters: graph.Filters{Textures: true}})

	// player.png is neither scanned nor allowed as an edge target, even
	// though player.tscn still declares it.
	_, ok := result.Inventory.Get("res://assets/player.png")
	assert.False(t, ok)

	for _, dep := range result.Dependencies {
		assert.NotEqual(t, "res://assets/player.png", dep.Target)
	}
	assert.Len(t, result.Dependencies, 10)
	assert.Equal(t, graph.Filters{Textures: true}, result.Filters)
}

// ---------------------------------------------------------------------------
// TestAnalyzer_DeterministicAcrossWorkers
// ---------------------------------------------------------------------------

func TestAnalyzer_DeterministicAcrossWorkers(t *testing.T) {
	root := crawlerProject(t)

	serial := runAnalyzer(t, Options{Root: root, Workers: 1})
	parallel := runAnalyzer(t, Options{Root: root, Workers: 8})

	assert.Equal(t, serial.Dependencies, parallel.Dependencies)
	assert.Equal(t, serial.Meta, parallel.Meta)
	assert.Equal(t, serial.Inventory.Paths(), parallel.Inventory.Paths())
}

// ---------------------------------------------------------------------------
// TestAnalyzer_SynthesizedSingleton
// ---------------------------------------------------------------------------

func TestAnalyzer_SynthesizedSingleton(t *testing.T) {
	// The registered script does not exist on disk; the analyzer still
	// inventories it so usage edges have a real endpoint.
	root := writeTree(t, map[string]string{
		"project.godot": "[autoload]\n\nGhost=\"*res://systems/ghost.gd\"\n",
		"a.gd":          "func f():\n\tGhost.spook()\n",
	})

	result := runAnalyzer(t, Options{Root: root})

	res, ok := result.Inventory.Get("res://systems/ghost.gd")
	require.True(t, ok)
	assert.Equal(t, graph.KindAutoload, res.Kind)
	assert.Equal(t, "[Autoload] Ghost", res.Name)
	assert.Equal(t, filepath.Join(root, "systems", "ghost.gd"), res.DiskPath)

	require.Len(t, result.Dependencies, 1)
	assert.Equal(t, graph.Dependency{
		Source:  "res://a.gd",
		Target:  "res://systems/ghost.gd",
		Kind:    graph.DepUsesAutoload,
		Context: "Uses singleton: Ghost",
	}, result.Dependencies[0])
}

// ---------------------------------------------------------------------------
// TestAnalyzer_UnreadableFileSkipped
// ---------------------------------------------------------------------------

func TestAnalyzer_UnreadableFileSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{
		"project.godot": "config_version=5\n",
		"ok.gd":         `extends "res://base.gd"` + "\n",
		"base.gd":       "extends Node\n",
	})
	// A dangling symlink scans fine but cannot be read back.
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.gd"), filepath.Join(root, "broken.gd")))

	result := runAnalyzer(t, Options{Root: root})

	_, ok := result.Inventory.Get("res://broken.gd")
	assert.True(t, ok, "unreadable files still appear in the inventory")

	require.Len(t, result.Dependencies, 1)
	assert.Equal(t, "res://ok.gd", result.Dependencies[0].Source)
}

// ---------------------------------------------------------------------------
// TestAnalyzer_Errors
// ---------------------------------------------------------------------------

func TestAnalyzer_NotAProject(t *testing.T) {
	a, err := New(Options{Root: t.TempDir()}, nil)
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	assert.ErrorIs(t, err, godot.ErrNoProject)
}

func TestAnalyzer_Canceled(t *testing.T) {
	root := crawlerProject(t)
	a, err := New(Options{Root: root}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// TestAnalyzer_Progress
// ---------------------------------------------------------------------------

func TestAnalyzer_Progress(t *testing.T) {
	root := crawlerProject(t)

	var mu sync.Mutex
	var events []ProgressEvent
	a, err := New(Options{Root: root}, func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	completed := make(map[Stage]bool)
	extracted := make(map[string]bool)
	for _, ev := range events {
		if ev.Status == ProgressComplete {
			completed[ev.Stage] = true
			if ev.Stage == StageExtract && ev.Path != "" {
				extracted[ev.Path] = true
			}
		}
		assert.NotEqual(t, ProgressFailed, ev.Status, "no failures expected: %+v", ev)
	}

	for _, stage := range []Stage{StageConfig, StageScan, StageAutoloads, StageAssemble} {
		assert.True(t, completed[stage], "missing complete event for stage %s", stage)
	}
	assert.True(t, extracted["res://scenes/main.tscn"])
	assert.True(t, extracted["res://scripts/player.gd"])
}
