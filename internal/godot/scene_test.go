package godot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// depsByKind returns all dependencies matching the given kind.
func depsByKind(deps []graph.Dependency, kind graph.DependencyKind) []graph.Dependency {
	var out []graph.Dependency
	for _, d := range deps {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// targetsOf projects dependencies onto their target paths, keeping order.
func targetsOf(deps []graph.Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Target)
	}
	return out
}

// ---------------------------------------------------------------------------
// TestExtractScene_Godot4
// ---------------------------------------------------------------------------

func TestExtractScene_Godot4(t *testing.T) {
	// A trimmed Godot 4.x scene: three external resources, an attached
	// script, an instanced sub-scene and one signal connection.
	const scene = `[gd_scene load_steps=4 format=3 uid="uid://b8kx7m2vqw3n"]

[ext_resource type="Script" path="res://scripts/player.gd" id="1_owf2q"]
[ext_resource type="PackedScene" uid="uid://c5omo0q8xvqwl" path="res://scenes/sword.tscn" id="2_hf3kd"]
[ext_resource type="Texture2D" path="res://assets/player.png" id="3_aa1bc"]

[sub_resource type="RectangleShape2D" id="RectangleShape2D_x1y2z"]
size = Vector2(16, 24)

[node name="Player" type="CharacterBody2D"]
script = ExtResource("1_owf2q")

[node name="Sprite2D" type="Sprite2D" parent="."]
texture = ExtResource("3_aa1bc")

[node name="Sword" parent="." instance=ExtResource("2_hf3kd")]

[connection signal="body_entered" from="Hitbox" to="." method="_on_hitbox_body_entered"]
`

	ex := extractScene("res://scenes/player.tscn", []byte(scene))

	t.Run("ext_resources", func(t *testing.T) {
		scripts := depsByKind(ex.Dependencies, graph.DepUsesScript)
		require.Len(t, scripts, 1)
		assert.Equal(t, "res://scenes/player.tscn", scripts[0].Source)
		assert.Equal(t, "res://scripts/player.gd", scripts[0].Target)
		assert.Equal(t, "ext_resource: Script", scripts[0].Context)

		scenes := depsByKind(ex.Dependencies, graph.DepUsesScene)
		require.Len(t, scenes, 1)
		assert.Equal(t, "res://scenes/sword.tscn", scenes[0].Target)

		textures := depsByKind(ex.Dependencies, graph.DepUsesTexture)
		require.Len(t, textures, 1)
		assert.Equal(t, "res://assets/player.png", textures[0].Target)
	})

	t.Run("instances", func(t *testing.T) {
		instances := depsByKind(ex.Dependencies, graph.DepInstances)
		require.Len(t, instances, 1)
		assert.Equal(t, "res://scenes/sword.tscn", instances[0].Target)
		assert.Equal(t, "node instance: Sword", instances[0].Context)
	})

	t.Run("attached script", func(t *testing.T) {
		attached := depsByKind(ex.Dependencies, graph.DepHasScript)
		require.Len(t, attached, 1)
		assert.Equal(t, "res://scripts/player.gd", attached[0].Target)
		assert.Equal(t, "attached script", attached[0].Context)
	})

	t.Run("connections stay metadata", func(t *testing.T) {
		require.Len(t, ex.Connections, 1)
		assert.Equal(t, SignalConnection{
			Signal: "body_entered",
			From:   "Hitbox",
			To:     ".",
			Method: "_on_hitbox_body_entered",
		}, ex.Connections[0])

		// No dependency kind corresponds to a connection.
		assert.Len(t, ex.Dependencies, 5)
	})
}

// ---------------------------------------------------------------------------
// TestExtractScene_Godot3Positional
// ---------------------------------------------------------------------------

func TestExtractScene_Godot3Positional(t *testing.T) {
	// The 3.x header form: path before type, bare numeric ids, and the
	// editor's padded ExtResource( n ) references.
	const scene = `[gd_scene load_steps=4 format=2]

[ext_resource path="res://enemy.gd" type="Script" id=1]
[ext_resource path="res://sprites/enemy.png" type="Texture2D" id=2]
[ext_resource path="res://weapon.tscn" type="PackedScene" id=3]

[node name="Enemy" type="KinematicBody2D"]
script = ExtResource( 1 )

[node name="Weapon" parent="." instance=ExtResource( 3 )]
`

	ex := extractScene("res://enemy.tscn", []byte(scene))

	scripts := depsByKind(ex.Dependencies, graph.DepUsesScript)
	require.Len(t, scripts, 1)
	assert.Equal(t, "res://enemy.gd", scripts[0].Target)

	textures := depsByKind(ex.Dependencies, graph.DepUsesTexture)
	require.Len(t, textures, 1)

	attached := depsByKind(ex.Dependencies, graph.DepHasScript)
	require.Len(t, attached, 1)
	assert.Equal(t, "res://enemy.gd", attached[0].Target)

	instances := depsByKind(ex.Dependencies, graph.DepInstances)
	require.Len(t, instances, 1)
	assert.Equal(t, "res://weapon.tscn", instances[0].Target)
	assert.Equal(t, "node instance: Weapon", instances[0].Context)
}

// ---------------------------------------------------------------------------
// TestExtractScene_TypeClassification
// ---------------------------------------------------------------------------

func TestExtractScene_TypeClassification(t *testing.T) {
	cases := []struct {
		godotType string
		want      graph.DependencyKind
	}{
		{"PackedScene", graph.DepUsesScene},
		{"GDScript", graph.DepUsesScript},
		{"CSharpScript", graph.DepUsesScript},
		{"CompressedTexture2D", graph.DepUsesTexture},
		{"AudioStreamOggVorbis", graph.DepUsesAudio},
		{"StandardMaterial3D", graph.DepUsesMaterial},
		{"ShaderMaterial", graph.DepUsesShader},
		{"FontFile", graph.DepUsesFont},
		{"TileSet", graph.DepUsesResource},
		{"Curve2D", graph.DepUses}, // unmapped type falls back to plain uses
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyGodotType(tc.godotType), "type %s", tc.godotType)
	}
}

// ---------------------------------------------------------------------------
// TestExtractScene_UnknownReferenceDropped
// ---------------------------------------------------------------------------

func TestExtractScene_UnknownReferenceDropped(t *testing.T) {
	// Instance and script ids that never appear in the ext_resource table
	// produce no edges.
	const scene = `[gd_scene load_steps=2 format=3]

[ext_resource type="Script" path="res://a.gd" id="1_ok"]

[node name="Ghost" parent="." instance=ExtResource("9_missing")]

[node name="Root" type="Node2D"]
script = ExtResource("8_missing")
`

	ex := extractScene("res://root.tscn", []byte(scene))

	assert.Empty(t, depsByKind(ex.Dependencies, graph.DepInstances))
	assert.Empty(t, depsByKind(ex.Dependencies, graph.DepHasScript))

	// The declared ext_resource itself is still recorded.
	require.Len(t, ex.Dependencies, 1)
	assert.Equal(t, graph.DepUsesScript, ex.Dependencies[0].Kind)
}

// ---------------------------------------------------------------------------
// TestExtractScene_Empty
// ---------------------------------------------------------------------------

func TestExtractScene_Empty(t *testing.T) {
	ex := extractScene("res://empty.tscn", []byte("[gd_scene format=3]\n"))
	assert.True(t, ex.Empty())
}
