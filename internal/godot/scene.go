package godot

import (
	"regexp"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// Scene file matchers. Godot 4.x writes keyed ext_resource headers with
// string ids; 3.x (and some 4.x exports) use the positional form with
// numeric ids and padded parens, ExtResource( 1 ). Both are handled.
var (
	extResourceRe    = regexp.MustCompile(`\[ext_resource\s+type="([^"]+)"\s+(?:uid="[^"]+"\s+)?path="([^"]+)"\s+id="([^"]+)"\]`)
	extResourceAltRe = regexp.MustCompile(`\[ext_resource\s+path="([^"]+)"\s+type="([^"]+)"\s+id=(\d+)\]`)
	nodeRe           = regexp.MustCompile(`\[node\s+name="([^"]+)"(?:\s+type="([^"]+)")?(?:\s+parent="([^"]+)")?(?:\s+instance=ExtResource\(\s*["']?([^"')\s]+)["']?\s*\))?\]`)
	scriptAssignRe   = regexp.MustCompile(`script\s*=\s*ExtResource\(\s*["']?([^"')\s]+)["']?\s*\)`)
	connectionRe     = regexp.MustCompile(`\[connection\s+signal="([^"]+)"\s+from="([^"]+)"\s+to="([^"]+)"\s+method="([^"]+)"\]`)
)

// godotTypeKinds maps the type a scene declares for an ext_resource to the
// dependency kind recorded for the reference.
var godotTypeKinds = map[string]graph.DependencyKind{
	"PackedScene":          graph.DepUsesScene,
	"Script":               graph.DepUsesScript,
	"GDScript":             graph.DepUsesScript,
	"CSharpScript":         graph.DepUsesScript,
	"Texture2D":            graph.DepUsesTexture,
	"CompressedTexture2D":  graph.DepUsesTexture,
	"ImageTexture":         graph.DepUsesTexture,
	"AtlasTexture":         graph.DepUsesTexture,
	"AudioStream":          graph.DepUsesAudio,
	"AudioStreamMP3":       graph.DepUsesAudio,
	"AudioStreamOggVorbis": graph.DepUsesAudio,
	"AudioStreamWAV":       graph.DepUsesAudio,
	"Material":             graph.DepUsesMaterial,
	"StandardMaterial3D":   graph.DepUsesMaterial,
	"ShaderMaterial":       graph.DepUsesShader,
	"Shader":               graph.DepUsesShader,
	"Font":                 graph.DepUsesFont,
	"FontFile":             graph.DepUsesFont,
	"SystemFont":           graph.DepUsesFont,
	"Theme":                graph.DepUsesResource,
	"Resource":             graph.DepUsesResource,
	"Animation":            graph.DepUsesResource,
	"AnimationLibrary":     graph.DepUsesResource,
	"SpriteFrames":         graph.DepUsesResource,
	"TileSet":              graph.DepUsesResource,
	"Environment":          graph.DepUsesResource,
}

func classifyGodotType(godotType string) graph.DependencyKind {
	if kind, ok := godotTypeKinds[godotType]; ok {
		return kind
	}
	return graph.DepUses
}

// extractScene pulls external resource references, scene instancing, script
// attachments and signal connections out of a .tscn/.scn body. Instance and
// script references are resolved through the file's own ext_resource table;
// ids that never appear there are dropped.
func extractScene(resPath string, content []byte) Extraction {
	text := string(content)
	var ex Extraction

	// id -> declared path, for resolving ExtResource(...) references below.
	paths := make(map[string]string)

	record := func(godotType, path, id string) {
		paths[id] = path
		ex.Dependencies = append(ex.Dependencies, graph.Dependency{
			Source:  resPath,
			Target:  path,
			Kind:    classifyGodotType(godotType),
			Context: "ext_resource: " + godotType,
		})
	}

	for _, m := range extResourceRe.FindAllStringSubmatch(text, -1) {
		record(m[1], m[2], m[3])
	}
	for _, m := range extResourceAltRe.FindAllStringSubmatch(text, -1) {
		record(m[2], m[1], m[3])
	}

	for _, m := range nodeRe.FindAllStringSubmatch(text, -1) {
		name, instanceID := m[1], m[4]
		if instanceID == "" {
			continue
		}
		path, ok := paths[instanceID]
		if !ok {
			continue
		}
		ex.Dependencies = append(ex.Dependencies, graph.Dependency{
			Source:  resPath,
			Target:  path,
			Kind:    graph.DepInstances,
			Context: "node instance: " + name,
		})
	}

	for _, m := range scriptAssignRe.FindAllStringSubmatch(text, -1) {
		path, ok := paths[m[1]]
		if !ok {
			continue
		}
		ex.Dependencies = append(ex.Dependencies, graph.Dependency{
			Source:  resPath,
			Target:  path,
			Kind:    graph.DepHasScript,
			Context: "attached script",
		})
	}

	for _, m := range connectionRe.FindAllStringSubmatch(text, -1) {
		ex.Connections = append(ex.Connections, SignalConnection{
			Signal: m[1],
			From:   m[2],
			To:     m[3],
			Method: m[4],
		})
	}

	return ex
}
