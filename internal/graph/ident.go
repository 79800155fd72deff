package graph

import "strings"

var idReplacer = strings.NewReplacer("/", "_", ".", "_", "-", "_")

// NodeID derives the exported node id for a logical path: the res://
// prefix is stripped and path separators, dots, and hyphens each become an
// underscore. "res://scenes/main.tscn" -> "godot_scenes_main_tscn". The
// derivation is deterministic but not injective; the exporter
// disambiguates the rare collisions.
func NodeID(logicalPath string) string {
	return "godot_" + idReplacer.Replace(strings.TrimPrefix(logicalPath, "res://"))
}
