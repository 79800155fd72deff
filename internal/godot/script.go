package godot

import (
	"regexp"
	"strings"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// GDScript matchers.
var (
	extendsRe   = regexp.MustCompile(`(?m)^extends\s+["']([^"']+)["']`)
	classNameRe = regexp.MustCompile(`(?m)^class_name\s+(\w+)`)
	preloadRe   = regexp.MustCompile(`preload\s*\(\s*["']([^"']+)["']\s*\)`)
	loadRe      = regexp.MustCompile(`load\s*\(\s*["']([^"']+)["']\s*\)`)
	signalRe    = regexp.MustCompile(`(?m)^signal\s+(\w+)`)
)

// extractScript pulls the extends target, preload/load references and
// declared signals out of a GDScript body. Only quoted-path extends become
// edges; `extends Node2D` style builtin parents carry no resource reference.
func extractScript(resPath string, content []byte) Extraction {
	text := string(content)
	var ex Extraction

	if m := extendsRe.FindStringSubmatch(text); m != nil {
		value := m[1]
		target := value
		if !strings.HasPrefix(target, "res://") {
			target = "res://" + target
		}
		ex.Extends = value
		ex.Dependencies = append(ex.Dependencies, graph.Dependency{
			Source:  resPath,
			Target:  target,
			Kind:    graph.DepExtends,
			Context: "extends " + value,
		})
	}

	if m := classNameRe.FindStringSubmatch(text); m != nil {
		ex.ClassName = m[1]
	}

	for _, m := range preloadRe.FindAllStringSubmatch(text, -1) {
		ex.Dependencies = appendLoadDep(ex.Dependencies, resPath, m[1],
			graph.DepPreloads, graph.DepPreloadsScene, "preload")
	}

	// regexp has no lookbehind, so loadRe also hits the tail of every
	// preload call. Check the three bytes before the match to drop those.
	for _, idx := range loadRe.FindAllStringSubmatchIndex(text, -1) {
		start := idx[0]
		if start >= 3 && text[start-3:start] == "pre" {
			continue
		}
		ex.Dependencies = appendLoadDep(ex.Dependencies, resPath, text[idx[2]:idx[3]],
			graph.DepLoads, graph.DepLoadsScene, "load")
	}

	for _, m := range signalRe.FindAllStringSubmatch(text, -1) {
		ex.Signals = append(ex.Signals, m[1])
	}

	return ex
}

// appendLoadDep records one preload/load reference. Targets outside res://
// (user:// saves, absolute paths) are ignored; .tscn targets get the scene
// flavored kind.
func appendLoadDep(deps []graph.Dependency, source, target string, kind, sceneKind graph.DependencyKind, call string) []graph.Dependency {
	if !strings.HasPrefix(target, "res://") {
		return deps
	}
	if strings.HasSuffix(target, ".tscn") {
		kind = sceneKind
	}
	return append(deps, graph.Dependency{
		Source:  source,
		Target:  target,
		Kind:    kind,
		Context: call + "(" + target + ")",
	})
}
