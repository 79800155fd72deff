// Package godot reads Godot 4.x project trees: project.godot settings,
// the resource inventory, and the reference matchers for scene and
// GDScript files.
package godot

import (
	"strings"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// SignalConnection is a [connection] entry from a scene file. Connections
// link nodes inside one scene, so they are kept as metadata rather than
// turned into graph edges.
type SignalConnection struct {
	Signal string `json:"signal"`
	From   string `json:"from"`
	To     string `json:"to"`
	Method string `json:"method"`
}

// Extraction holds everything pulled out of a single scene or script file.
type Extraction struct {
	Dependencies []graph.Dependency `json:"dependencies,omitempty"`
	ClassName    string             `json:"className,omitempty"`
	Extends      string             `json:"extends,omitempty"`
	Signals      []string           `json:"signals,omitempty"`
	Connections  []SignalConnection `json:"connections,omitempty"`
}

// Empty reports whether the extraction found nothing at all.
func (ex Extraction) Empty() bool {
	return len(ex.Dependencies) == 0 && ex.ClassName == "" && ex.Extends == "" &&
		len(ex.Signals) == 0 && len(ex.Connections) == 0
}

type extractorFunc func(resPath string, content []byte) Extraction

// Extractor dispatches file content to the matcher set for its resource kind.
type Extractor struct {
	extractors map[graph.ResourceKind]extractorFunc
}

// NewExtractor builds an extractor covering scenes and GDScript.
func NewExtractor() *Extractor {
	return &Extractor{
		extractors: map[graph.ResourceKind]extractorFunc{
			graph.KindScene:  extractScene,
			graph.KindScript: extractScript,
		},
	}
}

// CanExtract reports whether res carries references worth reading. Scenes
// always do; scripts only in GDScript form (C# sources are inventoried but
// not parsed).
func (e *Extractor) CanExtract(res *graph.Resource) bool {
	if _, ok := e.extractors[res.Kind]; !ok {
		return false
	}
	if res.Kind == graph.KindScript {
		return strings.HasSuffix(res.DiskPath, ".gd")
	}
	return true
}

// Extract runs the matchers for the resource's kind over content. Resources
// CanExtract rejects yield a zero Extraction.
func (e *Extractor) Extract(res *graph.Resource, content []byte) Extraction {
	if !e.CanExtract(res) {
		return Extraction{}
	}
	return e.extractors[res.Kind](res.Path, content)
}
