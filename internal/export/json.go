// Package export renders a stored dependency graph into the shared
// node/edge document formats.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"time"

	"github.com/google/renameio"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// docVersion stamps the document envelope.
const docVersion = "1.0"

// Node is one exported graph object.
type Node struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Edge is one exported relationship. Both endpoints always refer to ids
// present in the document's node list.
type Edge struct {
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Metadata records when and from which project the document was produced.
type Metadata struct {
	Version string `json:"version"`
	SavedAt string `json:"saved_at"`
	Project string `json:"project"`
}

// Document is the export envelope.
type Document struct {
	Objects       []Node   `json:"objects"`
	Relationships []Edge   `json:"relationships"`
	Metadata      Metadata `json:"metadata"`
}

// BuildDocument assembles the export envelope from resources and
// dependencies. Nodes are emitted in sorted path order with ids derived by
// graph.NodeID; when two distinct paths derive the same id, the later path
// gets a hash suffix so ids stay unique and deterministic. Dependencies
// whose endpoints have no node are dropped.
func BuildDocument(project string, resources []graph.Resource, deps []graph.Dependency) *Document {
	sorted := make([]graph.Resource, len(resources))
	copy(sorted, resources)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	doc := &Document{
		Objects:       make([]Node, 0, len(sorted)),
		Relationships: make([]Edge, 0, len(deps)),
		Metadata: Metadata{
			Version: docVersion,
			SavedAt: time.Now().UTC().Format(time.RFC3339),
			Project: project,
		},
	}

	ids := make(map[string]string, len(sorted)) // logical path -> node id
	taken := make(map[string]bool, len(sorted))
	for _, res := range sorted {
		id := graph.NodeID(res.Path)
		if taken[id] {
			id += "_" + pathHash(res.Path)
		}
		taken[id] = true
		ids[res.Path] = id

		props := make(map[string]string, len(res.Properties)+2)
		for key, value := range res.Properties {
			props[key] = stringify(value)
		}
		props["godot_type"] = string(res.Kind)
		props["res_path"] = res.Path

		doc.Objects = append(doc.Objects, Node{
			ID:         id,
			Kind:       nodeKind(res.Kind),
			Name:       res.Name,
			Properties: props,
		})
	}

	for _, dep := range deps {
		srcID, ok := ids[dep.Source]
		if !ok {
			continue
		}
		tgtID, ok := ids[dep.Target]
		if !ok {
			continue
		}
		doc.Relationships = append(doc.Relationships, Edge{
			SourceID:    srcID,
			TargetID:    tgtID,
			Kind:        edgeKind(dep.Kind),
			Description: fmt.Sprintf("[%s] %s", dep.Kind, dep.Context),
		})
	}

	return doc
}

// GenerateJSON renders the store contents as the indented document
// envelope.
func GenerateJSON(ctx context.Context, store graph.Store, project string) ([]byte, error) {
	resources, err := store.ListResources(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	deps, err := store.GetAllDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("get dependencies: %w", err)
	}

	data, err := json.MarshalIndent(BuildDocument(project, resources, deps), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes rendered output to path atomically, so a crash mid-write
// never leaves a truncated document behind.
func WriteFile(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// nodeKind maps internal resource kinds onto the boundary vocabulary.
func nodeKind(k graph.ResourceKind) string {
	switch k {
	case graph.KindScene:
		return "godot_scene"
	case graph.KindScript, graph.KindShader:
		return "godot_script"
	case graph.KindAutoload:
		return "godot_autoload"
	default:
		return "godot_resource"
	}
}

// edgeKind collapses dependency kinds onto the three boundary relations.
func edgeKind(k graph.DependencyKind) string {
	switch k {
	case graph.DepInstances, graph.DepExtends:
		return "depends_on"
	case graph.DepUsesAutoload:
		return "connects_to"
	default:
		return "uses"
	}
}

func pathHash(logicalPath string) string {
	h := fnv.New32a()
	h.Write([]byte(logicalPath))
	return fmt.Sprintf("%08x", h.Sum32())
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
