package graph

import "strings"

// --- Enums ---

// ResourceKind classifies resources in the project dependency graph.
type ResourceKind string

const (
	KindScene    ResourceKind = "scene"
	KindScript   ResourceKind = "script"
	KindResource ResourceKind = "resource"
	KindTexture  ResourceKind = "texture"
	KindAudio    ResourceKind = "audio"
	KindShader   ResourceKind = "shader"
	KindFont     ResourceKind = "font"
	KindAutoload ResourceKind = "autoload"
	KindUnknown  ResourceKind = "unknown"
)

// Tag returns the bracketed label used in display names, e.g. "[Scene]".
func (k ResourceKind) Tag() string {
	switch k {
	case KindScene:
		return "[Scene]"
	case KindScript:
		return "[Script]"
	case KindTexture:
		return "[Texture]"
	case KindAudio:
		return "[Audio]"
	case KindShader:
		return "[Shader]"
	case KindFont:
		return "[Font]"
	case KindAutoload:
		return "[Autoload]"
	default:
		return "[Resource]"
	}
}

// DependencyKind classifies why one resource references another.
type DependencyKind string

const (
	DepExtends       DependencyKind = "extends"
	DepHasScript     DependencyKind = "has_script"
	DepInstances     DependencyKind = "instances"
	DepPreloads      DependencyKind = "preloads"
	DepPreloadsScene DependencyKind = "preloads_scene"
	DepLoads         DependencyKind = "loads"
	DepLoadsScene    DependencyKind = "loads_scene"
	DepUsesScene     DependencyKind = "uses_scene"
	DepUsesScript    DependencyKind = "uses_script"
	DepUsesTexture   DependencyKind = "uses_texture"
	DepUsesAudio     DependencyKind = "uses_audio"
	DepUsesMaterial  DependencyKind = "uses_material"
	DepUsesShader    DependencyKind = "uses_shader"
	DepUsesFont      DependencyKind = "uses_font"
	DepUsesResource  DependencyKind = "uses_resource"
	DepUses          DependencyKind = "uses"
	DepUsesAutoload  DependencyKind = "uses_autoload"
)

// extensionKinds maps file extensions to resource kinds. Extensions absent
// from this table are never inventoried.
var extensionKinds = map[string]ResourceKind{
	".tscn":     KindScene,
	".scn":      KindScene,
	".gd":       KindScript,
	".cs":       KindScript,
	".tres":     KindResource,
	".res":      KindResource,
	".png":      KindTexture,
	".jpg":      KindTexture,
	".jpeg":     KindTexture,
	".webp":     KindTexture,
	".svg":      KindTexture,
	".wav":      KindAudio,
	".ogg":      KindAudio,
	".mp3":      KindAudio,
	".gdshader": KindShader,
	".shader":   KindShader,
	".ttf":      KindFont,
	".otf":      KindFont,
	".woff":     KindFont,
	".woff2":    KindFont,
}

// KindForExtension maps a file extension (leading dot, any case) to its
// resource kind. ok is false for extensions the analyzer ignores.
func KindForExtension(ext string) (ResourceKind, bool) {
	k, ok := extensionKinds[strings.ToLower(ext)]
	return k, ok
}

// --- Models ---

// Resource is one entry in the project inventory. Path is the logical
// res:// path and the primary key; it is unique across the inventory.
type Resource struct {
	Path       string         `json:"path"`
	Kind       ResourceKind   `json:"kind"`
	Name       string         `json:"name"`
	DiskPath   string         `json:"diskPath"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Dependency states that Source references Target. Two dependencies with
// the same (Source, Target, Kind) are the same fact; Context is free-text
// diagnostics and not part of identity.
type Dependency struct {
	Source  string         `json:"source"`
	Target  string         `json:"target"`
	Kind    DependencyKind `json:"kind"`
	Context string         `json:"context,omitempty"`
}

// SingletonTable maps autoload names to logical paths. Built once from
// project configuration, read-only afterward.
type SingletonTable map[string]string

// Cluster represents a group of tightly connected resources.
type Cluster struct {
	Name     string   `json:"name"`
	Cohesion float64  `json:"cohesion"`
	Members  []string `json:"members"` // resource paths
}

// GraphStats summarizes a stored dependency graph.
type GraphStats struct {
	ResourceCount   int `json:"resourceCount"`
	DependencyCount int `json:"dependencyCount"`
	SingletonCount  int `json:"singletonCount"`
	ClusterCount    int `json:"clusterCount"`
}

// DependencyChain is an ordered sequence of resource paths forming a
// dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"` // resource paths in order
	Depth int      `json:"depth"`
}

// ImpactResult describes the blast radius of changing a set of resources.
type ImpactResult struct {
	DirectlyAffected     []string `json:"directlyAffected"`     // resources that reference a changed one
	TransitivelyAffected []string `json:"transitivelyAffected"` // full upstream closure
	AffectedScenes       int      `json:"affectedScenes"`
	AffectedScripts      int      `json:"affectedScripts"`
	RiskScore            float64  `json:"riskScore"` // 0.0-1.0, share of the inventory affected
}

// --- Filters ---

// Filters holds the three kind-level exclusion flags. An excluded kind is
// invisible to the whole pipeline: its files are never inventoried and
// dependencies targeting them are dropped during assembly.
type Filters struct {
	Textures bool `json:"exclude_textures"`
	Audio    bool `json:"exclude_audio"`
	Fonts    bool `json:"exclude_fonts"`
}

// ExcludedKinds returns the set of resource kinds the filters remove.
func (f Filters) ExcludedKinds() map[ResourceKind]bool {
	set := make(map[ResourceKind]bool, 3)
	if f.Textures {
		set[KindTexture] = true
	}
	if f.Audio {
		set[KindAudio] = true
	}
	if f.Fonts {
		set[KindFont] = true
	}
	return set
}

// ExcludedExtensions returns the extensions whose kind is excluded, so
// assembly can drop dependencies on files the scanner never inventoried.
func (f Filters) ExcludedExtensions() map[string]bool {
	kinds := f.ExcludedKinds()
	set := make(map[string]bool)
	for ext, kind := range extensionKinds {
		if kinds[kind] {
			set[ext] = true
		}
	}
	return set
}

// ExcludedNames lists the excluded kind names in a fixed order for display.
func (f Filters) ExcludedNames() []string {
	var names []string
	if f.Textures {
		names = append(names, string(KindTexture))
	}
	if f.Audio {
		names = append(names, string(KindAudio))
	}
	if f.Fonts {
		names = append(names, string(KindFont))
	}
	return names
}
