package mcptools

import (
	"github.com/dusk-indust/gdgraph/internal/graph"
	"github.com/dusk-indust/gdgraph/internal/status"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// AnalyzeProjectInput is the input for the analyze_project MCP tool.
type AnalyzeProjectInput struct {
	ProjectRoot     string `json:"projectRoot" jsonschema:"the absolute path of the Godot project to analyze (the directory holding project.godot)"`
	IncludeTextures bool   `json:"includeTextures,omitempty" jsonschema:"include texture files, which are excluded by default"`
	ExcludeAudio    bool   `json:"excludeAudio,omitempty" jsonschema:"exclude audio files from the analysis"`
	ExcludeFonts    bool   `json:"excludeFonts,omitempty" jsonschema:"exclude font files from the analysis"`
	Workers         int    `json:"workers,omitempty" jsonschema:"extraction parallelism (default: one worker per CPU)"`
}

// AnalyzeProjectOutput is the result of the analyze_project MCP tool.
type AnalyzeProjectOutput struct {
	ProjectName string           `json:"projectName"`
	Stats       graph.GraphStats `json:"stats"`
}

// GetStatisticsInput is the input for the get_statistics MCP tool.
type GetStatisticsInput struct{}

// GetStatisticsOutput is the result of the get_statistics MCP tool.
type GetStatisticsOutput struct {
	Report status.Report `json:"report"`
}

// QueryResourcesInput is the input for the query_resources MCP tool.
type QueryResourcesInput struct {
	Query string `json:"query" jsonschema:"search query matched against resource names and paths (substring, case-insensitive)"`
	Kind  string `json:"kind,omitempty" jsonschema:"filter by resource kind: scene, script, resource, texture, audio, shader, font, autoload"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QueryResourcesOutput is the result of the query_resources MCP tool.
type QueryResourcesOutput struct {
	Resources []graph.Resource `json:"resources"`
	Total     int              `json:"total"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	Path      string `json:"path" jsonschema:"logical resource path (res://...)"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it depends on) or downstream (what depends on it). Default: downstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// AssessImpactInput is the input for the assess_impact MCP tool.
type AssessImpactInput struct {
	ChangedPaths []string `json:"changedPaths" jsonschema:"logical paths of the resources that will be modified"`
}

// AssessImpactOutput is the result of the assess_impact MCP tool.
type AssessImpactOutput struct {
	Impact graph.ImpactResult `json:"impact"`
}

// GetClustersInput is the input for the get_clusters MCP tool.
type GetClustersInput struct{}

// GetClustersOutput is the result of the get_clusters MCP tool.
type GetClustersOutput struct {
	Clusters []graph.Cluster `json:"clusters"`
}

// ExportGraphInput is the input for the export_graph MCP tool.
type ExportGraphInput struct {
	Format     string `json:"format,omitempty" jsonschema:"export format: json or mermaid (default: json)"`
	OutputPath string `json:"outputPath,omitempty" jsonschema:"file to write the document to; when empty the document is returned inline"`
}

// ExportGraphOutput is the result of the export_graph MCP tool.
type ExportGraphOutput struct {
	Format  string `json:"format"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
}
