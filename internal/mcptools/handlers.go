package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/gdgraph/internal/analyzer"
	"github.com/dusk-indust/gdgraph/internal/export"
	"github.com/dusk-indust/gdgraph/internal/graph"
	"github.com/dusk-indust/gdgraph/internal/status"
)

// AnalyzerService holds the graph store and last analysis used by MCP tool
// handlers.
type AnalyzerService struct {
	store       graph.Store
	formats     *export.Registry
	projectRoot string // used for persisting the graph to disk

	mu     sync.Mutex
	result *analyzer.Result
	report *status.Report
}

// NewAnalyzerService creates an AnalyzerService with the given store.
func NewAnalyzerService(store graph.Store) *AnalyzerService {
	return &AnalyzerService{store: store, formats: export.NewRegistry()}
}

// SetProjectRoot sets the project root used for graph persistence.
func (s *AnalyzerService) SetProjectRoot(root string) {
	s.projectRoot = root
}

// AnalyzeProject runs the full analysis pipeline over a Godot project tree,
// populates the graph store, and returns graph statistics.
func (s *AnalyzerService) AnalyzeProject(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeProjectInput,
) (*mcp.CallToolResult, AnalyzeProjectOutput, error) {
	if input.ProjectRoot == "" {
		return nil, AnalyzeProjectOutput{}, fmt.Errorf("projectRoot is required")
	}

	info, err := os.Stat(input.ProjectRoot)
	if err != nil {
		return nil, AnalyzeProjectOutput{}, fmt.Errorf("cannot access projectRoot: %w", err)
	}
	if !info.IsDir() {
		return nil, AnalyzeProjectOutput{}, fmt.Errorf("projectRoot is not a directory: %s", input.ProjectRoot)
	}

	a, err := analyzer.New(analyzer.Options{
		Root: input.ProjectRoot,
		Filters: graph.Filters{
			Textures: !input.IncludeTextures,
			Audio:    input.ExcludeAudio,
			Fonts:    input.ExcludeFonts,
		},
		Workers: input.Workers,
	}, nil)
	if err != nil {
		return nil, AnalyzeProjectOutput{}, err
	}

	result, err := a.Run(ctx)
	if err != nil {
		return nil, AnalyzeProjectOutput{}, fmt.Errorf("analyze: %w", err)
	}

	if err := analyzer.Populate(ctx, s.store, result); err != nil {
		return nil, AnalyzeProjectOutput{}, fmt.Errorf("populate store: %w", err)
	}

	s.mu.Lock()
	s.result = result
	s.report = status.Build(result)
	s.mu.Unlock()

	// Persist the graph to disk so the stats and diagram CLI commands can
	// query the last analysis without the MCP server running.
	if s.projectRoot != "" {
		persistPath := filepath.Join(s.projectRoot, ".gdgraph", "graph")
		if err := persistGraph(ctx, persistPath, result); err != nil {
			slog.Default().Warn("graph persistence failed", "path", persistPath, "error", err)
		}
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, AnalyzeProjectOutput{}, fmt.Errorf("stats: %w", err)
	}

	return nil, AnalyzeProjectOutput{
		ProjectName: result.ProjectName,
		Stats:       *stats,
	}, nil
}

// persistGraph writes an analysis result to a file-based KuzuDB at
// persistPath, replacing whatever graph was there before.
func persistGraph(ctx context.Context, persistPath string, result *analyzer.Result) error {
	// Remove old graph to avoid stale data.
	os.RemoveAll(persistPath)

	dst, err := graph.NewKuzuFileStore(persistPath)
	if err != nil {
		return fmt.Errorf("open file store: %w", err)
	}
	defer dst.Close()

	return analyzer.Populate(ctx, dst, result)
}

// GetStatistics returns the statistics report for the last analysis.
func (s *AnalyzerService) GetStatistics(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetStatisticsInput,
) (*mcp.CallToolResult, GetStatisticsOutput, error) {
	s.mu.Lock()
	report := s.report
	s.mu.Unlock()

	if report == nil {
		return nil, GetStatisticsOutput{}, fmt.Errorf("no analysis loaded; run analyze_project first")
	}

	return nil, GetStatisticsOutput{Report: *report}, nil
}

// QueryResources searches for resources by name or path substring match.
func (s *AnalyzerService) QueryResources(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryResourcesInput,
) (*mcp.CallToolResult, QueryResourcesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	resources, err := s.store.QueryResources(ctx, input.Query, limit)
	if err != nil {
		return nil, QueryResourcesOutput{}, fmt.Errorf("query resources: %w", err)
	}

	// Filter by kind if specified.
	if input.Kind != "" {
		kind := graph.ResourceKind(strings.ToLower(input.Kind))
		filtered := resources[:0]
		for _, res := range resources {
			if res.Kind == kind {
				filtered = append(filtered, res)
			}
		}
		resources = filtered
	}

	return nil, QueryResourcesOutput{
		Resources: resources,
		Total:     len(resources),
	}, nil
}

// GetDependencies traverses the dependency graph from a given resource.
func (s *AnalyzerService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.Path == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("path is required")
	}

	direction := graph.DirectionDownstream
	if strings.EqualFold(input.Direction, "upstream") {
		direction = graph.DirectionUpstream
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	chains, err := s.store.GetDependencies(ctx, input.Path, direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}

	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// AssessImpact computes the blast radius of modifying a set of resources.
func (s *AnalyzerService) AssessImpact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessImpactInput,
) (*mcp.CallToolResult, AssessImpactOutput, error) {
	if len(input.ChangedPaths) == 0 {
		return nil, AssessImpactOutput{}, fmt.Errorf("changedPaths is required")
	}

	impact, err := s.store.AssessImpact(ctx, input.ChangedPaths)
	if err != nil {
		return nil, AssessImpactOutput{}, fmt.Errorf("assess impact: %w", err)
	}

	return nil, AssessImpactOutput{Impact: *impact}, nil
}

// GetClusters returns all resource clusters in the graph.
func (s *AnalyzerService) GetClusters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetClustersInput,
) (*mcp.CallToolResult, GetClustersOutput, error) {
	clusters, err := s.store.GetClusters(ctx)
	if err != nil {
		return nil, GetClustersOutput{}, fmt.Errorf("get clusters: %w", err)
	}

	return nil, GetClustersOutput{Clusters: clusters}, nil
}

// ExportGraph renders the stored graph in one of the registered formats,
// inline or to a file.
func (s *AnalyzerService) ExportGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExportGraphInput,
) (*mcp.CallToolResult, ExportGraphOutput, error) {
	format := export.FormatJSON
	if input.Format != "" {
		format = export.Format(strings.ToLower(input.Format))
	}

	s.mu.Lock()
	project := ""
	if s.result != nil {
		project = s.result.ProjectName
	}
	s.mu.Unlock()

	data, err := s.formats.Generate(ctx, format, s.store, project)
	if err != nil {
		return nil, ExportGraphOutput{}, err
	}

	if input.OutputPath != "" {
		if err := export.WriteFile(input.OutputPath, data); err != nil {
			return nil, ExportGraphOutput{}, err
		}
		return nil, ExportGraphOutput{Format: string(format), Path: input.OutputPath}, nil
	}

	return nil, ExportGraphOutput{Format: string(format), Content: string(data)}, nil
}
