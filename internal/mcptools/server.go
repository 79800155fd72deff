package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewAnalyzerMCPServer creates an MCP server with all 7 analysis tools
// registered.
func NewAnalyzerMCPServer(svc *AnalyzerService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "gdgraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_project",
		Description: "Analyze a Godot project tree and build its dependency graph. Reads project.godot, scans the tree, extracts references from scenes and scripts, detects autoload singleton usage, and stores the assembled graph.",
	}, svc.AnalyzeProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_statistics",
		Description: "Return the statistics report for the last analysis: totals, resources by type, dependency type histogram, autoload singletons, and orphan resources.",
	}, svc.GetStatistics)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_resources",
		Description: "Search for resources by name or path substring match (case-insensitive). Optionally filter by resource kind and limit results.",
	}, svc.QueryResources)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the dependency graph upstream or downstream from a resource. Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_impact",
		Description: "Compute the blast radius of modifying a set of resources. Returns directly and transitively affected resources with a risk score.",
	}, svc.AssessImpact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_clusters",
		Description: "Return the connected-component clusters discovered during analysis. Clusters are groups of tightly connected resources with cohesion scores.",
	}, svc.GetClusters)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_graph",
		Description: "Render the stored dependency graph as a JSON node/edge document or a Mermaid diagram, inline or to a file.",
	}, svc.ExportGraph)

	return server
}

// RunMCPServer starts an HTTP server exposing the analysis MCP tools.
func RunMCPServer(ctx context.Context, svc *AnalyzerService, addr string) error {
	server := NewAnalyzerMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
