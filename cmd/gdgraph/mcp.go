package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/gdgraph/internal/config"
	"github.com/dusk-indust/gdgraph/internal/graph"
	"github.com/dusk-indust/gdgraph/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP analysis server",
	Long: `Mcp serves the analysis tools over the Model Context Protocol, on
stdio by default or over streamable HTTP with --http.`,
	Args: cobra.MaximumNArgs(0),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Bool("http", false, "serve over streamable HTTP instead of stdio")
	mcpCmd.Flags().String("addr", "", "HTTP listen address (default from config mcpAddr)")
	mcpCmd.Flags().String("project-root", "", "project directory to mirror analyses into (<root>/.gdgraph/graph)")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	store := graph.NewMemStore()
	svc := mcptools.NewAnalyzerService(store)

	if root, _ := cmd.Flags().GetString("project-root"); root != "" {
		svc.SetProjectRoot(root)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if useHTTP, _ := cmd.Flags().GetBool("http"); useHTTP {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = viper.GetString(config.KeyMCPAddr)
		}
		return mcptools.RunMCPServer(ctx, svc, addr)
	}

	server := mcptools.NewAnalyzerMCPServer(svc)
	return mcptools.RunMCPServerStdio(ctx, server)
}
