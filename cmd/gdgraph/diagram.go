//go:build cgo

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/gdgraph/internal/export"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [project-root]",
	Short: "Print a Mermaid diagram of the persisted graph",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDiagram,
}

func init() {
	rootCmd.AddCommand(diagramCmd)
	diagramCmd.Flags().String("db", "", "graph database directory (default <project-root>/.gdgraph/graph)")
}

func runDiagram(cmd *cobra.Command, args []string) error {
	abs, err := resolveRoot(args)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	store, err := openPersistedGraph(cmd, abs)
	if err != nil {
		return err
	}
	defer store.Close()

	mermaid, err := export.GenerateMermaid(cmd.Context(), store)
	if err != nil {
		return err
	}
	fmt.Print(mermaid)
	return nil
}
