//go:build cgo

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/gdgraph/internal/export"
	"github.com/dusk-indust/gdgraph/internal/godot"
)

var exportCmd = &cobra.Command{
	Use:   "export [project-root]",
	Short: "Export the persisted graph as JSON or Mermaid",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("format", "json", "output format (json, mermaid)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	exportCmd.Flags().String("db", "", "graph database directory (default <project-root>/.gdgraph/graph)")
}

func runExport(cmd *cobra.Command, args []string) error {
	abs, err := resolveRoot(args)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	store, err := openPersistedGraph(cmd, abs)
	if err != nil {
		return err
	}
	defer store.Close()

	// Project name comes from project.godot when readable; exports still
	// work for a bare graph directory.
	project := ""
	if p, err := godot.ReadProject(abs); err == nil {
		project = p.Name
	}

	formatName, _ := cmd.Flags().GetString("format")
	data, err := export.NewRegistry().Generate(cmd.Context(), export.Format(strings.ToLower(formatName)), store, project)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := export.WriteFile(output, data); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", output)
	return nil
}
