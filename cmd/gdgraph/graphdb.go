//go:build cgo

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// openPersistedGraph opens the graph database written by a previous analyze
// run, honoring the --db flag when set.
func openPersistedGraph(cmd *cobra.Command, root string) (*graph.KuzuStore, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = filepath.Join(root, ".gdgraph", "graph")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no graph found at %s\nRun 'gdgraph analyze' first to index the project", dbPath)
	}
	return graph.NewKuzuFileStore(dbPath)
}
