//go:build cgo

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [project-root]",
	Short: "Print counts from the persisted graph",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("db", "", "graph database directory (default <project-root>/.gdgraph/graph)")
}

func runStats(cmd *cobra.Command, args []string) error {
	abs, err := resolveRoot(args)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	store, err := openPersistedGraph(cmd, abs)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Resources:    %d\n", stats.ResourceCount)
	fmt.Printf("Dependencies: %d\n", stats.DependencyCount)
	fmt.Printf("Singletons:   %d\n", stats.SingletonCount)
	fmt.Printf("Clusters:     %d\n", stats.ClusterCount)
	return nil
}
