//go:build cgo

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/gdgraph/internal/analyzer"
	"github.com/dusk-indust/gdgraph/internal/config"
	"github.com/dusk-indust/gdgraph/internal/graph"
	"github.com/dusk-indust/gdgraph/internal/status"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [project-root]",
	Short: "Build the dependency graph of a Godot project",
	Long: `Analyze scans the project tree, extracts scene and script references,
folds in autoload singletons, persists the graph under .gdgraph/, and prints
the statistics report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("include-textures", false, "inventory textures and their references")
	analyzeCmd.Flags().Bool("exclude-audio", false, "skip audio files and their references")
	analyzeCmd.Flags().Bool("exclude-fonts", false, "skip font files and their references")
	analyzeCmd.Flags().Int("workers", 0, "extraction workers (0 = one per CPU)")
	analyzeCmd.Flags().String("db", "", "graph database directory (default <project-root>/.gdgraph/graph)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	abs, err := resolveRoot(args)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	includeTextures, _ := cmd.Flags().GetBool("include-textures")
	excludeAudio, _ := cmd.Flags().GetBool("exclude-audio")
	excludeFonts, _ := cmd.Flags().GetBool("exclude-fonts")

	workers, _ := cmd.Flags().GetInt("workers")
	if !cmd.Flags().Changed("workers") {
		workers = viper.GetInt(config.KeyWorkers)
	}

	opts := analyzer.Options{
		Root: abs,
		Filters: graph.Filters{
			Textures: !includeTextures,
			Audio:    excludeAudio,
			Fonts:    excludeFonts,
		},
		Workers: workers,
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	progress := analyzer.NewProgressReporter()
	a, err := analyzer.New(opts, progress.Emit)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go printProgress(progress.Subscribe(), verbose, done)

	ctx := cmd.Context()
	result, err := a.Run(ctx)
	progress.Close()
	<-done
	if err != nil {
		return err
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = filepath.Join(abs, ".gdgraph", "graph")
	}

	// Remove old graph to avoid stale data.
	if err := os.RemoveAll(dbPath); err != nil {
		return fmt.Errorf("clearing %s: %w", dbPath, err)
	}
	store, err := graph.NewKuzuFileStore(dbPath)
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer store.Close()

	if err := analyzer.Populate(ctx, store, result); err != nil {
		return fmt.Errorf("populate graph store: %w", err)
	}

	fmt.Print(status.Build(result).Format())
	return nil
}

// printProgress drains the progress stream to stderr and closes done when
// the stream ends. Failures always print; per-file completions only with
// --verbose. Skipped files are also logged by the analyzer, so a frame
// dropped by the reporter's full buffer is never the only trace.
func printProgress(events <-chan analyzer.ProgressEvent, verbose bool, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		if ev.Status == analyzer.ProgressFailed ||
			(verbose && ev.Status == analyzer.ProgressComplete && ev.Path != "") {
			fmt.Fprintln(os.Stderr, analyzer.FormatProgress(ev))
		}
	}
}
