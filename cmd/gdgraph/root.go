package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/gdgraph/internal/config"
	"github.com/dusk-indust/gdgraph/internal/logging"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gdgraph",
	Short: "Dependency analysis for Godot projects",
	Long: `gdgraph maps the resource dependency graph of a Godot project:
scenes, scripts, autoload singletons, and the assets they reference.
Analyze a project once, then query, export, or serve the graph.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			viper.Set(config.KeyLogLevel, "debug")
			logging.InitLogging()
		}
	},
}

// Execute runs the root command. This is called by main.main() and only
// needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

// resolveRoot turns the optional positional project-root argument into an
// absolute path, defaulting to the current directory.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	return filepath.Abs(root)
}
