package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/gdgraph/internal/config"
)

// version is set by goreleaser at build time.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show gdgraph version information",
	Args:  cobra.MaximumNArgs(0),
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("gdgraph version %s\n", version)
		cf := viper.ConfigFileUsed()
		if cf == "" {
			cf = fmt.Sprintf("No config.json file found in '%s'. Using default settings", config.DefaultConfigDir)
		}
		fmt.Printf("Configuration file used: %s\n", cf)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
