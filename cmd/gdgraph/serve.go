package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/gdgraph/internal/config"
	"github.com/dusk-indust/gdgraph/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis task service over HTTP",
	Long: `Serve exposes analysis as an agent-callable task service: the manifest
at GET /, JSON-RPC at POST /rpc, and per-task event streams at
GET /tasks/{id}/events.`,
	Args: cobra.MaximumNArgs(0),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from config serviceAddr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = viper.GetString(config.KeyServiceAddr)
	}

	cors := service.CORSConfig{
		AllowedOrigins:   viper.GetStringSlice(config.KeyCorsAllowedOrigins),
		AllowedHeaders:   viper.GetStringSlice(config.KeyCorsAllowedHeaders),
		AllowCredentials: viper.GetBool(config.KeyCorsAllowCredentials),
	}

	svc := service.NewService(service.DefaultCard(version))
	server := service.NewServer(svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, addr, cors); err != nil {
		return err
	}
	fmt.Printf("analysis service listening on %s\n", addr)

	<-ctx.Done()
	fmt.Println("\nshutting down")
	return server.Stop(context.Background())
}
