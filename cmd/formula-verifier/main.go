// Package main is the entry point for the formula verifier server and CLI.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/formula-verifier/pkg/api"
	grpcapi "github.com/lemonberrylabs/formula-verifier/pkg/api/grpc"
	"github.com/lemonberrylabs/formula-verifier/pkg/catalog"
	"github.com/lemonberrylabs/formula-verifier/pkg/config"
	"github.com/lemonberrylabs/formula-verifier/pkg/service"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "formula-verifier",
		Short:        "Formula verification and rearrangement engine",
		SilenceUsage: true,
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("formula-verifier version {{.Version}}\n")

	root.PersistentFlags().StringP("output", "o", "json", "Output format for results: json or yaml")
	root.PersistentFlags().String("problems-dir", "", "Directory of problem YAML/JSON files (env PROBLEMS_DIR)")
	root.PersistentFlags().Float64("tolerance", 0, "Relative tolerance for comparisons (default 1e-6, env FORMULA_TOLERANCE)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST and gRPC servers",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serve.Flags().Int("port", 0, "HTTP server port (default 8080, env PORT)")
	serve.Flags().Int("grpc-port", 0, "gRPC server port (default 8081, env GRPC_PORT)")
	serve.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")

	root.AddCommand(serve, newEvalCmd(), newVerifyCmd(), newRearrangeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("problems-dir"); v != "" {
		cfg.ProblemsDir = v
	}
	if v, _ := cmd.Flags().GetFloat64("tolerance"); v != 0 {
		cfg.Tolerance = v
	}
	if cmd.Flags().Lookup("port") != nil {
		if v, _ := cmd.Flags().GetInt("port"); v != 0 {
			cfg.Port = v
		}
		if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
			cfg.GRPCPort = v
		}
		if v, _ := cmd.Flags().GetString("host"); v != "" {
			cfg.Host = v
		}
	}
	return cfg, cfg.Validate()
}

// newService builds the service, loading problems when a directory is
// configured.
func newService(cfg config.Config) *service.Service {
	c := catalog.New()
	if cfg.ProblemsDir != "" {
		if _, err := c.LoadDir(cfg.ProblemsDir); err != nil {
			log.Printf("Warning: failed to load problems directory: %v", err)
		}
	}
	return service.New(c, cfg.Tolerance)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	svc := newService(cfg)
	server := api.New(svc)

	// Start gRPC server
	grpcServer := grpcapi.New(svc)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr())
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down formula verifier...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Formula verifier listening on %s (problems=%d, tolerance=%g)",
		cfg.HTTPAddr(), svc.Catalog().Len(), cfg.Tolerance)
	return server.Listen(cfg.HTTPAddr())
}
