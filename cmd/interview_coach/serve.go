package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/server"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
)

var (
	servePort       int
	serveConfigFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the analyze, save-result, history and health endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 3000, "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&serveConfigFile, "config", "", "Optional JSON config file; environment variables take precedence")
	rootCmd.AddCommand(serveCmd)
}

// loadServeConfig layers the environment over an optional config file and
// applies the --port flag last.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if serveConfigFile != "" {
		fileCfg, err := config.LoadConfig(serveConfigFile)
		if err != nil {
			return nil, err
		}
		merged := cfg.MergeWithDefaults(*fileCfg)
		cfg = &merged
	}

	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(ctx, llmConfig(cfg), cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	defer func() { _ = client.Close() }()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	verifier, err := buildVerifier(store != nil, logger)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return err
	}

	metrics := server.NewMetrics()
	analyzer := feedback.NewAnalyzer(client, logger.Named("analyzer"),
		feedback.WithReportObserver(metrics.ObserveReport))

	srv, err := server.New(cfg, server.Deps{
		Analyzer: analyzer,
		Store:    store,
		Verifier: verifier,
		Logger:   logger,
		Metrics:  metrics,
		Limiter:  ratelimit.NewLimiter(ratelimit.LoadConfig()),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("gemini model configured", zap.String("model", client.GetModel(llm.TierStandard)))
	return srv.Run(ctx)
}
