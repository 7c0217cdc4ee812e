package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/antoniostano/smartdoc/internal/config"
	"github.com/antoniostano/smartdoc/internal/diagnosis"
	"github.com/antoniostano/smartdoc/internal/history"
	"github.com/antoniostano/smartdoc/internal/interview"
	"github.com/antoniostano/smartdoc/internal/observability"
	"github.com/antoniostano/smartdoc/internal/oracle"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var rootCmd = &cobra.Command{
	Use:           "smartdoc",
	Short:         "Stateless diagnostic interview service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "smartdoc", version)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (env vars take precedence)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// stack is the wired set of collaborators shared by serve and interview.
type stack struct {
	generator    oracle.Generator
	store        history.Store
	diagnoses    *diagnosis.Service
	orchestrator *interview.Orchestrator
}

func buildStack(ctx context.Context, cfg config.Config, metrics *observability.Metrics, logger zerolog.Logger) (*stack, error) {
	gen, err := oracle.NewGenerator(ctx, oracle.Config{
		Mode:          cfg.OracleMode,
		GeminiAPIURL:  cfg.GeminiAPIURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		Timeout:       cfg.OracleTimeout,
		MaxAttempts:   cfg.OracleMaxAttempts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("oracle init failed: %w", err)
	}

	store, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}

	diag := diagnosis.NewService(gen, store, metrics, logger)
	orch := interview.NewOrchestrator(oracle.NewGateway(gen), diag, metrics, logger, cfg.OracleTimeout)

	logger.Info().
		Str("oracle_mode", gen.Name()).
		Str("history_store_mode", store.Mode()).
		Msg("collaborators ready")

	return &stack{
		generator:    gen,
		store:        store,
		diagnoses:    diag,
		orchestrator: orch,
	}, nil
}
