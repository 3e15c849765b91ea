package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one interview answer and print the feedback JSON",
	Long:  "Send a question and answer to Gemini once and print the normalized feedback, without starting the server.",
	RunE:  runAnalyze,
}

var (
	analyzeQuestion string
	analyzeAnswer   string
	analyzeTier     string
	analyzeAPIKey   string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeQuestion, "question", "q", "", "Interview question (required)")
	analyzeCmd.Flags().StringVarP(&analyzeAnswer, "answer", "a", "", "Candidate answer (required)")
	analyzeCmd.Flags().StringVar(&analyzeTier, "tier", string(llm.TierStandard), "Model tier: lite, standard or advanced")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeQuestion == "" || analyzeAnswer == "" {
		return fmt.Errorf("--question and --answer are required")
	}
	tier, err := llm.ParseTier(analyzeTier)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	apiKey := analyzeAPIKey
	if apiKey == "" {
		apiKey = cfg.GeminiAPIKey
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	client, err := llm.NewClient(ctx, llmConfig(cfg), apiKey)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	defer func() { _ = client.Close() }()

	analyzer := feedback.NewAnalyzer(client, logger, feedback.WithTier(tier))
	result, err := analyzer.Analyze(ctx, analyzeQuestion, analyzeAnswer)
	if err != nil {
		return fmt.Errorf("failed to analyze response: %w", err)
	}

	return writeJSON(cmd, result)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
