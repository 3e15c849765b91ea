package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/schemas"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file|-]",
	Short: "Normalize raw model output into feedback JSON",
	Long:  "Run the response normalizer over raw model text read from a file or stdin. Useful for replaying model replies captured in logs.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNormalize,
}

var normalizeReport bool

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeReport, "report", false, "Print the repair report to stderr")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	var opts []feedback.Option
	if normalizeReport {
		opts = append(opts, feedback.WithObserver(func(r feedback.Report) {
			fmt.Fprintf(cmd.ErrOrStderr(), "stage=%s missing=%v score_adjusted=%t unknown_tone=%t\n",
				r.Stage, r.MissingFields, r.ScoreAdjusted, r.UnknownTone)
		}))
	}

	result, err := feedback.Normalize(string(raw), opts...)
	if err != nil {
		return err
	}

	if err := writeJSON(cmd, result); err != nil {
		return err
	}

	// Normalized output must always satisfy the schema.
	buf, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}
	return schemas.ValidateFeedback(buf)
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}
