// Package main provides the entry point for the Interview Coach HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "interview_coach",
	Short:        "AI Interview Coach backend",
	Long:         "Interview Coach relays interview answers to Gemini, normalizes the feedback into a fixed schema and keeps per-user session history.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
