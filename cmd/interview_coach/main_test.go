package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/feedback"
)

// execute runs the root command in-process with the given stdin.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		normalizeReport = false
		analyzeQuestion, analyzeAnswer, analyzeAPIKey = "", "", ""
		analyzeTier = "standard"
		servePort, serveConfigFile = 3000, ""
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNormalizeCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(`Here is my analysis: {"score": 12, "tone": "confident"}`), 0o644))

	stdout, _, err := execute(t, "", "normalize", path)
	require.NoError(t, err)

	var result feedback.FeedbackResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 10, result.Score)
	assert.Equal(t, "confident", result.Tone)
	assert.Equal(t, feedback.DefaultFollowUp, result.FollowUp)
}

func TestNormalizeCommand_StdinWithReport(t *testing.T) {
	stdout, stderr, err := execute(t, `{"score":"8/10"}`, "normalize", "-", "--report")
	require.NoError(t, err)

	var result feedback.FeedbackResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, feedback.DefaultScore, result.Score)
	assert.Contains(t, stderr, "stage=strict")
	assert.Contains(t, stderr, "score_adjusted=true")
}

func TestNormalizeCommand_Unparseable(t *testing.T) {
	_, _, err := execute(t, "no json here", "normalize")
	require.Error(t, err)

	var unparseable *feedback.UnparseableResponseError
	assert.True(t, errors.As(err, &unparseable))
}

func TestNormalizeCommand_MissingFile(t *testing.T) {
	_, _, err := execute(t, "", "normalize", filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read input file")
}

func TestAnalyzeCommand_Validation(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing answer", args: []string{"analyze", "--question", "Q"}, wantErr: "--question and --answer are required"},
		{name: "bad tier", args: []string{"analyze", "-q", "Q", "-a", "A", "--tier", "huge"}, wantErr: "unknown model tier"},
		{name: "no api key", args: []string{"analyze", "-q", "Q", "-a", "A"}, wantErr: "API key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServeCommand_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PORT", "")

	_, _, err := execute(t, "", "serve", "--port", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoadServeConfig(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("GEMINI_MODEL", "")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 5000, "gemini_model": "gemini-2.5-pro", "llm_timeout": "45s"}`), 0o644))

	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&servePort, "port", 3000, "")
	serveConfigFile = path
	t.Cleanup(func() { serveConfigFile = ""; servePort = 3000 })

	cfg, err := loadServeConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port, "environment wins over file")
	assert.Equal(t, "production", cfg.Environment)

	require.NoError(t, cmd.Flags().Set("port", "6000"))
	cfg, err = loadServeConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Port, "flag wins over environment")
}

func TestLLMConfig(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "gemini-custom")
	t.Setenv("LLM_TIMEOUT", "12s")
	t.Setenv("PORT", "")

	cfg, err := loadServeConfig(&cobra.Command{})
	require.NoError(t, err)

	llmCfg := llmConfig(cfg)
	assert.Equal(t, "gemini-custom", llmCfg.GetModel("standard"))
	assert.Equal(t, "12s", llmCfg.Timeout.String())
}
