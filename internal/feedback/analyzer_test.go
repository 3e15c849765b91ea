package feedback

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/llm"
)

// fakeClient is an llm.Client that returns a canned reply.
type fakeClient struct {
	reply  string
	err    error
	calls  int
	prompt string
	tier   llm.ModelTier
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.calls++
	f.prompt = prompt
	f.tier = tier
	return f.reply, f.err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }

func (f *fakeClient) Close() error { return nil }

func TestAnalyzer_EndToEnd(t *testing.T) {
	client := &fakeClient{reply: completeResponse}
	analyzer := NewAnalyzer(client, nil)

	result, err := analyzer.Analyze(context.Background(),
		"Tell me about a challenge you overcame",
		"Um, well, I guess I fixed a bug once")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, llm.TierStandard, client.tier)
	assert.Contains(t, client.prompt, "Tell me about a challenge you overcame")
	assert.Contains(t, client.prompt, "Um, well, I guess I fixed a bug once")

	assert.Equal(t, ToneUnsure, result.Tone)
	assert.Equal(t, []string{"um", "well", "I guess"}, result.FillerWords)
	assert.Equal(t, 4, result.Score)
	assert.Equal(t, "What was the technical root cause?", result.FollowUp)
}

func TestAnalyzer_ProseWithEmbeddedObject(t *testing.T) {
	var reports []Report
	client := &fakeClient{reply: `Here is my analysis: {"score": 12, "tone": "confident"}`}
	analyzer := NewAnalyzer(client, nil, WithTier(llm.TierAdvanced), WithReportObserver(func(r Report) {
		reports = append(reports, r)
	}))

	result, err := analyzer.Analyze(context.Background(), "q", "a")
	require.NoError(t, err)

	assert.Equal(t, llm.TierAdvanced, client.tier)
	assert.Equal(t, 10, result.Score)
	assert.Equal(t, DefaultFollowUp, result.FollowUp)
	require.Len(t, reports, 1)
	assert.Equal(t, StageExtracted, reports[0].Stage)
}

func TestAnalyzer_Errors(t *testing.T) {
	tests := []struct {
		name      string
		client    *fakeClient
		wantIs    error
		wantNotIs []error
	}{
		{
			name:   "timeout",
			client: &fakeClient{err: fmt.Errorf("call: %w", context.DeadlineExceeded)},
			wantIs: ErrUpstreamTimeout,
		},
		{
			name:   "unavailable",
			client: &fakeClient{err: fmt.Errorf("%w: bad key", llm.ErrUnavailable)},
			wantIs: ErrUpstreamUnavailable,
		},
		{
			name:      "generic",
			client:    &fakeClient{err: errors.New("candidate blocked by safety filter")},
			wantNotIs: []error{ErrUpstreamTimeout, ErrUpstreamUnavailable},
		},
		{
			name:   "unparseable",
			client: &fakeClient{reply: "I cannot help with that."},
			wantIs: ErrNoJSONObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyzer(tt.client, nil).Analyze(context.Background(), "q", "a")
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			for _, notIs := range tt.wantNotIs {
				assert.NotErrorIs(t, err, notIs)
			}
		})
	}
}

func TestAnalyzer_UnparseableIsTyped(t *testing.T) {
	_, err := NewAnalyzer(&fakeClient{reply: "{broken"}, nil).Analyze(context.Background(), "q", "a")

	var unparseable *UnparseableResponseError
	assert.True(t, errors.As(err, &unparseable))
}

func TestAnalyzer_NoClient(t *testing.T) {
	_, err := NewAnalyzer(nil, nil).Analyze(context.Background(), "q", "a")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
