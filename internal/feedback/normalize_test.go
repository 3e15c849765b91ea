package feedback

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completeResponse = `{"tone":"unsure","fillerWords":["um","well","I guess"],"grammarIssues":[],"relevance":"partially relevant","score":4,"suggestions":"be more specific","followUp":"What was the technical root cause?"}`

func TestNormalize_CompleteObjectUnchanged(t *testing.T) {
	result, err := Normalize(completeResponse)
	require.NoError(t, err)

	expected := FeedbackResult{
		Tone:          ToneUnsure,
		FillerWords:   []string{"um", "well", "I guess"},
		GrammarIssues: []string{},
		Relevance:     "partially relevant",
		Score:         4,
		Suggestions:   "be more specific",
		FollowUp:      "What was the technical root cause?",
	}
	assert.Equal(t, expected, result)
}

func TestNormalize_EmbeddedObject(t *testing.T) {
	var report Report
	result, err := Normalize(`Here is my analysis: {"score": 12, "tone": "confident"}`,
		WithObserver(func(r Report) { report = r }))
	require.NoError(t, err)

	assert.Equal(t, ToneConfident, result.Tone)
	assert.Equal(t, 10, result.Score)
	assert.Equal(t, []string{}, result.FillerWords)
	assert.Equal(t, []string{}, result.GrammarIssues)
	assert.Equal(t, DefaultRelevance, result.Relevance)
	assert.Equal(t, DefaultSuggestions, result.Suggestions)
	assert.Equal(t, DefaultFollowUp, result.FollowUp)

	assert.Equal(t, StageExtracted, report.Stage)
	assert.Equal(t, []string{FieldFillerWords, FieldGrammarIssues, FieldRelevance, FieldSuggestions, FieldFollowUp}, report.MissingFields)
	assert.True(t, report.ScoreAdjusted)
}

func TestNormalize_ScoreOmitted(t *testing.T) {
	inputs := []string{
		`{"tone":"neutral","fillerWords":[],"grammarIssues":[],"relevance":"ok","suggestions":"s","followUp":"f"}`,
		`{"tone":"neutral"}`,
		`{}`,
	}
	for _, input := range inputs {
		result, err := Normalize(input)
		require.NoError(t, err, input)
		assert.Equal(t, DefaultScore, result.Score, input)
	}
}

func TestNormalize_ScoreClamped(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "above range", input: `{"tone":"neutral","fillerWords":[],"grammarIssues":[],"relevance":"r","score":25,"suggestions":"s","followUp":"f"}`, want: 10},
		{name: "below range", input: `{"tone":"neutral","fillerWords":[],"grammarIssues":[],"relevance":"r","score":-5,"suggestions":"s","followUp":"f"}`, want: 0},
		{name: "above range with missing fields", input: `{"score":25}`, want: 10},
		{name: "below range with missing fields", input: `{"score":-5}`, want: 0},
		{name: "fraction truncated", input: `{"tone":"neutral","fillerWords":[],"grammarIssues":[],"relevance":"r","score":7.9,"suggestions":"s","followUp":"f"}`, want: 7},
		{name: "numeric string coerced", input: `{"tone":"neutral","fillerWords":[],"grammarIssues":[],"relevance":"r","score":"8","suggestions":"s","followUp":"f"}`, want: 8},
		{name: "numeric string with missing fields defaults", input: `{"score":"8"}`, want: DefaultScore},
		{name: "null score", input: `{"tone":"neutral","fillerWords":[],"grammarIssues":[],"relevance":"r","score":null,"suggestions":"s","followUp":"f"}`, want: DefaultScore},
		{name: "word score", input: `{"tone":"neutral","fillerWords":[],"grammarIssues":[],"relevance":"r","score":"great","suggestions":"s","followUp":"f"}`, want: DefaultScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Score)
		})
	}
}

func TestNormalize_NonArrayListsBecomeEmpty(t *testing.T) {
	input := `{"tone":"nervous","fillerWords":"um","grammarIssues":{"a":1},"relevance":"r","score":5,"suggestions":"s","followUp":"f"}`

	result, err := Normalize(input)
	require.NoError(t, err)
	assert.Equal(t, []string{}, result.FillerWords)
	assert.Equal(t, []string{}, result.GrammarIssues)
}

func TestNormalize_ListElementsCoerced(t *testing.T) {
	input := `{"fillerWords":["like", 3, null, true, {"x":1}]}`

	result, err := Normalize(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"like", "3", "true"}, result.FillerWords)
}

func TestNormalize_EmptyStringsDefaulted(t *testing.T) {
	input := `{"tone":"","fillerWords":[],"grammarIssues":[],"relevance":"  ","score":5,"suggestions":"","followUp":""}`

	result, err := Normalize(input)
	require.NoError(t, err)
	assert.Equal(t, DefaultTone, result.Tone)
	assert.Equal(t, DefaultRelevance, result.Relevance)
	assert.Equal(t, DefaultSuggestions, result.Suggestions)
	assert.Equal(t, DefaultFollowUp, result.FollowUp)
}

func TestNormalize_UnknownToneKept(t *testing.T) {
	var report Report
	result, err := Normalize(`{"tone":"excited","score":6}`, WithObserver(func(r Report) { report = r }))
	require.NoError(t, err)

	assert.Equal(t, "excited", result.Tone)
	assert.True(t, report.UnknownTone)
}

func TestNormalize_MarkdownFence(t *testing.T) {
	var report Report
	result, err := Normalize("```json\n"+completeResponse+"\n```", WithObserver(func(r Report) { report = r }))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Score)
	assert.Equal(t, StageExtracted, report.Stage)
	assert.Empty(t, report.MissingFields)
	assert.False(t, report.ScoreAdjusted)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		completeResponse,
		`Here is my analysis: {"score": 12, "tone": "confident"}`,
		`{"score":"8/10","fillerWords":"um"}`,
		`{}`,
		`{"tone":"excited","score":-3.7,"grammarIssues":["run-on sentence"]}`,
	}

	for _, input := range inputs {
		first, err := Normalize(input)
		require.NoError(t, err, input)

		serialized, err := json.Marshal(first)
		require.NoError(t, err)

		second, err := Normalize(string(serialized))
		require.NoError(t, err)
		assert.Equal(t, first, second, input)
	}
}

func TestNormalize_Unparseable(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		noBraces bool
	}{
		{name: "plain prose", input: "I think the candidate did fine.", noBraces: true},
		{name: "empty", input: "", noBraces: true},
		{name: "only closing brace first", input: "} backwards {", noBraces: true},
		{name: "top-level array", input: `["um", "like"]`, noBraces: true},
		{name: "broken object", input: "Result: {tone: confident, score: 8}", noBraces: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			require.Error(t, err)

			var unparseable *UnparseableResponseError
			require.True(t, errors.As(err, &unparseable))
			assert.Equal(t, "could not extract structured data from model output", err.Error())
			assert.Equal(t, tt.noBraces, errors.Is(err, ErrNoJSONObject))
			assert.NotEmpty(t, unparseable.Detail())
		})
	}
}

func TestParse_Stages(t *testing.T) {
	strict := Parse("  " + completeResponse + "\n")
	assert.Equal(t, StageStrict, strict.Stage)
	assert.NoError(t, strict.Err)
	assert.Equal(t, "unsure", strict.Object[FieldTone])

	extracted := Parse(`Sure! {"score": 3} Hope this helps.`)
	assert.Equal(t, StageExtracted, extracted.Stage)
	assert.Equal(t, json.Number("3"), extracted.Object[FieldScore])

	failed := Parse("no json here")
	assert.Equal(t, StageFailed, failed.Stage)
	assert.Nil(t, failed.Object)
	assert.Error(t, failed.Err)

	// Greedy span: two objects in prose cannot be decoded as one.
	twoObjects := Parse(`first {"score": 1} then {"score": 2}`)
	assert.Equal(t, StageFailed, twoObjects.Stage)

	null := Parse("null")
	assert.Equal(t, StageFailed, null.Stage)

	trailing := Parse(`{"score": 5} {`)
	assert.Equal(t, StageExtracted, trailing.Stage, "data after the object is not strict JSON")
}

func TestNormalize_OverflowingScore(t *testing.T) {
	tests := []struct {
		name  string
		score string
		want  int
	}{
		{name: "positive overflow", score: "1e400", want: MaxScore},
		{name: "negative overflow", score: "-1e400", want: MinScore},
		{name: "huge integer", score: "123456789012345678901234567890", want: MaxScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `{"tone":"confident","fillerWords":[],"grammarIssues":[],"relevance":"r","score":` +
				tt.score + `,"suggestions":"s","followUp":"f"}`

			var report Report
			result, err := Normalize(input, WithObserver(func(r Report) { report = r }))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Score)
			assert.Equal(t, StageStrict, report.Stage)
			assert.Empty(t, report.MissingFields)
			assert.True(t, report.ScoreAdjusted)
		})
	}
}

func TestNormalize_PartialObjectKeepsNumericScore(t *testing.T) {
	var report Report
	result, err := Normalize(`{"score": 9}`, WithObserver(func(r Report) { report = r }))
	require.NoError(t, err)
	assert.Equal(t, 9, result.Score)
	assert.False(t, report.ScoreAdjusted)
}

func TestParseStage_String(t *testing.T) {
	assert.Equal(t, "strict", StageStrict.String())
	assert.Equal(t, "extracted", StageExtracted.String())
	assert.Equal(t, "failed", StageFailed.String())
	assert.Equal(t, "unknown", ParseStage(0).String())
}

func TestKnownTone(t *testing.T) {
	for _, tone := range []string{ToneConfident, ToneNervous, ToneUnsure, ToneNeutral} {
		assert.True(t, KnownTone(tone), tone)
	}
	assert.False(t, KnownTone("Confident"))
	assert.False(t, KnownTone(""))
}
