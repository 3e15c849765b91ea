// Package feedback turns raw language-model output into interview feedback.
package feedback

// Tone values the model is asked to choose from.
const (
	ToneConfident = "confident"
	ToneNervous   = "nervous"
	ToneUnsure    = "unsure"
	ToneNeutral   = "neutral"
)

// Field names of the feedback object as produced by the model.
const (
	FieldTone          = "tone"
	FieldFillerWords   = "fillerWords"
	FieldGrammarIssues = "grammarIssues"
	FieldRelevance     = "relevance"
	FieldScore         = "score"
	FieldSuggestions   = "suggestions"
	FieldFollowUp      = "followUp"
)

// RequiredFields lists every field a normalized result must carry, in schema order.
var RequiredFields = []string{
	FieldTone,
	FieldFillerWords,
	FieldGrammarIssues,
	FieldRelevance,
	FieldScore,
	FieldSuggestions,
	FieldFollowUp,
}

// Defaults used when the model omits a field.
const (
	DefaultTone        = ToneNeutral
	DefaultRelevance   = "Response addresses the question appropriately"
	DefaultSuggestions = "Continue practicing to improve your interview skills"
	DefaultFollowUp    = "Can you provide a specific example to support your answer?"
	DefaultScore       = 7
	MinScore           = 0
	MaxScore           = 10
)

// FeedbackResult is the normalized analysis of one interview answer.
// Every field is populated after Normalize; slices are never nil.
type FeedbackResult struct {
	Tone          string   `json:"tone"`
	FillerWords   []string `json:"fillerWords"`
	GrammarIssues []string `json:"grammarIssues"`
	Relevance     string   `json:"relevance"`
	Score         int      `json:"score"`
	Suggestions   string   `json:"suggestions"`
	FollowUp      string   `json:"followUp"`
}

// KnownTone reports whether tone is one of the four tones the prompt asks for.
func KnownTone(tone string) bool {
	switch tone {
	case ToneConfident, ToneNervous, ToneUnsure, ToneNeutral:
		return true
	default:
		return false
	}
}
