// Package intent decides, per caller utterance, whether the expensive
// tool-calling LLM pathway is needed or the cheap chat-only pathway will
// do, and assigns a coarse intent label for analytics.
//
// Scoring is pure and deterministic: the same text against the same
// tables always produces the same score. Pattern tables are data
// (see Tables), so individual rules can be enumerated and tested.
package intent

import "strings"

const (
	// ToolCallThreshold is the minimum weighted score at which an
	// utterance is routed to the tool-calling pathway.
	ToolCallThreshold = 5

	// shortUtteranceWords is the word count at or below which the
	// short-utterance penalty applies.
	shortUtteranceWords = 3

	// shortUtterancePenalty is subtracted from low-signal short
	// utterances so one-word confirmations never trigger tool calls.
	shortUtterancePenalty = 2

	// triggerMaxRunes bounds recorded trigger descriptions.
	triggerMaxRunes = 40
)

// Intent is a coarse utterance category used for analytics and labeling.
// It never gates routing behavior.
type Intent string

const (
	IntentOrder        Intent = "order"
	IntentMenu         Intent = "menu"
	IntentBooking      Intent = "booking"
	IntentAvailability Intent = "availability"
	IntentModification Intent = "modification"
	IntentTransfer     Intent = "transfer"
	IntentSupport      Intent = "support"
	IntentPricing      Intent = "pricing"
	IntentLocation     Intent = "location"
	IntentHours        Intent = "hours"
	IntentGeneral      Intent = "general"
)

// Score is the result of weighted pattern scoring for one utterance.
type Score struct {
	// Score is the signed sum of matched pattern weights, including the
	// short-utterance penalty when it applies.
	Score int

	// Triggers records which high-confidence and chat-only patterns
	// fired, in table order, for observability. Low-confidence matches
	// are counted but not recorded.
	Triggers []string
}

// Router scores utterances against weighted pattern tables.
// A Router is immutable after construction and safe for concurrent use.
type Router struct {
	tables     Tables
	categories []categoryPattern
}

// NewRouter returns a Router using the built-in pattern tables.
func NewRouter() *Router {
	return NewRouterWithTables(DefaultTables())
}

// NewRouterWithTables returns a Router using the provided tables.
// Category detection always uses the built-in ordered category list.
func NewRouterWithTables(t Tables) *Router {
	return &Router{
		tables:     t,
		categories: defaultCategories(),
	}
}

// ScoreIntent scores a single utterance. Empty or whitespace-only input
// is valid and simply scores low. The function has no side effects.
func (r *Router) ScoreIntent(text string) Score {
	var result Score

	for _, p := range r.tables.Tool {
		if p.Expr.MatchString(text) {
			result.Score += p.Weight
			result.Triggers = append(result.Triggers, truncate(p.Label, triggerMaxRunes))
		}
	}
	for _, p := range r.tables.LowConfidence {
		if p.Expr.MatchString(text) {
			result.Score += p.Weight
		}
	}
	for _, p := range r.tables.ChatOnly {
		if p.Expr.MatchString(text) {
			result.Score += p.Weight
			result.Triggers = append(result.Triggers, truncate(p.Label, triggerMaxRunes))
		}
	}

	// Short, low-signal utterances default toward the chat pathway even
	// when a weak pattern matched.
	if len(strings.Fields(text)) <= shortUtteranceWords && result.Score < 3 {
		result.Score -= shortUtterancePenalty
	}

	return result
}

// NeedsToolCall reports whether the utterance should be routed to the
// tool-calling pathway. It is exactly ScoreIntent(text).Score >=
// ToolCallThreshold.
func (r *Router) NeedsToolCall(text string) bool {
	return r.ScoreIntent(text).Score >= ToolCallThreshold
}

// DetectIntent assigns a coarse intent label to the utterance.
// Categories are tested in a fixed order against the lowercased text and
// the first match wins; IntentGeneral is returned when nothing matches.
// Detection is independent of scoring and never gates routing.
func (r *Router) DetectIntent(text string) Intent {
	lower := strings.ToLower(text)
	for _, c := range r.categories {
		if c.expr.MatchString(lower) {
			return c.intent
		}
	}
	return IntentGeneral
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
