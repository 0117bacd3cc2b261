package intent

import "regexp"

// Pattern pairs a compiled expression with the weight it contributes to an
// utterance score. Label is a short human-readable description recorded in
// Score.Triggers when the pattern fires.
type Pattern struct {
	Expr   *regexp.Regexp
	Weight int
	Label  string
}

// Tables holds the three pattern families used by weighted scoring.
// Order within each slice is significant: triggers are recorded in table
// order, which keeps scoring output deterministic for identical input.
type Tables struct {
	// Tool patterns are high-confidence signals that the utterance needs
	// the tool-calling pathway (booking verbs, explicit transfer requests,
	// date and time expressions). All carry positive weights.
	Tool []Pattern

	// LowConfidence patterns are weak positive signals (bare
	// acknowledgements, politeness markers). They never route to tools on
	// their own; the short-utterance dampener cancels them out.
	LowConfidence []Pattern

	// ChatOnly patterns are negative signals (greetings, small talk) that
	// pull ambiguous utterances toward the cheap chat pathway.
	ChatOnly []Pattern
}

// DefaultTables returns the built-in pattern tables.
//
// Weights are balanced so that a single booking verb or an explicit
// transfer request clears ToolCallThreshold on its own, while greetings
// and pleasantries cannot drag an explicit transfer request below it.
func DefaultTables() Tables {
	return Tables{
		Tool: []Pattern{
			{regexp.MustCompile(`(?i)\b(transfer\s+(me|my\s+call)|speak\s+(to|with)\s+(a\s+|an\s+)?(human|person|agent|manager|someone)|talk\s+to\s+(a\s+|an\s+)?(human|person|agent|manager)|real\s+person|hang\s+up)\b`), 10, "transfer or hang-up request"},
			{regexp.MustCompile(`(?i)\b(book|schedule|reserve|reschedule)\b`), 6, "booking verb"},
			{regexp.MustCompile(`(?i)\b(appointment|appt|reservation|booking|consultation)\b`), 4, "booking noun"},
			{regexp.MustCompile(`(?i)\b(cancel|change|move|modify)\b`), 4, "modification verb"},
			{regexp.MustCompile(`(?i)\b(available|availability|opening|openings|free\s+(at|on|this|next))\b`), 4, "availability query"},
			{regexp.MustCompile(`(?i)\b(order|pickup|pick\s+up|takeout|take\s+out|delivery|deliver)\b`), 4, "order keyword"},
			{regexp.MustCompile(`(?i)\b(menu|special|specials)\b`), 3, "menu keyword"},
			{regexp.MustCompile(`(?i)\b(price|prices|pricing|cost|costs|quote|how\s+much)\b`), 4, "pricing query"},
			{regexp.MustCompile(`(?i)\b(today|tomorrow|tonight|this\s+(week|weekend)|next\s+(week|month)|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`), 3, "date expression"},
			{regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm|o'?clock)\b`), 3, "time expression"},
			{regexp.MustCompile(`(?i)\b(hours|open\s+(until|till|today)|closing\s+time|address|located|location|directions)\b`), 3, "hours or location query"},
		},
		LowConfidence: []Pattern{
			{regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|yup|no|nope|sure|okay|ok|correct|right)\b`), 1, "bare acknowledgement"},
			{regexp.MustCompile(`(?i)\b(please|can\s+you|could\s+you|i\s+need|i\s+want)\b`), 1, "request marker"},
		},
		ChatOnly: []Pattern{
			{regexp.MustCompile(`(?i)^\s*(hi|hiya|hello|hey|howdy|good\s+(morning|afternoon|evening))\b`), -3, "greeting"},
			{regexp.MustCompile(`(?i)\bhow\s+are\s+you\b`), -3, "small talk"},
			{regexp.MustCompile(`(?i)^\s*(thanks|thank\s+you|bye|goodbye|see\s+you|take\s+care)\b`), -2, "pleasantry"},
			{regexp.MustCompile(`(?i)\b(nice\s+to\s+(meet|talk\s+to)|just\s+(chatting|saying\s+hi))\b`), -2, "small talk"},
		},
	}
}

// categoryPattern maps an intent label to its detection expression.
// Detection is first-match-wins, so slice order matters.
type categoryPattern struct {
	intent Intent
	expr   *regexp.Regexp
}

// defaultCategories returns the ordered category expressions used by
// DetectIntent. More specific categories come first: "cancel my booking"
// must label as modification, not booking.
func defaultCategories() []categoryPattern {
	return []categoryPattern{
		{IntentModification, regexp.MustCompile(`\b(cancel|reschedule|change|move|modify)\b`)},
		{IntentOrder, regexp.MustCompile(`\b(order|pickup|pick up|takeout|take out|delivery|deliver)\b`)},
		{IntentMenu, regexp.MustCompile(`\b(menu|special|specials|gluten|vegan|vegetarian)\b`)},
		{IntentBooking, regexp.MustCompile(`\b(book|booking|schedule|reserve|reservation|appointment|appt|consultation)\b`)},
		{IntentAvailability, regexp.MustCompile(`\b(available|availability|opening|openings|free (at|on|this|next)|any (time|slots))\b`)},
		{IntentTransfer, regexp.MustCompile(`\b(transfer|human|agent|person|manager|operator|hang up)\b`)},
		{IntentSupport, regexp.MustCompile(`\b(help|problem|issue|broken|complaint|refund|wrong)\b`)},
		{IntentPricing, regexp.MustCompile(`\b(price|prices|pricing|cost|costs|quote|how much)\b`)},
		{IntentLocation, regexp.MustCompile(`\b(address|located|location|directions|where (are|is))\b`)},
		{IntentHours, regexp.MustCompile(`\b(hours|open|close|closing|holiday)\b`)},
	}
}
