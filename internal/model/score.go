package model

// ScoreReasons carries the human-readable justification lines for each
// score component; they are persisted alongside the numbers so a digest
// reader can see why a trial ranked where it did.
type ScoreReasons struct {
	Urgency     []string `json:"urgency"`
	Major       []string `json:"major"`
	Interesting []string `json:"interesting"`
}

// ScoreResult is the full scoring output for one trial.
// DaysToPrimaryCompletion is completion minus the scoring date; it is nil
// only when no completion date parsed, and is kept even when the urgency
// score is zero.
type ScoreResult struct {
	Urgency                 int          `json:"urgency_score"`
	Major                   int          `json:"major_score"`
	Interesting             int          `json:"interesting_score"`
	Total                   int          `json:"total_score"`
	DaysToPrimaryCompletion *int         `json:"days_to_primary_completion,omitempty"`
	Reasons                 ScoreReasons `json:"reasons"`
}
