package scorer

import (
	"fmt"
	"time"

	"github.com/sells-group/trialwatch/internal/model"
)

// urgencyWindowDays bounds the piecewise urgency policy on both sides of
// the completion date.
const urgencyWindowDays = 180

// Urgency scores how urgent a trial is for commissioning based on its
// primary completion date. The returned day delta (completion − today) is
// persisted independently of the score and is non-nil whenever a
// completion date parsed, including in the zero-score branches.
//
// Policy: inside the upcoming window the score falls linearly from 100
// (completing today) to 20 (180 days out). Inside the recently-completed
// window the base falls from 70 (just completed) to 30, with +15 when no
// results are posted and +15 when no citations are known — unreported
// completed trials are the ones worth chasing. Outside both windows the
// score is 0.
func Urgency(completion model.ParsedDate, hasResults bool, citationCount int, today time.Time) (int, []string, *int) {
	if completion.Value == nil {
		return 0, []string{"No primary completion date available"}, nil
	}

	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	delta := int(day(*completion.Value).Sub(day(today)).Hours() / 24)

	switch {
	case delta >= 0 && delta <= urgencyWindowDays:
		score := int(100 - (float64(delta)/urgencyWindowDays)*80)
		reasons := []string{fmt.Sprintf("Primary completion in %d days", delta)}
		return clamp(score), reasons, &delta

	case delta < 0 && delta >= -urgencyWindowDays:
		past := -delta
		score := int(70 - (float64(past)/urgencyWindowDays)*40)
		reasons := []string{fmt.Sprintf("Primary completion %d days ago", past)}
		if !hasResults {
			score += 15
			reasons = append(reasons, "No posted results in registry")
		}
		if citationCount == 0 {
			score += 15
			reasons = append(reasons, "No linked citations found (yet)")
		}
		return clamp(score), reasons, &delta

	case delta > urgencyWindowDays:
		return 0, []string{fmt.Sprintf("Primary completion is >%d days away (%d days)", urgencyWindowDays, delta)}, &delta

	default:
		return 0, []string{fmt.Sprintf("Primary completion is >%d days ago (%d days ago)", urgencyWindowDays, -delta)}, &delta
	}
}
