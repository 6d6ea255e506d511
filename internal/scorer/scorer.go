// Package scorer computes the editorial priority scores for normalized
// trial records: urgency (readout proximity), major (scale and rigor
// signals), interesting (keyword interest), and their weighted total.
// Every function is pure; the scoring reference date is always passed in.
package scorer

import (
	"math"
	"time"

	"github.com/sells-group/trialwatch/internal/config"
	"github.com/sells-group/trialwatch/internal/model"
)

// Total weights favor the commissioning-relevant dimensions over novelty.
const (
	majorWeight       = 0.4
	urgencyWeight     = 0.4
	interestingWeight = 0.2
)

// Total combines the three component scores with fixed weights.
func Total(major, urgency, interesting int) int {
	return int(math.Round(majorWeight*float64(major) + urgencyWeight*float64(urgency) + interestingWeight*float64(interesting)))
}

// Score computes all components and the total for a normalized record.
// citationCount is the trial's currently stored literature count (zero for
// a first sighting).
func Score(rec *model.TrialRecord, topicKeywords []config.WeightedKeyword, citationCount int, today time.Time) *model.ScoreResult {
	urgency, urgReasons, days := Urgency(rec.PrimaryCompletionDate, rec.HasResults, citationCount, today)
	major, majorReasons := Major(MajorInput{
		Phases:               rec.Phases,
		Enrollment:           rec.Enrollment,
		SponsorClass:         rec.LeadSponsorClass,
		StudyType:            rec.StudyType,
		OversightHasDMC:      rec.OversightHasDMC,
		IsFDARegulatedDrug:   rec.IsFDARegulatedDrug,
		IsFDARegulatedDevice: rec.IsFDARegulatedDevice,
	})
	interesting, intReasons := Interesting(rec.SearchText(), topicKeywords)

	return &model.ScoreResult{
		Urgency:                 urgency,
		Major:                   major,
		Interesting:             interesting,
		Total:                   Total(major, urgency, interesting),
		DaysToPrimaryCompletion: days,
		Reasons: model.ScoreReasons{
			Urgency:     urgReasons,
			Major:       majorReasons,
			Interesting: intReasons,
		},
	}
}

// clamp bounds a score to [0,100].
func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
