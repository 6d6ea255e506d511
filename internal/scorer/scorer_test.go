package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trialwatch/internal/config"
	"github.com/sells-group/trialwatch/internal/model"
)

func TestTotal_WeightedRounding(t *testing.T) {
	assert.Equal(t, 0, Total(0, 0, 0))
	assert.Equal(t, 100, Total(100, 100, 100))
	// 0.4*50 + 0.4*70 + 0.2*10 = 50
	assert.Equal(t, 50, Total(50, 70, 10))
	// 0.4*51 + 0.4*0 + 0.2*0 = 20.4 -> 20
	assert.Equal(t, 20, Total(51, 0, 0))
	// 0.4*52 = 20.8 -> 21
	assert.Equal(t, 21, Total(52, 0, 0))
}

func TestTotal_AlwaysInRange(t *testing.T) {
	for major := 0; major <= 100; major += 10 {
		for urgency := 0; urgency <= 100; urgency += 10 {
			for interesting := 0; interesting <= 100; interesting += 10 {
				total := Total(major, urgency, interesting)
				want := int(math.Round(0.4*float64(major) + 0.4*float64(urgency) + 0.2*float64(interesting)))
				require.Equal(t, want, total)
				require.GreaterOrEqual(t, total, 0)
				require.LessOrEqual(t, total, 100)
			}
		}
	}
}

func TestScore_AssemblesAllComponents(t *testing.T) {
	rec := &model.TrialRecord{
		NCTID:            "NCT01234567",
		BriefTitle:       "CAR-T in lymphoma",
		Conditions:       []string{"Lymphoma"},
		Interventions:    []string{"CTX-110"},
		Phases:           []string{"PHASE3"},
		Enrollment:       intp(420),
		LeadSponsorClass: "INDUSTRY",
		StudyType:        "INTERVENTIONAL",
		PrimaryCompletionDate: parsedDate(t, 90),
		HasResults:            false,
	}
	kws := []config.WeightedKeyword{{Keyword: "lymphoma", Weight: 6}}

	res := Score(rec, kws, 0, scoreToday)

	// urgency: 100 - (90/180)*80 = 60
	assert.Equal(t, 60, res.Urgency)
	// major: 40 (phase3) + 18 (n=420) + 20 (industry) + 8 (interventional)
	assert.Equal(t, 86, res.Major)
	// interesting: lymphoma topic 6 + CAR-T 7 = 13
	assert.Equal(t, 13, res.Interesting)
	assert.Equal(t, Total(res.Major, res.Urgency, res.Interesting), res.Total)

	require.NotNil(t, res.DaysToPrimaryCompletion)
	assert.Equal(t, 90, *res.DaysToPrimaryCompletion)

	assert.NotEmpty(t, res.Reasons.Urgency)
	assert.NotEmpty(t, res.Reasons.Major)
	assert.NotEmpty(t, res.Reasons.Interesting)
}
