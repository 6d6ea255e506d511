package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func TestMajor_FullyLoadedClampsTo100(t *testing.T) {
	score, reasons := Major(MajorInput{
		Phases:               []string{"PHASE3"},
		Enrollment:           intp(2500),
		SponsorClass:         "INDUSTRY",
		StudyType:            "INTERVENTIONAL",
		OversightHasDMC:      boolp(true),
		IsFDARegulatedDrug:   boolp(true),
		IsFDARegulatedDevice: boolp(true),
	})
	// 40+35+20+8+5+3+3 = 114, clamped.
	assert.Equal(t, 100, score)
	assert.Contains(t, reasons, "Phase 3")
	assert.Contains(t, reasons, "Industry-sponsored")
}

func TestMajor_UnknownEverything(t *testing.T) {
	score, reasons := Major(MajorInput{})
	// Phase unknown 5 + sponsor unknown 5; unknown enrollment adds no
	// points but is recorded.
	assert.Equal(t, 10, score)
	assert.Contains(t, reasons, "Enrollment unknown")
	assert.Contains(t, reasons, "Sponsor class unknown")
}

func TestMajor_PhasePrecedence(t *testing.T) {
	phaseScore := func(phases []string) int {
		s, _ := Major(MajorInput{Phases: phases})
		return s
	}
	assert.Equal(t, phaseScore([]string{"PHASE3"}), phaseScore([]string{"PHASE2", "PHASE3"}),
		"most advanced phase wins")
	assert.Equal(t, phaseScore([]string{"PHASE4"}), phaseScore([]string{"PHASE3"}))

	// Monotone non-decreasing in phase precedence.
	ladder := [][]string{{"EARLY_PHASE1"}, {"PHASE1"}, {"PHASE2"}, {"PHASE3"}, {"PHASE4"}}
	prev := -1
	for _, phases := range ladder {
		s := phaseScore(phases)
		assert.GreaterOrEqual(t, s, prev, "phases=%v", phases)
		prev = s
	}
}

func TestMajor_CombinedPhaseToken(t *testing.T) {
	a, _ := Major(MajorInput{Phases: []string{"PHASE2/PHASE3"}})
	b, _ := Major(MajorInput{Phases: []string{"PHASE3"}})
	assert.Equal(t, b, a, "combined token falls back to precedence match")
}

func TestMajor_EnrollmentTiersMonotone(t *testing.T) {
	tiers := []int{50, 100, 200, 500, 1000, 2000}
	prev := -1
	for _, n := range tiers {
		s, _ := Major(MajorInput{Enrollment: intp(n)})
		assert.GreaterOrEqual(t, s, prev, "n=%d", n)
		prev = s
	}
}

func TestMajor_SponsorClasses(t *testing.T) {
	industry, _ := Major(MajorInput{SponsorClass: "INDUSTRY"})
	nih, _ := Major(MajorInput{SponsorClass: "NIH"})
	other, reasons := Major(MajorInput{SponsorClass: "OTHER_GOV"})
	assert.Greater(t, industry, nih)
	assert.Greater(t, nih, other)
	assert.Contains(t, reasons, "Sponsor class: OTHER_GOV")
}

func TestMajor_NonInterventionalStudyType(t *testing.T) {
	_, reasons := Major(MajorInput{StudyType: "OBSERVATIONAL"})
	assert.Contains(t, reasons, "Study type: OBSERVATIONAL")
}
