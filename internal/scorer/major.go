package scorer

import (
	"fmt"
	"strings"

	"github.com/sells-group/trialwatch/internal/model"
)

// MajorInput carries the record fields the major score reads.
type MajorInput struct {
	Phases               []string
	Enrollment           *int
	SponsorClass         string
	StudyType            string
	OversightHasDMC      *bool
	IsFDARegulatedDrug   *bool
	IsFDARegulatedDevice *bool
}

// Major scores how "major" a trial is: an additive point system over
// phase, enrollment size, sponsor class, study type, and oversight flags,
// clamped to [0,100].
func Major(in MajorInput) (int, []string) {
	var reasons []string
	score := 0

	phase := model.NormalizePhase(in.Phases)
	switch phase {
	case model.Phase3, model.Phase4:
		score += 40
		reasons = append(reasons, "Phase "+strings.TrimPrefix(string(phase), "PHASE"))
	case model.Phase2:
		score += 25
		reasons = append(reasons, "Phase 2")
	case model.Phase1:
		score += 10
		reasons = append(reasons, "Phase 1")
	default:
		score += 5
		reasons = append(reasons, fmt.Sprintf("Phase: %s", phase))
	}

	if in.Enrollment != nil {
		n := *in.Enrollment
		switch {
		case n >= 2000:
			score += 35
			reasons = append(reasons, fmt.Sprintf("Large enrollment (n=%d)", n))
		case n >= 1000:
			score += 30
			reasons = append(reasons, fmt.Sprintf("Large enrollment (n=%d)", n))
		case n >= 500:
			score += 25
			reasons = append(reasons, fmt.Sprintf("Moderate-large enrollment (n=%d)", n))
		case n >= 200:
			score += 18
			reasons = append(reasons, fmt.Sprintf("Moderate enrollment (n=%d)", n))
		case n >= 100:
			score += 12
			reasons = append(reasons, fmt.Sprintf("Enrollment (n=%d)", n))
		default:
			score += 5
			reasons = append(reasons, fmt.Sprintf("Small enrollment (n=%d)", n))
		}
	} else {
		reasons = append(reasons, "Enrollment unknown")
	}

	switch sc := strings.ToUpper(strings.TrimSpace(in.SponsorClass)); {
	case sc == "INDUSTRY":
		score += 20
		reasons = append(reasons, "Industry-sponsored")
	case sc == "NIH":
		score += 18
		reasons = append(reasons, "NIH-sponsored")
	case sc != "":
		score += 10
		reasons = append(reasons, fmt.Sprintf("Sponsor class: %s", sc))
	default:
		score += 5
		reasons = append(reasons, "Sponsor class unknown")
	}

	switch st := strings.ToUpper(strings.TrimSpace(in.StudyType)); {
	case st == "INTERVENTIONAL":
		score += 8
		reasons = append(reasons, "Interventional study")
	case st != "":
		score += 3
		reasons = append(reasons, fmt.Sprintf("Study type: %s", st))
	}

	if in.OversightHasDMC != nil && *in.OversightHasDMC {
		score += 5
		reasons = append(reasons, "Has data monitoring committee")
	}
	if in.IsFDARegulatedDrug != nil && *in.IsFDARegulatedDrug {
		score += 3
		reasons = append(reasons, "FDA-regulated drug")
	}
	if in.IsFDARegulatedDevice != nil && *in.IsFDARegulatedDevice {
		score += 3
		reasons = append(reasons, "FDA-regulated device")
	}

	return clamp(score), reasons
}
