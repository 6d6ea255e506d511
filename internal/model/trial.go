// Package model defines the canonical types shared across the pipeline:
// normalized trial records, parsed partial dates, scores, citations, and
// the persisted row shapes.
package model

import (
	"strings"
	"time"
)

// Precision records how much of a registry date was actually present.
type Precision string

const (
	PrecisionDay   Precision = "DAY"
	PrecisionMonth Precision = "MONTH"
	PrecisionYear  Precision = "YEAR"
	PrecisionNone  Precision = "NONE"
)

// ParsedDate is a registry date of possibly partial granularity. Value is
// nil when nothing parsed; Raw always preserves the source text so nothing
// is lost on a parse failure. Partial dates are anchored (July 1 for
// year-only, the 15th for year-month) so they stay comparable.
type ParsedDate struct {
	Raw       string     `json:"raw,omitempty"`
	Value     *time.Time `json:"value,omitempty"`
	Precision Precision  `json:"precision"`
}

// ISO renders the anchored value as YYYY-MM-DD, or "" when unparsed.
func (d ParsedDate) ISO() string {
	if d.Value == nil {
		return ""
	}
	return d.Value.Format("2006-01-02")
}

// Phase is the normalized single-phase label for a trial.
type Phase string

const (
	Phase4      Phase = "PHASE4"
	Phase3      Phase = "PHASE3"
	Phase2      Phase = "PHASE2"
	Phase1      Phase = "PHASE1"
	EarlyPhase1 Phase = "EARLY_PHASE1"
	PhaseNA     Phase = "NA"
	PhaseNone   Phase = "UNKNOWN"
)

// phasePrecedence orders phases most-advanced first; NormalizePhase picks
// the first precedence entry any raw token matches.
var phasePrecedence = []Phase{Phase4, Phase3, Phase2, Phase1, EarlyPhase1}

// NormalizePhase collapses the registry's phase token list to the single
// most advanced phase. Combined tokens like "PHASE2/PHASE3" match by
// substring, so they resolve to the later phase.
func NormalizePhase(tokens []string) Phase {
	if len(tokens) == 0 {
		return PhaseNone
	}
	upper := make([]string, len(tokens))
	for i, t := range tokens {
		upper[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	for _, p := range phasePrecedence {
		for _, t := range upper {
			if t == string(p) {
				return p
			}
		}
	}
	for _, p := range phasePrecedence {
		for _, t := range upper {
			if strings.Contains(t, string(p)) {
				return p
			}
		}
	}
	for _, t := range upper {
		if t == string(PhaseNA) {
			return PhaseNA
		}
	}
	return PhaseNone
}

// Modality is the coarse intervention category inferred from the
// registry's intervention types.
type Modality string

const (
	ModalityDrugBiologic Modality = "DRUG_BIOLOGIC"
	ModalityDevice       Modality = "DEVICE"
	ModalityProcedure    Modality = "PROCEDURE"
	ModalityRadiation    Modality = "RADIATION"
	ModalityDiagnostic   Modality = "DIAGNOSTIC"
	ModalityBehavioral   Modality = "BEHAVIORAL"
	ModalityOther        Modality = "OTHER"
)

// modalityBuckets maps intervention-type keywords to modalities in
// priority order; the first bucket with any match wins.
var modalityBuckets = []struct {
	modality Modality
	keywords []string
}{
	{ModalityDrugBiologic, []string{"DRUG", "BIOLOGICAL"}},
	{ModalityDevice, []string{"DEVICE"}},
	{ModalityProcedure, []string{"PROCEDURE", "SURGERY"}},
	{ModalityRadiation, []string{"RADIATION"}},
	{ModalityDiagnostic, []string{"DIAGNOSTIC"}},
	{ModalityBehavioral, []string{"BEHAVIORAL"}},
}

// InferModality buckets the intervention type tokens into a single
// modality. Priority is fixed: a trial with both a drug and a device arm
// is a drug/biologic trial.
func InferModality(types []string) Modality {
	upper := make([]string, len(types))
	for i, t := range types {
		upper[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	for _, bucket := range modalityBuckets {
		for _, t := range upper {
			for _, kw := range bucket.keywords {
				if strings.Contains(t, kw) {
					return bucket.modality
				}
			}
		}
	}
	return ModalityOther
}

// CentralContact is a registry central contact entry.
type CentralContact struct {
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// OverallOfficial is a registry overall official entry.
type OverallOfficial struct {
	Name        string `json:"name,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Role        string `json:"role,omitempty"`
}

// ContactBundle groups both contact flavors; lists are always non-nil so
// serialized rows carry [] rather than null.
type ContactBundle struct {
	CentralContacts  []CentralContact  `json:"central_contacts"`
	OverallOfficials []OverallOfficial `json:"overall_officials"`
}

// TrialRecord is the normalized projection of one registry study
// document. Pointer fields distinguish "absent in source" from zero.
type TrialRecord struct {
	NCTID         string
	BriefTitle    string
	OfficialTitle string
	Acronym       string
	OverallStatus string
	StudyType     string

	Phases   []string
	Modality Modality

	Enrollment     *int
	EnrollmentType string

	LeadSponsorName  string
	LeadSponsorClass string

	Conditions        []string
	Interventions     []string
	InterventionTypes []string

	Contacts      ContactBundle
	LocationCount *int

	OversightHasDMC      *bool
	IsFDARegulatedDrug   *bool
	IsFDARegulatedDevice *bool

	StartDate             ParsedDate
	PrimaryCompletionDate ParsedDate
	CompletionDate        ParsedDate
	LastUpdatePostDate    ParsedDate
	ResultsFirstPostDate  ParsedDate

	PrimaryCompletionDateType string
	CompletionDateType        string

	HasResults bool
}

// SearchText joins the fields keyword scoring scans: titles, conditions,
// and intervention names.
func (r *TrialRecord) SearchText() string {
	parts := make([]string, 0, 2+len(r.Conditions)+len(r.Interventions))
	if r.BriefTitle != "" {
		parts = append(parts, r.BriefTitle)
	}
	if r.OfficialTitle != "" {
		parts = append(parts, r.OfficialTitle)
	}
	parts = append(parts, r.Conditions...)
	parts = append(parts, r.Interventions...)
	return strings.Join(parts, " ")
}
