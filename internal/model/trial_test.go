package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhase(t *testing.T) {
	cases := []struct {
		tokens []string
		want   Phase
	}{
		{nil, PhaseNone},
		{[]string{}, PhaseNone},
		{[]string{"PHASE2"}, Phase2},
		{[]string{"phase3"}, Phase3},
		{[]string{"PHASE1", "PHASE4"}, Phase4},
		{[]string{"EARLY_PHASE1"}, EarlyPhase1},
		{[]string{"PHASE2/PHASE3"}, Phase3},
		{[]string{"NA"}, PhaseNA},
		{[]string{"SOMETHING_ELSE"}, PhaseNone},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizePhase(c.tokens), "tokens=%v", c.tokens)
	}
}

func TestInferModality_PriorityOrder(t *testing.T) {
	cases := []struct {
		types []string
		want  Modality
	}{
		{[]string{"DRUG"}, ModalityDrugBiologic},
		{[]string{"biological"}, ModalityDrugBiologic},
		{[]string{"DEVICE", "DRUG"}, ModalityDrugBiologic}, // drug/biologic outranks device
		{[]string{"DEVICE"}, ModalityDevice},
		{[]string{"PROCEDURE"}, ModalityProcedure},
		{[]string{"SURGERY", "RADIATION"}, ModalityProcedure},
		{[]string{"RADIATION"}, ModalityRadiation},
		{[]string{"DIAGNOSTIC_TEST"}, ModalityDiagnostic},
		{[]string{"BEHAVIORAL"}, ModalityBehavioral},
		{[]string{"DIETARY_SUPPLEMENT"}, ModalityOther},
		{nil, ModalityOther},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, InferModality(c.types), "types=%v", c.types)
	}
}

func TestSearchText(t *testing.T) {
	r := &TrialRecord{
		BriefTitle:    "Brief",
		OfficialTitle: "Official",
		Conditions:    []string{"Cond A", "Cond B"},
		Interventions: []string{"Drug X"},
	}
	assert.Equal(t, "Brief Official Cond A Cond B Drug X", r.SearchText())
}
