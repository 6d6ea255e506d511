package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trialwatch/internal/model"
)

// studyFixture is a trimmed registry search-result document covering the
// nesting the normalizer has to cope with.
const studyFixture = `{
  "hasResults": false,
  "protocolSection": {
    "identificationModule": {
      "nctId": "NCT01234567",
      "briefTitle": "CAR-T Therapy in Relapsed Lymphoma",
      "officialTitle": "A Phase 3 Randomized Study of CAR-T Therapy",
      "acronym": "CARLY",
      "organization": {"fullName": "Example Oncology Inc", "class": "INDUSTRY"}
    },
    "statusModule": {
      "overallStatus": "RECRUITING",
      "startDateStruct": {"date": "2023-04-10"},
      "primaryCompletionDateStruct": {"date": "2026-02", "type": "ESTIMATED"},
      "completionDateStruct": {"date": "2026-08", "type": "ESTIMATED"},
      "lastUpdatePostDateStruct": {"date": "2025-12-01"}
    },
    "designModule": {
      "studyType": "INTERVENTIONAL",
      "phases": ["PHASE2", "PHASE3"],
      "enrollmentInfo": {"count": 420, "type": "ESTIMATED"}
    },
    "sponsorCollaboratorsModule": {
      "leadSponsor": {"name": "Example Oncology Inc", "class": "INDUSTRY"}
    },
    "oversightModule": {
      "isFdaRegulatedDrug": true,
      "isFdaRegulatedDevice": false,
      "oversightHasDmc": true
    },
    "conditionsModule": {"conditions": ["Lymphoma", "B-cell Lymphoma"]},
    "armsInterventionsModule": {
      "interventions": [
        {"name": "CTX-110", "type": "BIOLOGICAL"},
        {"name": "CTX-110", "type": "BIOLOGICAL"},
        {"name": "Fludarabine", "type": "DRUG"}
      ]
    },
    "contactsLocationsModule": {
      "centralContacts": [
        {"name": "Study Desk", "role": "CONTACT", "phone": "555-0100", "email": "desk@example.org"}
      ],
      "overallOfficials": [
        {"name": "Jane Roe, MD", "affiliation": "Example Oncology Inc", "role": "PRINCIPAL_INVESTIGATOR"}
      ],
      "locations": [{"city": "Boston"}, {"city": "Houston"}, {"city": "Miami"}]
    }
  }
}`

func fixtureDoc(t *testing.T) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(studyFixture), &doc))
	return doc
}

func TestStudy_FullFixture(t *testing.T) {
	rec, ok := Study(fixtureDoc(t))
	require.True(t, ok)

	assert.Equal(t, "NCT01234567", rec.NCTID)
	assert.Equal(t, "CAR-T Therapy in Relapsed Lymphoma", rec.BriefTitle)
	assert.Equal(t, "CARLY", rec.Acronym)
	assert.Equal(t, "RECRUITING", rec.OverallStatus)
	assert.Equal(t, "INTERVENTIONAL", rec.StudyType)
	assert.Equal(t, []string{"PHASE2", "PHASE3"}, rec.Phases)

	require.NotNil(t, rec.Enrollment)
	assert.Equal(t, 420, *rec.Enrollment)
	assert.Equal(t, "ESTIMATED", rec.EnrollmentType)

	assert.Equal(t, "Example Oncology Inc", rec.LeadSponsorName)
	assert.Equal(t, "INDUSTRY", rec.LeadSponsorClass)

	require.NotNil(t, rec.IsFDARegulatedDrug)
	assert.True(t, *rec.IsFDARegulatedDrug)
	require.NotNil(t, rec.IsFDARegulatedDevice)
	assert.False(t, *rec.IsFDARegulatedDevice)
	require.NotNil(t, rec.OversightHasDMC)
	assert.True(t, *rec.OversightHasDMC)

	assert.Equal(t, []string{"Lymphoma", "B-cell Lymphoma"}, rec.Conditions)
	assert.Equal(t, []string{"CTX-110", "Fludarabine"}, rec.Interventions, "deduplicated, order preserved")
	assert.Equal(t, []string{"BIOLOGICAL", "DRUG"}, rec.InterventionTypes)
	assert.Equal(t, model.ModalityDrugBiologic, rec.Modality)

	require.NotNil(t, rec.LocationCount)
	assert.Equal(t, 3, *rec.LocationCount)

	require.Len(t, rec.Contacts.CentralContacts, 1)
	assert.Equal(t, "Study Desk", rec.Contacts.CentralContacts[0].Name)
	require.Len(t, rec.Contacts.OverallOfficials, 1)
	assert.Equal(t, "PRINCIPAL_INVESTIGATOR", rec.Contacts.OverallOfficials[0].Role)

	assert.Equal(t, model.PrecisionDay, rec.StartDate.Precision)
	assert.Equal(t, model.PrecisionMonth, rec.PrimaryCompletionDate.Precision)
	assert.Equal(t, "2026-02", rec.PrimaryCompletionDate.Raw)
	assert.Equal(t, "ESTIMATED", rec.PrimaryCompletionDateType)
	assert.Equal(t, "ESTIMATED", rec.CompletionDateType)

	assert.False(t, rec.HasResults)
	assert.Equal(t, model.PrecisionNone, rec.ResultsFirstPostDate.Precision)
}

func TestStudy_NoIdentifier(t *testing.T) {
	rec, ok := Study(map[string]any{"protocolSection": map[string]any{}})
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestStudy_TopLevelIDFallback(t *testing.T) {
	rec, ok := Study(map[string]any{"id": "NCT07654321"})
	require.True(t, ok)
	assert.Equal(t, "NCT07654321", rec.NCTID)
	assert.Empty(t, rec.Conditions)
	assert.Empty(t, rec.Contacts.CentralContacts)
	assert.Nil(t, rec.Enrollment)
	assert.Nil(t, rec.LocationCount)
	assert.Equal(t, model.ModalityOther, rec.Modality)
}

func TestStudy_SponsorOrganizationFallback(t *testing.T) {
	doc := fixtureDoc(t)
	ps := doc["protocolSection"].(map[string]any)
	delete(ps, "sponsorCollaboratorsModule")

	rec, ok := Study(doc)
	require.True(t, ok)
	assert.Equal(t, "Example Oncology Inc", rec.LeadSponsorName)
	assert.Equal(t, "INDUSTRY", rec.LeadSponsorClass)
}

func TestStudy_HasResultsInferredFromPostDate(t *testing.T) {
	doc := fixtureDoc(t)
	delete(doc, "hasResults")
	ps := doc["protocolSection"].(map[string]any)
	status := ps["statusModule"].(map[string]any)
	status["resultsFirstPostDateStruct"] = map[string]any{"date": "2025-06-20"}

	rec, ok := Study(doc)
	require.True(t, ok)
	assert.True(t, rec.HasResults)
	assert.Equal(t, model.PrecisionDay, rec.ResultsFirstPostDate.Precision)
}

func TestStudy_LocationsModuleFallbackPath(t *testing.T) {
	doc := fixtureDoc(t)
	ps := doc["protocolSection"].(map[string]any)
	cl := ps["contactsLocationsModule"].(map[string]any)
	delete(cl, "locations")
	ps["locationsModule"] = map[string]any{"locations": []any{map[string]any{"city": "Denver"}}}

	rec, ok := Study(doc)
	require.True(t, ok)
	require.NotNil(t, rec.LocationCount)
	assert.Equal(t, 1, *rec.LocationCount)
}
