package normalize

import (
	"strings"

	"github.com/sells-group/trialwatch/internal/model"
)

// Study projects a raw registry study document into a TrialRecord. The
// second return is false when the document carries no trial identifier;
// such records are filtered upstream, not treated as errors. Every field
// read is tolerant: missing or oddly-typed source fields yield defaults.
func Study(doc map[string]any) (*model.TrialRecord, bool) {
	nctID := getString(doc, "protocolSection.identificationModule.nctId")
	if nctID == "" {
		// Some endpoints return the identifier at the top level.
		if id, ok := doc["id"].(string); ok {
			nctID = id
		}
	}
	if nctID == "" {
		return nil, false
	}

	rec := &model.TrialRecord{
		NCTID:         nctID,
		BriefTitle:    getString(doc, "protocolSection.identificationModule.briefTitle"),
		OfficialTitle: getString(doc, "protocolSection.identificationModule.officialTitle"),
		Acronym:       getString(doc, "protocolSection.identificationModule.acronym"),
		OverallStatus: getString(doc, "protocolSection.statusModule.overallStatus"),
		StudyType:     getString(doc, "protocolSection.designModule.studyType"),

		Enrollment:     getInt(doc, "protocolSection.designModule.enrollmentInfo.count"),
		EnrollmentType: getString(doc, "protocolSection.designModule.enrollmentInfo.type"),

		IsFDARegulatedDrug:   getBool(doc, "protocolSection.oversightModule.isFdaRegulatedDrug"),
		IsFDARegulatedDevice: getBool(doc, "protocolSection.oversightModule.isFdaRegulatedDevice"),
		OversightHasDMC:      getBool(doc, "protocolSection.oversightModule.oversightHasDmc"),

		Conditions: getStringList(doc, "protocolSection.conditionsModule.conditions"),
	}

	rec.Phases = getStringList(doc, "protocolSection.designModule.phases")

	// Sponsor name/class fall back to the organizational identity fields.
	rec.LeadSponsorName = getString(doc, "protocolSection.sponsorCollaboratorsModule.leadSponsor.name")
	if rec.LeadSponsorName == "" {
		rec.LeadSponsorName = getString(doc, "protocolSection.identificationModule.organization.fullName")
	}
	rec.LeadSponsorClass = getString(doc, "protocolSection.sponsorCollaboratorsModule.leadSponsor.class")
	if rec.LeadSponsorClass == "" {
		rec.LeadSponsorClass = getString(doc, "protocolSection.identificationModule.organization.class")
	}

	rec.Interventions, rec.InterventionTypes = extractInterventions(doc)
	rec.Modality = model.InferModality(rec.InterventionTypes)
	rec.Contacts = extractContacts(doc)
	rec.LocationCount = locationCount(doc)

	primaryComp, _ := Get(doc, "protocolSection.statusModule.primaryCompletionDateStruct")
	completion, _ := Get(doc, "protocolSection.statusModule.completionDateStruct")

	rec.StartDate = ParsePartialDate(mustGet(doc, "protocolSection.statusModule.startDateStruct"))
	rec.PrimaryCompletionDate = ParsePartialDate(primaryComp)
	rec.CompletionDate = ParsePartialDate(completion)
	rec.LastUpdatePostDate = ParsePartialDate(mustGet(doc, "protocolSection.statusModule.lastUpdatePostDateStruct"))
	rec.ResultsFirstPostDate = ParsePartialDate(mustGet(doc, "protocolSection.statusModule.resultsFirstPostDateStruct"))

	if m, ok := primaryComp.(map[string]any); ok {
		rec.PrimaryCompletionDateType, _ = m["type"].(string)
	}
	if m, ok := completion.(map[string]any); ok {
		rec.CompletionDateType, _ = m["type"].(string)
	}

	// The search endpoint reports hasResults directly; the single-study
	// endpoint may not, in which case a posted results date implies it.
	if hr, ok := doc["hasResults"].(bool); ok {
		rec.HasResults = hr
	} else {
		rec.HasResults = rec.ResultsFirstPostDate.Raw != ""
	}

	return rec, true
}

// mustGet is Get with the found flag dropped; ParsePartialDate treats nil
// as absent.
func mustGet(doc map[string]any, path string) any {
	v, _ := Get(doc, path)
	return v
}

// extractInterventions projects intervention records into deduplicated,
// order-preserving name and type lists.
func extractInterventions(doc map[string]any) (names, types []string) {
	for _, v := range getList(doc, "protocolSection.armsInterventionsModule.interventions") {
		it, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if n, ok := it["name"].(string); ok && strings.TrimSpace(n) != "" {
			names = append(names, strings.TrimSpace(n))
		}
		if t, ok := it["type"].(string); ok && strings.TrimSpace(t) != "" {
			types = append(types, strings.TrimSpace(t))
		}
	}
	return dedup(names), dedup(types)
}

// extractContacts pulls central contacts and overall officials,
// best-effort. Absent sections yield empty lists.
func extractContacts(doc map[string]any) model.ContactBundle {
	bundle := model.ContactBundle{
		CentralContacts:  []model.CentralContact{},
		OverallOfficials: []model.OverallOfficial{},
	}

	for _, v := range getList(doc, "protocolSection.contactsLocationsModule.centralContacts") {
		c, ok := v.(map[string]any)
		if !ok {
			continue
		}
		bundle.CentralContacts = append(bundle.CentralContacts, model.CentralContact{
			Name:  stringField(c, "name"),
			Role:  stringField(c, "role"),
			Phone: stringField(c, "phone"),
			Email: stringField(c, "email"),
		})
	}

	for _, v := range getList(doc, "protocolSection.contactsLocationsModule.overallOfficials") {
		o, ok := v.(map[string]any)
		if !ok {
			continue
		}
		bundle.OverallOfficials = append(bundle.OverallOfficials, model.OverallOfficial{
			Name:        stringField(o, "name"),
			Affiliation: stringField(o, "affiliation"),
			Role:        stringField(o, "role"),
		})
	}

	return bundle
}

// locationCount counts study locations; the module moved between schema
// versions so both paths are checked.
func locationCount(doc map[string]any) *int {
	locs := getList(doc, "protocolSection.contactsLocationsModule.locations")
	if locs == nil {
		locs = getList(doc, "protocolSection.locationsModule.locations")
	}
	if locs == nil {
		return nil
	}
	n := len(locs)
	return &n
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
