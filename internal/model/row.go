package model

// TrialRow is the persisted shape of a trial: the normalized record
// flattened for storage, plus scores, topic tags, and the literature
// summary columns maintained by the linker. Date columns hold the raw
// registry text (partial dates included) while the *_parsed columns hold
// the anchored ISO form used for windowed queries.
type TrialRow struct {
	NCTID         string
	BriefTitle    string
	OfficialTitle string
	Acronym       string
	OverallStatus string
	StudyType     string

	Phase    string
	Phases   []string
	Modality string

	Enrollment     *int
	EnrollmentType string

	LeadSponsorName  string
	LeadSponsorClass string

	HasResults bool

	StartDate                   string
	PrimaryCompletionDate       string
	PrimaryCompletionDateParsed string
	CompletionDateParsed        string
	LastUpdatePostDateParsed    string
	ResultsFirstPostDateParsed  string

	Conditions        []string
	Interventions     []string
	InterventionTypes []string
	Contacts          ContactBundle
	LocationCount     *int

	TopicTags []string

	UrgencyScore            int
	MajorScore              int
	InterestingScore        int
	TotalScore              int
	DaysToPrimaryCompletion *int
	ScoreReasons            ScoreReasons

	PubMedCount      int
	PubMedLatestDate string
	LastPubMedCheck  string

	LastSynced string
	RawJSON    []byte
}

// Sync run statuses.
const (
	SyncRunning  = "running"
	SyncComplete = "complete"
	SyncFailed   = "failed"
)

// SyncRun is one logged sync pass over a topic.
type SyncRun struct {
	ID          string
	Topic       string
	Status      string
	StartedAt   string
	CompletedAt string
	Received    int
	Stored      int
	Error       string
}
