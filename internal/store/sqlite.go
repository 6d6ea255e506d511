package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/trialwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS trials (
	nct_id                         TEXT PRIMARY KEY,
	brief_title                    TEXT NOT NULL DEFAULT '',
	official_title                 TEXT NOT NULL DEFAULT '',
	acronym                        TEXT NOT NULL DEFAULT '',
	overall_status                 TEXT NOT NULL DEFAULT '',
	study_type                     TEXT NOT NULL DEFAULT '',
	phase                          TEXT NOT NULL DEFAULT '',
	phases_json                    TEXT NOT NULL DEFAULT '[]',
	modality                       TEXT NOT NULL DEFAULT '',
	enrollment                     INTEGER,
	enrollment_type                TEXT NOT NULL DEFAULT '',
	lead_sponsor_name              TEXT NOT NULL DEFAULT '',
	lead_sponsor_class             TEXT NOT NULL DEFAULT '',
	has_results                    INTEGER NOT NULL DEFAULT 0,
	start_date                     TEXT NOT NULL DEFAULT '',
	primary_completion_date        TEXT NOT NULL DEFAULT '',
	primary_completion_date_parsed TEXT NOT NULL DEFAULT '',
	completion_date_parsed         TEXT NOT NULL DEFAULT '',
	last_update_post_date_parsed   TEXT NOT NULL DEFAULT '',
	results_first_post_date_parsed TEXT NOT NULL DEFAULT '',
	conditions_json                TEXT NOT NULL DEFAULT '[]',
	interventions_json             TEXT NOT NULL DEFAULT '[]',
	intervention_types_json        TEXT NOT NULL DEFAULT '[]',
	contacts_json                  TEXT NOT NULL DEFAULT '{}',
	location_count                 INTEGER,
	topic_tags_json                TEXT NOT NULL DEFAULT '[]',
	urgency_score                  INTEGER NOT NULL DEFAULT 0,
	major_score                    INTEGER NOT NULL DEFAULT 0,
	interesting_score              INTEGER NOT NULL DEFAULT 0,
	total_score                    INTEGER NOT NULL DEFAULT 0,
	days_to_primary_completion     INTEGER,
	score_reasons_json             TEXT NOT NULL DEFAULT '{}',
	pubmed_count                   INTEGER NOT NULL DEFAULT 0,
	pubmed_latest_date             TEXT NOT NULL DEFAULT '',
	last_pubmed_check_utc          TEXT NOT NULL DEFAULT '',
	last_synced_utc                TEXT NOT NULL DEFAULT '',
	raw_json                       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pubmed_citations (
	nct_id        TEXT NOT NULL,
	pmid          TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	pubdate       TEXT NOT NULL DEFAULT '',
	doi           TEXT NOT NULL DEFAULT '',
	last_seen_utc TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (nct_id, pmid)
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id               TEXT PRIMARY KEY,
	topic            TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'running',
	started_at_utc   TEXT NOT NULL,
	completed_at_utc TEXT NOT NULL DEFAULT '',
	received         INTEGER NOT NULL DEFAULT 0,
	stored           INTEGER NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_trials_total_score ON trials(total_score DESC);
CREATE INDEX IF NOT EXISTS idx_trials_days_to_completion ON trials(days_to_primary_completion);
CREATE INDEX IF NOT EXISTS idx_trials_primary_completion ON trials(primary_completion_date_parsed);
CREATE INDEX IF NOT EXISTS idx_citations_nct ON pubmed_citations(nct_id);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at_utc DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// trialColumns is the canonical SELECT column order shared by GetTrial and
// DigestRows.
const trialColumns = `nct_id, brief_title, official_title, acronym, overall_status, study_type,
	phase, phases_json, modality, enrollment, enrollment_type,
	lead_sponsor_name, lead_sponsor_class, has_results,
	start_date, primary_completion_date, primary_completion_date_parsed,
	completion_date_parsed, last_update_post_date_parsed, results_first_post_date_parsed,
	conditions_json, interventions_json, intervention_types_json, contacts_json, location_count,
	topic_tags_json, urgency_score, major_score, interesting_score, total_score,
	days_to_primary_completion, score_reasons_json,
	pubmed_count, pubmed_latest_date, last_pubmed_check_utc, last_synced_utc, raw_json`

// UpsertTrial inserts or fully replaces a trial's synced fields. Topic
// tags accumulate across syncs; the literature summary columns are owned
// by the linker and left untouched here.
func (s *SQLiteStore) UpsertTrial(ctx context.Context, row *model.TrialRow) error {
	var existingTags *string
	err := s.db.QueryRowContext(ctx,
		`SELECT topic_tags_json FROM trials WHERE nct_id = ?`, row.NCTID,
	).Scan(&existingTags)
	if err != nil && err != sql.ErrNoRows {
		return eris.Wrapf(err, "sqlite: read tags %s", row.NCTID)
	}
	var existing []string
	if err := unmarshalField(existingTags, &existing, "topic_tags"); err != nil {
		return err
	}
	tags := unionTags(existing, row.TopicTags)

	enc, err := encodeTrialJSON(row, tags)
	if err != nil {
		return err
	}

	hasResults := 0
	if row.HasResults {
		hasResults = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trials (
			nct_id, brief_title, official_title, acronym, overall_status, study_type,
			phase, phases_json, modality, enrollment, enrollment_type,
			lead_sponsor_name, lead_sponsor_class, has_results,
			start_date, primary_completion_date, primary_completion_date_parsed,
			completion_date_parsed, last_update_post_date_parsed, results_first_post_date_parsed,
			conditions_json, interventions_json, intervention_types_json, contacts_json, location_count,
			topic_tags_json, urgency_score, major_score, interesting_score, total_score,
			days_to_primary_completion, score_reasons_json, last_synced_utc, raw_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(nct_id) DO UPDATE SET
			brief_title = excluded.brief_title,
			official_title = excluded.official_title,
			acronym = excluded.acronym,
			overall_status = excluded.overall_status,
			study_type = excluded.study_type,
			phase = excluded.phase,
			phases_json = excluded.phases_json,
			modality = excluded.modality,
			enrollment = excluded.enrollment,
			enrollment_type = excluded.enrollment_type,
			lead_sponsor_name = excluded.lead_sponsor_name,
			lead_sponsor_class = excluded.lead_sponsor_class,
			has_results = excluded.has_results,
			start_date = excluded.start_date,
			primary_completion_date = excluded.primary_completion_date,
			primary_completion_date_parsed = excluded.primary_completion_date_parsed,
			completion_date_parsed = excluded.completion_date_parsed,
			last_update_post_date_parsed = excluded.last_update_post_date_parsed,
			results_first_post_date_parsed = excluded.results_first_post_date_parsed,
			conditions_json = excluded.conditions_json,
			interventions_json = excluded.interventions_json,
			intervention_types_json = excluded.intervention_types_json,
			contacts_json = excluded.contacts_json,
			location_count = excluded.location_count,
			topic_tags_json = excluded.topic_tags_json,
			urgency_score = excluded.urgency_score,
			major_score = excluded.major_score,
			interesting_score = excluded.interesting_score,
			total_score = excluded.total_score,
			days_to_primary_completion = excluded.days_to_primary_completion,
			score_reasons_json = excluded.score_reasons_json,
			last_synced_utc = excluded.last_synced_utc,
			raw_json = excluded.raw_json`,
		row.NCTID, row.BriefTitle, row.OfficialTitle, row.Acronym, row.OverallStatus, row.StudyType,
		row.Phase, enc.phases, row.Modality, row.Enrollment, row.EnrollmentType,
		row.LeadSponsorName, row.LeadSponsorClass, hasResults,
		row.StartDate, row.PrimaryCompletionDate, row.PrimaryCompletionDateParsed,
		row.CompletionDateParsed, row.LastUpdatePostDateParsed, row.ResultsFirstPostDateParsed,
		enc.conditions, enc.interventions, enc.interventionTypes, enc.contacts, row.LocationCount,
		enc.tags, row.UrgencyScore, row.MajorScore, row.InterestingScore, row.TotalScore,
		row.DaysToPrimaryCompletion, enc.reasons, row.LastSynced, string(row.RawJSON),
	)
	return eris.Wrapf(err, "sqlite: upsert trial %s", row.NCTID)
}

// GetTrial returns the stored row for a trial, or nil when unknown.
func (s *SQLiteStore) GetTrial(ctx context.Context, nctID string) (*model.TrialRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trialColumns+` FROM trials WHERE nct_id = ?`, nctID)
	tr, err := scanTrial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get trial %s", nctID)
	}
	return tr, nil
}

func (s *SQLiteStore) UpsertCitations(ctx context.Context, nctID string, citations []model.Citation) error {
	now := utcNow()
	for _, c := range citations {
		if c.PMID == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO pubmed_citations (nct_id, pmid, title, source, pubdate, doi, last_seen_utc)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(nct_id, pmid) DO UPDATE SET
				title = excluded.title,
				source = excluded.source,
				pubdate = excluded.pubdate,
				doi = excluded.doi,
				last_seen_utc = excluded.last_seen_utc`,
			nctID, c.PMID, c.Title, c.Source, c.PubDate, c.DOI, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert citation %s/%s", nctID, c.PMID)
		}
	}
	return nil
}

func (s *SQLiteStore) ListCitations(ctx context.Context, nctID string) ([]model.CitationRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT nct_id, pmid, title, source, pubdate, doi, last_seen_utc
		FROM pubmed_citations WHERE nct_id = ? ORDER BY pubdate DESC, pmid`,
		nctID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list citations %s", nctID)
	}
	defer rows.Close()

	var out []model.CitationRow
	for rows.Next() {
		var c model.CitationRow
		if err := rows.Scan(&c.NCTID, &c.PMID, &c.Title, &c.Source, &c.PubDate, &c.DOI, &c.LastSeen); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan citation")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list citations iterate")
}

func (s *SQLiteStore) CitationCount(ctx context.Context, nctID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pubmed_citations WHERE nct_id = ?`, nctID,
	).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count citations %s", nctID)
}

func (s *SQLiteStore) UpdateCitationSummary(ctx context.Context, nctID string, count int, latestDate string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trials SET pubmed_count = ?, pubmed_latest_date = ?, last_pubmed_check_utc = ?
		WHERE nct_id = ?`,
		count, latestDate, utcNow(), nctID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update citation summary %s", nctID)
	}
	return checkRowsAffected(res, "trial", nctID)
}

// ActionableTrialIDs returns trials whose primary completion falls inside
// the actionable window, highest score first.
func (s *SQLiteStore) ActionableTrialIDs(ctx context.Context, w Window, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT nct_id FROM trials
		WHERE days_to_primary_completion IS NOT NULL
		  AND ((days_to_primary_completion BETWEEN 0 AND ?)
		    OR (days_to_primary_completion BETWEEN ? AND -1))
		ORDER BY total_score DESC
		LIMIT ?`,
		w.ReadoutDays, -w.RecentDays, normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: actionable trials")
	}
	defer rows.Close()
	return collectIDs(rows)
}

// TopTrialIDs returns the highest-scored trials regardless of window.
func (s *SQLiteStore) TopTrialIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT nct_id FROM trials ORDER BY total_score DESC LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top trials")
	}
	defer rows.Close()
	return collectIDs(rows)
}

// DigestRows returns full rows for the digest: actionable trials ordered
// by score, with imminent completion breaking ties. A non-positive limit
// returns every actionable trial; the digest must not drop rows.
func (s *SQLiteStore) DigestRows(ctx context.Context, w Window, limit int) ([]model.TrialRow, error) {
	query := `
		SELECT ` + trialColumns + ` FROM trials
		WHERE days_to_primary_completion IS NOT NULL
		  AND ((days_to_primary_completion BETWEEN 0 AND ?)
		    OR (days_to_primary_completion BETWEEN ? AND -1))
		ORDER BY total_score DESC, primary_completion_date_parsed ASC`
	args := []any{w.ReadoutDays, -w.RecentDays}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: digest rows")
	}
	defer rows.Close()

	var out []model.TrialRow
	for rows.Next() {
		tr, err := scanTrial(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan digest row")
		}
		out = append(out, *tr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: digest rows iterate")
}

func (s *SQLiteStore) StartSyncRun(ctx context.Context, topic string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, topic, status, started_at_utc) VALUES (?, ?, ?, ?)`,
		id, topic, model.SyncRunning, utcNow(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start sync run %s", topic)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteSyncRun(ctx context.Context, runID string, received, stored int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs SET status = ?, completed_at_utc = ?, received = ?, stored = ?
		WHERE id = ?`,
		model.SyncComplete, utcNow(), received, stored, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete sync run %s", runID)
	}
	return checkRowsAffected(res, "sync run", runID)
}

func (s *SQLiteStore) FailSyncRun(ctx context.Context, runID string, cause string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs SET status = ?, completed_at_utc = ?, error = ?
		WHERE id = ?`,
		model.SyncFailed, utcNow(), cause, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail sync run %s", runID)
	}
	return checkRowsAffected(res, "sync run", runID)
}

func (s *SQLiteStore) ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, status, started_at_utc, completed_at_utc, received, stored, error
		FROM sync_runs ORDER BY started_at_utc DESC LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sync runs")
	}
	defer rows.Close()

	var out []model.SyncRun
	for rows.Next() {
		var r model.SyncRun
		if err := rows.Scan(&r.ID, &r.Topic, &r.Status, &r.StartedAt, &r.CompletedAt, &r.Received, &r.Stored, &r.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list sync runs iterate")
}

// helpers

// trialJSON holds the encoded *_json column values for one row.
type trialJSON struct {
	phases, conditions, interventions, interventionTypes, contacts, tags, reasons string
}

func encodeTrialJSON(row *model.TrialRow, tags []string) (*trialJSON, error) {
	var enc trialJSON
	var err error
	if enc.phases, err = marshalField(emptyList(row.Phases), "phases"); err != nil {
		return nil, err
	}
	if enc.conditions, err = marshalField(emptyList(row.Conditions), "conditions"); err != nil {
		return nil, err
	}
	if enc.interventions, err = marshalField(emptyList(row.Interventions), "interventions"); err != nil {
		return nil, err
	}
	if enc.interventionTypes, err = marshalField(emptyList(row.InterventionTypes), "intervention_types"); err != nil {
		return nil, err
	}
	if enc.contacts, err = marshalField(row.Contacts, "contacts"); err != nil {
		return nil, err
	}
	if enc.tags, err = marshalField(emptyList(tags), "topic_tags"); err != nil {
		return nil, err
	}
	if enc.reasons, err = marshalField(row.ScoreReasons, "score_reasons"); err != nil {
		return nil, err
	}
	return &enc, nil
}

// emptyList keeps serialized list columns as [] instead of null.
func emptyList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

// scanTrial decodes one row in trialColumns order.
func scanTrial(sc scannable) (*model.TrialRow, error) {
	var tr model.TrialRow
	var hasResults int
	var phases, conditions, interventions, interventionTypes, contacts, tags, reasons *string
	var raw string

	err := sc.Scan(
		&tr.NCTID, &tr.BriefTitle, &tr.OfficialTitle, &tr.Acronym, &tr.OverallStatus, &tr.StudyType,
		&tr.Phase, &phases, &tr.Modality, &tr.Enrollment, &tr.EnrollmentType,
		&tr.LeadSponsorName, &tr.LeadSponsorClass, &hasResults,
		&tr.StartDate, &tr.PrimaryCompletionDate, &tr.PrimaryCompletionDateParsed,
		&tr.CompletionDateParsed, &tr.LastUpdatePostDateParsed, &tr.ResultsFirstPostDateParsed,
		&conditions, &interventions, &interventionTypes, &contacts, &tr.LocationCount,
		&tags, &tr.UrgencyScore, &tr.MajorScore, &tr.InterestingScore, &tr.TotalScore,
		&tr.DaysToPrimaryCompletion, &reasons,
		&tr.PubMedCount, &tr.PubMedLatestDate, &tr.LastPubMedCheck, &tr.LastSynced, &raw,
	)
	if err != nil {
		return nil, err
	}

	tr.HasResults = hasResults != 0
	if raw != "" {
		tr.RawJSON = []byte(raw)
	}
	for _, f := range []struct {
		src  *string
		dest any
		name string
	}{
		{phases, &tr.Phases, "phases"},
		{conditions, &tr.Conditions, "conditions"},
		{interventions, &tr.Interventions, "interventions"},
		{interventionTypes, &tr.InterventionTypes, "intervention_types"},
		{contacts, &tr.Contacts, "contacts"},
		{tags, &tr.TopicTags, "topic_tags"},
		{reasons, &tr.ScoreReasons, "score_reasons"},
	} {
		if err := unmarshalField(f.src, f.dest, f.name); err != nil {
			return nil, err
		}
	}
	return &tr, nil
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate ids")
}

// normalizeLimit applies the default query limit.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
