package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/trialwatch/internal/db"
	"github.com/sells-group/trialwatch/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS trials (
	nct_id                         TEXT PRIMARY KEY,
	brief_title                    TEXT NOT NULL DEFAULT '',
	official_title                 TEXT NOT NULL DEFAULT '',
	acronym                        TEXT NOT NULL DEFAULT '',
	overall_status                 TEXT NOT NULL DEFAULT '',
	study_type                     TEXT NOT NULL DEFAULT '',
	phase                          TEXT NOT NULL DEFAULT '',
	phases_json                    JSONB NOT NULL DEFAULT '[]',
	modality                       TEXT NOT NULL DEFAULT '',
	enrollment                     INTEGER,
	enrollment_type                TEXT NOT NULL DEFAULT '',
	lead_sponsor_name              TEXT NOT NULL DEFAULT '',
	lead_sponsor_class             TEXT NOT NULL DEFAULT '',
	has_results                    BOOLEAN NOT NULL DEFAULT FALSE,
	start_date                     TEXT NOT NULL DEFAULT '',
	primary_completion_date        TEXT NOT NULL DEFAULT '',
	primary_completion_date_parsed TEXT NOT NULL DEFAULT '',
	completion_date_parsed         TEXT NOT NULL DEFAULT '',
	last_update_post_date_parsed   TEXT NOT NULL DEFAULT '',
	results_first_post_date_parsed TEXT NOT NULL DEFAULT '',
	conditions_json                JSONB NOT NULL DEFAULT '[]',
	interventions_json             JSONB NOT NULL DEFAULT '[]',
	intervention_types_json        JSONB NOT NULL DEFAULT '[]',
	contacts_json                  JSONB NOT NULL DEFAULT '{}',
	location_count                 INTEGER,
	topic_tags_json                JSONB NOT NULL DEFAULT '[]',
	urgency_score                  INTEGER NOT NULL DEFAULT 0,
	major_score                    INTEGER NOT NULL DEFAULT 0,
	interesting_score              INTEGER NOT NULL DEFAULT 0,
	total_score                    INTEGER NOT NULL DEFAULT 0,
	days_to_primary_completion     INTEGER,
	score_reasons_json             JSONB NOT NULL DEFAULT '{}',
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertTrial(ctx context.Context, row *model.TrialRow) error {
	var existingTags *string
	err := s.pool.QueryRow(ctx,
		`SELECT topic_tags_json::text FROM trials WHERE nct_id = $1`, row.NCTID,
	).Scan(&existingTags)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(err, "postgres: read tags %s", row.NCTID)
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO trials (
			nct_id, brief_title, official_title, acronym, overall_status, study_type,
			phase, phases_json, modality, enrollment, enrollment_type,
			lead_sponsor_name, lead_sponsor_class, has_results,
			start_date, primary_completion_date, primary_completion_date_parsed,
			completion_date_parsed, last_update_post_date_parsed, results_first_post_date_parsed,
			conditions_json, interventions_json, intervention_types_json, contacts_json, location_count,
			topic_tags_json, urgency_score, major_score, interesting_score, total_score,
			days_to_primary_completion, score_reasons_json, last_synced_utc, raw_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)
		ON CONFLICT (nct_id) DO UPDATE SET
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
		row.LeadSponsorName, row.LeadSponsorClass, row.HasResults,
		row.StartDate, row.PrimaryCompletionDate, row.PrimaryCompletionDateParsed,
		row.CompletionDateParsed, row.LastUpdatePostDateParsed, row.ResultsFirstPostDateParsed,
		enc.conditions, enc.interventions, enc.interventionTypes, enc.contacts, row.LocationCount,
		enc.tags, row.UrgencyScore, row.MajorScore, row.InterestingScore, row.TotalScore,
		row.DaysToPrimaryCompletion, enc.reasons, row.LastSynced, string(row.RawJSON),
	)
	return eris.Wrapf(err, "postgres: upsert trial %s", row.NCTID)
}

// pgTrialColumns casts the JSONB columns to text so scanning matches the
// SQLite shapes.
const pgTrialColumns = `nct_id, brief_title, official_title, acronym, overall_status, study_type,
	phase, phases_json::text, modality, enrollment, enrollment_type,
	lead_sponsor_name, lead_sponsor_class, has_results,
	start_date, primary_completion_date, primary_completion_date_parsed,
	completion_date_parsed, last_update_post_date_parsed, results_first_post_date_parsed,
	conditions_json::text, interventions_json::text, intervention_types_json::text, contacts_json::text, location_count,
	topic_tags_json::text, urgency_score, major_score, interesting_score, total_score,
	days_to_primary_completion, score_reasons_json::text,
	pubmed_count, pubmed_latest_date, last_pubmed_check_utc, last_synced_utc, raw_json`

func (s *PostgresStore) GetTrial(ctx context.Context, nctID string) (*model.TrialRow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgTrialColumns+` FROM trials WHERE nct_id = $1`, nctID)
	tr, err := scanTrialPG(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get trial %s", nctID)
	}
	return tr, nil
}

func (s *PostgresStore) UpsertCitations(ctx context.Context, nctID string, citations []model.Citation) error {
	now := utcNow()
	for _, c := range citations {
		if c.PMID == "" {
			continue
		}
		_, err := s.pool.Exec(ctx, `
			INSERT INTO pubmed_citations (nct_id, pmid, title, source, pubdate, doi, last_seen_utc)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (nct_id, pmid) DO UPDATE SET
				title = excluded.title,
				source = excluded.source,
				pubdate = excluded.pubdate,
				doi = excluded.doi,
				last_seen_utc = excluded.last_seen_utc`,
			nctID, c.PMID, c.Title, c.Source, c.PubDate, c.DOI, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert citation %s/%s", nctID, c.PMID)
		}
	}
	return nil
}

func (s *PostgresStore) ListCitations(ctx context.Context, nctID string) ([]model.CitationRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT nct_id, pmid, title, source, pubdate, doi, last_seen_utc
		FROM pubmed_citations WHERE nct_id = $1 ORDER BY pubdate DESC, pmid`,
		nctID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list citations %s", nctID)
	}
	defer rows.Close()

	var out []model.CitationRow
	for rows.Next() {
		var c model.CitationRow
		if err := rows.Scan(&c.NCTID, &c.PMID, &c.Title, &c.Source, &c.PubDate, &c.DOI, &c.LastSeen); err != nil {
			return nil, eris.Wrap(err, "postgres: scan citation")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list citations iterate")
}

func (s *PostgresStore) CitationCount(ctx context.Context, nctID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pubmed_citations WHERE nct_id = $1`, nctID,
	).Scan(&n)
	return n, eris.Wrapf(err, "postgres: count citations %s", nctID)
}

func (s *PostgresStore) UpdateCitationSummary(ctx context.Context, nctID string, count int, latestDate string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE trials SET pubmed_count = $1, pubmed_latest_date = $2, last_pubmed_check_utc = $3
		WHERE nct_id = $4`,
		count, latestDate, utcNow(), nctID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update citation summary %s", nctID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("trial not found: %s", nctID)
	}
	return nil
}

func (s *PostgresStore) ActionableTrialIDs(ctx context.Context, w Window, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT nct_id FROM trials
		WHERE days_to_primary_completion IS NOT NULL
		  AND ((days_to_primary_completion BETWEEN 0 AND $1)
		    OR (days_to_primary_completion BETWEEN $2 AND -1))
		ORDER BY total_score DESC
		LIMIT $3`,
		w.ReadoutDays, -w.RecentDays, normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: actionable trials")
	}
	defer rows.Close()
	return collectIDsPG(rows)
}

func (s *PostgresStore) TopTrialIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT nct_id FROM trials ORDER BY total_score DESC LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top trials")
	}
	defer rows.Close()
	return collectIDsPG(rows)
}

// DigestRows mirrors the sqlite variant: a non-positive limit returns
// every actionable trial.
func (s *PostgresStore) DigestRows(ctx context.Context, w Window, limit int) ([]model.TrialRow, error) {
	query := `
		SELECT ` + pgTrialColumns + ` FROM trials
		WHERE days_to_primary_completion IS NOT NULL
		  AND ((days_to_primary_completion BETWEEN 0 AND $1)
		    OR (days_to_primary_completion BETWEEN $2 AND -1))
		ORDER BY total_score DESC, primary_completion_date_parsed ASC`
	args := []any{w.ReadoutDays, -w.RecentDays}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: digest rows")
	}
	defer rows.Close()

	var out []model.TrialRow
	for rows.Next() {
		tr, err := scanTrialPG(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan digest row")
		}
		out = append(out, *tr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: digest rows iterate")
}

func (s *PostgresStore) StartSyncRun(ctx context.Context, topic string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, topic, status, started_at_utc) VALUES ($1, $2, $3, $4)`,
		id, topic, model.SyncRunning, utcNow(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start sync run %s", topic)
	}
	return id, nil
}

func (s *PostgresStore) CompleteSyncRun(ctx context.Context, runID string, received, stored int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sync_runs SET status = $1, completed_at_utc = $2, received = $3, stored = $4
		WHERE id = $5`,
		model.SyncComplete, utcNow(), received, stored, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete sync run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailSyncRun(ctx context.Context, runID string, cause string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sync_runs SET status = $1, completed_at_utc = $2, error = $3
		WHERE id = $4`,
		model.SyncFailed, utcNow(), cause, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail sync run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("sync run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, topic, status, started_at_utc, completed_at_utc, received, stored, error
		FROM sync_runs ORDER BY started_at_utc DESC LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sync runs")
	}
	defer rows.Close()

	var out []model.SyncRun
	for rows.Next() {
		var r model.SyncRun
		if err := rows.Scan(&r.ID, &r.Topic, &r.Status, &r.StartedAt, &r.CompletedAt, &r.Received, &r.Stored, &r.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list sync runs iterate")
}

// scanTrialPG decodes one row in pgTrialColumns order. It differs from the
// SQLite scan only in the boolean column type.
func scanTrialPG(sc scannable) (*model.TrialRow, error) {
	var tr model.TrialRow
	var phases, conditions, interventions, interventionTypes, contacts, tags, reasons *string
	var raw string

	err := sc.Scan(
		&tr.NCTID, &tr.BriefTitle, &tr.OfficialTitle, &tr.Acronym, &tr.OverallStatus, &tr.StudyType,
		&tr.Phase, &phases, &tr.Modality, &tr.Enrollment, &tr.EnrollmentType,
		&tr.LeadSponsorName, &tr.LeadSponsorClass, &tr.HasResults,
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

func collectIDsPG(rows pgx.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate ids")
}
