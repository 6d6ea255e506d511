package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trialwatch/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

// anyArgs returns n placeholder matchers for statements whose exact
// arguments are not under test.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func strPtr(s string) *string { return &s }

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS trials`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTrial_FirstSighting(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT topic_tags_json::text FROM trials`).
		WithArgs("NCT01234567").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO trials`).
		WithArgs(anyArgs(34)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertTrial(context.Background(), testRow("NCT01234567", 62, intPtr(90)))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTrial_MergesExistingTags(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT topic_tags_json::text FROM trials`).
		WithArgs("NCT01234567").
		WillReturnRows(pgxmock.NewRows([]string{"topic_tags_json"}).AddRow(strPtr(`["immuno"]`)))
	mock.ExpectExec(`INSERT INTO trials`).
		WithArgs(anyArgs(34)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertTrial(context.Background(), testRow("NCT01234567", 62, intPtr(90)))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTrial_NotFoundIsNil(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM trials WHERE nct_id = \$1`).
		WithArgs("NCT00000000").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetTrial(context.Background(), "NCT00000000")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertCitations_SkipsEmptyPMID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Only one exec expected: the empty-PMID entry never reaches the pool.
	mock.ExpectExec(`INSERT INTO pubmed_citations`).
		WithArgs(anyArgs(7)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertCitations(context.Background(), "NCT01234567", []model.Citation{
		{PMID: "", Title: "Unresolvable"},
		{PMID: "100", Title: "First report", DOI: "10.1/abc"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CitationCount(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM pubmed_citations`).
		WithArgs("NCT01234567").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.CitationCount(context.Background(), "NCT01234567")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCitationSummary_UnknownTrial(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE trials SET pubmed_count`).
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCitationSummary(context.Background(), "NCT00000000", 1, "2026/01/01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trial not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActionableTrialIDs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT nct_id FROM trials`).
		WithArgs(180, -120, 100).
		WillReturnRows(pgxmock.NewRows([]string{"nct_id"}).
			AddRow("NCT00000001").
			AddRow("NCT00000002"))

	ids, err := s.ActionableTrialIDs(context.Background(), Window{ReadoutDays: 180, RecentDays: 120}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"NCT00000001", "NCT00000002"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SyncRunLifecycle(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO sync_runs`).
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	id, err := s.StartSyncRun(ctx, "oncology")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	mock.ExpectExec(`UPDATE sync_runs SET status`).
		WithArgs(anyArgs(5)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.CompleteSyncRun(ctx, id, 120, 118))

	mock.ExpectExec(`UPDATE sync_runs SET status`).
		WithArgs(anyArgs(4)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = s.FailSyncRun(ctx, "no-such-run", "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync run not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DigestRowsZeroLimitQueriesAll(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Only the two window bounds: no limit argument for the digest.
	mock.ExpectQuery(`ORDER BY total_score DESC, primary_completion_date_parsed ASC`).
		WithArgs(180, -120).
		WillReturnRows(pgxmock.NewRows([]string{"nct_id"}))

	rows, err := s.DigestRows(context.Background(), Window{ReadoutDays: 180, RecentDays: 120}, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
