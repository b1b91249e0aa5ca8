package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS opportunities`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertOpportunity(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO opportunities .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("opp-1", "Acme", "prospecting", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertOpportunity(context.Background(), model.Opportunity{ID: "opp-1", Name: "Acme"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOpportunity(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, name, stage, salesforce_id, updated_at FROM opportunities WHERE id = \$1`).
		WithArgs("opp-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "stage", "salesforce_id", "updated_at"}).
			AddRow("opp-1", "Acme", "advancing", "006xx", now))

	o, err := s.GetOpportunity(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Equal(t, model.StageAdvancing, o.Stage)
	assert.Equal(t, "006xx", o.SalesforceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOpportunity_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM opportunities WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetOpportunity(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOpportunities(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM opportunities WHERE true AND stage = \$1 ORDER BY updated_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("engaging", 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "stage", "salesforce_id", "updated_at"}).
			AddRow("opp-1", "Acme", "engaging", "", now).
			AddRow("opp-2", "Globex", "engaging", "", now))

	out, err := s.ListOpportunities(context.Background(), OpportunityFilter{Stage: model.StageEngaging, Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveResponses_Single(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ts := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO responses .* ON CONFLICT .* WHERE responses.updated_at <= EXCLUDED.updated_at`).
		WithArgs("opp-1", "metrics", "roi", "Validated by customer", 10, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveResponses(context.Background(), "opp-1", []model.Response{
		{PillarID: "metrics", QuestionID: "roi", Answer: "Validated by customer", Points: 10, UpdatedAt: ts},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveResponses_Bulk(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ts := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_responses"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_responses"}, responsesUpsert.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "responses"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	err := s.SaveResponses(context.Background(), "opp-1", []model.Response{
		{PillarID: "metrics", QuestionID: "roi", Answer: "a", Points: 3, UpdatedAt: ts},
		{PillarID: "champion", QuestionID: "who", Answer: "b", Points: 5, UpdatedAt: ts},
		{PillarID: "metrics", QuestionID: "roi", Answer: "older", Points: 0, UpdatedAt: ts.Add(-time.Hour)},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveResponses_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO responses`).WillReturnError(errors.New("conn closed"))

	err := s.SaveResponses(context.Background(), "opp-1", []model.Response{
		{PillarID: "metrics", QuestionID: "roi", Answer: "a"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save response metrics.roi")
}

func TestPostgresStore_LoadResponses(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(`SELECT pillar_id, question_id, answer, points, updated_at FROM responses`).
		WithArgs("opp-1").
		WillReturnRows(pgxmock.NewRows([]string{"pillar_id", "question_id", "answer", "points", "updated_at"}).
			AddRow("champion", "who", "Jane", 10, ts).
			AddRow("metrics", "roi", "Validated", 10, ts))

	rs, err := s.LoadResponses(context.Background(), "opp-1")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "Jane", rs[0].Answer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteResponse(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 4, 2, 10, 10, 0, 0, time.UTC)

	// The delete is a guarded upsert of a blank answer, so an older edit
	// replayed later cannot overwrite it.
	mock.ExpectExec(`INSERT INTO responses .* ON CONFLICT .* WHERE responses.updated_at <= EXCLUDED.updated_at`).
		WithArgs("opp-1", "metrics", "roi", "", 0, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.DeleteResponse(context.Background(), "opp-1", "metrics", "roi", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteResponse_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO responses`).WillReturnError(errors.New("conn closed"))

	err := s.DeleteResponse(context.Background(), "opp-1", "metrics", "roi", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete response metrics.roi")
}

func TestPostgresStore_SaveAssessment(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	a := model.Assessment{OverallScore: 72, Level: model.LevelGood, LitmusScore: 50}

	mock.ExpectExec(`INSERT INTO assessments`).
		WithArgs(pgxmock.AnyArg(), "opp-1", "engaging", 72, "Good", 50, pgxmock.AnyArg(), "abc", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.SaveAssessment(context.Background(), "opp-1", model.StageEngaging, a, "abc")
	require.NoError(t, err)
	assert.Len(t, rec.ID, 36)
	assert.Equal(t, 72, rec.Assessment.OverallScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestAssessment(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	data, err := json.Marshal(model.Assessment{OverallScore: 81, Level: model.LevelExcellent})
	require.NoError(t, err)

	mock.ExpectQuery(`FROM assessments`).
		WithArgs("opp-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "opportunity_id", "stage", "data", "config_hash", "created_at"}).
			AddRow("5b3c", "opp-1", "advancing", data, "abc", time.Now().UTC()))

	rec, err := s.LatestAssessment(context.Background(), "opp-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.LevelExcellent, rec.Assessment.Level)
	assert.Equal(t, model.StageAdvancing, rec.Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestAssessment_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM assessments`).WithArgs("opp-1").WillReturnError(pgx.ErrNoRows)

	rec, err := s.LatestAssessment(context.Background(), "opp-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}
