package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. Foreign keys are enforced on every pooled connection.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withForeignKeys(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// withForeignKeys adds the per-connection foreign_keys pragma to dsn.
func withForeignKeys(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS opportunities (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	stage         TEXT NOT NULL DEFAULT 'prospecting',
	salesforce_id TEXT NOT NULL DEFAULT '',
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS responses (
	opportunity_id TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
	pillar_id      TEXT NOT NULL,
	question_id    TEXT NOT NULL,
	answer         TEXT NOT NULL,
	points         INTEGER NOT NULL DEFAULT 0,
	updated_at     DATETIME NOT NULL,
	PRIMARY KEY (opportunity_id, pillar_id, question_id)
);

CREATE TABLE IF NOT EXISTS assessments (
	id             TEXT PRIMARY KEY,
	opportunity_id TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
	stage          TEXT NOT NULL DEFAULT '',
	overall_score  INTEGER NOT NULL,
	level          TEXT NOT NULL,
	litmus_score   INTEGER NOT NULL,
	data           TEXT NOT NULL,
	config_hash    TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_stage ON opportunities(stage);
CREATE INDEX IF NOT EXISTS idx_assessments_opportunity ON assessments(opportunity_id, created_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertOpportunity inserts or updates an opportunity.
func (s *SQLiteStore) UpsertOpportunity(ctx context.Context, opp model.Opportunity) error {
	if opp.UpdatedAt.IsZero() {
		opp.UpdatedAt = time.Now().UTC()
	}
	if opp.Stage == "" {
		opp.Stage = model.StageProspecting
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO opportunities (id, name, stage, salesforce_id, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, stage = excluded.stage,
		   salesforce_id = excluded.salesforce_id, updated_at = excluded.updated_at`,
		opp.ID, opp.Name, string(opp.Stage), opp.SalesforceID, opp.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert opportunity %s", opp.ID)
}

// GetOpportunity returns ErrNotFound when id does not exist.
func (s *SQLiteStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	var o model.Opportunity
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, stage, salesforce_id, updated_at FROM opportunities WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.Stage, &o.SalesforceID, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "opportunity %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get opportunity %s", id)
	}
	return &o, nil
}

// ListOpportunities returns opportunities ordered by most recent update.
func (s *SQLiteStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error) {
	query := `SELECT id, name, stage, salesforce_id, updated_at FROM opportunities WHERE 1=1`
	args := []any{}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` ORDER BY updated_at DESC, id LIMIT %d OFFSET %d`, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list opportunities")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Opportunity
	for rows.Next() {
		var o model.Opportunity
		if err := rows.Scan(&o.ID, &o.Name, &o.Stage, &o.SalesforceID, &o.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan opportunity")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list opportunities iterate")
}

// SaveResponses upserts responses in one transaction, keeping stored
// responses that are newer.
func (s *SQLiteStore) SaveResponses(ctx context.Context, opportunityID string, responses []model.Response) error {
	if len(responses) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save responses")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO responses (opportunity_id, pillar_id, question_id, answer, points, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (opportunity_id, pillar_id, question_id) DO UPDATE SET
		   answer = excluded.answer, points = excluded.points, updated_at = excluded.updated_at
		 WHERE excluded.updated_at >= responses.updated_at`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save responses")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range dedupeResponses(responses, time.Now().UTC()) {
		if _, err := stmt.ExecContext(ctx, opportunityID, r.PillarID, r.QuestionID, r.Answer, r.Points, r.UpdatedAt); err != nil {
			return eris.Wrapf(err, "sqlite: save response %s.%s", r.PillarID, r.QuestionID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save responses")
}

// DeleteResponse replaces a response with a removal record stamped at. A
// stored response newer than at is kept. Deleting a missing response is
// not an error.
func (s *SQLiteStore) DeleteResponse(ctx context.Context, opportunityID, pillarID, questionID string, at time.Time) error {
	err := s.SaveResponses(ctx, opportunityID, []model.Response{
		{PillarID: pillarID, QuestionID: questionID, UpdatedAt: at},
	})
	return eris.Wrapf(err, "sqlite: delete response %s.%s", pillarID, questionID)
}

// LoadResponses returns every response of an opportunity, removal records
// included.
func (s *SQLiteStore) LoadResponses(ctx context.Context, opportunityID string) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pillar_id, question_id, answer, points, updated_at FROM responses
		 WHERE opportunity_id = ? ORDER BY pillar_id, question_id`,
		opportunityID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load responses %s", opportunityID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Response
	for rows.Next() {
		var r model.Response
		if err := rows.Scan(&r.PillarID, &r.QuestionID, &r.Answer, &r.Points, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan response")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load responses iterate")
}

// SaveAssessment stores an assessment snapshot.
func (s *SQLiteStore) SaveAssessment(ctx context.Context, opportunityID string, stage model.Stage, a model.Assessment, configHash string) (*model.AssessmentRecord, error) {
	rec := newAssessmentRecord(opportunityID, stage, a, configHash)
	data, err := json.Marshal(rec.Assessment)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal assessment")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, opportunity_id, stage, overall_score, level, litmus_score, data, config_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OpportunityID, string(rec.Stage), a.OverallScore, string(a.Level), a.LitmusScore,
		string(data), rec.ConfigHash, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert assessment for %s", opportunityID)
	}
	return rec, nil
}

// LatestAssessment returns the newest snapshot, or nil if there is none.
func (s *SQLiteStore) LatestAssessment(ctx context.Context, opportunityID string) (*model.AssessmentRecord, error) {
	var rec model.AssessmentRecord
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, opportunity_id, stage, data, config_hash, created_at FROM assessments
		 WHERE opportunity_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		opportunityID,
	).Scan(&rec.ID, &rec.OpportunityID, &rec.Stage, &data, &rec.ConfigHash, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest assessment %s", opportunityID)
	}
	if err := json.Unmarshal([]byte(data), &rec.Assessment); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal assessment")
	}
	return &rec, nil
}

func newAssessmentRecord(opportunityID string, stage model.Stage, a model.Assessment, configHash string) *model.AssessmentRecord {
	return &model.AssessmentRecord{
		ID:            uuid.New().String(),
		OpportunityID: opportunityID,
		Stage:         stage,
		Assessment:    a,
		ConfigHash:    configHash,
		CreatedAt:     time.Now().UTC(),
	}
}
