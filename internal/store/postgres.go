package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/db"
	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
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
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS opportunities (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	stage         TEXT NOT NULL DEFAULT 'prospecting',
	salesforce_id TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS responses (
	opportunity_id TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
	pillar_id      TEXT NOT NULL,
	question_id    TEXT NOT NULL,
	answer         TEXT NOT NULL,
	points         INTEGER NOT NULL DEFAULT 0,
	updated_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (opportunity_id, pillar_id, question_id)
);

CREATE TABLE IF NOT EXISTS assessments (
	id             UUID PRIMARY KEY,
	opportunity_id TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
	stage          TEXT NOT NULL DEFAULT '',
	overall_score  INTEGER NOT NULL,
	level          TEXT NOT NULL,
	litmus_score   INTEGER NOT NULL,
	data           JSONB NOT NULL,
	config_hash    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_opportunities_stage ON opportunities(stage);
CREATE INDEX IF NOT EXISTS idx_assessments_opportunity ON assessments(opportunity_id, created_at DESC);
`

// responsesUpsert merges a batch of responses, keeping newer stored rows.
var responsesUpsert = db.UpsertConfig{
	Table:        "responses",
	Columns:      []string{"opportunity_id", "pillar_id", "question_id", "answer", "points", "updated_at"},
	ConflictKeys: []string{"opportunity_id", "pillar_id", "question_id"},
	Guard:        `"responses"."updated_at" <= EXCLUDED."updated_at"`,
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// UpsertOpportunity inserts or updates an opportunity.
func (s *PostgresStore) UpsertOpportunity(ctx context.Context, opp model.Opportunity) error {
	if opp.UpdatedAt.IsZero() {
		opp.UpdatedAt = time.Now().UTC()
	}
	if opp.Stage == "" {
		opp.Stage = model.StageProspecting
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO opportunities (id, name, stage, salesforce_id, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, stage = $3, salesforce_id = $4, updated_at = $5`,
		opp.ID, opp.Name, string(opp.Stage), opp.SalesforceID, opp.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert opportunity %s", opp.ID)
}

// GetOpportunity returns ErrNotFound when id does not exist.
func (s *PostgresStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	var o model.Opportunity
	var stage string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, stage, salesforce_id, updated_at FROM opportunities WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &stage, &o.SalesforceID, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "opportunity %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get opportunity %s", id)
	}
	o.Stage = model.Stage(stage)
	return &o, nil
}

// ListOpportunities returns opportunities ordered by most recent update.
func (s *PostgresStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error) {
	query := `SELECT id, name, stage, salesforce_id, updated_at FROM opportunities WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Stage != "" {
		query += fmt.Sprintf(` AND stage = $%d`, argIdx)
		args = append(args, string(filter.Stage))
		argIdx++
	}
	query += ` ORDER BY updated_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list opportunities")
	}
	defer rows.Close()

	var out []model.Opportunity
	for rows.Next() {
		var o model.Opportunity
		var stage string
		if err := rows.Scan(&o.ID, &o.Name, &stage, &o.SalesforceID, &o.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan opportunity")
		}
		o.Stage = model.Stage(stage)
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list opportunities iterate")
}

// SaveResponses upserts responses, keeping stored rows that are newer. A
// single response is written directly; larger batches go through a COPY
// based bulk upsert.
func (s *PostgresStore) SaveResponses(ctx context.Context, opportunityID string, responses []model.Response) error {
	rs := dedupeResponses(responses, time.Now().UTC())
	switch len(rs) {
	case 0:
		return nil
	case 1:
		r := rs[0]
		_, err := s.pool.Exec(ctx,
			`INSERT INTO responses (opportunity_id, pillar_id, question_id, answer, points, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (opportunity_id, pillar_id, question_id) DO UPDATE SET
			   answer = EXCLUDED.answer, points = EXCLUDED.points, updated_at = EXCLUDED.updated_at
			 WHERE responses.updated_at <= EXCLUDED.updated_at`,
			opportunityID, r.PillarID, r.QuestionID, r.Answer, r.Points, r.UpdatedAt,
		)
		return eris.Wrapf(err, "postgres: save response %s.%s", r.PillarID, r.QuestionID)
	}

	rows := make([][]any, len(rs))
	for i, r := range rs {
		rows[i] = []any{opportunityID, r.PillarID, r.QuestionID, r.Answer, r.Points, r.UpdatedAt}
	}
	n, err := db.BulkUpsert(ctx, s.pool, responsesUpsert, rows)
	if err != nil {
		return eris.Wrapf(err, "postgres: save responses for %s", opportunityID)
	}
	zap.L().Debug("postgres: saved responses",
		zap.String("opportunity_id", opportunityID),
		zap.Int("submitted", len(rs)),
		zap.Int64("written", n),
	)
	return nil
}

// DeleteResponse replaces a response with a removal record stamped at. A
// stored response newer than at is kept. Deleting a missing response is
// not an error.
func (s *PostgresStore) DeleteResponse(ctx context.Context, opportunityID, pillarID, questionID string, at time.Time) error {
	err := s.SaveResponses(ctx, opportunityID, []model.Response{
		{PillarID: pillarID, QuestionID: questionID, UpdatedAt: at},
	})
	return eris.Wrapf(err, "postgres: delete response %s.%s", pillarID, questionID)
}

// LoadResponses returns every response of an opportunity, removal records
// included.
func (s *PostgresStore) LoadResponses(ctx context.Context, opportunityID string) ([]model.Response, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pillar_id, question_id, answer, points, updated_at FROM responses
		 WHERE opportunity_id = $1 ORDER BY pillar_id, question_id`,
		opportunityID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load responses %s", opportunityID)
	}
	defer rows.Close()

	var out []model.Response
	for rows.Next() {
		var r model.Response
		if err := rows.Scan(&r.PillarID, &r.QuestionID, &r.Answer, &r.Points, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan response")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load responses iterate")
}

// SaveAssessment stores an assessment snapshot.
func (s *PostgresStore) SaveAssessment(ctx context.Context, opportunityID string, stage model.Stage, a model.Assessment, configHash string) (*model.AssessmentRecord, error) {
	rec := newAssessmentRecord(opportunityID, stage, a, configHash)
	data, err := json.Marshal(rec.Assessment)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal assessment")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO assessments (id, opportunity_id, stage, overall_score, level, litmus_score, data, config_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.OpportunityID, string(rec.Stage), a.OverallScore, string(a.Level), a.LitmusScore,
		data, rec.ConfigHash, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert assessment for %s", opportunityID)
	}
	return rec, nil
}

// LatestAssessment returns the newest snapshot, or nil if there is none.
func (s *PostgresStore) LatestAssessment(ctx context.Context, opportunityID string) (*model.AssessmentRecord, error) {
	var rec model.AssessmentRecord
	var stage string
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, opportunity_id, stage, data, config_hash, created_at FROM assessments
		 WHERE opportunity_id = $1 ORDER BY created_at DESC LIMIT 1`,
		opportunityID,
	).Scan(&rec.ID, &rec.OpportunityID, &stage, &data, &rec.ConfigHash, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest assessment %s", opportunityID)
	}
	rec.Stage = model.Stage(stage)
	if err := json.Unmarshal(data, &rec.Assessment); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal assessment")
	}
	return &rec, nil
}
