// Package store persists opportunities, their responses and assessment
// snapshots.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// OpportunityFilter specifies criteria for listing opportunities.
type OpportunityFilter struct {
	Stage  model.Stage `json:"stage,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

// Store defines the persistence interface for qualification data.
type Store interface {
	// Opportunities
	UpsertOpportunity(ctx context.Context, opp model.Opportunity) error
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
	ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error)

	// Responses. SaveResponses is last-write-wins per (pillar, question):
	// a stored response with a newer UpdatedAt is kept. A response with a
	// blank Answer is a removal record. DeleteResponse writes one stamped
	// at, and LoadResponses returns them alongside live answers.
	SaveResponses(ctx context.Context, opportunityID string, responses []model.Response) error
	DeleteResponse(ctx context.Context, opportunityID, pillarID, questionID string, at time.Time) error
	LoadResponses(ctx context.Context, opportunityID string) ([]model.Response, error)

	// Assessment snapshots. LatestAssessment returns nil when there is none.
	SaveAssessment(ctx context.Context, opportunityID string, stage model.Stage, a model.Assessment, configHash string) (*model.AssessmentRecord, error)
	LatestAssessment(ctx context.Context, opportunityID string) (*model.AssessmentRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// dedupeResponses keeps the newest response per key and stamps missing
// timestamps with now. Blank answers are stored with 0 points.
func dedupeResponses(rs []model.Response, now time.Time) []model.Response {
	idx := make(map[model.ResponseKey]int, len(rs))
	out := make([]model.Response, 0, len(rs))
	for _, r := range rs {
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		r.UpdatedAt = r.UpdatedAt.UTC()
		if strings.TrimSpace(r.Answer) == "" {
			r.Answer, r.Points = "", 0
		}
		if i, ok := idx[r.Key()]; ok {
			if !r.UpdatedAt.Before(out[i].UpdatedAt) {
				out[i] = r
			}
			continue
		}
		idx[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}
