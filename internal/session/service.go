// Package session applies qualification edits to stored opportunities and
// derives their assessments.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
	"github.com/fulqrun/meddpicc-cli/internal/resilience"
	"github.com/fulqrun/meddpicc-cli/internal/store"
)

// ErrGateNotReady is returned by Advance when the gate criteria are not met.
var ErrGateNotReady = errors.New("session: stage gate not ready")

// Service opens sessions over a store with a fixed scorer.
type Service struct {
	store  store.Store
	scorer *qualify.Scorer
	eval   *qualify.Evaluator
	retry  resilience.RetryConfig
	hash   string
	now    func() time.Time
}

// NewService creates a Service. Store writes are retried with retry.
func NewService(st store.Store, scorer *qualify.Scorer, retry resilience.RetryConfig) *Service {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("store", "write")
	}
	return &Service{
		store:  st,
		scorer: scorer,
		eval:   qualify.NewEvaluator(scorer.Catalog()),
		retry:  retry,
		hash:   qualify.ConfigHash(scorer.Catalog()),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Scorer returns the scorer sessions use.
func (s *Service) Scorer() *qualify.Scorer { return s.scorer }

// Evaluator returns the stage-gate evaluator sessions use.
func (s *Service) Evaluator() *qualify.Evaluator { return s.eval }

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// Open loads an opportunity and its responses. It returns store.ErrNotFound
// when the opportunity does not exist.
func (s *Service) Open(ctx context.Context, opportunityID string) (*Session, error) {
	opp, err := s.store.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, eris.Wrap(err, "session: open")
	}
	rs, err := s.store.LoadResponses(ctx, opportunityID)
	if err != nil {
		return nil, eris.Wrap(err, "session: load responses")
	}

	responses := qualify.NewResponseStore(s.scorer.Catalog(), s.scorer.Config().MinTextLength)
	responses.Load(rs)
	return &Session{svc: s, opp: *opp, responses: responses}, nil
}

// Assess scores an opportunity's stored responses.
func (s *Service) Assess(ctx context.Context, opportunityID string) (model.Assessment, error) {
	ss, err := s.Open(ctx, opportunityID)
	if err != nil {
		return model.Assessment{}, err
	}
	return ss.Assess(), nil
}

func (s *Service) write(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := resilience.Do(ctx, s.retry, fn)
	if err != nil {
		zap.L().Error("session: store write failed", zap.String("op", op), zap.Error(err))
	}
	return err
}
