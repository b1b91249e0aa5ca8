package crmsync

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fulqrun/meddpicc-cli/internal/config"
	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/resilience"
	"github.com/fulqrun/meddpicc-cli/internal/session"
	"github.com/fulqrun/meddpicc-cli/internal/store"
	"github.com/fulqrun/meddpicc-cli/pkg/salesforce"
)

// ErrNoSalesforceID is returned by SyncOne for opportunities that are not
// linked to a Salesforce record.
var ErrNoSalesforceID = eris.New("crmsync: opportunity has no salesforce id")

const listPageSize = 500

// Result summarizes a SyncAll run.
type Result struct {
	Synced  int      `json:"synced"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Syncer writes assessments to Salesforce Opportunity fields.
type Syncer struct {
	sf          salesforce.Client
	svc         *session.Service
	fields      map[string]string
	concurrency int
	retry       resilience.RetryConfig
	breaker     *resilience.Breaker
}

// New creates a Syncer. fields maps field keys (see DefaultFields) to
// Salesforce field names.
func New(sf salesforce.Client, svc *session.Service, cfg config.SyncConfig, fields map[string]string) *Syncer {
	retry := resilience.FromSyncConfig(cfg)
	retry.ShouldRetry = ShouldRetry
	retry.OnRetry = resilience.RetryLogger("salesforce", "update opportunities")

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Syncer{
		sf:          sf,
		svc:         svc,
		fields:      MergeFields(fields),
		concurrency: concurrency,
		retry:       retry,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:       "salesforce",
			ShouldTrip: ShouldRetry,
		}),
	}
}

// ShouldRetry reports whether a Salesforce error is worth another attempt.
func ShouldRetry(err error) bool {
	return resilience.IsTransient(err) || resilience.IsTransientHTTPStatus(salesforce.StatusCode(err))
}

// Fields returns the field key to Salesforce field mapping in use.
func (s *Syncer) Fields() map[string]string {
	out := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// BuildRecord maps an assessment onto the configured Opportunity fields.
// Pillars without answers get an empty summary so stale text is cleared.
func (s *Syncer) BuildRecord(opp model.Opportunity, a model.Assessment, summary map[string]string) salesforce.CollectionRecord {
	values := make(map[string]any)
	set := func(key string, v any) {
		if name, ok := s.fields[key]; ok {
			values[name] = v
		}
	}

	set(KeyOverallScore, a.OverallScore)
	set(KeyLevel, string(a.Level))
	set(KeyLitmusScore, a.LitmusScore)
	set(KeyNextActions, strings.Join(a.NextActions, "\n"))
	for _, p := range s.svc.Scorer().Catalog().Pillars() {
		set(ScoreKey(p.ID), a.PillarScores[p.ID])
		set(SummaryKey(p.ID), summary[p.ID])
	}
	return salesforce.CollectionRecord{ID: opp.SalesforceID, Fields: values}
}

// SyncOne writes one opportunity's current assessment.
func (s *Syncer) SyncOne(ctx context.Context, opportunityID string) error {
	rec, err := s.record(ctx, opportunityID)
	if err != nil {
		return err
	}
	if rec == nil {
		return eris.Wrap(ErrNoSalesforceID, opportunityID)
	}

	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.breaker.Execute(ctx, func(ctx context.Context) error {
			return salesforce.UpdateOpportunity(ctx, s.sf, rec.ID, rec.Fields)
		})
	})
	if err != nil {
		return eris.Wrapf(err, "crmsync: sync %s", opportunityID)
	}
	zap.L().Info("crmsync: opportunity synced",
		zap.String("opportunity_id", opportunityID),
		zap.String("salesforce_id", rec.ID),
	)
	return nil
}

// SyncAll writes every stored opportunity matching filter. Records are built
// concurrently and sent through the Collections API in batches of 200.
// Opportunities without a Salesforce ID are skipped.
func (s *Syncer) SyncAll(ctx context.Context, filter store.OpportunityFilter) (*Result, error) {
	opps, err := s.listAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var (
		mu      sync.Mutex
		records = make([]*salesforce.CollectionRecord, len(opps))
		skipped atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, opp := range opps {
		if opp.SalesforceID == "" {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			rec, err := s.record(gctx, opp.ID)
			if err != nil {
				zap.L().Error("crmsync: build record failed", zap.String("opportunity_id", opp.ID), zap.Error(err))
				mu.Lock()
				res.Failed++
				res.Errors = append(res.Errors, opp.ID+": "+err.Error())
				mu.Unlock()
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "crmsync: build records")
	}
	res.Skipped = int(skipped.Load())

	var batch []salesforce.CollectionRecord
	for _, r := range records {
		if r != nil {
			batch = append(batch, *r)
		}
	}
	if len(batch) == 0 {
		return res, nil
	}

	// Retries resume after the batches that already went through.
	var results []salesforce.CollectionResult
	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.breaker.Execute(ctx, func(ctx context.Context) error {
			out, err := salesforce.BulkUpdate(ctx, s.sf, salesforce.OpportunityObject, batch[len(results):])
			results = append(results, out...)
			return err
		})
	})

	for i, r := range results {
		if r.Success {
			res.Synced++
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, batch[i].ID+": "+strings.Join(r.Errors, "; "))
	}
	if err != nil {
		res.Failed += len(batch) - len(results)
		return res, eris.Wrap(err, "crmsync: update opportunities")
	}

	zap.L().Info("crmsync: sync complete",
		zap.Int("synced", res.Synced),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// CheckFields returns the configured field names that the Opportunity object
// lacks or cannot update.
func (s *Syncer) CheckFields(ctx context.Context) ([]string, error) {
	missing, err := salesforce.MissingFields(ctx, s.sf, fieldNames(s.fields))
	if err != nil {
		return nil, eris.Wrap(err, "crmsync: check fields")
	}
	return missing, nil
}

// record builds the update for one opportunity. It returns nil when the
// opportunity has no Salesforce ID.
func (s *Syncer) record(ctx context.Context, opportunityID string) (*salesforce.CollectionRecord, error) {
	ss, err := s.svc.Open(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	opp := ss.Opportunity()
	if opp.SalesforceID == "" {
		return nil, nil
	}
	rec := s.BuildRecord(opp, ss.Assess(), ss.Summary())
	return &rec, nil
}

func (s *Syncer) listAll(ctx context.Context, filter store.OpportunityFilter) ([]model.Opportunity, error) {
	if filter.Limit > 0 {
		opps, err := s.svc.Store().ListOpportunities(ctx, filter)
		return opps, eris.Wrap(err, "crmsync: list opportunities")
	}

	var all []model.Opportunity
	filter.Limit = listPageSize
	for {
		page, err := s.svc.Store().ListOpportunities(ctx, filter)
		if err != nil {
			return nil, eris.Wrap(err, "crmsync: list opportunities")
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
		filter.Offset += len(page)
	}
}
