package qualify

import (
	"math"

	"github.com/fulqrun/meddpicc-cli/internal/config"
	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// Scorer turns responses into an Assessment. It holds no mutable state.
type Scorer struct {
	catalog *Catalog
	cfg     config.ScoringConfig
}

// NewScorer creates a Scorer. cfg is used as given: defaults are applied
// when configuration is loaded, so an explicit zero threshold is kept.
func NewScorer(catalog *Catalog, cfg config.ScoringConfig) *Scorer {
	return &Scorer{catalog: catalog, cfg: cfg}
}

// Catalog returns the catalog the scorer was built with.
func (s *Scorer) Catalog() *Catalog { return s.catalog }

// Config returns the effective scoring configuration.
func (s *Scorer) Config() config.ScoringConfig { return s.cfg }

// Calculate computes the assessment for responses. It is pure: the same
// responses always produce the same assessment.
func (s *Scorer) Calculate(responses []model.Response) model.Assessment {
	earned := indexResponses(s.catalog, responses)

	pillars := s.catalog.Pillars()
	scores := make(map[string]int, len(pillars))
	for _, p := range pillars {
		scores[p.ID] = pillarScore(p, earned)
	}

	overall := s.overall(pillars, scores)
	litmusPillar := s.catalog.LitmusTest().AsPillar()
	litmus := pillarScore(litmusPillar, earned)

	readiness := make(map[string]bool)
	for _, g := range s.catalog.StageGates() {
		readiness[g.Key()] = s.catalog.gateReady(g, scores)
	}

	return model.Assessment{
		PillarScores:       scores,
		OverallScore:       overall,
		Level:              s.Level(overall),
		LitmusScore:        litmus,
		NextActions:        nextActions(pillars, scores, litmusPillar, litmus, s.cfg),
		StageGateReadiness: readiness,
	}
}

// Level buckets an overall score.
func (s *Scorer) Level(overall int) model.QualificationLevel {
	switch {
	case overall >= s.cfg.ExcellentThreshold:
		return model.LevelExcellent
	case overall >= s.cfg.GoodThreshold:
		return model.LevelGood
	case overall >= s.cfg.FairThreshold:
		return model.LevelFair
	default:
		return model.LevelPoor
	}
}

// Weight returns the effective weight of a pillar: the configured override,
// then the pillar's own weight, then 1.
func (s *Scorer) Weight(p model.Pillar) float64 {
	if w, ok := s.cfg.Weights[p.ID]; ok {
		return w
	}
	if p.Weight > 0 {
		return p.Weight
	}
	return 1
}

func (s *Scorer) overall(pillars []model.Pillar, scores map[string]int) int {
	var sum, weights float64
	for _, p := range pillars {
		w := s.Weight(p)
		if w <= 0 {
			continue
		}
		sum += w * float64(scores[p.ID])
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return clamp(int(math.Round(sum/weights)), 0, 100)
}

// indexResponses keys responses to known questions, clamping points to the
// question's range. A later duplicate replaces an earlier one.
func indexResponses(c *Catalog, responses []model.Response) map[model.ResponseKey]int {
	out := make(map[model.ResponseKey]int, len(responses))
	for _, r := range responses {
		q, ok := c.Question(r.PillarID, r.QuestionID)
		if !ok {
			continue
		}
		out[r.Key()] = clamp(r.Points, 0, q.MaxPoints())
	}
	return out
}

// pillarScore is earned points over the maximum achievable points of every
// question in the pillar, as a rounded percentage.
func pillarScore(p model.Pillar, earned map[model.ResponseKey]int) int {
	total := 0
	for _, q := range p.Questions {
		total += earned[model.ResponseKey{PillarID: p.ID, QuestionID: q.ID}]
	}
	return percent(total, p.MaxPoints())
}
