package qualify

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	return NewScorer(testCatalog(t), DefaultScoringConfig())
}

func TestCalculateEmpty(t *testing.T) {
	a := newTestScorer(t).Calculate(nil)

	assert.Equal(t, 0, a.OverallScore)
	assert.Equal(t, model.LevelPoor, a.Level)
	assert.Equal(t, 0, a.LitmusScore)
	assert.Empty(t, a.ReadyGates())
	assert.Equal(t, map[string]int{"champion": 0, "metrics": 0, "empty": 0}, a.PillarScores)
	assert.Len(t, a.StageGateReadiness, 3)
}

func TestCalculateEmptyCatalog(t *testing.T) {
	a := NewScorer(nil, DefaultScoringConfig()).Calculate([]model.Response{
		{PillarID: "metrics", QuestionID: "m1", Answer: "x", Points: 10},
	})

	assert.Equal(t, 0, a.OverallScore)
	assert.Equal(t, model.LevelPoor, a.Level)
	assert.Empty(t, a.PillarScores)
	assert.Empty(t, a.NextActions)
}

func TestCalculateChampionScenario(t *testing.T) {
	s := newTestScorer(t)
	ev := NewEvaluator(s.Catalog())

	full := s.Calculate([]model.Response{
		{PillarID: "champion", QuestionID: "commit", Answer: "Full", Points: 100},
	})
	assert.Equal(t, 100, full.PillarScores["champion"])
	assert.True(t, ev.CriteriaStatus("Champion committed", full).Met)
	assert.True(t, full.StageGateReadiness["engaging->advancing"])

	none := s.Calculate([]model.Response{
		{PillarID: "champion", QuestionID: "commit", Answer: "None", Points: 0},
	})
	assert.Equal(t, 0, none.PillarScores["champion"])
	assert.False(t, ev.CriteriaStatus("Champion committed", none).Met)
	assert.False(t, none.StageGateReadiness["engaging->advancing"])
}

func TestCalculateScores(t *testing.T) {
	s := newTestScorer(t)

	a := s.Calculate([]model.Response{
		{PillarID: "champion", QuestionID: "commit", Answer: "Full", Points: 100},
		{PillarID: "metrics", QuestionID: "m1", Answer: "ok", Points: 5},
		{PillarID: model.LitmusPillarID, QuestionID: "worth", Answer: "yes", Points: 10},
	})

	// 5 of 40 points.
	assert.Equal(t, 13, a.PillarScores["metrics"])
	// (100 + 13 + 0) / 3.
	assert.Equal(t, 38, a.OverallScore)
	assert.Equal(t, model.LevelPoor, a.Level)
	assert.Equal(t, 100, a.LitmusScore)
}

func TestCalculateIgnoresUnknownAndClamps(t *testing.T) {
	s := newTestScorer(t)

	a := s.Calculate([]model.Response{
		{PillarID: "metrics", QuestionID: "m2", Answer: "yes", Points: 1000},
		{PillarID: "metrics", QuestionID: "ghost", Answer: "yes", Points: 1000},
		{PillarID: "ghost", QuestionID: "m2", Answer: "yes", Points: 1000},
	})
	assert.Equal(t, 25, a.PillarScores["metrics"])
}

func TestLevelThresholds(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		score int
		want  model.QualificationLevel
	}{
		{100, model.LevelExcellent},
		{80, model.LevelExcellent},
		{79, model.LevelGood},
		{60, model.LevelGood},
		{59, model.LevelFair},
		{40, model.LevelFair},
		{39, model.LevelPoor},
		{0, model.LevelPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Level(tt.score), "score %d", tt.score)
	}
}

func TestCalculateWeights(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.Weights = map[string]float64{"champion": 3, "empty": 0}
	s := NewScorer(testCatalog(t), cfg)

	a := s.Calculate([]model.Response{
		{PillarID: "champion", QuestionID: "commit", Answer: "Full", Points: 100},
	})
	// (3*100 + 1*0) / 4, empty pillar excluded by zero weight.
	assert.Equal(t, 75, a.OverallScore)
	assert.Equal(t, model.LevelGood, a.Level)
}

func TestCalculateDeterministic(t *testing.T) {
	s := newTestScorer(t)
	rs := []model.Response{
		{PillarID: "metrics", QuestionID: "m2", Answer: "yes", Points: 10},
		{PillarID: "champion", QuestionID: "commit", Answer: "Full", Points: 100},
	}

	first := s.Calculate(rs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Calculate(rs))
	}
}

func TestCalculateBoundsAndMonotonicity(t *testing.T) {
	s := newTestScorer(t)
	c := s.Catalog()
	rng := rand.New(rand.NewSource(42))

	var keys []model.Response
	for _, p := range append(c.Pillars(), c.LitmusTest().AsPillar()) {
		for _, q := range p.Questions {
			keys = append(keys, model.Response{PillarID: p.ID, QuestionID: q.ID})
		}
	}

	for round := 0; round < 200; round++ {
		var rs []model.Response
		for _, k := range keys {
			if rng.Intn(2) == 0 {
				continue
			}
			k.Answer = "x"
			k.Points = rng.Intn(250) - 50
			rs = append(rs, k)
		}

		a := s.Calculate(rs)
		assert.GreaterOrEqual(t, a.OverallScore, 0)
		assert.LessOrEqual(t, a.OverallScore, 100)
		for id, v := range a.PillarScores {
			assert.GreaterOrEqual(t, v, 0, id)
			assert.LessOrEqual(t, v, 100, id)
		}

		// Answering one more question with positive points never lowers
		// that pillar's score.
		answered := make(map[model.ResponseKey]bool)
		for _, r := range rs {
			answered[r.Key()] = true
		}
		for _, k := range keys {
			if answered[k.Key()] || k.PillarID == model.LitmusPillarID {
				continue
			}
			k.Answer = "x"
			k.Points = 1 + rng.Intn(100)
			after := s.Calculate(append(append([]model.Response(nil), rs...), k))
			assert.GreaterOrEqual(t, after.PillarScores[k.PillarID], a.PillarScores[k.PillarID])
			break
		}
	}
}

func TestNextActions(t *testing.T) {
	s := newTestScorer(t)

	a := s.Calculate(nil)
	require.NotEmpty(t, a.NextActions)
	assert.Equal(t, "Critical: Champion is at 0%. Find a champion.", a.NextActions[0])
	assert.Contains(t, a.NextActions, "Improve Metrics (0%): Answer the open Metrics questions.")
	assert.Contains(t, a.NextActions, "Revisit the litmus test (0%): confirm the opportunity is worth pursuing")
	for _, act := range a.NextActions {
		assert.NotContains(t, act, "Improve Champion", "critical pillar is listed once")
	}

	a = s.Calculate([]model.Response{
		{PillarID: "champion", QuestionID: "commit", Answer: "Full", Points: 100},
		{PillarID: "metrics", QuestionID: "m1", Answer: "long enough text", Points: 10},
		{PillarID: "metrics", QuestionID: "m2", Answer: "yes", Points: 10},
		{PillarID: "metrics", QuestionID: "m3", Answer: "yes", Points: 10},
		{PillarID: model.LitmusPillarID, QuestionID: "worth", Answer: "yes", Points: 10},
	})
	for _, act := range a.NextActions {
		assert.NotContains(t, act, "Champion")
		assert.NotContains(t, act, "Metrics")
		assert.NotContains(t, act, "litmus")
	}
	assert.Contains(t, a.NextActions, "Improve Empty (0%): Answer the open Empty questions.")
}

func TestScorerKeepsExplicitZeros(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.FairThreshold = 0
	cfg.CriticalThreshold = 0
	require.NoError(t, ValidateScoringConfig(cfg))

	s := NewScorer(testCatalog(t), cfg)
	assert.Equal(t, cfg, s.Config())
	assert.Equal(t, model.LevelFair, s.Level(0), "every score reaches a zero fair threshold")
	assert.Equal(t, model.LevelGood, s.Level(60))
}
