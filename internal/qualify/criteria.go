package qualify

import (
	"fmt"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// EvaluateCriterion checks one named criterion against pillar scores.
// The Scorer and the Evaluator both go through here so a criterion always
// uses the same threshold.
func (c *Catalog) EvaluateCriterion(name string, pillarScores map[string]int) model.CriterionStatus {
	cr, ok := c.Criterion(name)
	if !ok {
		return model.CriterionStatus{Criterion: name, Met: false, Reason: "unknown criterion"}
	}

	label := cr.PillarID
	if p, ok := c.Pillar(cr.PillarID); ok && p.DisplayName != "" {
		label = p.DisplayName
	}

	score := pillarScores[cr.PillarID]
	if score >= cr.Threshold {
		return model.CriterionStatus{
			Criterion: cr.Name,
			Met:       true,
			Reason:    fmt.Sprintf("%s score %d%% meets %d%% threshold", label, score, cr.Threshold),
		}
	}
	return model.CriterionStatus{
		Criterion: cr.Name,
		Met:       false,
		Reason:    fmt.Sprintf("%s score %d%% is below %d%% threshold", label, score, cr.Threshold),
	}
}

// gateReady is the AND of every criterion of g.
func (c *Catalog) gateReady(g model.StageGate, pillarScores map[string]int) bool {
	if len(g.Criteria) == 0 {
		return false
	}
	for _, name := range g.Criteria {
		if !c.EvaluateCriterion(name, pillarScores).Met {
			return false
		}
	}
	return true
}
