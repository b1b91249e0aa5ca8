package qualify

import (
	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// GateStatus is the readiness of one transition with per-criterion detail.
type GateStatus struct {
	From     model.Stage             `json:"from"`
	To       model.Stage             `json:"to"`
	Ready    bool                    `json:"ready"`
	Criteria []model.CriterionStatus `json:"criteria"`
}

// Evaluator answers stage-gate questions. It never changes a stage; the
// current stage is owned by the opportunity record.
type Evaluator struct {
	catalog *Catalog
}

// NewEvaluator creates an Evaluator over the catalog's gates and criteria.
func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// CanAdvance reports whether target is the stage right after current and
// every criterion of that gate is met by the assessment's pillar scores.
func (e *Evaluator) CanAdvance(current, target model.Stage, a model.Assessment) bool {
	next, ok := current.Next()
	if !ok || next != target {
		return false
	}
	g, ok := e.catalog.Gate(current, target)
	if !ok {
		return false
	}
	return e.catalog.gateReady(g, a.PillarScores)
}

// CriteriaStatus evaluates a single criterion for display.
func (e *Evaluator) CriteriaStatus(criterion string, a model.Assessment) model.CriterionStatus {
	return e.catalog.EvaluateCriterion(criterion, a.PillarScores)
}

// GateStatus returns the status of the transition from current to target.
// Non-adjacent or unknown transitions are never ready and list no criteria.
func (e *Evaluator) GateStatus(current, target model.Stage, a model.Assessment) GateStatus {
	st := GateStatus{From: current, To: target, Criteria: []model.CriterionStatus{}}
	next, ok := current.Next()
	if !ok || next != target {
		return st
	}
	g, ok := e.catalog.Gate(current, target)
	if !ok {
		return st
	}
	for _, name := range g.Criteria {
		st.Criteria = append(st.Criteria, e.catalog.EvaluateCriterion(name, a.PillarScores))
	}
	st.Ready = e.catalog.gateReady(g, a.PillarScores)
	return st
}

// AllGates returns the status of every configured gate in stage order.
func (e *Evaluator) AllGates(a model.Assessment) []GateStatus {
	gates := e.catalog.StageGates()
	out := make([]GateStatus, 0, len(gates))
	for _, g := range gates {
		out = append(out, e.GateStatus(g.From, g.To, a))
	}
	return out
}
