package model

import (
	"fmt"
	"time"
)

// QualificationLevel is the coarse bucket derived from the overall score.
type QualificationLevel string

// Qualification levels, lowest first.
const (
	LevelPoor      QualificationLevel = "Poor"
	LevelFair      QualificationLevel = "Fair"
	LevelGood      QualificationLevel = "Good"
	LevelExcellent QualificationLevel = "Excellent"
)

// levelRank orders levels for comparison.
var levelRank = map[QualificationLevel]int{
	LevelPoor:      0,
	LevelFair:      1,
	LevelGood:      2,
	LevelExcellent: 3,
}

// Rank returns the ordinal of the level; unknown levels rank below Poor.
func (l QualificationLevel) Rank() int {
	r, ok := levelRank[l]
	if !ok {
		return -1
	}
	return r
}

// Color is the UI color tag for the level.
func (l QualificationLevel) Color() string {
	switch l {
	case LevelExcellent:
		return "green"
	case LevelGood:
		return "blue"
	case LevelFair:
		return "yellow"
	default:
		return "red"
	}
}

// Stage is a step of the linear sales process.
type Stage string

// Sales stages in order.
const (
	StageProspecting Stage = "prospecting"
	StageEngaging    Stage = "engaging"
	StageAdvancing   Stage = "advancing"
	StageKeyDecision Stage = "key_decision"
)

// Stages lists every stage in process order.
var Stages = []Stage{StageProspecting, StageEngaging, StageAdvancing, StageKeyDecision}

// Index returns the position of s in Stages, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage after s, if any.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Stages) {
		return "", false
	}
	return Stages[i+1], true
}

// StageGate is a named transition guarded by criteria over pillar scores.
type StageGate struct {
	From     Stage    `json:"from" yaml:"from"`
	To       Stage    `json:"to" yaml:"to"`
	Criteria []string `json:"criteria" yaml:"criteria"`
}

// Key names the transition, e.g. "prospecting->engaging".
func (g StageGate) Key() string {
	return GateKey(g.From, g.To)
}

// GateKey builds the readiness map key for a transition.
func GateKey(from, to Stage) string {
	return fmt.Sprintf("%s->%s", from, to)
}

// Assessment is derived from responses and never stored as primary state.
type Assessment struct {
	PillarScores       map[string]int     `json:"pillar_scores"`
	OverallScore       int                `json:"overall_score"`
	Level              QualificationLevel `json:"level"`
	LitmusScore        int                `json:"litmus_score"`
	NextActions        []string           `json:"next_actions"`
	StageGateReadiness map[string]bool    `json:"stage_gate_readiness"`
}

// ReadyGates returns the keys of gates that are ready.
func (a Assessment) ReadyGates() []string {
	var out []string
	for k, ok := range a.StageGateReadiness {
		if ok {
			out = append(out, k)
		}
	}
	return out
}

// CriterionStatus is the per-criterion pass/fail shown next to a gate.
type CriterionStatus struct {
	Criterion string `json:"criterion"`
	Met       bool   `json:"met"`
	Reason    string `json:"reason"`
}

// AssessmentRecord is a persisted snapshot of an assessment.
type AssessmentRecord struct {
	ID            string     `json:"id"`
	OpportunityID string     `json:"opportunity_id"`
	Stage         Stage      `json:"stage,omitempty"`
	Assessment    Assessment `json:"assessment"`
	ConfigHash    string     `json:"config_hash"`
	CreatedAt     time.Time  `json:"created_at"`
}
