package session

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
)

// Session is the working set of one opportunity's responses. Edits are
// persisted before they are applied, so a failed write leaves the session
// as it was. A Session belongs to one request or command.
type Session struct {
	svc       *Service
	opp       model.Opportunity
	responses *qualify.ResponseStore
}

// Opportunity returns the opportunity the session was opened for.
func (ss *Session) Opportunity() model.Opportunity { return ss.opp }

// Responses returns the current responses.
func (ss *Session) Responses() []model.Response {
	rs := ss.responses.Responses()
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].PillarID != rs[j].PillarID {
			return rs[i].PillarID < rs[j].PillarID
		}
		return rs[i].QuestionID < rs[j].QuestionID
	})
	return rs
}

// Answer sets or clears one answer, persists it and returns the new
// assessment. Unknown questions fail with qualify.ErrUnknownQuestion.
func (ss *Session) Answer(ctx context.Context, pillarID, questionID, answer string, points *int) (model.Assessment, error) {
	r, err := ss.responses.Prepare(pillarID, questionID, answer, points)
	if err != nil {
		return model.Assessment{}, err
	}

	oppID := ss.opp.ID
	if r.Answer == "" {
		err = ss.svc.write(ctx, "delete response", func(ctx context.Context) error {
			return ss.svc.store.DeleteResponse(ctx, oppID, pillarID, questionID, r.UpdatedAt)
		})
	} else {
		err = ss.svc.write(ctx, "save response", func(ctx context.Context) error {
			return ss.svc.store.SaveResponses(ctx, oppID, []model.Response{r})
		})
	}
	if err != nil {
		return model.Assessment{}, eris.Wrapf(err, "session: persist %s.%s", pillarID, questionID)
	}

	ss.responses.Apply(r)
	return ss.Assess(), nil
}

// Edit is one change in an AnswerAll batch. An edit without UpdatedAt is
// stamped with the current time. A blank Answer clears the question.
type Edit struct {
	PillarID   string
	QuestionID string
	Answer     string
	Points     *int
	UpdatedAt  time.Time
}

// AnswerAll resolves every edit before writing anything, then persists and
// merges the batch in one write. An unknown question or a failed write
// leaves both the store and the session unchanged. It returns the number of
// responses that changed locally.
func (ss *Session) AnswerAll(ctx context.Context, edits []Edit) (int, error) {
	rs := make([]model.Response, 0, len(edits))
	for _, e := range edits {
		r, err := ss.responses.Prepare(e.PillarID, e.QuestionID, e.Answer, e.Points)
		if err != nil {
			return 0, err
		}
		if !e.UpdatedAt.IsZero() {
			r.UpdatedAt = e.UpdatedAt.UTC()
		}
		rs = append(rs, r)
	}
	return ss.Merge(ctx, rs)
}

// Merge persists edits from another editor and applies them last-write-wins.
// Blank answers are stored as removal records, so an older edit replayed
// after a removal does not bring the answer back. It returns the number of
// responses that changed locally.
func (ss *Session) Merge(ctx context.Context, in []model.Response) (int, error) {
	rs := make([]model.Response, len(in))
	for i, r := range in {
		if _, ok := ss.svc.scorer.Catalog().Question(r.PillarID, r.QuestionID); !ok {
			return 0, eris.Wrapf(qualify.ErrUnknownQuestion, "%s.%s", r.PillarID, r.QuestionID)
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = ss.svc.now()
		}
		rs[i] = r
	}
	if len(rs) == 0 {
		return 0, nil
	}

	oppID := ss.opp.ID
	err := ss.svc.write(ctx, "merge responses", func(ctx context.Context) error {
		return ss.svc.store.SaveResponses(ctx, oppID, rs)
	})
	if err != nil {
		return 0, eris.Wrap(err, "session: persist merge")
	}
	return ss.responses.Merge(rs), nil
}

// Assess scores the current responses.
func (ss *Session) Assess() model.Assessment {
	return ss.svc.scorer.Calculate(ss.responses.Responses())
}

// Snapshot scores the current responses and stores the result.
func (ss *Session) Snapshot(ctx context.Context) (*model.AssessmentRecord, error) {
	a := ss.Assess()
	var rec *model.AssessmentRecord
	err := ss.svc.write(ctx, "save assessment", func(ctx context.Context) error {
		var err error
		rec, err = ss.svc.store.SaveAssessment(ctx, ss.opp.ID, ss.opp.Stage, a, ss.svc.hash)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "session: snapshot")
	}
	return rec, nil
}

// Gate returns the status of moving from the current stage to target.
func (ss *Session) Gate(target model.Stage) qualify.GateStatus {
	return ss.svc.eval.GateStatus(ss.opp.Stage, target, ss.Assess())
}

// Advance moves the opportunity to target when the gate from its current
// stage is ready. With apply false it only checks. It returns the gate
// status together with ErrGateNotReady when the move is not allowed.
func (ss *Session) Advance(ctx context.Context, target model.Stage, apply bool) (qualify.GateStatus, error) {
	a := ss.Assess()
	st := ss.svc.eval.GateStatus(ss.opp.Stage, target, a)
	if !ss.svc.eval.CanAdvance(ss.opp.Stage, target, a) {
		return st, eris.Wrapf(ErrGateNotReady, "%s", model.GateKey(ss.opp.Stage, target))
	}
	if !apply {
		return st, nil
	}

	next := ss.opp
	next.Stage = target
	next.UpdatedAt = ss.svc.now()
	err := ss.svc.write(ctx, "advance stage", func(ctx context.Context) error {
		return ss.svc.store.UpsertOpportunity(ctx, next)
	})
	if err != nil {
		return st, eris.Wrap(err, "session: advance")
	}
	ss.opp = next
	return st, nil
}

// Validate reports user-correctable problems with the current responses.
func (ss *Session) Validate() []model.FieldError {
	return qualify.Validate(ss.svc.scorer.Catalog(), ss.responses.Responses(), ss.svc.scorer.Config())
}

// Progress returns the answered percentage per pillar, litmus included.
func (ss *Session) Progress() map[string]int {
	c := ss.svc.scorer.Catalog()
	out := make(map[string]int)
	for _, p := range c.Pillars() {
		out[p.ID] = ss.responses.Progress(p.ID)
	}
	out[model.LitmusPillarID] = ss.responses.Progress(model.LitmusPillarID)
	return out
}

// Summary returns the flattened per-pillar text written to the CRM.
func (ss *Session) Summary() map[string]string {
	return qualify.Summarize(ss.svc.scorer.Catalog(), ss.responses.Responses())
}
