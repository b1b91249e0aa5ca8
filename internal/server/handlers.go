package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
	"github.com/fulqrun/meddpicc-cli/internal/session"
	"github.com/fulqrun/meddpicc-cli/internal/store"
)

type opportunityRequest struct {
	Name         string      `json:"name" validate:"required,max=255"`
	Stage        model.Stage `json:"stage" validate:"omitempty,oneof=prospecting engaging advancing key_decision"`
	SalesforceID string      `json:"salesforce_id" validate:"omitempty,alphanum,max=18"`
}

type answerItem struct {
	PillarID   string     `json:"pillar_id" validate:"required"`
	QuestionID string     `json:"question_id" validate:"required"`
	Answer     string     `json:"answer" validate:"max=10000"`
	Points     *int       `json:"points,omitempty" validate:"omitempty,min=0"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type answersRequest struct {
	Responses []answerItem `json:"responses" validate:"required,min=1,dive"`
}

type answersResponse struct {
	Changed    int              `json:"changed"`
	Assessment model.Assessment `json:"assessment"`
}

type advanceRequest struct {
	Target model.Stage `json:"target" validate:"required,oneof=prospecting engaging advancing key_decision"`
	DryRun bool        `json:"dry_run"`
}

type gateResponse struct {
	CanAdvance bool `json:"can_advance"`
	qualify.GateStatus
}

type validateResponse struct {
	Valid  bool               `json:"valid"`
	Errors []model.FieldError `json:"errors"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePillars(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, s.svc.Scorer().Catalog().Pillars())
}

func (s *Server) handleLitmus(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, s.svc.Scorer().Catalog().LitmusTest())
}

func (s *Server) handleStageGates(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, s.svc.Scorer().Catalog().StageGates())
}

func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.OpportunityFilter{Stage: model.Stage(q.Get("stage"))}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errorResponse(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = n
		}
	}

	opps, err := s.svc.Store().ListOpportunities(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if opps == nil {
		opps = []model.Opportunity{}
	}
	jsonResponse(w, http.StatusOK, opps)
}

func (s *Server) handleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := s.svc.Store().GetOpportunity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, opp)
}

// handlePutOpportunity creates or renames an opportunity. The stage is only
// taken from the request on creation; later moves go through advance.
func (s *Server) handlePutOpportunity(w http.ResponseWriter, r *http.Request) {
	var req opportunityRequest
	if !s.decode(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	opp := model.Opportunity{ID: id, Name: req.Name, Stage: req.Stage, SalesforceID: req.SalesforceID}
	status := http.StatusCreated
	existing, err := s.svc.Store().GetOpportunity(r.Context(), id)
	switch {
	case err == nil:
		opp.Stage = existing.Stage
		status = http.StatusOK
	case !eris.Is(err, store.ErrNotFound):
		writeError(w, r, err)
		return
	}
	if opp.Stage == "" {
		opp.Stage = model.StageProspecting
	}
	opp.UpdatedAt = time.Now().UTC()

	if err := s.svc.Store().UpsertOpportunity(r.Context(), opp); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, status, opp)
}

func (s *Server) handleGetResponses(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.open(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, ss.Responses())
}

// handlePutResponses applies a batch of answers. Items carrying updated_at
// keep it, so offline editors replaying changes merge last-write-wins. The
// whole batch is checked before anything is written.
func (s *Server) handlePutResponses(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if !s.decode(w, r, &req) {
		return
	}
	ss, ok := s.open(w, r)
	if !ok {
		return
	}

	edits := make([]session.Edit, len(req.Responses))
	for i, it := range req.Responses {
		edits[i] = session.Edit{PillarID: it.PillarID, QuestionID: it.QuestionID, Answer: it.Answer, Points: it.Points}
		if it.UpdatedAt != nil {
			edits[i].UpdatedAt = *it.UpdatedAt
		}
	}
	changed, err := ss.AnswerAll(r.Context(), edits)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, answersResponse{Changed: changed, Assessment: ss.Assess()})
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.open(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, ss.Assess())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.open(w, r)
	if !ok {
		return
	}
	rec, err := ss.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, rec)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.open(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, ss.Progress())
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.open(w, r)
	if !ok {
		return
	}
	errs := ss.Validate()
	jsonResponse(w, http.StatusOK, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

func (s *Server) handleGates(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.open(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, s.svc.Evaluator().AllGates(ss.Assess()))
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	target := model.Stage(chi.URLParam(r, "target"))
	if target.Index() < 0 {
		errorResponse(w, http.StatusBadRequest, "unknown stage "+string(target))
		return
	}
	ss, ok := s.open(w, r)
	if !ok {
		return
	}
	a := ss.Assess()
	jsonResponse(w, http.StatusOK, gateResponse{
		CanAdvance: s.svc.Evaluator().CanAdvance(ss.Opportunity().Stage, target, a),
		GateStatus: s.svc.Evaluator().GateStatus(ss.Opportunity().Stage, target, a),
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if !s.decode(w, r, &req) {
		return
	}
	ss, ok := s.open(w, r)
	if !ok {
		return
	}

	st, err := ss.Advance(r.Context(), req.Target, !req.DryRun)
	if eris.Is(err, session.ErrGateNotReady) {
		jsonResponse(w, http.StatusConflict, gateResponse{GateStatus: st})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, gateResponse{CanAdvance: true, GateStatus: st})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.open(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, ss.Summary())
}

func (s *Server) open(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	ss, err := s.svc.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return ss, true
}
