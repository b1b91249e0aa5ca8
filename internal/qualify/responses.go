package qualify

import (
	"errors"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// ErrUnknownQuestion is returned when a pillar/question pair is not in the catalog.
var ErrUnknownQuestion = errors.New("qualify: unknown question")

// ResponseStore holds at most one response per (pillar, question). It is
// safe for concurrent use. Removed keys keep the time of their removal so
// an older edit cannot bring them back.
type ResponseStore struct {
	catalog       *Catalog
	minTextLength int
	now           func() time.Time

	mu        sync.RWMutex
	responses map[model.ResponseKey]model.Response
	deleted   map[model.ResponseKey]time.Time
}

// NewResponseStore creates an empty store for the given catalog. Free-text
// answers shorter than minTextLength runes earn half points.
func NewResponseStore(catalog *Catalog, minTextLength int) *ResponseStore {
	return &ResponseStore{
		catalog:       catalog,
		minTextLength: minTextLength,
		now:           func() time.Time { return time.Now().UTC() },
		responses:     make(map[model.ResponseKey]model.Response),
		deleted:       make(map[model.ResponseKey]time.Time),
	}
}

// SetAnswer upserts the answer for a question, or removes it when answer is
// blank. points overrides the points derived from the answer.
func (s *ResponseStore) SetAnswer(pillarID, questionID, answer string, points *int) error {
	r, err := s.Prepare(pillarID, questionID, answer, points)
	if err != nil {
		return err
	}
	s.Apply(r)
	return nil
}

// Prepare resolves an answer into the response SetAnswer would store,
// without changing the store. A blank answer yields a response with an
// empty Answer, meaning removal.
func (s *ResponseStore) Prepare(pillarID, questionID, answer string, points *int) (model.Response, error) {
	q, ok := s.catalog.Question(pillarID, questionID)
	if !ok {
		return model.Response{}, eris.Wrapf(ErrUnknownQuestion, "%s.%s", pillarID, questionID)
	}

	r := model.Response{
		PillarID:   pillarID,
		QuestionID: questionID,
		Answer:     strings.TrimSpace(answer),
		UpdatedAt:  s.now(),
	}
	if r.Answer != "" {
		r.Points = ResolvePoints(q, r.Answer, points, s.minTextLength)
	}
	return r, nil
}

// Apply stores r, or removes its key when r.Answer is blank. Callers are
// expected to have built r with Prepare.
func (s *ResponseStore) Apply(r model.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(r)
}

// put stores r or records its removal. Callers hold mu.
func (s *ResponseStore) put(r model.Response) {
	key := r.Key()
	if strings.TrimSpace(r.Answer) == "" {
		delete(s.responses, key)
		if t, ok := s.deleted[key]; !ok || r.UpdatedAt.After(t) {
			s.deleted[key] = r.UpdatedAt
		}
		return
	}
	delete(s.deleted, key)
	s.responses[key] = r
}

// DeletedAt returns when a question's answer was last removed, if it was
// removed and not answered again since.
func (s *ResponseStore) DeletedAt(pillarID, questionID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.deleted[model.ResponseKey{PillarID: pillarID, QuestionID: questionID}]
	return t, ok
}

// Get returns the response for a question, if any.
func (s *ResponseStore) Get(pillarID, questionID string) (model.Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responses[model.ResponseKey{PillarID: pillarID, QuestionID: questionID}]
	return r, ok
}

// Responses returns a copy of every response. Order is not significant.
func (s *ResponseStore) Responses() []model.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Response, 0, len(s.responses))
	for _, r := range s.responses {
		out = append(out, r)
	}
	return out
}

// Len returns the number of answered questions.
func (s *ResponseStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.responses)
}

// Progress returns the percentage of the pillar's questions that have a
// response, rounded. A pillar with no questions reports 0.
func (s *ResponseStore) Progress(pillarID string) int {
	p, ok := s.catalog.Pillar(pillarID)
	if !ok || len(p.Questions) == 0 {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	answered := 0
	for _, q := range p.Questions {
		if _, ok := s.responses[model.ResponseKey{PillarID: pillarID, QuestionID: q.ID}]; ok {
			answered++
		}
	}
	return percent(answered, len(p.Questions))
}

// Load replaces the store contents with rs. Responses for questions that are
// no longer in the catalog are dropped. Blank answers are removal records.
func (s *ResponseStore) Load(rs []model.Response) {
	next := make(map[model.ResponseKey]model.Response, len(rs))
	deleted := make(map[model.ResponseKey]time.Time)
	for _, r := range rs {
		if _, ok := s.catalog.Question(r.PillarID, r.QuestionID); !ok {
			zap.L().Warn("qualify: dropping response for unknown question",
				zap.String("pillar", r.PillarID),
				zap.String("question", r.QuestionID),
			)
			continue
		}
		if strings.TrimSpace(r.Answer) == "" {
			deleted[r.Key()] = r.UpdatedAt
			continue
		}
		next[r.Key()] = r
	}

	s.mu.Lock()
	s.responses = next
	s.deleted = deleted
	s.mu.Unlock()
}

// Merge applies responses from another editor with last-write-wins per key.
// An incoming response replaces the local one when its UpdatedAt is not
// older than the local response or the local removal. An incoming blank
// answer that wins removes the key. Merge returns the number of keys that
// changed.
func (s *ResponseStore) Merge(rs []model.Response) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, r := range rs {
		if _, ok := s.catalog.Question(r.PillarID, r.QuestionID); !ok {
			continue
		}
		key := r.Key()
		cur, exists := s.responses[key]
		if exists && r.UpdatedAt.Before(cur.UpdatedAt) {
			continue
		}
		if t, ok := s.deleted[key]; ok && r.UpdatedAt.Before(t) {
			continue
		}
		blank := strings.TrimSpace(r.Answer) == ""
		if !blank && exists && cur == r {
			continue
		}
		s.put(r)
		if exists || !blank {
			changed++
		}
	}
	return changed
}

// ResolvePoints derives the points an answer earns. Explicit points are
// clamped to the question's maximum. Free text earns full points at
// minTextLength runes and half below it. Option answers earn the option's
// points, and anything else earns 0.
func ResolvePoints(q model.Question, answer string, points *int, minTextLength int) int {
	maxPts := q.MaxPoints()
	if points != nil {
		return clamp(*points, 0, maxPts)
	}

	switch q.Kind {
	case model.KindFreeText:
		if utf8.RuneCountInString(strings.TrimSpace(answer)) >= minTextLength {
			return q.Points
		}
		return q.Points / 2
	case model.KindScale, model.KindYesNo:
		if o, ok := q.Option(answer); ok {
			return o.Points
		}
		return 0
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// percent returns part/whole as a rounded percentage in [0, 100].
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	p := int(math.Round(float64(part) * 100 / float64(whole)))
	return clamp(p, 0, 100)
}
