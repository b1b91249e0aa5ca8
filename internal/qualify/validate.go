package qualify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fulqrun/meddpicc-cli/internal/config"
	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// Validate reports user-correctable problems with responses: unanswered
// required questions, free text outside the length bounds, option answers
// that match no option, and responses to unknown questions. Field is
// "<pillar>.<question>". The result is empty when everything is valid.
func Validate(c *Catalog, responses []model.Response, cfg config.ScoringConfig) []model.FieldError {
	errs := []model.FieldError{}

	byKey := make(map[model.ResponseKey]model.Response, len(responses))
	for _, r := range responses {
		if _, ok := c.Question(r.PillarID, r.QuestionID); !ok {
			errs = append(errs, model.FieldError{
				Field:   fieldName(r.PillarID, r.QuestionID),
				Message: "unknown question",
			})
			continue
		}
		byKey[r.Key()] = r
	}

	pillars := c.Pillars()
	if lt := c.LitmusTest(); len(lt.Questions) > 0 {
		pillars = append(pillars, lt.AsPillar())
	}

	for _, p := range pillars {
		for _, q := range p.Questions {
			field := fieldName(p.ID, q.ID)
			r, ok := byKey[model.ResponseKey{PillarID: p.ID, QuestionID: q.ID}]
			answer := ""
			if ok {
				answer = strings.TrimSpace(r.Answer)
			}
			if answer == "" {
				if q.Required {
					errs = append(errs, model.FieldError{Field: field, Message: "this question is required"})
				}
				continue
			}
			if msg := checkAnswer(q, answer, cfg); msg != "" {
				errs = append(errs, model.FieldError{Field: field, Message: msg})
			}
		}
	}
	return errs
}

func checkAnswer(q model.Question, answer string, cfg config.ScoringConfig) string {
	switch q.Kind {
	case model.KindFreeText:
		n := utf8.RuneCountInString(answer)
		if cfg.MinTextLength > 0 && n < cfg.MinTextLength {
			return fmt.Sprintf("answer must be at least %d characters", cfg.MinTextLength)
		}
		if cfg.MaxTextLength > 0 && n > cfg.MaxTextLength {
			return fmt.Sprintf("answer must be at most %d characters", cfg.MaxTextLength)
		}
	case model.KindScale, model.KindYesNo:
		if _, ok := q.Option(answer); !ok {
			labels := make([]string, 0, len(q.AnswerOptions()))
			for _, o := range q.AnswerOptions() {
				labels = append(labels, o.Label)
			}
			return fmt.Sprintf("answer must be one of: %s", strings.Join(labels, ", "))
		}
	}
	return ""
}

func fieldName(pillarID, questionID string) string {
	return pillarID + "." + questionID
}
