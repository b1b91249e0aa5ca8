// Package model defines the qualification domain types shared across packages.
package model

import "strings"

// QuestionKind discriminates how a question is answered and scored.
type QuestionKind string

// Question kinds.
const (
	KindFreeText QuestionKind = "text"
	KindScale    QuestionKind = "scale"
	KindYesNo    QuestionKind = "yes_no"
)

// Valid reports whether k is a known question kind.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindFreeText, KindScale, KindYesNo:
		return true
	}
	return false
}

// ParseQuestionKind maps loose spellings ("Yes/No", "select", "free text")
// onto a QuestionKind.
func ParseQuestionKind(s string) (QuestionKind, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("/", "_", "-", "_", " ", "_").Replace(norm)
	switch norm {
	case "text", "free_text", "freetext", "textarea":
		return KindFreeText, true
	case "scale", "select", "single_select", "radio":
		return KindScale, true
	case "yes_no", "yesno", "boolean", "bool":
		return KindYesNo, true
	}
	return "", false
}

// AnswerOption is one selectable answer with the points it earns.
type AnswerOption struct {
	Label  string `json:"label" yaml:"label" validate:"required"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Points int    `json:"points" yaml:"points" validate:"gte=0"`
}

// Question belongs to exactly one pillar (or to the litmus test).
type Question struct {
	ID       string         `json:"id" yaml:"id" validate:"required"`
	Prompt   string         `json:"prompt" yaml:"prompt" validate:"required"`
	Kind     QuestionKind   `json:"type" yaml:"type" validate:"required"`
	Tooltip  string         `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Required bool           `json:"required" yaml:"required"`
	Options  []AnswerOption `json:"options,omitempty" yaml:"options,omitempty" validate:"dive"`

	// Points is what a sufficient free-text answer earns, and the "yes"
	// value of a yes/no question declared without explicit options.
	Points int `json:"points,omitempty" yaml:"points,omitempty" validate:"gte=0"`
}

// AnswerOptions returns the effective options. Yes/no questions without
// explicit options get Yes=Points, No=0.
func (q Question) AnswerOptions() []AnswerOption {
	switch q.Kind {
	case KindScale:
		return q.Options
	case KindYesNo:
		if len(q.Options) > 0 {
			return q.Options
		}
		return []AnswerOption{
			{Label: "Yes", Value: "yes", Points: q.Points},
			{Label: "No", Value: "no", Points: 0},
		}
	case KindFreeText:
		return nil
	}
	return nil
}

// Option finds the option matching answer by value or label, case-insensitively.
func (q Question) Option(answer string) (AnswerOption, bool) {
	a := strings.TrimSpace(answer)
	for _, o := range q.AnswerOptions() {
		if strings.EqualFold(o.Label, a) || (o.Value != "" && strings.EqualFold(o.Value, a)) {
			return o, true
		}
	}
	return AnswerOption{}, false
}

// MaxPoints is the highest score a single answer to q can earn.
func (q Question) MaxPoints() int {
	switch q.Kind {
	case KindFreeText:
		return q.Points
	case KindScale, KindYesNo:
		best := 0
		for _, o := range q.AnswerOptions() {
			if o.Points > best {
				best = o.Points
			}
		}
		return best
	}
	return 0
}

// Pillar is one qualification dimension grouping related questions.
type Pillar struct {
	ID          string     `json:"id" yaml:"id" validate:"required"`
	DisplayName string     `json:"display_name" yaml:"display_name" validate:"required"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Icon        string     `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color       string     `json:"color,omitempty" yaml:"color,omitempty"`
	Weight      float64    `json:"weight,omitempty" yaml:"weight,omitempty" validate:"gte=0"`
	Critical    bool       `json:"critical,omitempty" yaml:"critical,omitempty"`
	Guidance    string     `json:"guidance,omitempty" yaml:"guidance,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions" validate:"dive"`
}

// Question returns the question with the given ID.
func (p Pillar) Question(id string) (Question, bool) {
	for _, q := range p.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// MaxPoints sums the best achievable points across every question.
func (p Pillar) MaxPoints() int {
	total := 0
	for _, q := range p.Questions {
		total += q.MaxPoints()
	}
	return total
}

// LitmusPillarID is the pseudo-pillar ID responses to litmus questions use.
const LitmusPillarID = "litmus"

// LitmusTest is the final sanity-check gate, separate from the pillars.
type LitmusTest struct {
	DisplayName string     `json:"display_name" yaml:"display_name"`
	Questions   []Question `json:"questions" yaml:"questions" validate:"dive"`
}

// AsPillar lets the litmus test be scored and tracked like any pillar.
func (l LitmusTest) AsPillar() Pillar {
	return Pillar{ID: LitmusPillarID, DisplayName: l.DisplayName, Questions: l.Questions}
}
