package model

import "time"

// Response is one answer to one question. At most one exists per ResponseKey.
type Response struct {
	PillarID   string    `json:"pillar_id" yaml:"pillar_id"`
	QuestionID string    `json:"question_id" yaml:"question_id"`
	Answer     string    `json:"answer" yaml:"answer"`
	Points     int       `json:"points" yaml:"points"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at,omitempty"`
}

// Key returns the uniqueness key of the response.
func (r Response) Key() ResponseKey {
	return ResponseKey{PillarID: r.PillarID, QuestionID: r.QuestionID}
}

// ResponseKey identifies a (pillar, question) pair.
type ResponseKey struct {
	PillarID   string
	QuestionID string
}

// FieldError is a user-correctable validation problem on one question.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Opportunity is the sales record that owns the current stage.
type Opportunity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Stage        Stage     `json:"stage"`
	SalesforceID string    `json:"salesforce_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
