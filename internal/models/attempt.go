package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

const (
	AttemptEndReasonSubmitted = "submitted"
	AttemptEndReasonTimeout   = "time_out"
)

// Attempt is one instance of a user taking an assessment. At most one
// in_progress attempt may exist per (assessment, user); the attempt store
// enforces this with a partial unique index so concurrent starts cannot race.
type Attempt struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	AssessmentID  uint          `json:"assessment_id" gorm:"not null;index:idx_attempt_assessment_user"`
	UserID        string        `json:"user_id" gorm:"not null;index:idx_attempt_assessment_user;size:255"`
	AttemptNumber int           `json:"attempt_number" gorm:"not null"`
	Status        AttemptStatus `json:"status" gorm:"not null;default:in_progress;index"`

	// Timing. StartedAt is authoritative for the timer: remaining time is
	// recomputed from it on every read, never trusted from the client.
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	EndReason   *string    `json:"end_reason,omitempty" gorm:"size:50"`

	// Answers maps question id to the submitted value, last writer wins per
	// key. QuestionSnapshot freezes the question set at start; resume and
	// scoring read it instead of the live assessment definition.
	Answers          datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	QuestionSnapshot datatypes.JSON `json:"-" gorm:"type:jsonb"`

	// Score is a percentage, present only once submitted and only when the
	// snapshot holds at least one gradable question. Nil means ungraded,
	// which callers must render as N/A rather than 0.
	Score *float64 `json:"score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment Assessment `json:"-" gorm:"foreignKey:AssessmentID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// AnswerValue is the submitted value for one question: a string for MCQ and
// text questions, a set of strings for multi-select.
type AnswerValue struct {
	Text       string
	Selections []string
	multi      bool
}

func StringAnswer(s string) AnswerValue {
	return AnswerValue{Text: s}
}

func MultiAnswer(selections ...string) AnswerValue {
	return AnswerValue{Selections: selections, multi: true}
}

func (v AnswerValue) IsMulti() bool {
	return v.multi || v.Selections != nil
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.IsMulti() {
		return json.Marshal(v.Selections)
	}
	return json.Marshal(v.Text)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Text = s
		v.Selections = nil
		v.multi = false
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("answer value must be a string or an array of strings: %w", err)
	}
	v.Text = ""
	v.Selections = list
	v.multi = true
	return nil
}

// AnswerMap maps question id to the submitted value.
type AnswerMap map[uint]AnswerValue

// Merge applies delta on top of m, later writes overwriting earlier ones per
// question id.
func (m AnswerMap) Merge(delta AnswerMap) {
	for id, v := range delta {
		m[id] = v
	}
}

// DecodeAnswers unmarshals the stored answers column. A nil column decodes to
// an empty, usable map.
func (a *Attempt) DecodeAnswers() (AnswerMap, error) {
	if len(a.Answers) == 0 {
		return AnswerMap{}, nil
	}
	var answers AnswerMap
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode attempt answers: %w", err)
	}
	return answers, nil
}

// EncodeAnswers marshals answers into the stored column format.
func (a *Attempt) EncodeAnswers(answers AnswerMap) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to encode attempt answers: %w", err)
	}
	a.Answers = data
	return nil
}

// DecodeSnapshot unmarshals the frozen question set taken when the attempt
// started.
func (a *Attempt) DecodeSnapshot() ([]QuestionSnapshot, error) {
	if len(a.QuestionSnapshot) == 0 {
		return nil, nil
	}
	var snaps []QuestionSnapshot
	if err := json.Unmarshal(a.QuestionSnapshot, &snaps); err != nil {
		return nil, fmt.Errorf("failed to decode question snapshot: %w", err)
	}
	return snaps, nil
}

// EncodeSnapshot marshals the frozen question set into the stored column.
func (a *Attempt) EncodeSnapshot(snaps []QuestionSnapshot) error {
	data, err := json.Marshal(snaps)
	if err != nil {
		return fmt.Errorf("failed to encode question snapshot: %w", err)
	}
	a.QuestionSnapshot = data
	return nil
}

// Deadline returns the wall-clock moment the attempt expires, or nil for
// untimed assessments.
func (a *Attempt) Deadline(assessment *Assessment) *time.Time {
	if !assessment.IsTimed || assessment.TimeLimitMinutes == nil {
		return nil
	}
	d := a.StartedAt.Add(time.Duration(*assessment.TimeLimitMinutes) * time.Minute)
	return &d
}
