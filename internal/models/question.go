package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionMultiSelect QuestionType = "multi_select"
	QuestionText        QuestionType = "text"
)

type Question struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	AssessmentID uint         `json:"assessment_id" gorm:"not null;index"`
	Type         QuestionType `json:"type" gorm:"not null;index" validate:"required,question_type"`
	Prompt       string       `json:"prompt" gorm:"type:text;not null" validate:"required,max=2000"`

	// Options stored as a JSON array of strings; empty for text questions.
	Options datatypes.JSON `json:"options" gorm:"type:jsonb"`

	// CorrectAnswer is only meaningful for MCQ questions. Multi-select and
	// text questions carry no key and are never auto-scored.
	CorrectAnswer *string `json:"correct_answer,omitempty" gorm:"size:500"`

	// Points of zero marks an ungraded question; it contributes to neither
	// numerator nor denominator of the attempt score.
	Points   int `json:"points" gorm:"not null;default:0" validate:"min=0,max=100"`
	Position int `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment Assessment `json:"-" gorm:"foreignKey:AssessmentID"`
}

func (Question) TableName() string {
	return "questions"
}

// IsGradable reports whether the question participates in auto-scoring.
func (q *Question) IsGradable() bool {
	return q.Type == QuestionMCQ && q.CorrectAnswer != nil && q.Points > 0
}

// QuestionSnapshot is the shape frozen into an attempt when it starts. The
// set and order of questions used for resuming and scoring an attempt must
// match the set used when it was started, even if the assessment definition
// is edited concurrently.
type QuestionSnapshot struct {
	ID            uint         `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
	Points        int          `json:"points"`
	Position      int          `json:"position"`
}

// SnapshotQuestions converts the live question list into the frozen form
// stored on an attempt, preserving order.
func SnapshotQuestions(questions []Question) ([]QuestionSnapshot, error) {
	snaps := make([]QuestionSnapshot, len(questions))
	for i, q := range questions {
		opts, err := decodeOptions(q.Options)
		if err != nil {
			return nil, err
		}
		snaps[i] = QuestionSnapshot{
			ID:            q.ID,
			Type:          q.Type,
			Prompt:        q.Prompt,
			Options:       opts,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
			Position:      q.Position,
		}
	}
	return snaps, nil
}

func decodeOptions(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var opts []string
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode question options: %w", err)
	}
	return opts, nil
}
