package models

import (
	"time"

	"gorm.io/gorm"
)

type AssessmentType string

const (
	TypePreparedness    AssessmentType = "preparedness"
	TypePostOrientation AssessmentType = "post_orientation"
	TypeCustom          AssessmentType = "custom"
)

func (t AssessmentType) Valid() bool {
	switch t {
	case TypePreparedness, TypePostOrientation, TypeCustom:
		return true
	}
	return false
}

type Assessment struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string        `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Type        AssessmentType `json:"type" gorm:"not null;index;default:custom" validate:"required,assessment_type"`

	// Timing. TimeLimitMinutes is required when IsTimed is set; the limit is
	// always evaluated server-side against Attempt.StartedAt.
	IsTimed          bool `json:"is_timed" gorm:"not null;default:false"`
	TimeLimitMinutes *int `json:"time_limit_minutes" validate:"omitempty,min=1,max=300"`

	MaxAttempts int `json:"max_attempts" gorm:"not null;default:1" validate:"min=1,max=10"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question       `json:"questions" gorm:"foreignKey:AssessmentID"`
	Rules     []AssignmentRule `json:"-" gorm:"foreignKey:AssessmentID"`
	Attempts  []Attempt        `json:"-" gorm:"foreignKey:AssessmentID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	TotalPoints    int `json:"total_points" gorm:"-"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// GradedPoints returns the sum of points over auto-gradable questions. A zero
// result marks the assessment as ungraded (score stays null on submit).
func (a *Assessment) GradedPoints() int {
	total := 0
	for i := range a.Questions {
		if a.Questions[i].IsGradable() {
			total += a.Questions[i].Points
		}
	}
	return total
}
