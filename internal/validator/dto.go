package validator

import (
	"github.com/schoolpd/assessment-service/internal/models"
)

// RuleCreateRequest creates one assignment rule. At least one targeting
// dimension must be set; a rule with all three empty matches nobody and is
// rejected at validation.
type RuleCreateRequest struct {
	AssessmentID       uint             `json:"assessment_id" validate:"required"`
	AssignedToID       *string          `json:"assigned_to_id" validate:"omitempty,min=1"`
	AssignedToRole     *models.UserRole `json:"assigned_to_role" validate:"omitempty,user_role"`
	AssignedToCampusID *string          `json:"assigned_to_campus_id" validate:"omitempty,min=1"`
}

// HasTarget reports whether any targeting dimension is set.
func (r *RuleCreateRequest) HasTarget() bool {
	return r.AssignedToID != nil || r.AssignedToRole != nil || r.AssignedToCampusID != nil
}

// StartAttemptRequest starts or resumes an attempt on an assessment.
type StartAttemptRequest struct {
	AssessmentID uint `json:"assessment_id" validate:"required"`
}

// SaveProgressRequest merges an answer delta into the active attempt.
// Only the keys present are touched; omitted questions keep their answers.
type SaveProgressRequest struct {
	Answers map[uint]models.AnswerValue `json:"answers" validate:"required,min=1"`
}

// SubmitAttemptRequest finalizes an attempt. Answers is an optional last
// delta merged before scoring.
type SubmitAttemptRequest struct {
	Answers map[uint]models.AnswerValue `json:"answers"`
}

// AttemptListRequest filters the caller's attempt history.
type AttemptListRequest struct {
	AssessmentID *uint                 `form:"assessment_id"`
	Status       *models.AttemptStatus `form:"status"`
	Limit        int                   `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset       int                   `form:"offset" validate:"omitempty,min=0"`
}
