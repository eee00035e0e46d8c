package models

import (
	"time"

	"gorm.io/gorm"
)

// AssignmentRule binds an assessment to a targeting dimension: a specific
// user, a role, a campus, or a role+campus combination. Within a rule every
// non-empty field must match the user (AND); across rules a user is obligated
// by any match (OR). A rule with all three fields empty is invalid and is
// rejected at creation.
type AssignmentRule struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	AssessmentID uint `json:"assessment_id" gorm:"not null;index"`

	AssignedToID       *string   `json:"assigned_to_id,omitempty" gorm:"index;size:255"`
	AssignedToRole     *UserRole `json:"assigned_to_role,omitempty" gorm:"index;size:50"`
	AssignedToCampusID *string   `json:"assigned_to_campus_id,omitempty" gorm:"index;size:255"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Assessment Assessment `json:"-" gorm:"foreignKey:AssessmentID"`
}

func (AssignmentRule) TableName() string {
	return "assignment_rules"
}

// HasTarget reports whether at least one targeting dimension is set.
func (r *AssignmentRule) HasTarget() bool {
	return r.AssignedToID != nil || r.AssignedToRole != nil || r.AssignedToCampusID != nil
}

// Matches reports whether every non-empty targeting field equals the
// corresponding user attribute.
func (r *AssignmentRule) Matches(user *User) bool {
	if !r.HasTarget() {
		return false
	}
	if r.AssignedToID != nil && *r.AssignedToID != user.ID {
		return false
	}
	if r.AssignedToRole != nil && *r.AssignedToRole != user.Role {
		return false
	}
	if r.AssignedToCampusID != nil && *r.AssignedToCampusID != user.CampusID {
		return false
	}
	return true
}
