package services

import (
	"context"
	"time"

	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
	"github.com/schoolpd/assessment-service/internal/validator"
)

// ===== RESPONSE DTOS =====

// AssignedAssessment is one entry of a user's obligation list: the
// assessment summary plus where the user stands on it.
type AssignedAssessment struct {
	AssessmentID     uint                  `json:"assessment_id"`
	Title            string                `json:"title"`
	Type             models.AssessmentType `json:"type"`
	IsTimed          bool                  `json:"is_timed"`
	TimeLimitMinutes *int                  `json:"time_limit_minutes,omitempty"`
	MaxAttempts      int                   `json:"max_attempts"`
	QuestionsCount   int                   `json:"questions_count"`

	SubmittedCount  int      `json:"submitted_count"`
	RemainingCount  int      `json:"remaining_count"`
	ActiveAttemptID *uint    `json:"active_attempt_id,omitempty"`
	BestScore       *float64 `json:"best_score,omitempty"`
	Completed       bool     `json:"completed"`
}

// AttemptQuestion is the client-facing projection of a snapshot question.
// The correct answer never leaves the server while the attempt is open.
type AttemptQuestion struct {
	ID       uint                `json:"id"`
	Type     models.QuestionType `json:"type"`
	Prompt   string              `json:"prompt"`
	Options  []string            `json:"options,omitempty"`
	Points   int                 `json:"points"`
	Position int                 `json:"position"`
}

// AttemptResponse is the full attempt view returned by start, progress and
// submit operations. Resumed reports whether start returned an existing
// in-progress attempt instead of creating one.
type AttemptResponse struct {
	ID            uint                 `json:"id"`
	AssessmentID  uint                 `json:"assessment_id"`
	UserID        string               `json:"user_id"`
	AttemptNumber int                  `json:"attempt_number"`
	Status        models.AttemptStatus `json:"status"`
	StartedAt     time.Time            `json:"started_at"`
	SubmittedAt   *time.Time           `json:"submitted_at,omitempty"`
	EndReason     *string              `json:"end_reason,omitempty"`
	Score         *float64             `json:"score,omitempty"`
	Resumed       bool                 `json:"resumed,omitempty"`

	Questions []AttemptQuestion `json:"questions,omitempty"`
	Answers   models.AnswerMap  `json:"answers,omitempty"`

	TimeRemainingSeconds *int64 `json:"time_remaining_seconds,omitempty"`
}

// TimeRemainingResponse reports the server-authoritative clock for a timed
// attempt. RemainingSeconds is nil for untimed assessments.
type TimeRemainingResponse struct {
	AttemptID        uint       `json:"attempt_id"`
	IsTimed          bool       `json:"is_timed"`
	RemainingSeconds *int64     `json:"remaining_seconds,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Expired          bool       `json:"expired"`
}

// RuleResponse is the client view of an assignment rule.
type RuleResponse struct {
	ID                 uint             `json:"id"`
	AssessmentID       uint             `json:"assessment_id"`
	AssignedToID       *string          `json:"assigned_to_id,omitempty"`
	AssignedToRole     *models.UserRole `json:"assigned_to_role,omitempty"`
	AssignedToCampusID *string          `json:"assigned_to_campus_id,omitempty"`
	CreatedBy          string           `json:"created_by"`
	CreatedAt          time.Time        `json:"created_at"`
}

// ===== SERVICE INTERFACES =====

// AssignmentResolver computes which assessments a user is obligated to take.
// Rules are additive set union: duplicates across matching rules collapse to
// one obligation.
type AssignmentResolver interface {
	ResolveForUser(ctx context.Context, userID string) ([]*AssignedAssessment, error)
	IsAssigned(ctx context.Context, userID string, assessmentID uint) (bool, error)
	ResolveRequiredSet(ctx context.Context, user *models.User) (map[uint]*models.Assessment, error)
}

// AttemptService drives the attempt state machine.
type AttemptService interface {
	StartOrResume(ctx context.Context, req *validator.StartAttemptRequest, userID string) (*AttemptResponse, error)
	SaveProgress(ctx context.Context, attemptID uint, req *validator.SaveProgressRequest, userID string) (*AttemptResponse, error)
	Submit(ctx context.Context, attemptID uint, req *validator.SubmitAttemptRequest, userID string) (*AttemptResponse, error)
	TimeRemaining(ctx context.Context, attemptID uint, userID string) (*TimeRemainingResponse, error)
	GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	ListMine(ctx context.Context, req *validator.AttemptListRequest, userID string) ([]*AttemptResponse, int64, error)
}

// RuleService manages assignment rules. Only admins may mutate.
type RuleService interface {
	Create(ctx context.Context, req *validator.RuleCreateRequest, creatorID string) (*RuleResponse, error)
	Delete(ctx context.Context, ruleID uint, callerID string) error
	List(ctx context.Context, filters repositories.RuleFilters, callerID string) ([]*RuleResponse, int64, error)
}

// AnalyticsService aggregates completion and scores per user and per campus.
type AnalyticsService interface {
	UserAnalytics(ctx context.Context, userID string, callerID string) (*repositories.UserAnalytics, error)
	CampusAnalytics(ctx context.Context, campusID string, callerID string) (*repositories.CampusAnalytics, error)
}

// ExportService renders analytics into downloadable workbooks.
type ExportService interface {
	ExportCampusAnalytics(ctx context.Context, campusID string, callerID string) (filename string, content []byte, err error)
}
