package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AssessmentFilters struct {
	Type      *models.AssessmentType `json:"type"`
	CreatedBy *string                `json:"created_by"`
	IsTimed   *bool                  `json:"is_timed"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
	SortBy    string                 `json:"sort_by"`    // "created_at", "title", "type"
	SortOrder string                 `json:"sort_order"` // "asc", "desc"
}

type RuleFilters struct {
	AssessmentID *uint            `json:"assessment_id"`
	UserID       *string          `json:"user_id"`
	Role         *models.UserRole `json:"role"`
	CampusID     *string          `json:"campus_id"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
}

type AttemptFilters struct {
	Status       *models.AttemptStatus `json:"status"`
	UserID       *string               `json:"user_id"`
	AssessmentID *uint                 `json:"assessment_id"`
	DateFrom     *time.Time            `json:"date_from"`
	DateTo       *time.Time            `json:"date_to"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	SortBy       string                `json:"sort_by"`
	SortOrder    string                `json:"sort_order"`
}

type UserFilters struct {
	Query    string // Search query for name or email
	CampusID string // Restrict to one campus
	Limit    int
	Offset   int
}

// ===== REPOSITORY INTERFACES =====

// AssessmentRepository is the read side of the assessment/template store.
// Definitions are authored elsewhere; this service consumes them.
type AssessmentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Assessment, error)
	List(ctx context.Context, tx *gorm.DB, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

// RuleRepository persists assignment rules. Create must reject rules with no
// targeting dimension before they ever reach the resolver.
type RuleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, rule *models.AssignmentRule) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssignmentRule, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters RuleFilters) ([]*models.AssignmentRule, int64, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*models.AssignmentRule, error)
}

// AttemptRepository persists attempts. CreateInProgress relies on the partial
// unique index over (assessment_id, user_id) WHERE status='in_progress' for
// the start-attempt atomicity guarantee.
type AttemptRepository interface {
	CreateInProgress(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetActiveAttempt(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (*models.Attempt, error)
	CountSubmitted(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (int, error)
	GetByUserAndAssessment(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) ([]*models.Attempt, error)
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetSubmittedByUsers(ctx context.Context, tx *gorm.DB, userIDs []string) ([]*models.Attempt, error)
}

// UserRepository is read-only; the directory service owns user data.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	GetByCampus(ctx context.Context, campusID string) ([]*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}

// ===== ANALYTICS STRUCTS =====

// TypeBucket is one assessment-type segment of a completion/score rollup.
// AverageScore stays unrounded in the aggregate; rounding happens only at the
// presentation boundary so repeated aggregation is reproducible.
type TypeBucket struct {
	Type               models.AssessmentType `json:"type"`
	RequiredCount      int                   `json:"required_count"`
	SubmittedCount     int                   `json:"submitted_count"`
	CompletionPercent  float64               `json:"completion_percent"`
	AverageScore       *float64              `json:"average_score"`
	GradedAttemptCount int                   `json:"graded_attempt_count"`
}

type UserAnalytics struct {
	UserID            string       `json:"user_id"`
	CampusID          string       `json:"campus_id"`
	RequiredCount     int          `json:"required_count"`
	SubmittedCount    int          `json:"submitted_count"`
	CompletionPercent float64      `json:"completion_percent"`
	AverageScore      *float64     `json:"average_score"`
	ByType            []TypeBucket `json:"by_type"`
}

type CampusAnalytics struct {
	CampusID          string       `json:"campus_id"`
	UserCount         int          `json:"user_count"`
	RequiredTotal     int          `json:"required_total"`
	SubmittedTotal    int          `json:"submitted_total"`
	CompletionPercent float64      `json:"completion_percent"`
	AverageScore      *float64     `json:"average_score"`
	ByType            []TypeBucket `json:"by_type"`
}
