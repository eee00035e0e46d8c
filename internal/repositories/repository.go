package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates every store the engine reads or writes.
type Repository interface {
	Assessment() AssessmentRepository
	Rule() RuleRepository
	Attempt() AttemptRepository

	// User domain (read-only, backed by the directory service)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ErrRuleWithoutTarget is returned by rule stores when a rule sets no
// targeting dimension. Such a rule would match nobody and must never be
// persisted.
var ErrRuleWithoutTarget = errors.New("assignment rule must set at least one targeting dimension")

// IsNotFoundError reports whether err is the store's record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err came from a unique constraint, which
// the attempt store surfaces when two starts race for the same user and
// assessment.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
