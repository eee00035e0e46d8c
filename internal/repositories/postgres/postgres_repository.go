package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/cache"
	"github.com/schoolpd/assessment-service/internal/repositories"
)

// PostgresRepository bundles the postgres-backed stores with the directory
// user store behind the Repository interface.
type PostgresRepository struct {
	db *gorm.DB
	tx *gorm.DB

	assessment *AssessmentPostgreSQL
	rule       *RulePostgreSQL
	attempt    *AttemptPostgreSQL
	user       repositories.UserRepository

	logger *slog.Logger
}

func NewPostgresRepository(db *gorm.DB, userRepo repositories.UserRepository, cacheManager *cache.CacheManager, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:         db,
		assessment: NewAssessmentPostgreSQL(db, cacheManager),
		rule:       NewRulePostgreSQL(db),
		attempt:    NewAttemptPostgreSQL(db),
		user:       userRepo,
		logger:     logger,
	}
}

func (r *PostgresRepository) Assessment() repositories.AssessmentRepository { return r.assessment }
func (r *PostgresRepository) Rule() repositories.RuleRepository             { return r.rule }
func (r *PostgresRepository) Attempt() repositories.AttemptRepository       { return r.attempt }
func (r *PostgresRepository) User() repositories.UserRepository             { return r.user }

// WithTransaction runs fn inside a database transaction. The Repository
// handed to fn routes every store call through the transaction connection.
func (r *PostgresRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgresRepository{
			db:         tx,
			tx:         tx,
			assessment: NewAssessmentPostgreSQL(tx, nil), // no cache inside a tx
			rule:       NewRulePostgreSQL(tx),
			attempt:    NewAttemptPostgreSQL(tx),
			user:       r.user,
			logger:     r.logger,
		}
		return fn(txRepo)
	})
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *PostgresRepository) Close() error {
	if r.tx != nil {
		// Transaction-scoped repositories do not own the connection.
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

// Manager implements repositories.RepositoryManager over a single
// PostgresRepository instance.
type Manager struct {
	repo   *PostgresRepository
	logger *slog.Logger
}

func NewManager(repo *PostgresRepository, logger *slog.Logger) *Manager {
	return &Manager{repo: repo, logger: logger}
}

func (m *Manager) Initialize() error {
	if m.repo == nil {
		return fmt.Errorf("repository not configured")
	}
	return nil
}

func (m *Manager) GetRepository() repositories.Repository {
	return m.repo
}

func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.repo.Ping(ctx)
}

func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("closing database connections")
	return m.repo.Close()
}
