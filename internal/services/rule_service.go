package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/cache"
	"github.com/schoolpd/assessment-service/internal/events"
	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
	"github.com/schoolpd/assessment-service/internal/validator"
)

type ruleService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	cache     *cache.CacheManager
}

func NewRuleService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, cacheManager *cache.CacheManager) RuleService {
	return &ruleService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		cache:     cacheManager,
	}
}

func (s *ruleService) Create(ctx context.Context, req *validator.RuleCreateRequest, creatorID string) (*RuleResponse, error) {
	if errs := s.validator.ValidateRuleCreate(req); errs.HasErrors() {
		return nil, errs
	}

	if err := s.requireAdmin(ctx, creatorID, "create assignment rules"); err != nil {
		return nil, err
	}

	exists, err := s.repo.Assessment().Exists(ctx, s.db, req.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assessment: %w", err)
	}
	if !exists {
		return nil, ErrAssessmentNotFound
	}

	// Rules targeting a specific user must point at a real directory user.
	if req.AssignedToID != nil {
		userExists, err := s.repo.User().ExistsByID(ctx, *req.AssignedToID)
		if err != nil {
			return nil, fmt.Errorf("failed to check target user: %w", err)
		}
		if !userExists {
			return nil, ErrUserNotFound
		}
	}

	rule := &models.AssignmentRule{
		AssessmentID:       req.AssessmentID,
		AssignedToID:       req.AssignedToID,
		AssignedToRole:     req.AssignedToRole,
		AssignedToCampusID: req.AssignedToCampusID,
		CreatedBy:          creatorID,
	}

	if err := s.repo.Rule().Create(ctx, s.db, rule); err != nil {
		if errors.Is(err, repositories.ErrRuleWithoutTarget) {
			return nil, ErrInvalidAssignmentRule
		}
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	s.logger.Info("assignment rule created",
		"rule_id", rule.ID,
		"assessment_id", rule.AssessmentID,
		"created_by", creatorID)

	s.invalidateRules(ctx)
	s.publishRuleEvent(ctx, events.EventRuleCreated, rule)

	return toRuleResponse(rule), nil
}

func (s *ruleService) Delete(ctx context.Context, ruleID uint, callerID string) error {
	if err := s.requireAdmin(ctx, callerID, "delete assignment rules"); err != nil {
		return err
	}

	rule, err := s.repo.Rule().GetByID(ctx, s.db, ruleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("failed to get rule: %w", err)
	}

	if err := s.repo.Rule().Delete(ctx, s.db, ruleID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	s.logger.Info("assignment rule deleted", "rule_id", ruleID, "deleted_by", callerID)

	s.invalidateRules(ctx)
	s.publishRuleEvent(ctx, events.EventRuleDeleted, rule)

	return nil
}

func (s *ruleService) List(ctx context.Context, filters repositories.RuleFilters, callerID string) ([]*RuleResponse, int64, error) {
	if err := s.requireAdmin(ctx, callerID, "list assignment rules"); err != nil {
		return nil, 0, err
	}

	rules, total, err := s.repo.Rule().List(ctx, s.db, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rules: %w", err)
	}

	out := make([]*RuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	return out, total, nil
}

func (s *ruleService) requireAdmin(ctx context.Context, userID, action string) error {
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}
	if !isAdmin {
		return NewPermissionError(userID, action)
	}
	return nil
}

func (s *ruleService) invalidateRules(ctx context.Context) {
	if s.cache == nil || !s.cache.Available() {
		return
	}
	if err := s.cache.InvalidateRules(ctx); err != nil {
		s.logger.Warn("failed to invalidate rule cache", "error", err)
	}
}

func (s *ruleService) publishRuleEvent(ctx context.Context, eventType string, rule *models.AssignmentRule) {
	if s.publisher == nil {
		return
	}
	event := events.NewEvent(eventType, events.RuleEventPayload{
		RuleID:       rule.ID,
		AssessmentID: rule.AssessmentID,
		CreatedBy:    rule.CreatedBy,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

func toRuleResponse(rule *models.AssignmentRule) *RuleResponse {
	return &RuleResponse{
		ID:                 rule.ID,
		AssessmentID:       rule.AssessmentID,
		AssignedToID:       rule.AssignedToID,
		AssignedToRole:     rule.AssignedToRole,
		AssignedToCampusID: rule.AssignedToCampusID,
		CreatedBy:          rule.CreatedBy,
		CreatedAt:          rule.CreatedAt,
	}
}
