package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
	"github.com/schoolpd/assessment-service/internal/validator"
)

type assignmentResolver struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssignmentResolver(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) AssignmentResolver {
	return &assignmentResolver{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ResolveRequiredSet evaluates every rule against the user and returns the
// union of targeted assessments keyed by id. Multiple rules matching the
// same assessment collapse into one obligation.
func (s *assignmentResolver) ResolveRequiredSet(ctx context.Context, user *models.User) (map[uint]*models.Assessment, error) {
	rules, err := s.repo.Rule().GetAll(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment rules: %w", err)
	}

	ids := make(map[uint]struct{})
	for _, rule := range rules {
		if rule.Matches(user) {
			ids[rule.AssessmentID] = struct{}{}
		}
	}

	if len(ids) == 0 {
		return map[uint]*models.Assessment{}, nil
	}

	idList := make([]uint, 0, len(ids))
	for id := range ids {
		idList = append(idList, id)
	}

	assessments, err := s.repo.Assessment().GetByIDs(ctx, s.db, idList)
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned assessments: %w", err)
	}

	required := make(map[uint]*models.Assessment, len(assessments))
	for _, a := range assessments {
		required[a.ID] = a
	}

	// A rule can outlive its assessment; skip dangling references quietly.
	if len(required) < len(ids) {
		s.logger.Warn("assignment rules reference missing assessments",
			"targeted", len(ids), "found", len(required))
	}

	return required, nil
}

func (s *assignmentResolver) IsAssigned(ctx context.Context, userID string, assessmentID uint) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}

	required, err := s.ResolveRequiredSet(ctx, user)
	if err != nil {
		return false, err
	}

	_, ok := required[assessmentID]
	return ok, nil
}

// ResolveForUser returns the user's obligation list with attempt standing
// folded in, sorted by assessment id for a stable order.
func (s *assignmentResolver) ResolveForUser(ctx context.Context, userID string) ([]*AssignedAssessment, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	required, err := s.ResolveRequiredSet(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(required) == 0 {
		return []*AssignedAssessment{}, nil
	}

	attempts, err := s.loadAllAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}

	byAssessment := make(map[uint][]*models.Attempt)
	for _, attempt := range attempts {
		byAssessment[attempt.AssessmentID] = append(byAssessment[attempt.AssessmentID], attempt)
	}

	out := make([]*AssignedAssessment, 0, len(required))
	for id, assessment := range required {
		entry := &AssignedAssessment{
			AssessmentID:     id,
			Title:            assessment.Title,
			Type:             assessment.Type,
			IsTimed:          assessment.IsTimed,
			TimeLimitMinutes: assessment.TimeLimitMinutes,
			MaxAttempts:      assessment.MaxAttempts,
			QuestionsCount:   assessment.QuestionsCount,
		}

		for _, attempt := range byAssessment[id] {
			switch attempt.Status {
			case models.AttemptInProgress:
				attemptID := attempt.ID
				entry.ActiveAttemptID = &attemptID
			case models.AttemptSubmitted:
				entry.SubmittedCount++
				if attempt.Score != nil &&
					(entry.BestScore == nil || *attempt.Score > *entry.BestScore) {
					score := *attempt.Score
					entry.BestScore = &score
				}
			}
		}

		entry.Completed = entry.SubmittedCount > 0
		entry.RemainingCount = assessment.MaxAttempts - entry.SubmittedCount
		if entry.RemainingCount < 0 {
			entry.RemainingCount = 0
		}

		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].AssessmentID < out[j].AssessmentID
	})

	return out, nil
}

// attemptPageSize bounds each page of the attempt scan in loadAllAttempts.
const attemptPageSize = 500

// loadAllAttempts pages through every attempt of one user so heavy retakers
// never get a truncated standing.
func (s *assignmentResolver) loadAllAttempts(ctx context.Context, userID string) ([]*models.Attempt, error) {
	filters := repositories.AttemptFilters{
		UserID: &userID,
		Limit:  attemptPageSize,
		SortBy: "started_at", SortOrder: "asc",
	}

	var attempts []*models.Attempt
	for {
		page, total, err := s.repo.Attempt().List(ctx, s.db, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to load attempts: %w", err)
		}
		attempts = append(attempts, page...)
		if len(page) == 0 || int64(len(attempts)) >= total {
			return attempts, nil
		}
		filters.Offset += len(page)
	}
}
