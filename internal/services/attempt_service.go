package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/cache"
	"github.com/schoolpd/assessment-service/internal/events"
	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
	"github.com/schoolpd/assessment-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	resolver  AssignmentResolver
	publisher events.EventPublisher
	cache     *cache.CacheManager

	// now is swappable in tests
	now func() time.Time
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, resolver AssignmentResolver, publisher events.EventPublisher, cacheManager *cache.CacheManager) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		resolver:  resolver,
		publisher: publisher,
		cache:     cacheManager,
		now:       time.Now,
	}
}

// ===== START / RESUME =====

// StartOrResume returns the user's open attempt on the assessment if one
// exists, otherwise creates a new one with the question set frozen at this
// moment. An open attempt whose timer has elapsed is finalized as timed out
// first, then a fresh attempt is started if the limit allows.
func (s *attemptService) StartOrResume(ctx context.Context, req *validator.StartAttemptRequest, userID string) (*AttemptResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	s.logger.Info("starting attempt",
		"assessment_id", req.AssessmentID,
		"user_id", userID)

	assigned, err := s.resolver.IsAssigned(ctx, userID, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, ErrNotAssigned
	}

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, s.db, req.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	active, err := s.repo.Attempt().GetActiveAttempt(ctx, s.db, userID, req.AssessmentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}

	if active != nil {
		if s.attemptExpired(active, assessment) {
			if _, err := s.finalizeTimeout(ctx, active, assessment); err != nil {
				return nil, err
			}
		} else {
			return s.buildResponse(active, assessment, true, true)
		}
	}

	submitted, err := s.repo.Attempt().CountSubmitted(ctx, s.db, userID, req.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if submitted >= assessment.MaxAttempts {
		return nil, ErrAttemptLimitExceeded
	}

	snaps, err := models.SnapshotQuestions(assessment.Questions)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot questions: %w", err)
	}

	attempt := &models.Attempt{
		AssessmentID:  req.AssessmentID,
		UserID:        userID,
		AttemptNumber: submitted + 1,
		StartedAt:     s.now().UTC(),
	}
	if err := attempt.EncodeSnapshot(snaps); err != nil {
		return nil, err
	}
	if err := attempt.EncodeAnswers(models.AnswerMap{}); err != nil {
		return nil, err
	}

	if err := s.repo.Attempt().CreateInProgress(ctx, s.db, attempt); err != nil {
		if repositories.IsDuplicateError(err) {
			// Lost a concurrent start; hand back the winner's attempt.
			winner, getErr := s.repo.Attempt().GetActiveAttempt(ctx, s.db, userID, req.AssessmentID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load racing attempt: %w", getErr)
			}
			return s.buildResponse(winner, assessment, true, true)
		}
		return nil, err
	}

	s.publishAttemptEvent(ctx, events.EventAttemptStarted, attempt)

	return s.buildResponse(attempt, assessment, true, false)
}

// ===== PROGRESS =====

// SaveProgress merges an answer delta into the open attempt. Keys not in
// the delta keep their previous answers; re-sent keys are overwritten.
func (s *attemptService) SaveProgress(ctx context.Context, attemptID uint, req *validator.SaveProgressRequest, userID string) (*AttemptResponse, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	attempt, assessment, err := s.loadOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadyClosed
	}

	if s.attemptExpired(attempt, assessment) {
		if _, err := s.finalizeTimeout(ctx, attempt, assessment); err != nil {
			return nil, err
		}
		return nil, ErrAttemptExpired
	}

	snaps, err := attempt.DecodeSnapshot()
	if err != nil {
		return nil, err
	}
	if err := validateAnswerKeys(snaps, req.Answers); err != nil {
		return nil, err
	}

	answers, err := attempt.DecodeAnswers()
	if err != nil {
		return nil, err
	}
	answers.Merge(req.Answers)
	if err := attempt.EncodeAnswers(answers); err != nil {
		return nil, err
	}

	if err := s.repo.Attempt().Update(ctx, s.db, attempt); err != nil {
		return nil, err
	}

	return s.buildResponse(attempt, assessment, false, false)
}

// ===== SUBMIT =====

// Submit finalizes the attempt. A last answer delta may ride along; it is
// merged before scoring. Submitting an expired attempt discards the delta
// and finalizes with the answers saved before the deadline.
func (s *attemptService) Submit(ctx context.Context, attemptID uint, req *validator.SubmitAttemptRequest, userID string) (*AttemptResponse, error) {
	attempt, assessment, err := s.loadOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadyClosed
	}

	if s.attemptExpired(attempt, assessment) {
		return s.finalizeTimeout(ctx, attempt, assessment)
	}

	snaps, err := attempt.DecodeSnapshot()
	if err != nil {
		return nil, err
	}

	if len(req.Answers) > 0 {
		if err := validateAnswerKeys(snaps, req.Answers); err != nil {
			return nil, err
		}
		answers, err := attempt.DecodeAnswers()
		if err != nil {
			return nil, err
		}
		answers.Merge(req.Answers)
		if err := attempt.EncodeAnswers(answers); err != nil {
			return nil, err
		}
	}

	if err := s.finalize(ctx, attempt, snaps, models.AttemptEndReasonSubmitted); err != nil {
		return nil, err
	}

	s.publishAttemptEvent(ctx, events.EventAttemptSubmitted, attempt)
	s.invalidateAnalytics(ctx, userID)

	return s.buildResponse(attempt, assessment, false, false)
}

// ===== TIMER =====

func (s *attemptService) TimeRemaining(ctx context.Context, attemptID uint, userID string) (*TimeRemainingResponse, error) {
	attempt, assessment, err := s.loadOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	resp := &TimeRemainingResponse{
		AttemptID: attempt.ID,
		IsTimed:   assessment.IsTimed,
	}

	deadline := attempt.Deadline(assessment)
	if deadline == nil {
		return resp, nil
	}
	resp.Deadline = deadline

	remaining := int64(deadline.Sub(s.now()).Seconds())
	if remaining <= 0 {
		remaining = 0
		resp.Expired = true
		if attempt.Status == models.AttemptInProgress {
			if _, err := s.finalizeTimeout(ctx, attempt, assessment); err != nil {
				return nil, err
			}
		}
	}
	resp.RemainingSeconds = &remaining

	return resp, nil
}

// ===== READS =====

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	attempt, assessment, err := s.loadOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	// Lazily close out an expired open attempt on read.
	if attempt.Status == models.AttemptInProgress && s.attemptExpired(attempt, assessment) {
		return s.finalizeTimeout(ctx, attempt, assessment)
	}

	return s.buildResponse(attempt, assessment, attempt.Status == models.AttemptInProgress, false)
}

func (s *attemptService) ListMine(ctx context.Context, req *validator.AttemptListRequest, userID string) ([]*AttemptResponse, int64, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, 0, errs
	}

	filters := repositories.AttemptFilters{
		UserID:       &userID,
		AssessmentID: req.AssessmentID,
		Status:       req.Status,
		Limit:        req.Limit,
		Offset:       req.Offset,
	}

	attempts, total, err := s.repo.Attempt().List(ctx, s.db, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	out := make([]*AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, summarizeAttempt(attempt))
	}
	return out, total, nil
}
