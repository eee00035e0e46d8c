package services

import (
	"context"
	"fmt"

	"github.com/schoolpd/assessment-service/internal/events"
	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
)

// loadOwnedAttempt fetches the attempt and its assessment, enforcing that
// the caller owns the attempt.
func (s *attemptService) loadOwnedAttempt(ctx context.Context, attemptID uint, userID string) (*models.Attempt, *models.Assessment, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		return nil, nil, NewPermissionError(userID, "access this attempt")
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, attempt.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAssessmentNotFound
		}
		return nil, nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	return attempt, assessment, nil
}

// attemptExpired reports whether a timed attempt's deadline has passed.
func (s *attemptService) attemptExpired(attempt *models.Attempt, assessment *models.Assessment) bool {
	deadline := attempt.Deadline(assessment)
	return deadline != nil && !s.now().Before(*deadline)
}

// finalize scores the attempt from its frozen snapshot and closes it. Runs
// in a transaction with a status re-check so two concurrent closers cannot
// both finalize.
func (s *attemptService) finalize(ctx context.Context, attempt *models.Attempt, snaps []models.QuestionSnapshot, endReason string) error {
	answers, err := attempt.DecodeAnswers()
	if err != nil {
		return err
	}

	score := ScoreAttempt(snaps, answers)
	submittedAt := s.now().UTC()

	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		current, err := txRepo.Attempt().GetByID(ctx, nil, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to reload attempt: %w", err)
		}
		if current.Status != models.AttemptInProgress {
			return ErrAttemptAlreadyClosed
		}

		attempt.Status = models.AttemptSubmitted
		attempt.SubmittedAt = &submittedAt
		reason := endReason
		attempt.EndReason = &reason
		attempt.Score = score

		return txRepo.Attempt().Update(ctx, nil, attempt)
	})
}

// finalizeTimeout closes an expired attempt with the time_out end reason,
// scoring whatever answers were saved before the deadline.
func (s *attemptService) finalizeTimeout(ctx context.Context, attempt *models.Attempt, assessment *models.Assessment) (*AttemptResponse, error) {
	snaps, err := attempt.DecodeSnapshot()
	if err != nil {
		return nil, err
	}

	s.logger.Info("attempt timed out",
		"attempt_id", attempt.ID,
		"assessment_id", attempt.AssessmentID,
		"user_id", attempt.UserID)

	if err := s.finalize(ctx, attempt, snaps, models.AttemptEndReasonTimeout); err != nil {
		return nil, err
	}

	s.publishAttemptEvent(ctx, events.EventAttemptTimedOut, attempt)
	s.invalidateAnalytics(ctx, attempt.UserID)

	return s.buildResponse(attempt, assessment, false, false)
}

// buildResponse assembles the attempt view. Snapshot questions are included
// only for open attempts (includeQuestions), with correct answers stripped.
func (s *attemptService) buildResponse(attempt *models.Attempt, assessment *models.Assessment, includeQuestions, resumed bool) (*AttemptResponse, error) {
	resp := summarizeAttempt(attempt)
	resp.Resumed = resumed

	answers, err := attempt.DecodeAnswers()
	if err != nil {
		return nil, err
	}
	resp.Answers = answers

	if includeQuestions {
		snaps, err := attempt.DecodeSnapshot()
		if err != nil {
			return nil, err
		}
		resp.Questions = make([]AttemptQuestion, 0, len(snaps))
		for _, q := range snaps {
			resp.Questions = append(resp.Questions, AttemptQuestion{
				ID:       q.ID,
				Type:     q.Type,
				Prompt:   q.Prompt,
				Options:  q.Options,
				Points:   q.Points,
				Position: q.Position,
			})
		}
	}

	if attempt.Status == models.AttemptInProgress {
		if deadline := attempt.Deadline(assessment); deadline != nil {
			remaining := int64(deadline.Sub(s.now()).Seconds())
			if remaining < 0 {
				remaining = 0
			}
			resp.TimeRemainingSeconds = &remaining
		}
	}

	return resp, nil
}

// summarizeAttempt is the flat projection used in listings: no questions,
// no answers.
func summarizeAttempt(attempt *models.Attempt) *AttemptResponse {
	return &AttemptResponse{
		ID:            attempt.ID,
		AssessmentID:  attempt.AssessmentID,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        attempt.Status,
		StartedAt:     attempt.StartedAt,
		SubmittedAt:   attempt.SubmittedAt,
		EndReason:     attempt.EndReason,
		Score:         attempt.Score,
	}
}

// validateAnswerKeys rejects answers referencing questions outside the
// attempt's frozen snapshot.
func validateAnswerKeys(snaps []models.QuestionSnapshot, answers models.AnswerMap) error {
	known := make(map[uint]struct{}, len(snaps))
	for _, q := range snaps {
		known[q.ID] = struct{}{}
	}
	for id := range answers {
		if _, ok := known[id]; !ok {
			return ErrUnansweredQuestionRefs
		}
	}
	return nil
}

func (s *attemptService) publishAttemptEvent(ctx context.Context, eventType string, attempt *models.Attempt) {
	if s.publisher == nil {
		return
	}

	var endReason string
	if attempt.EndReason != nil {
		endReason = *attempt.EndReason
	}

	event := events.NewEvent(eventType, events.AttemptEventPayload{
		AttemptID:    attempt.ID,
		AssessmentID: attempt.AssessmentID,
		UserID:       attempt.UserID,
		AttemptNo:    attempt.AttemptNumber,
		Score:        attempt.Score,
		EndReason:    endReason,
		StartedAt:    attempt.StartedAt,
		SubmittedAt:  attempt.SubmittedAt,
	})

	if err := s.publisher.Publish(ctx, event); err != nil {
		// Event delivery must not fail the operation.
		s.logger.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

// invalidateAnalytics drops the cached rollups touched by a submission.
func (s *attemptService) invalidateAnalytics(ctx context.Context, userID string) {
	if s.cache == nil || !s.cache.Available() {
		return
	}

	campusID := ""
	if user, err := s.repo.User().GetByID(ctx, userID); err == nil {
		campusID = user.CampusID
	}

	if err := s.cache.InvalidateAnalytics(ctx, userID, campusID); err != nil {
		s.logger.Warn("failed to invalidate analytics cache", "user_id", userID, "error", err)
	}
}
