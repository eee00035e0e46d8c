package services

import (
	"github.com/schoolpd/assessment-service/internal/models"
)

// snapshotGradable mirrors Question.IsGradable for the frozen form: only MCQ
// questions carrying a key and positive points participate in scoring.
func snapshotGradable(q models.QuestionSnapshot) bool {
	return q.Type == models.QuestionMCQ && q.CorrectAnswer != nil && q.Points > 0
}

// ScoreAttempt computes the percentage score of an attempt over its frozen
// question set. Credit is all-or-nothing per question on an exact string
// match against the key; a missing or multi-valued answer earns zero. When
// the snapshot carries no gradable points the result is nil, meaning
// ungraded rather than a zero score.
func ScoreAttempt(snaps []models.QuestionSnapshot, answers models.AnswerMap) *float64 {
	var earned, total int

	for _, q := range snaps {
		if !snapshotGradable(q) {
			continue
		}
		total += q.Points

		answer, ok := answers[q.ID]
		if !ok || answer.IsMulti() {
			continue
		}
		if answer.Text == *q.CorrectAnswer {
			earned += q.Points
		}
	}

	if total == 0 {
		return nil
	}

	score := float64(earned) / float64(total) * 100
	return &score
}

// SnapshotGradedPoints sums the points of gradable questions in a snapshot.
func SnapshotGradedPoints(snaps []models.QuestionSnapshot) int {
	var total int
	for _, q := range snaps {
		if snapshotGradable(q) {
			total += q.Points
		}
	}
	return total
}
