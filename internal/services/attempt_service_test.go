package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/schoolpd/assessment-service/internal/events"
	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/validator"
)

type attemptFixture struct {
	repo *fakeRepository
	pub  *events.MockEventPublisher
	svc  *attemptService

	// now is the fixture's frozen clock; tests advance it to expire timers.
	now time.Time
}

func newAttemptFixture() *attemptFixture {
	repo := newFakeRepository()
	logger := testLogger()
	v := validator.New()
	pub := events.NewMockEventPublisher(logger)
	resolver := NewAssignmentResolver(repo, nil, logger, v)

	fix := &attemptFixture{
		repo: repo,
		pub:  pub,
		now:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	fix.svc = &attemptService{
		repo:      repo,
		logger:    logger,
		validator: v,
		resolver:  resolver,
		publisher: pub,
		now:       func() time.Time { return fix.now },
	}
	return fix
}

func (f *attemptFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// seedAssessment registers an assessment, a user and a rule assigning the
// assessment to the user.
func (f *attemptFixture) seedAssessment(a *models.Assessment, userID string) {
	f.repo.addAssessment(a)
	if _, ok := f.repo.users[userID]; !ok {
		f.repo.addUser(&models.User{ID: userID, Role: models.RoleTeacher, CampusID: "north"})
	}
	uid := userID
	f.repo.addRule(&models.AssignmentRule{AssessmentID: a.ID, AssignedToID: &uid})
}

func intPtr(i int) *int { return &i }

func mcqQuestion(id uint, answer string, points int) models.Question {
	key := answer
	return models.Question{
		ID:            id,
		Type:          models.QuestionMCQ,
		Prompt:        "pick one",
		CorrectAnswer: &key,
		Points:        points,
		Position:      int(id),
	}
}

func eventTypes(pub *events.MockEventPublisher) []string {
	var out []string
	for _, e := range pub.GetPublishedEvents() {
		out = append(out, e.Type)
	}
	return out
}

// ===== START / RESUME =====

func TestStartOrResumeCreatesAttempt(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, Title: "Prep", MaxAttempts: 2,
		Questions: []models.Question{mcqQuestion(10, "A", 5), mcqQuestion(11, "B", 5)},
	}, "u1")

	resp, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}

	if resp.Resumed {
		t.Error("fresh attempt should not be marked resumed")
	}
	if resp.Status != models.AttemptInProgress {
		t.Errorf("Status = %s, want in_progress", resp.Status)
	}
	if resp.AttemptNumber != 1 {
		t.Errorf("AttemptNumber = %d, want 1", resp.AttemptNumber)
	}
	if len(resp.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(resp.Questions))
	}
	for _, q := range resp.Questions {
		if q.Prompt == "" {
			t.Error("question prompt missing")
		}
	}

	// The stored snapshot keeps the keys; the response never carries them.
	attempt := fix.repo.attempts[resp.ID]
	snaps, err := attempt.DecodeSnapshot()
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if len(snaps) != 2 || snaps[0].CorrectAnswer == nil {
		t.Error("snapshot should retain correct answers server-side")
	}

	if got := eventTypes(fix.pub); len(got) != 1 || got[0] != events.EventAttemptStarted {
		t.Errorf("published events = %v, want [%s]", got, events.EventAttemptStarted)
	}
}

func TestStartOrResumeNotAssigned(t *testing.T) {
	fix := newAttemptFixture()
	fix.repo.addAssessment(&models.Assessment{ID: 1, MaxAttempts: 1})
	fix.repo.addUser(&models.User{ID: "u1", Role: models.RoleTeacher})

	_, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if !errors.Is(err, ErrNotAssigned) {
		t.Errorf("error = %v, want ErrNotAssigned", err)
	}
}

func TestStartOrResumeResumesOpenAttempt(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	first, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("first start error = %v", err)
	}

	second, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("second start error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("resume returned attempt %d, want %d", second.ID, first.ID)
	}
	if !second.Resumed {
		t.Error("expected Resumed=true on the second start")
	}
	if len(fix.repo.attempts) != 1 {
		t.Errorf("store holds %d attempts, want 1", len(fix.repo.attempts))
	}
}

func TestStartOrResumeFreezesQuestionSet(t *testing.T) {
	fix := newAttemptFixture()
	assessment := &models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}
	fix.seedAssessment(assessment, "u1")

	first, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	// Edit the live definition mid-attempt.
	assessment.Questions = append(assessment.Questions, mcqQuestion(11, "B", 5))

	resumed, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("resume error = %v", err)
	}
	if len(resumed.Questions) != len(first.Questions) {
		t.Errorf("resumed attempt sees %d questions, want frozen %d", len(resumed.Questions), len(first.Questions))
	}
}

func TestStartOrResumeAttemptLimit(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	resp, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}
	if _, err := fix.svc.Submit(context.Background(), resp.ID, &validator.SubmitAttemptRequest{}, "u1"); err != nil {
		t.Fatalf("submit error = %v", err)
	}

	_, err = fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if !errors.Is(err, ErrAttemptLimitExceeded) {
		t.Errorf("error = %v, want ErrAttemptLimitExceeded", err)
	}
}

func TestStartOrResumeLostRaceReturnsWinner(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 5,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	// Another request slipped in between the active-attempt check and the
	// insert; the store's unique constraint surfaces the conflict.
	winner := &models.Attempt{AssessmentID: 1, UserID: "u1", AttemptNumber: 1, StartedAt: fix.now}
	_ = winner.EncodeSnapshot(nil)
	_ = winner.EncodeAnswers(models.AnswerMap{})
	if err := fix.repo.Attempt().CreateInProgress(context.Background(), nil, winner); err != nil {
		t.Fatalf("seed winner error = %v", err)
	}

	fix.repo.suppressActiveReads = 1

	resp, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}
	if resp.ID != winner.ID || !resp.Resumed {
		t.Errorf("got attempt %d resumed=%v, want winner %d resumed", resp.ID, resp.Resumed, winner.ID)
	}
}

// ===== PROGRESS =====

func TestSaveProgressMergesAnswers(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{mcqQuestion(10, "A", 5), mcqQuestion(11, "B", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	_, err = fix.svc.SaveProgress(context.Background(), started.ID, &validator.SaveProgressRequest{
		Answers: map[uint]models.AnswerValue{10: models.StringAnswer("A"), 11: models.StringAnswer("X")},
	}, "u1")
	if err != nil {
		t.Fatalf("first save error = %v", err)
	}

	// Re-sent key overwrites; omitted key keeps its answer.
	resp, err := fix.svc.SaveProgress(context.Background(), started.ID, &validator.SaveProgressRequest{
		Answers: map[uint]models.AnswerValue{11: models.StringAnswer("B")},
	}, "u1")
	if err != nil {
		t.Fatalf("second save error = %v", err)
	}

	if got := resp.Answers[10]; got.Text != "A" {
		t.Errorf("answer 10 = %q, want untouched %q", got.Text, "A")
	}
	if got := resp.Answers[11]; got.Text != "B" {
		t.Errorf("answer 11 = %q, want overwritten %q", got.Text, "B")
	}
}

func TestSaveProgressRejectsUnknownQuestion(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	_, err = fix.svc.SaveProgress(context.Background(), started.ID, &validator.SaveProgressRequest{
		Answers: map[uint]models.AnswerValue{99: models.StringAnswer("A")},
	}, "u1")
	if !errors.Is(err, ErrUnansweredQuestionRefs) {
		t.Errorf("error = %v, want ErrUnansweredQuestionRefs", err)
	}
}

func TestSaveProgressWrongOwner(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")
	fix.repo.addUser(&models.User{ID: "u2", Role: models.RoleTeacher})

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	_, err = fix.svc.SaveProgress(context.Background(), started.ID, &validator.SaveProgressRequest{
		Answers: map[uint]models.AnswerValue{10: models.StringAnswer("A")},
	}, "u2")
	if !IsPermissionError(err) {
		t.Errorf("error = %v, want permission error", err)
	}
}

// ===== SUBMIT =====

func TestSubmitScoresAndCloses(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{mcqQuestion(10, "A", 5), mcqQuestion(11, "B", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	resp, err := fix.svc.Submit(context.Background(), started.ID, &validator.SubmitAttemptRequest{
		Answers: map[uint]models.AnswerValue{10: models.StringAnswer("A"), 11: models.StringAnswer("X")},
	}, "u1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if resp.Status != models.AttemptSubmitted {
		t.Errorf("Status = %s, want submitted", resp.Status)
	}
	if resp.EndReason == nil || *resp.EndReason != models.AttemptEndReasonSubmitted {
		t.Errorf("EndReason = %v, want submitted", resp.EndReason)
	}
	if resp.Score == nil || *resp.Score != 50 {
		t.Errorf("Score = %v, want 50", fmtScore(resp.Score))
	}
	if resp.SubmittedAt == nil {
		t.Error("SubmittedAt not set")
	}

	got := eventTypes(fix.pub)
	if len(got) != 2 || got[1] != events.EventAttemptSubmitted {
		t.Errorf("published events = %v, want started then submitted", got)
	}
}

func TestSubmitUngradedAssessmentLeavesScoreNil(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{
			{ID: 10, Type: models.QuestionText, Prompt: "reflect", Points: 0},
		},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	resp, err := fix.svc.Submit(context.Background(), started.ID, &validator.SubmitAttemptRequest{
		Answers: map[uint]models.AnswerValue{10: models.StringAnswer("my notes")},
	}, "u1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if resp.Score != nil {
		t.Errorf("Score = %v, want nil for an ungraded assessment", *resp.Score)
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 3,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}
	if _, err := fix.svc.Submit(context.Background(), started.ID, &validator.SubmitAttemptRequest{}, "u1"); err != nil {
		t.Fatalf("first submit error = %v", err)
	}

	_, err = fix.svc.Submit(context.Background(), started.ID, &validator.SubmitAttemptRequest{}, "u1")
	if !errors.Is(err, ErrAttemptAlreadyClosed) {
		t.Errorf("error = %v, want ErrAttemptAlreadyClosed", err)
	}
}

// ===== TIMER =====

func TestTimeRemainingCountsDownFromStart(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1, IsTimed: true, TimeLimitMinutes: intPtr(30),
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}
	if started.TimeRemainingSeconds == nil || *started.TimeRemainingSeconds != 30*60 {
		t.Fatalf("TimeRemainingSeconds at start = %v, want 1800", started.TimeRemainingSeconds)
	}

	fix.advance(10 * time.Minute)

	resp, err := fix.svc.TimeRemaining(context.Background(), started.ID, "u1")
	if err != nil {
		t.Fatalf("TimeRemaining() error = %v", err)
	}
	if !resp.IsTimed || resp.Expired {
		t.Errorf("IsTimed=%v Expired=%v, want timed and not expired", resp.IsTimed, resp.Expired)
	}
	if resp.RemainingSeconds == nil || *resp.RemainingSeconds != 20*60 {
		t.Errorf("RemainingSeconds = %v, want 1200", resp.RemainingSeconds)
	}
}

func TestTimeRemainingUntimed(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	resp, err := fix.svc.TimeRemaining(context.Background(), started.ID, "u1")
	if err != nil {
		t.Fatalf("TimeRemaining() error = %v", err)
	}
	if resp.IsTimed || resp.RemainingSeconds != nil {
		t.Errorf("untimed attempt reported IsTimed=%v RemainingSeconds=%v", resp.IsTimed, resp.RemainingSeconds)
	}
}

func TestExpiredAttemptFinalizedOnProgress(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1, IsTimed: true, TimeLimitMinutes: intPtr(30),
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}
	if _, err := fix.svc.SaveProgress(context.Background(), started.ID, &validator.SaveProgressRequest{
		Answers: map[uint]models.AnswerValue{10: models.StringAnswer("A")},
	}, "u1"); err != nil {
		t.Fatalf("save error = %v", err)
	}

	fix.advance(31 * time.Minute)

	_, err = fix.svc.SaveProgress(context.Background(), started.ID, &validator.SaveProgressRequest{
		Answers: map[uint]models.AnswerValue{10: models.StringAnswer("B")},
	}, "u1")
	if !errors.Is(err, ErrAttemptExpired) {
		t.Fatalf("error = %v, want ErrAttemptExpired", err)
	}

	attempt := fix.repo.attempts[started.ID]
	if attempt.Status != models.AttemptSubmitted {
		t.Errorf("Status = %s, want submitted", attempt.Status)
	}
	if attempt.EndReason == nil || *attempt.EndReason != models.AttemptEndReasonTimeout {
		t.Errorf("EndReason = %v, want time_out", attempt.EndReason)
	}
	// The pre-deadline answer scores; the late one never landed.
	if attempt.Score == nil || *attempt.Score != 100 {
		t.Errorf("Score = %v, want 100 from the saved answer", fmtScore(attempt.Score))
	}

	got := eventTypes(fix.pub)
	if len(got) != 2 || got[1] != events.EventAttemptTimedOut {
		t.Errorf("published events = %v, want started then timed_out", got)
	}
}

func TestSubmitAfterDeadlineDiscardsDelta(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1, IsTimed: true, TimeLimitMinutes: intPtr(10),
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	fix.advance(11 * time.Minute)

	resp, err := fix.svc.Submit(context.Background(), started.ID, &validator.SubmitAttemptRequest{
		Answers: map[uint]models.AnswerValue{10: models.StringAnswer("A")},
	}, "u1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if resp.EndReason == nil || *resp.EndReason != models.AttemptEndReasonTimeout {
		t.Errorf("EndReason = %v, want time_out", resp.EndReason)
	}
	if resp.Score == nil || *resp.Score != 0 {
		t.Errorf("Score = %v, want 0: the late delta must not count", fmtScore(resp.Score))
	}
}

func TestStartAfterExpiryTimesOutOldAndStartsFresh(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 2, IsTimed: true, TimeLimitMinutes: intPtr(10),
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	first, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("first start error = %v", err)
	}

	fix.advance(11 * time.Minute)

	second, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("second start error = %v", err)
	}

	if second.ID == first.ID {
		t.Fatal("expected a fresh attempt after the old one expired")
	}
	if second.AttemptNumber != 2 {
		t.Errorf("AttemptNumber = %d, want 2", second.AttemptNumber)
	}

	old := fix.repo.attempts[first.ID]
	if old.Status != models.AttemptSubmitted || old.EndReason == nil || *old.EndReason != models.AttemptEndReasonTimeout {
		t.Errorf("old attempt status=%s reason=%v, want submitted/time_out", old.Status, old.EndReason)
	}
}

func TestGetByIDClosesExpiredAttempt(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 1, IsTimed: true, TimeLimitMinutes: intPtr(5),
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")

	started, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}

	fix.advance(6 * time.Minute)

	resp, err := fix.svc.GetByID(context.Background(), started.ID, "u1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if resp.Status != models.AttemptSubmitted {
		t.Errorf("Status = %s, want submitted after lazy timeout", resp.Status)
	}
	if resp.EndReason == nil || *resp.EndReason != models.AttemptEndReasonTimeout {
		t.Errorf("EndReason = %v, want time_out", resp.EndReason)
	}
}

// ===== LISTING =====

func TestListMineFilters(t *testing.T) {
	fix := newAttemptFixture()
	fix.seedAssessment(&models.Assessment{
		ID: 1, MaxAttempts: 3,
		Questions: []models.Question{mcqQuestion(10, "A", 5)},
	}, "u1")
	fix.seedAssessment(&models.Assessment{
		ID: 2, MaxAttempts: 3,
		Questions: []models.Question{mcqQuestion(20, "B", 5)},
	}, "u1")

	a1, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 1}, "u1")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}
	if _, err := fix.svc.Submit(context.Background(), a1.ID, &validator.SubmitAttemptRequest{}, "u1"); err != nil {
		t.Fatalf("submit error = %v", err)
	}
	if _, err := fix.svc.StartOrResume(context.Background(), &validator.StartAttemptRequest{AssessmentID: 2}, "u1"); err != nil {
		t.Fatalf("start error = %v", err)
	}

	all, total, err := fix.svc.ListMine(context.Background(), &validator.AttemptListRequest{}, "u1")
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("got %d attempts (total %d), want 2", len(all), total)
	}
	if len(all[0].Answers) != 0 || len(all[0].Questions) != 0 {
		t.Error("listing entries must stay flat summaries")
	}

	status := models.AttemptSubmitted
	submitted, _, err := fix.svc.ListMine(context.Background(), &validator.AttemptListRequest{Status: &status}, "u1")
	if err != nil {
		t.Fatalf("ListMine(submitted) error = %v", err)
	}
	if len(submitted) != 1 || submitted[0].ID != a1.ID {
		t.Errorf("status filter returned %d attempts, want the one submitted", len(submitted))
	}
}
