package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/cache"
	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
	"github.com/schoolpd/assessment-service/internal/validator"
)

type analyticsService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	resolver  AssignmentResolver
	cache     *cache.CacheManager
}

func NewAnalyticsService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, resolver AssignmentResolver, cacheManager *cache.CacheManager) AnalyticsService {
	return &analyticsService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		resolver:  resolver,
		cache:     cacheManager,
	}
}

// ===== USER ROLLUP =====

func (s *analyticsService) UserAnalytics(ctx context.Context, userID string, callerID string) (*repositories.UserAnalytics, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if err := s.authorizeUserView(ctx, user, callerID); err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.Available() {
		var cached repositories.UserAnalytics
		err := s.cache.GetOrLoadUserAnalytics(ctx, userID, &cached, func() (interface{}, error) {
			return s.computeUserAnalytics(ctx, user, nil)
		})
		if err != nil {
			return nil, err
		}
		return &cached, nil
	}

	return s.computeUserAnalytics(ctx, user, nil)
}

// ===== CAMPUS ROLLUP =====

func (s *analyticsService) CampusAnalytics(ctx context.Context, campusID string, callerID string) (*repositories.CampusAnalytics, error) {
	if err := s.authorizeCampusView(ctx, campusID, callerID); err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.Available() {
		var cached repositories.CampusAnalytics
		err := s.cache.GetOrLoadCampusAnalytics(ctx, campusID, &cached, func() (interface{}, error) {
			return s.computeCampusAnalytics(ctx, campusID)
		})
		if err != nil {
			return nil, err
		}
		return &cached, nil
	}

	return s.computeCampusAnalytics(ctx, campusID)
}

// computeCampusAnalytics rolls up every campus member. Completion is the
// ratio of summed submissions to summed requirements across members, not
// the mean of per-member percentages, so members with more obligations
// weigh proportionally more.
func (s *analyticsService) computeCampusAnalytics(ctx context.Context, campusID string) (*repositories.CampusAnalytics, error) {
	members, err := s.repo.User().GetByCampus(ctx, campusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campus members: %w", err)
	}

	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.ID)
	}

	attempts, err := s.repo.Attempt().GetSubmittedByUsers(ctx, s.db, userIDs)
	if err != nil {
		return nil, err
	}

	attemptsByUser := make(map[string][]*models.Attempt)
	for _, attempt := range attempts {
		attemptsByUser[attempt.UserID] = append(attemptsByUser[attempt.UserID], attempt)
	}

	result := &repositories.CampusAnalytics{
		CampusID:  campusID,
		UserCount: len(members),
	}
	campusBuckets := newBucketAccumulator()
	var scoreSum float64
	var scoreCount int

	for _, member := range members {
		ua, err := s.computeUserAnalytics(ctx, member, attemptsByUser[member.ID])
		if err != nil {
			return nil, err
		}

		result.RequiredTotal += ua.RequiredCount
		result.SubmittedTotal += ua.SubmittedCount

		for _, bucket := range ua.ByType {
			campusBuckets.merge(bucket)
			if bucket.AverageScore != nil {
				scoreSum += *bucket.AverageScore * float64(bucket.GradedAttemptCount)
				scoreCount += bucket.GradedAttemptCount
			}
		}
	}

	if result.RequiredTotal > 0 {
		result.CompletionPercent = float64(result.SubmittedTotal) / float64(result.RequiredTotal) * 100
	}
	if scoreCount > 0 {
		avg := scoreSum / float64(scoreCount)
		result.AverageScore = &avg
	}
	result.ByType = campusBuckets.finish()

	return result, nil
}

// computeUserAnalytics builds one member's rollup. submitted may be passed
// in when the caller already batch-loaded attempts; nil means load here.
func (s *analyticsService) computeUserAnalytics(ctx context.Context, user *models.User, submitted []*models.Attempt) (*repositories.UserAnalytics, error) {
	required, err := s.resolver.ResolveRequiredSet(ctx, user)
	if err != nil {
		return nil, err
	}

	if submitted == nil {
		submitted, err = s.repo.Attempt().GetSubmittedByUsers(ctx, s.db, []string{user.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to load attempts: %w", err)
		}
	}

	// Scores average over every submitted graded attempt, retakes included,
	// whether or not the assessment is currently required. Only the
	// completion figures are scoped to the required set.
	types := make(map[uint]models.AssessmentType, len(required))
	for id, assessment := range required {
		types[id] = assessment.Type
	}
	var unknown []uint
	for _, attempt := range submitted {
		if _, ok := types[attempt.AssessmentID]; !ok {
			unknown = append(unknown, attempt.AssessmentID)
		}
	}
	if len(unknown) > 0 {
		extra, err := s.repo.Assessment().GetByIDs(ctx, s.db, unknown)
		if err != nil {
			return nil, fmt.Errorf("failed to load attempted assessments: %w", err)
		}
		for _, a := range extra {
			types[a.ID] = a.Type
		}
	}

	result := &repositories.UserAnalytics{
		UserID:        user.ID,
		CampusID:      user.CampusID,
		RequiredCount: len(required),
	}
	buckets := newBucketAccumulator()
	var scoreSum float64
	var scoreCount int

	submittedSet := make(map[uint]bool)
	for _, attempt := range submitted {
		if _, isRequired := required[attempt.AssessmentID]; isRequired {
			submittedSet[attempt.AssessmentID] = true
		}
		if attempt.Score == nil {
			continue
		}
		attemptType, ok := types[attempt.AssessmentID]
		if !ok {
			// Assessment hard-deleted since the attempt closed; nothing to
			// bucket the score under.
			continue
		}
		score := *attempt.Score
		buckets.merge(repositories.TypeBucket{
			Type:               attemptType,
			GradedAttemptCount: 1,
			AverageScore:       &score,
		})
		scoreSum += score
		scoreCount++
	}

	for id, assessment := range required {
		bucket := repositories.TypeBucket{Type: assessment.Type, RequiredCount: 1}
		if submittedSet[id] {
			result.SubmittedCount++
			bucket.SubmittedCount = 1
		}
		buckets.merge(bucket)
	}

	if result.RequiredCount > 0 {
		result.CompletionPercent = float64(result.SubmittedCount) / float64(result.RequiredCount) * 100
	}
	if scoreCount > 0 {
		avg := scoreSum / float64(scoreCount)
		result.AverageScore = &avg
	}
	result.ByType = buckets.finish()

	return result, nil
}

// ===== PERMISSIONS =====

// authorizeUserView allows self, admins, and principals of the member's
// campus.
func (s *analyticsService) authorizeUserView(ctx context.Context, subject *models.User, callerID string) error {
	if subject.ID == callerID {
		return nil
	}

	caller, err := s.repo.User().GetByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("failed to load caller: %w", err)
	}

	if caller.Role == models.RoleAdmin {
		return nil
	}
	if caller.Role == models.RolePrincipal && caller.CampusID != "" && caller.CampusID == subject.CampusID {
		return nil
	}

	return NewPermissionError(callerID, "view this user's analytics")
}

// authorizeCampusView allows admins and principals of that campus.
func (s *analyticsService) authorizeCampusView(ctx context.Context, campusID, callerID string) error {
	caller, err := s.repo.User().GetByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("failed to load caller: %w", err)
	}

	if caller.Role == models.RoleAdmin {
		return nil
	}
	if caller.Role == models.RolePrincipal && caller.CampusID == campusID {
		return nil
	}

	return NewPermissionError(callerID, "view campus analytics")
}

// ===== BUCKET ACCUMULATION =====

// bucketAccumulator sums TypeBucket slices keyed by assessment type,
// keeping the ratio-of-sums semantics for completion and a weighted mean
// for scores.
type bucketAccumulator struct {
	buckets map[models.AssessmentType]*bucketState
}

type bucketState struct {
	required   int
	submitted  int
	scoreSum   float64
	scoreCount int
}

func newBucketAccumulator() *bucketAccumulator {
	return &bucketAccumulator{buckets: make(map[models.AssessmentType]*bucketState)}
}

func (acc *bucketAccumulator) merge(b repositories.TypeBucket) {
	state, ok := acc.buckets[b.Type]
	if !ok {
		state = &bucketState{}
		acc.buckets[b.Type] = state
	}
	state.required += b.RequiredCount
	state.submitted += b.SubmittedCount
	if b.AverageScore != nil {
		state.scoreSum += *b.AverageScore * float64(b.GradedAttemptCount)
		state.scoreCount += b.GradedAttemptCount
	}
}

func (acc *bucketAccumulator) finish() []repositories.TypeBucket {
	out := make([]repositories.TypeBucket, 0, len(acc.buckets))
	for t, state := range acc.buckets {
		bucket := repositories.TypeBucket{
			Type:               t,
			RequiredCount:      state.required,
			SubmittedCount:     state.submitted,
			GradedAttemptCount: state.scoreCount,
		}
		if state.required > 0 {
			bucket.CompletionPercent = float64(state.submitted) / float64(state.required) * 100
		}
		if state.scoreCount > 0 {
			avg := state.scoreSum / float64(state.scoreCount)
			bucket.AverageScore = &avg
		}
		out = append(out, bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
