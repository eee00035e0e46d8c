package services

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests. It mimics
// the store's guarantees, including the one-active-attempt constraint the
// partial unique index provides.
type fakeRepository struct {
	mu sync.Mutex

	assessments map[uint]*models.Assessment
	rules       map[uint]*models.AssignmentRule
	attempts    map[uint]*models.Attempt
	users       map[string]*models.User

	nextRuleID    uint
	nextAttemptID uint

	// suppressActiveReads makes GetActiveAttempt report not-found for that
	// many calls, simulating a concurrent start that lands between the
	// active-attempt check and the insert.
	suppressActiveReads int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		assessments: make(map[uint]*models.Assessment),
		rules:       make(map[uint]*models.AssignmentRule),
		attempts:    make(map[uint]*models.Attempt),
		users:       make(map[string]*models.User),
	}
}

func (f *fakeRepository) addAssessment(a *models.Assessment) { f.assessments[a.ID] = a }
func (f *fakeRepository) addUser(u *models.User)             { f.users[u.ID] = u }

func (f *fakeRepository) addRule(r *models.AssignmentRule) {
	f.nextRuleID++
	r.ID = f.nextRuleID
	f.rules[r.ID] = r
}

func (f *fakeRepository) Assessment() repositories.AssessmentRepository { return (*fakeAssessments)(f) }
func (f *fakeRepository) Rule() repositories.RuleRepository             { return (*fakeRules)(f) }
func (f *fakeRepository) Attempt() repositories.AttemptRepository       { return (*fakeAttempts)(f) }
func (f *fakeRepository) User() repositories.UserRepository             { return (*fakeUsers)(f) }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== ASSESSMENTS =====

type fakeAssessments fakeRepository

func (f *fakeAssessments) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.Assessment, error) {
	a, ok := f.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (f *fakeAssessments) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	return f.GetByID(ctx, tx, id)
}

func (f *fakeAssessments) GetByIDs(_ context.Context, _ *gorm.DB, ids []uint) ([]*models.Assessment, error) {
	var out []*models.Assessment
	for _, id := range ids {
		if a, ok := f.assessments[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssessments) List(_ context.Context, _ *gorm.DB, _ repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	var out []*models.Assessment
	for _, a := range f.assessments {
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAssessments) Exists(_ context.Context, _ *gorm.DB, id uint) (bool, error) {
	_, ok := f.assessments[id]
	return ok, nil
}

// ===== RULES =====

type fakeRules fakeRepository

func (f *fakeRules) Create(_ context.Context, _ *gorm.DB, rule *models.AssignmentRule) error {
	if !rule.HasTarget() {
		return repositories.ErrRuleWithoutTarget
	}
	(*fakeRepository)(f).addRule(rule)
	return nil
}

func (f *fakeRules) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.AssignmentRule, error) {
	r, ok := f.rules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeRules) Delete(_ context.Context, _ *gorm.DB, id uint) error {
	if _, ok := f.rules[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.rules, id)
	return nil
}

func (f *fakeRules) List(_ context.Context, _ *gorm.DB, _ repositories.RuleFilters) ([]*models.AssignmentRule, int64, error) {
	all, _ := f.GetAll(context.Background(), nil)
	return all, int64(len(all)), nil
}

func (f *fakeRules) GetAll(_ context.Context, _ *gorm.DB) ([]*models.AssignmentRule, error) {
	var out []*models.AssignmentRule
	for _, r := range f.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== ATTEMPTS =====

type fakeAttempts fakeRepository

func (f *fakeAttempts) CreateInProgress(_ context.Context, _ *gorm.DB, attempt *models.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.attempts {
		if existing.UserID == attempt.UserID &&
			existing.AssessmentID == attempt.AssessmentID &&
			existing.Status == models.AttemptInProgress {
			return gorm.ErrDuplicatedKey
		}
	}

	f.nextAttemptID++
	attempt.ID = f.nextAttemptID
	attempt.Status = models.AttemptInProgress
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeAttempts) GetByID(_ context.Context, _ *gorm.DB, id uint) (*models.Attempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (f *fakeAttempts) Update(_ context.Context, _ *gorm.DB, attempt *models.Attempt) error {
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeAttempts) GetActiveAttempt(_ context.Context, _ *gorm.DB, userID string, assessmentID uint) (*models.Attempt, error) {
	if f.suppressActiveReads > 0 {
		f.suppressActiveReads--
		return nil, gorm.ErrRecordNotFound
	}
	for _, a := range f.attempts {
		if a.UserID == userID && a.AssessmentID == assessmentID && a.Status == models.AttemptInProgress {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAttempts) CountSubmitted(_ context.Context, _ *gorm.DB, userID string, assessmentID uint) (int, error) {
	count := 0
	for _, a := range f.attempts {
		if a.UserID == userID && a.AssessmentID == assessmentID && a.Status == models.AttemptSubmitted {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttempts) GetByUserAndAssessment(_ context.Context, _ *gorm.DB, userID string, assessmentID uint) ([]*models.Attempt, error) {
	var out []*models.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID && a.AssessmentID == assessmentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttempts) List(_ context.Context, _ *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var out []*models.Attempt
	for _, a := range f.attempts {
		if filters.UserID != nil && a.UserID != *filters.UserID {
			continue
		}
		if filters.AssessmentID != nil && a.AssessmentID != *filters.AssessmentID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	total := int64(len(out))
	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			out = nil
		} else {
			out = out[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, total, nil
}

func (f *fakeAttempts) GetSubmittedByUsers(_ context.Context, _ *gorm.DB, userIDs []string) ([]*models.Attempt, error) {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []*models.Attempt
	for _, a := range f.attempts {
		if a.Status == models.AttemptSubmitted && wanted[a.UserID] {
			out = append(out, a)
		}
	}
	return out, nil
}

// ===== USERS =====

type fakeUsers fakeRepository

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) GetByCampus(_ context.Context, campusID string) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.users {
		if u.CampusID == campusID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) List(_ context.Context, _ repositories.UserFilters) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUsers) ExistsByID(_ context.Context, id string) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeUsers) HasRole(_ context.Context, id string, role models.UserRole) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	return u.Role == role, nil
}
