package services

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the service layer. Handlers map these onto
// HTTP status codes.
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrRuleNotFound       = errors.New("assignment rule not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrNotAssigned            = errors.New("assessment is not assigned to this user")
	ErrAttemptLimitExceeded   = errors.New("maximum submitted attempts reached")
	ErrAttemptAlreadyClosed   = errors.New("attempt is already submitted")
	ErrAttemptExpired         = errors.New("attempt time limit has elapsed")
	ErrInvalidAssignmentRule  = errors.New("assignment rule has no targeting dimension")
	ErrUnansweredQuestionRefs = errors.New("answers reference questions outside the attempt snapshot")
)

// PermissionError carries the action the caller was not allowed to take.
type PermissionError struct {
	UserID string
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s is not permitted to %s", e.UserID, e.Action)
}

func NewPermissionError(userID, action string) *PermissionError {
	return &PermissionError{UserID: userID, Action: action}
}

// IsPermissionError reports whether err is a permission failure.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
