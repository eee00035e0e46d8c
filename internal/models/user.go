package models

import (
	"time"
)

type UserRole string

const (
	RoleTeacher   UserRole = "teacher"
	RoleCoach     UserRole = "coach"
	RolePrincipal UserRole = "principal"
	RoleAdmin     UserRole = "admin"
)

// User is sourced from the directory service (Casdoor) and never written by
// this service. CampusID comes from the directory user's affiliation.
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	CampusID string   `json:"campus_id"`

	AvatarURL     *string `json:"avatar_url,omitempty"`
	EmailVerified bool    `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
