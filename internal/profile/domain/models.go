// Package domain contains persistence models for user profiles.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the caller's platform role; it decides which dashboard a user
// may read.
type Role string

const (
	RoleEmployee      Role = "employee"
	RoleLeader        Role = "leader"
	RoleHR            Role = "hr"
	RoleAdmin         Role = "admin"
	RoleAdminPlatform Role = "admin_platform"
)

// Valid reports whether the role is one the platform knows.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleLeader, RoleHR, RoleAdmin, RoleAdminPlatform:
		return true
	default:
		return false
	}
}

// UserProfile ties a user to an organization and optional department.
// Organization and department membership determine visibility scope for
// every aggregation.
type UserProfile struct {
	UserID       snowflake.ID  `gorm:"primaryKey" json:"user_id"`
	OrgID        snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	DepartmentID *snowflake.ID `gorm:"index" json:"department_id,omitempty"`
	FullName     string        `gorm:"type:text;not null" json:"full_name"`
	Email        string        `gorm:"type:text;not null" json:"email"`
	Role         Role          `gorm:"type:text;not null" json:"role"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UserProfile) TableName() string { return "user_profiles" }
