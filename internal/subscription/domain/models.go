// Package domain contains persistence models for organization
// subscriptions and their plan limits.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrganizationSubscription is the single active plan row for one
// organization. A nil or non-positive limit means the plan is unlimited
// for that counter.
type OrganizationSubscription struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index" json:"organization_id"`

	ScanLimitPerUserPerMonth *int64 `json:"scan_limit_per_user_per_month,omitempty"`
	DeptAnalysisLimit        *int64 `json:"dept_analysis_limit,omitempty"`
	OrgAnalysisLimit         *int64 `json:"org_analysis_limit,omitempty"`
	MaxUsers                 *int64 `json:"max_users,omitempty"`

	UsedScansTotal   int64 `gorm:"not null;default:0" json:"used_scans_total"`
	UsedDeptAnalyses int64 `gorm:"not null;default:0" json:"used_dept_analyses"`
	UsedOrgAnalyses  int64 `gorm:"not null;default:0" json:"used_org_analyses"`

	// CurrentMonth is the accounting cycle the used counters belong to,
	// formatted "2006-01".
	CurrentMonth    string `gorm:"type:text;not null" json:"current_month"`
	MonthlyResetDay int    `gorm:"not null;default:1" json:"monthly_reset_day"`
	Active          bool   `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrganizationSubscription) TableName() string { return "organization_subscriptions" }
