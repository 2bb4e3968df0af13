// Package domain contains persistence models and pure computations for
// subscription usage accounting.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrganizationUsageSummary aggregates billable activity for one
// organization in one calendar month. Counters only ever grow within a
// month.
type OrganizationUsageSummary struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;uniqueIndex:idx_org_month" json:"organization_id"`
	Month string       `gorm:"type:text;not null;uniqueIndex:idx_org_month" json:"month"`

	TotalScans        int64 `gorm:"not null;default:0" json:"total_scans"`
	TotalValidScans   int64 `gorm:"not null;default:0" json:"total_valid_scans"`
	TotalInvalidScans int64 `gorm:"not null;default:0" json:"total_invalid_scans"`
	TotalAIPrompts    int64 `gorm:"column:total_ai_prompts;not null;default:0" json:"total_ai_prompts"`
	TotalAITokensUsed int64 `gorm:"column:total_ai_tokens_used;not null;default:0" json:"total_ai_tokens_used"`
	ScanLimitReached  bool  `gorm:"not null;default:false" json:"scan_limit_reached"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrganizationUsageSummary) TableName() string { return "organization_usage_summaries" }

// UsageLog is one billable event, kept for the admin activity feed.
type UsageLog struct {
	ID       snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID    snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	UserID   *snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	Action   string        `gorm:"type:text;not null" json:"action"`
	Valid    *bool         `json:"valid,omitempty"`
	AITokens int64         `gorm:"column:ai_tokens;not null;default:0" json:"ai_tokens"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (UsageLog) TableName() string { return "usage_logs" }

const (
	ActionScanRecorded = "scan.recorded"
	ActionScanRejected = "scan.rejected"
	ActionDeptAnalysis = "analysis.department"
	ActionOrgAnalysis  = "analysis.organization"
	ActionMonthlyReset = "usage.monthly_reset"
)

// CycleMonth returns the accounting month ("2006-01") the given instant
// belongs to, for a plan that resets on resetDay. Days before the reset
// day still bill into the previous cycle.
func CycleMonth(now time.Time, resetDay int) string {
	if resetDay < 1 || resetDay > 28 {
		resetDay = 1
	}
	now = now.UTC()
	if now.Day() < resetDay {
		now = now.AddDate(0, -1, 0)
	}
	return now.Format("2006-01")
}
