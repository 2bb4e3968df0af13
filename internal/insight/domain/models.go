// Package domain contains persistence models for precomputed analytical
// snapshots. Insights are produced by an external analysis job and are
// read-only here.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DepartmentInsight is the latest analytical snapshot for one department.
// Snapshots can be revised in place, so consumers order by updated_at,
// not created_at.
type DepartmentInsight struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	DepartmentID snowflake.ID `gorm:"not null;index" json:"department_id"`
	Period       string       `gorm:"type:text;not null" json:"period"`
	AvgHeartRate *float64     `json:"avg_heart_rate,omitempty"`
	AvgStress    *float64     `json:"avg_stress,omitempty"`
	AvgFatigue   *float64     `json:"avg_fatigue,omitempty"`
	AvgRecovery  *float64     `json:"avg_recovery,omitempty"`
	AvgWellness  *float64     `json:"avg_wellness_index,omitempty"`
	SummaryText  string       `gorm:"type:text" json:"summary_text"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DepartmentInsight) TableName() string { return "department_insights" }

// OrganizationInsight is the analogous snapshot at organization granularity.
type OrganizationInsight struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID `gorm:"not null;index" json:"organization_id"`
	Period       string       `gorm:"type:text;not null" json:"period"`
	AvgHeartRate *float64     `json:"avg_heart_rate,omitempty"`
	AvgStress    *float64     `json:"avg_stress,omitempty"`
	AvgFatigue   *float64     `json:"avg_fatigue,omitempty"`
	AvgRecovery  *float64     `json:"avg_recovery,omitempty"`
	AvgWellness  *float64     `json:"avg_wellness_index,omitempty"`
	SummaryText  string       `gorm:"type:text" json:"summary_text"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrganizationInsight) TableName() string { return "organization_insights" }
