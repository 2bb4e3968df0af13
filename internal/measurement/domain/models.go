// Package domain contains persistence models for biometric measurements.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Measurement is one biometric scan result for one user at one point in
// time. Rows are immutable once created.
type Measurement struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID      `gorm:"not null;index" json:"user_id"`
	CapturedAt    time.Time         `gorm:"not null;index" json:"captured_at"`
	HeartRate     *float64          `json:"heart_rate,omitempty"`
	SDNN          *float64          `gorm:"column:sdnn" json:"sdnn,omitempty"`
	RMSSD         *float64          `gorm:"column:rmssd" json:"rmssd,omitempty"`
	Stress        *float64          `json:"stress,omitempty"`
	Fatigue       *float64          `json:"fatigue,omitempty"`
	CognitiveLoad *float64          `json:"cognitive_load,omitempty"`
	Recovery      *float64          `json:"recovery,omitempty"`
	WellnessIndex *float64          `json:"wellness_index,omitempty"`
	BioAge        *float64          `json:"bio_age,omitempty"`
	CVRiskScore   *float64          `gorm:"column:cv_risk_score" json:"cv_risk_score,omitempty"`
	CVRiskLevel   *string           `gorm:"column:cv_risk_level;type:text" json:"cv_risk_level,omitempty"`
	Valid         bool              `gorm:"not null;default:true" json:"valid"`
	RawPayload    datatypes.JSONMap `gorm:"type:jsonb" json:"raw_payload,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Measurement) TableName() string { return "measurements" }
