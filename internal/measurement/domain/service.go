package domain

import (
	"context"
	"errors"
	"time"

	"github.com/wellkit/vitals/pkg/db/pagination"
)

// RecordScanRequest carries one scan result from the boundary layer. The
// raw payload is opaque; acquisition-SDK semantics stay outside this
// service.
type RecordScanRequest struct {
	HeartRate     *float64       `json:"heart_rate"`
	SDNN          *float64       `json:"sdnn"`
	RMSSD         *float64       `json:"rmssd"`
	Stress        *float64       `json:"stress"`
	Fatigue       *float64       `json:"fatigue"`
	CognitiveLoad *float64       `json:"cognitive_load"`
	Recovery      *float64       `json:"recovery"`
	WellnessIndex *float64       `json:"wellness_index"`
	BioAge        *float64       `json:"bio_age"`
	CVRiskScore   *float64       `json:"cv_risk_score"`
	CVRiskLevel   *string        `json:"cv_risk_level"`
	Valid         *bool          `json:"valid"`
	AITokensUsed  int64          `json:"ai_tokens_used"`
	CapturedAt    time.Time      `json:"captured_at"`
	RawPayload    map[string]any `json:"raw_payload"`
}

type ListScansRequest struct {
	pagination.Pagination
}

type ListScansResponse struct {
	pagination.PageInfo
	Scans []Measurement `json:"scans"`
}

type Service interface {
	RecordScan(ctx context.Context, req RecordScanRequest) (*Measurement, error)
	ListOwn(ctx context.Context, req ListScansRequest) (ListScansResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrMissingMetrics      = errors.New("missing_metrics")
	ErrScanLimitReached    = errors.New("scan_limit_reached")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)
