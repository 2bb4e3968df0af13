package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/wellkit/vitals/internal/subscription/domain"
)

// AnalysisScope distinguishes department-level from organization-level
// analysis runs for quota purposes.
type AnalysisScope string

const (
	AnalysisScopeDepartment   AnalysisScope = "department"
	AnalysisScopeOrganization AnalysisScope = "organization"
)

type Service interface {
	// RecordScan accounts one scan against the organization's plan. The
	// counter increment is a single conditional UPDATE, so concurrent
	// scans for the same organization never lose increments.
	RecordScan(ctx context.Context, orgID snowflake.ID, userID snowflake.ID, valid bool, aiTokens int64) error

	// RecordAnalysis accounts one department or organization analysis run.
	RecordAnalysis(ctx context.Context, orgID snowflake.ID, scope AnalysisScope) error

	ActiveSubscription(ctx context.Context, orgID snowflake.ID) (*subscriptiondomain.OrganizationSubscription, error)
	CurrentMonthUsage(ctx context.Context, orgID snowflake.ID) (*OrganizationUsageSummary, error)
	MonthlySummaries(ctx context.Context, orgID snowflake.ID, months int) ([]OrganizationUsageSummary, error)
	RecentLogs(ctx context.Context, orgID snowflake.ID, since time.Time, limit int) ([]UsageLog, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrNoActiveSubscription = errors.New("no_active_subscription")
	ErrScanLimitReached     = errors.New("scan_limit_reached")
	ErrAnalysisLimitReached = errors.New("analysis_limit_reached")
	ErrInvalidScope         = errors.New("invalid_analysis_scope")
)
