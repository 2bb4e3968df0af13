package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	dashboarddomain "github.com/wellkit/vitals/internal/dashboard/domain"
	departmentdomain "github.com/wellkit/vitals/internal/department/domain"
	insightdomain "github.com/wellkit/vitals/internal/insight/domain"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
	"github.com/wellkit/vitals/internal/observability/metrics"
	profiledomain "github.com/wellkit/vitals/internal/profile/domain"
	"github.com/wellkit/vitals/internal/summarizer"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
	"github.com/wellkit/vitals/pkg/db/option"
	"github.com/wellkit/vitals/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	historyWindow    = 30 * 24 * time.Hour
	adminScanWindow  = 7 * 24 * time.Hour
	usageLogWindow   = 30 * 24 * time.Hour
	leaderScanCap    = 20
	usageLogFetchCap = 100
	usageLogViewCap  = 20
	adminScanCap     = 10
	hrSummaryMonths  = 6
	adminSummaryMons = 12
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Ledger  ledgerdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	ledger  ledgerdomain.Service
	metrics *metrics.Metrics

	profiles     repository.Repository[profiledomain.UserProfile]
	measurements repository.Repository[measurementdomain.Measurement]
	departments  repository.Repository[departmentdomain.Department]
	deptInsights repository.Repository[insightdomain.DepartmentInsight]
	orgInsights  repository.Repository[insightdomain.OrganizationInsight]
}

func NewService(p Params) dashboarddomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("dashboard.service"),
		ledger:       p.Ledger,
		metrics:      p.Metrics,
		profiles:     repository.ProvideStore[profiledomain.UserProfile](p.DB),
		measurements: repository.ProvideStore[measurementdomain.Measurement](p.DB),
		departments:  repository.ProvideStore[departmentdomain.Department](p.DB),
		deptInsights: repository.ProvideStore[insightdomain.DepartmentInsight](p.DB),
		orgInsights:  repository.ProvideStore[insightdomain.OrganizationInsight](p.DB),
	}
}

// resolveScope loads the caller's profile, the single source of truth for
// organization and department visibility. Every view goes through here so
// the tenant invariant is enforced once, not per call site.
func (s *Service) resolveScope(ctx context.Context, userID snowflake.ID) (*profiledomain.UserProfile, error) {
	prof, err := s.profiles.FindOne(ctx, &profiledomain.UserProfile{UserID: userID})
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, dashboarddomain.ErrProfileNotFound
	}
	return prof, nil
}

func (s *Service) EmployeeView(ctx context.Context, userID snowflake.ID) (*dashboarddomain.EmployeeView, error) {
	prof, err := s.resolveScope(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "employee_view", userID, err)
	}

	history, err := s.measurements.Find(ctx,
		&measurementdomain.Measurement{UserID: userID},
		option.WithWhere("captured_at >= ?", time.Now().UTC().Add(-historyWindow)),
		option.WithOrder("captured_at desc, id desc"),
	)
	if err != nil {
		return nil, s.fail(ctx, "employee_view", userID, err)
	}

	// The latest scan is not windowed: a user whose newest measurement
	// predates the history window still sees it. Null means the user has
	// never scanned at all.
	latest, err := s.measurements.Find(ctx,
		&measurementdomain.Measurement{UserID: userID},
		option.WithOrder("captured_at desc, id desc"),
		option.WithLimit(1),
	)
	if err != nil {
		return nil, s.fail(ctx, "employee_view", userID, err)
	}

	// Zero measurements is a valid state: an empty history, a nil latest
	// scan and empty trends, never an error.
	view := &dashboarddomain.EmployeeView{
		Profile:     *prof,
		ScanHistory: derefAll(history),
		TotalScans:  len(history),
		Trends:      summarizer.WindowTrends(history),
	}
	if len(latest) > 0 {
		view.LatestScan = latest[0]
	}

	s.metrics.RecordDashboardView(ctx, string(profiledomain.RoleEmployee))
	return view, nil
}

func (s *Service) LeaderView(ctx context.Context, userID snowflake.ID) (*dashboarddomain.LeaderView, error) {
	prof, err := s.resolveScope(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "leader_view", userID, err)
	}
	if prof.DepartmentID == nil || prof.OrgID == 0 {
		return nil, dashboarddomain.ErrNotAssigned
	}

	dept, err := s.departments.FindOne(ctx, &departmentdomain.Department{ID: *prof.DepartmentID, OrgID: prof.OrgID})
	if err != nil {
		return nil, s.fail(ctx, "leader_view", userID, err)
	}
	if dept == nil {
		return nil, dashboarddomain.ErrNotAssigned
	}

	// Both predicates are load-bearing: a department id collision across
	// organizations must never leak another tenant's people.
	roster, err := s.profiles.Find(ctx, &profiledomain.UserProfile{
		DepartmentID: prof.DepartmentID,
		OrgID:        prof.OrgID,
	})
	if err != nil {
		return nil, s.fail(ctx, "leader_view", userID, err)
	}

	memberIDs := make([]snowflake.ID, 0, len(roster))
	for _, member := range roster {
		memberIDs = append(memberIDs, member.UserID)
	}

	scans, err := s.measurementsForUsers(ctx, memberIDs, historyWindow, 0)
	if err != nil {
		return nil, s.fail(ctx, "leader_view", userID, err)
	}

	insight, err := s.deptInsights.FindOne(ctx,
		&insightdomain.DepartmentInsight{DepartmentID: *prof.DepartmentID},
		option.WithOrder("updated_at desc"),
	)
	if err != nil {
		return nil, s.fail(ctx, "leader_view", userID, err)
	}

	recent := scans
	if len(recent) > leaderScanCap {
		recent = recent[:leaderScanCap]
	}

	s.metrics.RecordDashboardView(ctx, string(profiledomain.RoleLeader))
	return &dashboarddomain.LeaderView{
		Department:        *dept,
		TeamSize:          len(roster),
		Roster:            derefAll(roster),
		RecentScans:       derefAll(recent),
		TeamMetrics:       summarizer.Summarize(scans),
		DepartmentInsight: insight,
		TotalScans:        int64(len(scans)),
	}, nil
}

func (s *Service) HRView(ctx context.Context, userID snowflake.ID) (*dashboarddomain.HRView, error) {
	prof, err := s.resolveScope(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "hr_view", userID, err)
	}
	if prof.OrgID == 0 {
		return nil, dashboarddomain.ErrNotAssigned
	}

	orgInsight, err := s.orgInsights.FindOne(ctx,
		&insightdomain.OrganizationInsight{OrgID: prof.OrgID},
		option.WithOrder("updated_at desc"),
	)
	if err != nil {
		return nil, s.fail(ctx, "hr_view", userID, err)
	}

	departments, err := s.departments.Find(ctx,
		&departmentdomain.Department{OrgID: prof.OrgID},
		option.WithOrder("name asc"),
	)
	if err != nil {
		return nil, s.fail(ctx, "hr_view", userID, err)
	}

	// Departments with no snapshot yet are omitted from the list but still
	// counted; the count reflects the org, the list reflects the data.
	snapshots := make([]dashboarddomain.DepartmentSnapshot, 0, len(departments))
	for _, dept := range departments {
		insight, err := s.deptInsights.FindOne(ctx,
			&insightdomain.DepartmentInsight{DepartmentID: dept.ID},
			option.WithOrder("updated_at desc"),
		)
		if err != nil {
			return nil, s.fail(ctx, "hr_view", userID, err)
		}
		if insight == nil {
			continue
		}
		snapshots = append(snapshots, dashboarddomain.DepartmentSnapshot{
			Department: *dept,
			Insight:    *insight,
		})
	}

	summaries, err := s.ledger.MonthlySummaries(ctx, prof.OrgID, hrSummaryMonths)
	if err != nil {
		return nil, s.fail(ctx, "hr_view", userID, err)
	}

	members, err := s.profiles.Count(ctx, &profiledomain.UserProfile{OrgID: prof.OrgID})
	if err != nil {
		return nil, s.fail(ctx, "hr_view", userID, err)
	}

	s.metrics.RecordDashboardView(ctx, string(profiledomain.RoleHR))
	return &dashboarddomain.HRView{
		OrganizationInsight: orgInsight,
		Departments:         snapshots,
		DepartmentsCount:    len(departments),
		UsageSummaries:      summaries,
		MembersCount:        members,
	}, nil
}

func (s *Service) AdminView(ctx context.Context, userID snowflake.ID) (*dashboarddomain.AdminView, error) {
	prof, err := s.resolveScope(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "admin_view", userID, err)
	}
	if prof.OrgID == 0 {
		return nil, dashboarddomain.ErrNotAssigned
	}

	sub, err := s.ledger.ActiveSubscription(ctx, prof.OrgID)
	if err != nil {
		return nil, s.fail(ctx, "admin_view", userID, err)
	}

	currentUsage, err := s.ledger.CurrentMonthUsage(ctx, prof.OrgID)
	if err != nil {
		return nil, s.fail(ctx, "admin_view", userID, err)
	}

	logs, err := s.ledger.RecentLogs(ctx, prof.OrgID, time.Now().UTC().Add(-usageLogWindow), usageLogFetchCap)
	if err != nil {
		return nil, s.fail(ctx, "admin_view", userID, err)
	}
	if len(logs) > usageLogViewCap {
		logs = logs[:usageLogViewCap]
	}

	summaries, err := s.ledger.MonthlySummaries(ctx, prof.OrgID, adminSummaryMons)
	if err != nil {
		return nil, s.fail(ctx, "admin_view", userID, err)
	}

	members, err := s.profiles.Find(ctx, &profiledomain.UserProfile{OrgID: prof.OrgID})
	if err != nil {
		return nil, s.fail(ctx, "admin_view", userID, err)
	}
	memberIDs := make([]snowflake.ID, 0, len(members))
	for _, member := range members {
		memberIDs = append(memberIDs, member.UserID)
	}

	recentScans, err := s.measurementsForUsers(ctx, memberIDs, adminScanWindow, 0)
	if err != nil {
		return nil, s.fail(ctx, "admin_view", userID, err)
	}

	sample := recentScans
	if len(sample) > adminScanCap {
		sample = sample[:adminScanCap]
	}

	s.metrics.RecordDashboardView(ctx, string(profiledomain.RoleAdmin))
	return &dashboarddomain.AdminView{
		Subscription:     sub,
		Consumption:      ledgerdomain.ComputeConsumptionMetrics(sub, currentUsage),
		RecentUsageLogs:  logs,
		MonthlySummaries: summaries,
		RecentScanCount:  len(recentScans),
		RecentScans:      derefAll(sample),
	}, nil
}

func (s *Service) measurementsForUsers(ctx context.Context, userIDs []snowflake.ID, window time.Duration, limit int) ([]*measurementdomain.Measurement, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	opts := []option.QueryOption{
		option.WithWhere("user_id IN ?", userIDs),
		option.WithWhere("captured_at >= ?", time.Now().UTC().Add(-window)),
		option.WithOrder("captured_at desc, id desc"),
	}
	if limit > 0 {
		opts = append(opts, option.WithLimit(limit))
	}

	return s.measurements.Find(ctx, &measurementdomain.Measurement{}, opts...)
}

// fail logs upstream errors with operation context before surfacing them.
// Scope errors pass through untouched so the boundary can tell them apart.
func (s *Service) fail(_ context.Context, op string, userID snowflake.ID, err error) error {
	switch err {
	case dashboarddomain.ErrProfileNotFound, dashboarddomain.ErrNotAssigned:
		return err
	}
	s.log.Error("dashboard aggregation failed",
		zap.String("operation", op),
		zap.String("user_id", userID.String()),
		zap.Error(err),
	)
	return err
}

func derefAll[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}
