package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wellkit/vitals/internal/observability/metrics"
	subscriptiondomain "github.com/wellkit/vitals/internal/subscription/domain"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
	"github.com/wellkit/vitals/pkg/db/option"
	"github.com/wellkit/vitals/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *metrics.Metrics

	subrepo repository.Repository[subscriptiondomain.OrganizationSubscription]
	sumrepo repository.Repository[ledgerdomain.OrganizationUsageSummary]
	logrepo repository.Repository[ledgerdomain.UsageLog]
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usageledger.service"),
		genID:   p.GenID,
		metrics: p.Metrics,
		subrepo: repository.ProvideStore[subscriptiondomain.OrganizationSubscription](p.DB),
		sumrepo: repository.ProvideStore[ledgerdomain.OrganizationUsageSummary](p.DB),
		logrepo: repository.ProvideStore[ledgerdomain.UsageLog](p.DB),
	}
}

// ActiveSubscription returns the organization's active plan row. When
// duplicates exist the most recently created row wins; it reflects the
// latest plan change.
func (s *Service) ActiveSubscription(ctx context.Context, orgID snowflake.ID) (*subscriptiondomain.OrganizationSubscription, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	return s.subrepo.FindOne(ctx,
		&subscriptiondomain.OrganizationSubscription{OrgID: orgID, Active: true},
		option.WithOrder("created_at desc, id desc"),
	)
}

func (s *Service) RecordScan(ctx context.Context, orgID snowflake.ID, userID snowflake.ID, valid bool, aiTokens int64) error {
	if orgID == 0 {
		return ledgerdomain.ErrInvalidOrganization
	}

	sub, err := s.ActiveSubscription(ctx, orgID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ledgerdomain.ErrNoActiveSubscription
	}

	now := time.Now().UTC()
	month := ledgerdomain.CycleMonth(now, sub.MonthlyResetDay)
	if sub.CurrentMonth != month {
		if err := s.rollover(ctx, sub.ID, orgID, month, now); err != nil {
			return err
		}
	}

	// Single guarded statement: the quota check and the increment happen
	// in one UPDATE, so concurrent scans cannot lose increments or
	// overshoot the limit.
	res := s.db.WithContext(ctx).Exec(
		`UPDATE organization_subscriptions
		 SET used_scans_total = used_scans_total + 1, updated_at = ?
		 WHERE id = ? AND active = ?
		   AND (scan_limit_per_user_per_month IS NULL
		        OR scan_limit_per_user_per_month <= 0
		        OR used_scans_total < scan_limit_per_user_per_month)`,
		now, sub.ID, true,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		s.metrics.RecordQuotaDenied(ctx, orgID.String(), "scan_limit")
		if err := s.markLimitReached(ctx, orgID, month, now); err != nil {
			s.log.Warn("mark limit reached", zap.String("org_id", orgID.String()), zap.Error(err))
		}
		s.appendLog(ctx, orgID, &userID, ledgerdomain.ActionScanRejected, nil, 0, now)
		return ledgerdomain.ErrScanLimitReached
	}

	if err := s.bumpSummary(ctx, orgID, month, valid, aiTokens, now); err != nil {
		return err
	}

	s.appendLog(ctx, orgID, &userID, ledgerdomain.ActionScanRecorded, &valid, aiTokens, now)
	return nil
}

func (s *Service) RecordAnalysis(ctx context.Context, orgID snowflake.ID, scope ledgerdomain.AnalysisScope) error {
	if orgID == 0 {
		return ledgerdomain.ErrInvalidOrganization
	}

	var counter, limit, action string
	switch scope {
	case ledgerdomain.AnalysisScopeDepartment:
		counter, limit, action = "used_dept_analyses", "dept_analysis_limit", ledgerdomain.ActionDeptAnalysis
	case ledgerdomain.AnalysisScopeOrganization:
		counter, limit, action = "used_org_analyses", "org_analysis_limit", ledgerdomain.ActionOrgAnalysis
	default:
		return ledgerdomain.ErrInvalidScope
	}

	sub, err := s.ActiveSubscription(ctx, orgID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ledgerdomain.ErrNoActiveSubscription
	}

	now := time.Now().UTC()
	month := ledgerdomain.CycleMonth(now, sub.MonthlyResetDay)
	if sub.CurrentMonth != month {
		if err := s.rollover(ctx, sub.ID, orgID, month, now); err != nil {
			return err
		}
	}

	res := s.db.WithContext(ctx).Exec(
		`UPDATE organization_subscriptions
		 SET `+counter+` = `+counter+` + 1, updated_at = ?
		 WHERE id = ? AND active = ?
		   AND (`+limit+` IS NULL OR `+limit+` <= 0 OR `+counter+` < `+limit+`)`,
		now, sub.ID, true,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		s.metrics.RecordQuotaDenied(ctx, orgID.String(), string(scope)+"_analysis_limit")
		return ledgerdomain.ErrAnalysisLimitReached
	}

	s.appendLog(ctx, orgID, nil, action, nil, 0, now)
	return nil
}

func (s *Service) CurrentMonthUsage(ctx context.Context, orgID snowflake.ID) (*ledgerdomain.OrganizationUsageSummary, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}

	sub, err := s.ActiveSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	resetDay := 1
	if sub != nil {
		resetDay = sub.MonthlyResetDay
	}

	month := ledgerdomain.CycleMonth(time.Now().UTC(), resetDay)
	return s.sumrepo.FindOne(ctx, &ledgerdomain.OrganizationUsageSummary{OrgID: orgID, Month: month})
}

func (s *Service) MonthlySummaries(ctx context.Context, orgID snowflake.ID, months int) ([]ledgerdomain.OrganizationUsageSummary, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if months <= 0 {
		months = 6
	}

	rows, err := s.sumrepo.Find(ctx,
		&ledgerdomain.OrganizationUsageSummary{OrgID: orgID},
		option.WithOrder("month desc"),
		option.WithLimit(months),
	)
	if err != nil {
		return nil, err
	}

	summaries := make([]ledgerdomain.OrganizationUsageSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, *row)
	}
	return summaries, nil
}

func (s *Service) RecentLogs(ctx context.Context, orgID snowflake.ID, since time.Time, limit int) ([]ledgerdomain.UsageLog, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.logrepo.Find(ctx,
		&ledgerdomain.UsageLog{OrgID: orgID},
		option.WithCreatedSince(since),
		option.WithOrder("created_at desc, id desc"),
		option.WithLimit(limit),
	)
	if err != nil {
		return nil, err
	}

	logs := make([]ledgerdomain.UsageLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, *row)
	}
	return logs, nil
}

// rollover resets the plan counters when the cycle month changes. The
// statement is conditional on the stored month, so concurrent callers
// reset at most once.
func (s *Service) rollover(ctx context.Context, subID, orgID snowflake.ID, month string, now time.Time) error {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE organization_subscriptions
		 SET used_scans_total = 0, used_dept_analyses = 0, used_org_analyses = 0,
		     current_month = ?, updated_at = ?
		 WHERE id = ? AND current_month <> ?`,
		month, now, subID, month,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Info("monthly usage reset",
			zap.String("org_id", orgID.String()),
			zap.String("month", month),
		)
		s.appendLog(ctx, orgID, nil, ledgerdomain.ActionMonthlyReset, nil, 0, now)
	}
	return nil
}

func (s *Service) bumpSummary(ctx context.Context, orgID snowflake.ID, month string, valid bool, aiTokens int64, now time.Time) error {
	summary := ledgerdomain.OrganizationUsageSummary{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		Month:             month,
		TotalScans:        1,
		TotalAIPrompts:    1,
		TotalAITokensUsed: aiTokens,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if valid {
		summary.TotalValidScans = 1
	} else {
		summary.TotalInvalidScans = 1
	}

	assignments := map[string]any{
		"total_scans":          gorm.Expr("total_scans + 1"),
		"total_ai_prompts":     gorm.Expr("total_ai_prompts + 1"),
		"total_ai_tokens_used": gorm.Expr("total_ai_tokens_used + ?", aiTokens),
		"updated_at":           now,
	}
	if valid {
		assignments["total_valid_scans"] = gorm.Expr("total_valid_scans + 1")
	} else {
		assignments["total_invalid_scans"] = gorm.Expr("total_invalid_scans + 1")
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "org_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&summary).Error
}

func (s *Service) markLimitReached(ctx context.Context, orgID snowflake.ID, month string, now time.Time) error {
	summary := ledgerdomain.OrganizationUsageSummary{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		Month:            month,
		ScanLimitReached: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]any{
			"scan_limit_reached": true,
			"updated_at":         now,
		}),
	}).Create(&summary).Error
}

// appendLog writes the activity row; a failed write is logged, not
// surfaced, since the counters are already committed.
func (s *Service) appendLog(ctx context.Context, orgID snowflake.ID, userID *snowflake.ID, action string, valid *bool, aiTokens int64, now time.Time) {
	entry := &ledgerdomain.UsageLog{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Valid:     valid,
		AITokens:  aiTokens,
		CreatedAt: now,
	}
	if err := s.logrepo.Create(ctx, entry); err != nil {
		s.log.Warn("append usage log",
			zap.String("org_id", orgID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
