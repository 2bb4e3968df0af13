package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	subscriptiondomain "github.com/wellkit/vitals/internal/subscription/domain"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupLedger(t *testing.T) (ledgerdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&subscriptiondomain.OrganizationSubscription{},
		&ledgerdomain.OrganizationUsageSummary{},
		&ledgerdomain.UsageLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node := mustNode(t)
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	return svc, db, node
}

func seedSubscription(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, scanLimit *int64) *subscriptiondomain.OrganizationSubscription {
	t.Helper()
	sub := &subscriptiondomain.OrganizationSubscription{
		ID:                       node.Generate(),
		OrgID:                    orgID,
		ScanLimitPerUserPerMonth: scanLimit,
		CurrentMonth:             ledgerdomain.CycleMonth(time.Now().UTC(), 1),
		MonthlyResetDay:          1,
		Active:                   true,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return sub
}

func i64(v int64) *int64 { return &v }

func TestRecordScanIncrementsCounters(t *testing.T) {
	svc, db, node := setupLedger(t)
	orgID := node.Generate()
	userID := node.Generate()
	sub := seedSubscription(t, db, node, orgID, i64(10))

	ctx := context.Background()
	if err := svc.RecordScan(ctx, orgID, userID, true, 300); err != nil {
		t.Fatalf("record valid scan: %v", err)
	}
	if err := svc.RecordScan(ctx, orgID, userID, false, 0); err != nil {
		t.Fatalf("record invalid scan: %v", err)
	}

	var stored subscriptiondomain.OrganizationSubscription
	if err := db.First(&stored, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if stored.UsedScansTotal != 2 {
		t.Fatalf("expected used_scans_total 2, got %d", stored.UsedScansTotal)
	}

	summary, err := svc.CurrentMonthUsage(ctx, orgID)
	if err != nil {
		t.Fatalf("current month usage: %v", err)
	}
	if summary == nil {
		t.Fatal("expected a usage summary row")
	}
	if summary.TotalScans != 2 || summary.TotalValidScans != 1 || summary.TotalInvalidScans != 1 {
		t.Fatalf("unexpected summary counters: %+v", summary)
	}
	if summary.TotalAIPrompts != 2 {
		t.Fatalf("expected 2 prompts, got %d", summary.TotalAIPrompts)
	}
	if summary.TotalAITokensUsed != 300 {
		t.Fatalf("expected 300 tokens, got %d", summary.TotalAITokensUsed)
	}

	logs, err := svc.RecentLogs(ctx, orgID, time.Now().UTC().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 usage logs, got %d", len(logs))
	}
	for _, entry := range logs {
		if entry.Action != ledgerdomain.ActionScanRecorded {
			t.Fatalf("expected action %s, got %s", ledgerdomain.ActionScanRecorded, entry.Action)
		}
	}
}

func TestRecordScanLimitReached(t *testing.T) {
	svc, db, node := setupLedger(t)
	orgID := node.Generate()
	userID := node.Generate()
	seedSubscription(t, db, node, orgID, i64(1))

	ctx := context.Background()
	if err := svc.RecordScan(ctx, orgID, userID, true, 0); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	err := svc.RecordScan(ctx, orgID, userID, true, 0)
	if !errors.Is(err, ledgerdomain.ErrScanLimitReached) {
		t.Fatalf("expected ErrScanLimitReached, got %v", err)
	}

	summary, err := svc.CurrentMonthUsage(ctx, orgID)
	if err != nil {
		t.Fatalf("current month usage: %v", err)
	}
	if summary == nil || !summary.ScanLimitReached {
		t.Fatalf("expected scan_limit_reached flag, got %+v", summary)
	}
	// The rejected attempt must not inflate the scan totals.
	if summary.TotalScans != 1 {
		t.Fatalf("expected total_scans 1, got %d", summary.TotalScans)
	}

	logs, err := svc.RecentLogs(ctx, orgID, time.Now().UTC().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	var rejected bool
	for _, entry := range logs {
		if entry.Action == ledgerdomain.ActionScanRejected {
			rejected = true
		}
	}
	if !rejected {
		t.Fatal("expected a scan.rejected log entry")
	}
}

func TestRecordScanUnlimitedPlan(t *testing.T) {
	svc, db, node := setupLedger(t)
	orgID := node.Generate()
	userID := node.Generate()
	seedSubscription(t, db, node, orgID, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := svc.RecordScan(ctx, orgID, userID, true, 0); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}
}

func TestRecordScanMonthlyRollover(t *testing.T) {
	svc, db, node := setupLedger(t)
	orgID := node.Generate()
	userID := node.Generate()
	sub := seedSubscription(t, db, node, orgID, i64(10))

	// Simulate a subscription last touched in a previous cycle.
	if err := db.Model(sub).Updates(map[string]any{
		"current_month":    "2020-01",
		"used_scans_total": 9,
	}).Error; err != nil {
		t.Fatalf("backdate subscription: %v", err)
	}

	ctx := context.Background()
	if err := svc.RecordScan(ctx, orgID, userID, true, 0); err != nil {
		t.Fatalf("record scan after rollover: %v", err)
	}

	var stored subscriptiondomain.OrganizationSubscription
	if err := db.First(&stored, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	wantMonth := ledgerdomain.CycleMonth(time.Now().UTC(), sub.MonthlyResetDay)
	if stored.CurrentMonth != wantMonth {
		t.Fatalf("expected current_month %s, got %s", wantMonth, stored.CurrentMonth)
	}
	if stored.UsedScansTotal != 1 {
		t.Fatalf("expected counters reset then incremented to 1, got %d", stored.UsedScansTotal)
	}

	logs, err := svc.RecentLogs(ctx, orgID, time.Now().UTC().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	var reset bool
	for _, entry := range logs {
		if entry.Action == ledgerdomain.ActionMonthlyReset {
			reset = true
		}
	}
	if !reset {
		t.Fatal("expected a usage.monthly_reset log entry")
	}
}

func TestRecordScanNoSubscription(t *testing.T) {
	svc, _, node := setupLedger(t)
	orgID := node.Generate()

	err := svc.RecordScan(context.Background(), orgID, node.Generate(), true, 0)
	if !errors.Is(err, ledgerdomain.ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestRecordScanInvalidOrganization(t *testing.T) {
	svc, _, node := setupLedger(t)

	err := svc.RecordScan(context.Background(), 0, node.Generate(), true, 0)
	if !errors.Is(err, ledgerdomain.ErrInvalidOrganization) {
		t.Fatalf("expected ErrInvalidOrganization, got %v", err)
	}
}

func TestRecordAnalysisLimits(t *testing.T) {
	svc, db, node := setupLedger(t)
	orgID := node.Generate()
	sub := seedSubscription(t, db, node, orgID, nil)
	if err := db.Model(sub).Update("dept_analysis_limit", 1).Error; err != nil {
		t.Fatalf("set dept limit: %v", err)
	}

	ctx := context.Background()
	if err := svc.RecordAnalysis(ctx, orgID, ledgerdomain.AnalysisScopeDepartment); err != nil {
		t.Fatalf("first dept analysis: %v", err)
	}
	err := svc.RecordAnalysis(ctx, orgID, ledgerdomain.AnalysisScopeDepartment)
	if !errors.Is(err, ledgerdomain.ErrAnalysisLimitReached) {
		t.Fatalf("expected ErrAnalysisLimitReached, got %v", err)
	}

	// Org analyses are unlimited on this plan and unaffected by the dept counter.
	if err := svc.RecordAnalysis(ctx, orgID, ledgerdomain.AnalysisScopeOrganization); err != nil {
		t.Fatalf("org analysis: %v", err)
	}

	if err := svc.RecordAnalysis(ctx, orgID, ledgerdomain.AnalysisScope("team")); !errors.Is(err, ledgerdomain.ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestActiveSubscriptionPicksNewest(t *testing.T) {
	svc, db, node := setupLedger(t)
	orgID := node.Generate()

	older := seedSubscription(t, db, node, orgID, i64(5))
	if err := db.Model(older).Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error; err != nil {
		t.Fatalf("backdate older subscription: %v", err)
	}
	newer := seedSubscription(t, db, node, orgID, i64(50))

	sub, err := svc.ActiveSubscription(context.Background(), orgID)
	if err != nil {
		t.Fatalf("active subscription: %v", err)
	}
	if sub == nil || sub.ID != newer.ID {
		t.Fatalf("expected newest subscription %v, got %+v", newer.ID, sub)
	}
}

func TestMonthlySummariesOrderedAndCapped(t *testing.T) {
	svc, db, node := setupLedger(t)
	orgID := node.Generate()

	for _, month := range []string{"2026-01", "2026-02", "2026-03"} {
		row := &ledgerdomain.OrganizationUsageSummary{
			ID:         node.Generate(),
			OrgID:      orgID,
			Month:      month,
			TotalScans: 1,
		}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed summary %s: %v", month, err)
		}
	}

	summaries, err := svc.MonthlySummaries(context.Background(), orgID, 2)
	if err != nil {
		t.Fatalf("monthly summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Month != "2026-03" || summaries[1].Month != "2026-02" {
		t.Fatalf("expected newest-first ordering, got %s then %s", summaries[0].Month, summaries[1].Month)
	}
}
