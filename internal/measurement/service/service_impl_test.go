package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/wellkit/vitals/internal/audit/domain"
	auditservice "github.com/wellkit/vitals/internal/audit/service"
	"github.com/wellkit/vitals/internal/identity"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
	"github.com/wellkit/vitals/internal/orgcontext"
	subscriptiondomain "github.com/wellkit/vitals/internal/subscription/domain"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
	ledgerservice "github.com/wellkit/vitals/internal/usageledger/service"
	"github.com/wellkit/vitals/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func pageRequest(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}

func setupScanService(t *testing.T) (measurementdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&measurementdomain.Measurement{},
		&subscriptiondomain.OrganizationSubscription{},
		&ledgerdomain.OrganizationUsageSummary{},
		&ledgerdomain.UsageLog{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	log := zap.NewNop()
	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node})
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node})
	svc := NewService(Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Ledger: ledger,
		Audit:  audit,
	})

	return svc, db, node
}

func callerContext(userID, orgID snowflake.ID) context.Context {
	ctx := identity.WithIdentity(context.Background(), &identity.Identity{
		UserID: userID,
		Role:   "employee",
		OrgID:  &orgID,
	})
	return orgcontext.WithScope(ctx, orgcontext.Scope{OrgID: orgID})
}

func seedActivePlan(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, scanLimit *int64) {
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
}

func fptr(v float64) *float64 { return &v }

func TestRecordScanPersistsAndAudits(t *testing.T) {
	svc, db, node := setupScanService(t)
	orgID := node.Generate()
	userID := node.Generate()
	seedActivePlan(t, db, node, orgID, nil)

	ctx := callerContext(userID, orgID)
	scan, err := svc.RecordScan(ctx, measurementdomain.RecordScanRequest{
		HeartRate:     fptr(72),
		WellnessIndex: fptr(64.5),
		AITokensUsed:  150,
	})
	if err != nil {
		t.Fatalf("record scan: %v", err)
	}
	if scan.UserID != userID {
		t.Fatalf("expected scan owned by %v, got %v", userID, scan.UserID)
	}
	if !scan.Valid {
		t.Fatal("expected scan valid by default")
	}
	if scan.CapturedAt.IsZero() {
		t.Fatal("expected captured_at to default to now")
	}

	var stored measurementdomain.Measurement
	if err := db.First(&stored, "id = ?", scan.ID).Error; err != nil {
		t.Fatalf("load stored scan: %v", err)
	}
	if stored.WellnessIndex == nil || *stored.WellnessIndex != 64.5 {
		t.Fatalf("unexpected stored wellness %v", stored.WellnessIndex)
	}

	var audits []auditdomain.AuditLog
	if err := db.Find(&audits, "action = ?", "scan.recorded").Error; err != nil {
		t.Fatalf("load audit logs: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audits))
	}
	if audits[0].TargetType != "measurement" {
		t.Fatalf("unexpected audit target type %s", audits[0].TargetType)
	}
}

func TestRecordScanRequiresMetrics(t *testing.T) {
	svc, db, node := setupScanService(t)
	orgID := node.Generate()
	seedActivePlan(t, db, node, orgID, nil)

	ctx := callerContext(node.Generate(), orgID)
	_, err := svc.RecordScan(ctx, measurementdomain.RecordScanRequest{})
	if !errors.Is(err, measurementdomain.ErrMissingMetrics) {
		t.Fatalf("expected ErrMissingMetrics, got %v", err)
	}
}

func TestRecordScanQuotaGateBeforeStorage(t *testing.T) {
	svc, db, node := setupScanService(t)
	orgID := node.Generate()
	userID := node.Generate()
	limit := int64(1)
	seedActivePlan(t, db, node, orgID, &limit)

	ctx := callerContext(userID, orgID)
	if _, err := svc.RecordScan(ctx, measurementdomain.RecordScanRequest{HeartRate: fptr(70)}); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	_, err := svc.RecordScan(ctx, measurementdomain.RecordScanRequest{HeartRate: fptr(71)})
	if !errors.Is(err, measurementdomain.ErrScanLimitReached) {
		t.Fatalf("expected ErrScanLimitReached, got %v", err)
	}

	// The rejected scan must never reach storage.
	var count int64
	if err := db.Model(&measurementdomain.Measurement{}).Count(&count).Error; err != nil {
		t.Fatalf("count measurements: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored measurement, got %d", count)
	}
}

func TestRecordScanRequiresIdentity(t *testing.T) {
	svc, _, _ := setupScanService(t)

	_, err := svc.RecordScan(context.Background(), measurementdomain.RecordScanRequest{HeartRate: fptr(70)})
	if !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestListOwnScopedToCaller(t *testing.T) {
	svc, db, node := setupScanService(t)
	orgID := node.Generate()
	userID := node.Generate()
	otherID := node.Generate()
	seedActivePlan(t, db, node, orgID, nil)

	base := time.Now().UTC().Add(-time.Hour)
	for i, owner := range []snowflake.ID{userID, userID, otherID} {
		m := &measurementdomain.Measurement{
			ID:         node.Generate(),
			UserID:     owner,
			CapturedAt: base.Add(time.Duration(i) * time.Minute),
			HeartRate:  fptr(70),
			Valid:      true,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed measurement: %v", err)
		}
	}

	ctx := callerContext(userID, orgID)
	resp, err := svc.ListOwn(ctx, measurementdomain.ListScansRequest{})
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(resp.Scans) != 2 {
		t.Fatalf("expected 2 scans, got %d", len(resp.Scans))
	}
	for _, scan := range resp.Scans {
		if scan.UserID != userID {
			t.Fatalf("leaked scan for user %v", scan.UserID)
		}
	}
	if resp.HasMore {
		t.Fatal("expected no further pages")
	}
}

func TestListOwnRejectsMalformedPageToken(t *testing.T) {
	svc, db, node := setupScanService(t)
	orgID := node.Generate()
	userID := node.Generate()
	seedActivePlan(t, db, node, orgID, nil)

	ctx := callerContext(userID, orgID)
	_, err := svc.ListOwn(ctx, measurementdomain.ListScansRequest{
		Pagination: pageRequest("not-base64!", 10),
	})
	if !errors.Is(err, measurementdomain.ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestListOwnPaginates(t *testing.T) {
	svc, db, node := setupScanService(t)
	orgID := node.Generate()
	userID := node.Generate()
	seedActivePlan(t, db, node, orgID, nil)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		m := &measurementdomain.Measurement{
			ID:         node.Generate(),
			UserID:     userID,
			CapturedAt: base.Add(time.Duration(i) * time.Minute),
			HeartRate:  fptr(70),
			Valid:      true,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed measurement: %v", err)
		}
	}

	ctx := callerContext(userID, orgID)
	first, err := svc.ListOwn(ctx, measurementdomain.ListScansRequest{
		Pagination: pageRequest("", 2),
	})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Scans) != 2 || !first.HasMore {
		t.Fatalf("expected a full first page with more, got %d scans has_more=%v", len(first.Scans), first.HasMore)
	}

	second, err := svc.ListOwn(ctx, measurementdomain.ListScansRequest{
		Pagination: pageRequest(first.NextPageToken, 2),
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Scans) != 1 || second.HasMore {
		t.Fatalf("expected final page of 1, got %d scans has_more=%v", len(second.Scans), second.HasMore)
	}
}
