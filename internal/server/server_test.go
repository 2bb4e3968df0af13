package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/wellkit/vitals/internal/audit/domain"
	"github.com/wellkit/vitals/internal/config"
	dashboarddomain "github.com/wellkit/vitals/internal/dashboard/domain"
	"github.com/wellkit/vitals/internal/identity"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
	subscriptiondomain "github.com/wellkit/vitals/internal/subscription/domain"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
	"go.uber.org/zap"
)

type fakeResolver struct {
	identities map[string]*identity.Identity
}

func (f *fakeResolver) Resolve(ctx context.Context, token string) (*identity.Identity, error) {
	_ = ctx
	ident, ok := f.identities[token]
	if !ok {
		return nil, identity.ErrUnauthorized
	}
	return ident, nil
}

type fakeDashboardService struct {
	employeeErr error
}

func (f *fakeDashboardService) EmployeeView(ctx context.Context, userID snowflake.ID) (*dashboarddomain.EmployeeView, error) {
	_ = ctx
	if f.employeeErr != nil {
		return nil, f.employeeErr
	}
	return &dashboarddomain.EmployeeView{TotalScans: 3, Trends: map[string]any{}}, nil
}

func (f *fakeDashboardService) LeaderView(ctx context.Context, userID snowflake.ID) (*dashboarddomain.LeaderView, error) {
	_ = ctx
	return &dashboarddomain.LeaderView{TeamSize: 2}, nil
}

func (f *fakeDashboardService) HRView(ctx context.Context, userID snowflake.ID) (*dashboarddomain.HRView, error) {
	_ = ctx
	return &dashboarddomain.HRView{}, nil
}

func (f *fakeDashboardService) AdminView(ctx context.Context, userID snowflake.ID) (*dashboarddomain.AdminView, error) {
	_ = ctx
	return &dashboarddomain.AdminView{}, nil
}

type fakeMeasurementService struct {
	recordErr error
}

func (f *fakeMeasurementService) RecordScan(ctx context.Context, req measurementdomain.RecordScanRequest) (*measurementdomain.Measurement, error) {
	_ = ctx
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return &measurementdomain.Measurement{ID: snowflake.ID(1), Valid: true}, nil
}

func (f *fakeMeasurementService) ListOwn(ctx context.Context, req measurementdomain.ListScansRequest) (measurementdomain.ListScansResponse, error) {
	_ = ctx
	_ = req
	return measurementdomain.ListScansResponse{Scans: []measurementdomain.Measurement{}}, nil
}

type fakeLedgerService struct{}

func (f *fakeLedgerService) RecordScan(ctx context.Context, orgID, userID snowflake.ID, valid bool, aiTokens int64) error {
	return nil
}

func (f *fakeLedgerService) RecordAnalysis(ctx context.Context, orgID snowflake.ID, scope ledgerdomain.AnalysisScope) error {
	return nil
}

func (f *fakeLedgerService) ActiveSubscription(ctx context.Context, orgID snowflake.ID) (*subscriptiondomain.OrganizationSubscription, error) {
	return &subscriptiondomain.OrganizationSubscription{OrgID: orgID, Active: true}, nil
}

func (f *fakeLedgerService) CurrentMonthUsage(ctx context.Context, orgID snowflake.ID) (*ledgerdomain.OrganizationUsageSummary, error) {
	return nil, nil
}

func (f *fakeLedgerService) MonthlySummaries(ctx context.Context, orgID snowflake.ID, months int) ([]ledgerdomain.OrganizationUsageSummary, error) {
	return nil, nil
}

func (f *fakeLedgerService) RecentLogs(ctx context.Context, orgID snowflake.ID, since time.Time, limit int) ([]ledgerdomain.UsageLog, error) {
	return nil, nil
}

type fakeAuditService struct{}

func (f *fakeAuditService) Record(ctx context.Context, orgID *snowflake.ID, actorRole string, actorID *string, action, targetType string, targetID *string, metadata map[string]any) error {
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, orgID snowflake.ID, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}}, nil
}

func orgPtr(id snowflake.ID) *snowflake.ID { return &id }

func newTestServer(t *testing.T, dash dashboarddomain.Service, meas measurementdomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	orgID := snowflake.ID(77)
	resolver := &fakeResolver{identities: map[string]*identity.Identity{
		"employee-token": {UserID: snowflake.ID(1), Role: "employee", OrgID: orgPtr(orgID)},
		"leader-token":   {UserID: snowflake.ID(2), Role: "leader", OrgID: orgPtr(orgID)},
		"admin-token":    {UserID: snowflake.ID(3), Role: "admin", OrgID: orgPtr(orgID)},
		"platform-token": {UserID: snowflake.ID(4), Role: "admin_platform", OrgID: orgPtr(orgID)},
	}}

	srv := NewServer(ServerParams{
		Gin:            engine,
		Cfg:            config.Config{},
		Log:            zap.NewNop(),
		Resolver:       resolver,
		DashboardSvc:   dash,
		MeasurementSvc: meas,
		LedgerSvc:      &fakeLedgerService{},
		AuditSvc:       &fakeAuditService{},
	})
	srv.RegisterAPIRoutes()
	return srv
}

func doRequest(s *Server, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestMissingTokenRejected(t *testing.T) {
	s := newTestServer(t, &fakeDashboardService{}, &fakeMeasurementService{})

	rec := doRequest(s, http.MethodGet, "/api/v1/dashboard/employee", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestEmployeeDashboard(t *testing.T) {
	s := newTestServer(t, &fakeDashboardService{}, &fakeMeasurementService{})

	rec := doRequest(s, http.MethodGet, "/api/v1/dashboard/employee", "employee-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var view dashboarddomain.EmployeeView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.TotalScans != 3 {
		t.Fatalf("expected total_scans 3, got %d", view.TotalScans)
	}
}

func TestRoleGate(t *testing.T) {
	s := newTestServer(t, &fakeDashboardService{}, &fakeMeasurementService{})

	if rec := doRequest(s, http.MethodGet, "/api/v1/dashboard/leader", "employee-token", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("employee on leader view: expected 403, got %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/api/v1/dashboard/leader", "leader-token", nil); rec.Code != http.StatusOK {
		t.Fatalf("leader on leader view: expected 200, got %d", rec.Code)
	}
	// Platform operators pass every role gate.
	if rec := doRequest(s, http.MethodGet, "/api/v1/dashboard/admin", "platform-token", nil); rec.Code != http.StatusOK {
		t.Fatalf("platform admin on admin view: expected 200, got %d", rec.Code)
	}
}

func TestScanLimitMapsTo429(t *testing.T) {
	s := newTestServer(t, &fakeDashboardService{}, &fakeMeasurementService{
		recordErr: measurementdomain.ErrScanLimitReached,
	})

	body := []byte(`{"heart_rate": 70}`)
	rec := doRequest(s, http.MethodPost, "/api/v1/scans", "employee-token", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error.Type != "quota" {
		t.Fatalf("expected quota error type, got %s", resp.Error.Type)
	}
}

func TestNotAssignedMapsTo400(t *testing.T) {
	s := newTestServer(t, &fakeDashboardService{
		employeeErr: dashboarddomain.ErrNotAssigned,
	}, &fakeMeasurementService{})

	rec := doRequest(s, http.MethodGet, "/api/v1/dashboard/employee", "employee-token", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error.Type != "scope" {
		t.Fatalf("expected scope error type, got %s", resp.Error.Type)
	}
}

func TestRecordScanCreated(t *testing.T) {
	s := newTestServer(t, &fakeDashboardService{}, &fakeMeasurementService{})

	body := []byte(`{"heart_rate": 70, "wellness_index": 55.5}`)
	rec := doRequest(s, http.MethodPost, "/api/v1/scans", "employee-token", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}
