// Package domain defines the role-scoped dashboard views.
package domain

import (
	departmentdomain "github.com/wellkit/vitals/internal/department/domain"
	insightdomain "github.com/wellkit/vitals/internal/insight/domain"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
	profiledomain "github.com/wellkit/vitals/internal/profile/domain"
	subscriptiondomain "github.com/wellkit/vitals/internal/subscription/domain"
	"github.com/wellkit/vitals/internal/summarizer"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
)

// EmployeeView is the personal dashboard: the caller's own scans only.
type EmployeeView struct {
	Profile     profiledomain.UserProfile         `json:"profile"`
	LatestScan  *measurementdomain.Measurement    `json:"latest_scan"`
	ScanHistory []measurementdomain.Measurement   `json:"scan_history"`
	TotalScans  int                               `json:"total_scans"`
	Trends      map[string]any                    `json:"trends"`
}

// LeaderView aggregates the caller's department.
type LeaderView struct {
	Department        departmentdomain.Department      `json:"department"`
	TeamSize          int                              `json:"team_size"`
	Roster            []profiledomain.UserProfile      `json:"roster"`
	RecentScans       []measurementdomain.Measurement  `json:"recent_scans"`
	TeamMetrics       summarizer.TeamMetrics           `json:"team_metrics"`
	DepartmentInsight *insightdomain.DepartmentInsight `json:"department_insight"`
	TotalScans        int64                            `json:"total_scans"`
}

// DepartmentSnapshot pairs a department with its latest insight for the
// HR view.
type DepartmentSnapshot struct {
	Department departmentdomain.Department     `json:"department"`
	Insight    insightdomain.DepartmentInsight `json:"insight"`
}

// HRView aggregates the caller's whole organization.
type HRView struct {
	OrganizationInsight *insightdomain.OrganizationInsight      `json:"organization_insight"`
	Departments         []DepartmentSnapshot                    `json:"departments"`
	DepartmentsCount    int                                     `json:"departments_count"`
	UsageSummaries      []ledgerdomain.OrganizationUsageSummary `json:"usage_summaries"`
	MembersCount        int64                                   `json:"members_count"`
}

// AdminView combines subscription state with recent activity.
type AdminView struct {
	Subscription     *subscriptiondomain.OrganizationSubscription `json:"subscription"`
	Consumption      ledgerdomain.ConsumptionMetrics              `json:"consumption"`
	RecentUsageLogs  []ledgerdomain.UsageLog                      `json:"recent_usage_logs"`
	MonthlySummaries []ledgerdomain.OrganizationUsageSummary      `json:"monthly_summaries"`
	RecentScanCount  int                                          `json:"recent_scan_count"`
	RecentScans      []measurementdomain.Measurement              `json:"recent_scans"`
}
