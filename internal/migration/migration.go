// Package migration keeps the schema in sync with the registered models
// at startup.
package migration

import (
	auditdomain "github.com/wellkit/vitals/internal/audit/domain"
	departmentdomain "github.com/wellkit/vitals/internal/department/domain"
	insightdomain "github.com/wellkit/vitals/internal/insight/domain"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
	profiledomain "github.com/wellkit/vitals/internal/profile/domain"
	subscriptiondomain "github.com/wellkit/vitals/internal/subscription/domain"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

// Models lists every persisted entity, in dependency order.
func Models() []any {
	return []any{
		&profiledomain.UserProfile{},
		&departmentdomain.Department{},
		&measurementdomain.Measurement{},
		&insightdomain.DepartmentInsight{},
		&insightdomain.OrganizationInsight{},
		&subscriptiondomain.OrganizationSubscription{},
		&ledgerdomain.OrganizationUsageSummary{},
		&ledgerdomain.UsageLog{},
		&auditdomain.AuditLog{},
	}
}

func Run(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		log.Error("schema migration failed", zap.Error(err))
		return err
	}
	log.Info("schema migration complete")
	return nil
}
