package usageledger

import (
	"github.com/wellkit/vitals/internal/usageledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usageledger.service",
	fx.Provide(service.NewService),
)
