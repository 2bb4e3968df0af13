package measurement

import (
	"github.com/wellkit/vitals/internal/measurement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("measurement.service",
	fx.Provide(service.NewService),
)
