package identity

import (
	"github.com/wellkit/vitals/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("identity",
	fx.Provide(func(cfg config.Config, log *zap.Logger) Resolver {
		return NewJWTResolver(cfg.AuthJWTSecret, log)
	}),
)
