package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wellkit/vitals/internal/audit"
	auditdomain "github.com/wellkit/vitals/internal/audit/domain"
	"github.com/wellkit/vitals/internal/config"
	"github.com/wellkit/vitals/internal/dashboard"
	dashboarddomain "github.com/wellkit/vitals/internal/dashboard/domain"
	"github.com/wellkit/vitals/internal/identity"
	"github.com/wellkit/vitals/internal/measurement"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
	"github.com/wellkit/vitals/internal/observability"
	obslogger "github.com/wellkit/vitals/internal/observability/logger"
	obsmetrics "github.com/wellkit/vitals/internal/observability/metrics"
	obstracing "github.com/wellkit/vitals/internal/observability/tracing"
	profiledomain "github.com/wellkit/vitals/internal/profile/domain"
	"github.com/wellkit/vitals/internal/usageledger"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	identity.Module,
	audit.Module,
	usageledger.Module,
	measurement.Module,
	dashboard.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	resolver identity.Resolver

	dashboardSvc   dashboarddomain.Service
	measurementSvc measurementdomain.Service
	ledgerSvc      ledgerdomain.Service
	auditSvc       auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	Resolver identity.Resolver

	DashboardSvc   dashboarddomain.Service
	MeasurementSvc measurementdomain.Service
	LedgerSvc      ledgerdomain.Service
	AuditSvc       auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		resolver:       p.Resolver,
		dashboardSvc:   p.DashboardSvc,
		measurementSvc: p.MeasurementSvc,
		ledgerSvc:      p.LedgerSvc,
		auditSvc:       p.AuditSvc,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.AuthRequired())

	dash := api.Group("/dashboard")
	dash.GET("/employee", s.EmployeeDashboard)
	dash.GET("/leader", RequireRole(profiledomain.RoleLeader), s.LeaderDashboard)
	dash.GET("/hr", RequireRole(profiledomain.RoleHR), s.HRDashboard)
	dash.GET("/admin", RequireRole(profiledomain.RoleAdmin), s.AdminDashboard)

	api.POST("/scans", s.RecordScan)
	api.GET("/scans", s.ListScans)

	api.GET("/usage/summary", RequireRole(profiledomain.RoleAdmin), s.UsageSummary)
	api.GET("/audit-logs", RequireRole(profiledomain.RoleAdmin), s.ListAuditLogs)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
