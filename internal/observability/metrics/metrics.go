package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	scansRecorded  metric.Int64Counter
	scansInvalid   metric.Int64Counter
	dashboardViews metric.Int64Counter
	quotaDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "vitals"
	}
	meter := provider.Meter(name)

	scansRecorded, err := meter.Int64Counter("vitals_scans_recorded_total")
	if err != nil {
		return nil, err
	}
	scansInvalid, err := meter.Int64Counter("vitals_scans_invalid_total")
	if err != nil {
		return nil, err
	}
	dashboardViews, err := meter.Int64Counter("vitals_dashboard_views_total")
	if err != nil {
		return nil, err
	}
	quotaDenied, err := meter.Int64Counter("vitals_quota_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		scansRecorded:  scansRecorded,
		scansInvalid:   scansInvalid,
		dashboardViews: dashboardViews,
		quotaDenied:    quotaDenied,
	}, nil
}

// RecordScan counts a stored scan. Invalid readings are still recorded
// measurements; they get an extra invalid count, not a different one.
// Quota rejections go through RecordQuotaDenied instead.
func (m *Metrics) RecordScan(ctx context.Context, orgID string, valid bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.scansRecorded.Add(ctx, 1, attrs)
	if !valid {
		m.scansInvalid.Add(ctx, 1, attrs)
	}
}

// RecordDashboardView increments per-role dashboard view counts.
func (m *Metrics) RecordDashboardView(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.dashboardViews.Add(ctx, 1, metric.WithAttributes(attribute.String("role", strings.TrimSpace(role))))
}

// RecordQuotaDenied increments quota denial counts.
func (m *Metrics) RecordQuotaDenied(ctx context.Context, orgID, reason string) {
	if m == nil {
		return
	}
	m.quotaDenied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
		attribute.String("reason", strings.TrimSpace(reason)),
	))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
