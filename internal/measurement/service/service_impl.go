package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/wellkit/vitals/internal/audit/domain"
	"github.com/wellkit/vitals/internal/identity"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
	"github.com/wellkit/vitals/internal/observability/metrics"
	"github.com/wellkit/vitals/internal/orgcontext"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
	"github.com/wellkit/vitals/pkg/db/option"
	"github.com/wellkit/vitals/pkg/db/pagination"
	"github.com/wellkit/vitals/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Ledger  ledgerdomain.Service
	Audit   auditdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	ledger  ledgerdomain.Service
	audit   auditdomain.Service
	metrics *metrics.Metrics
	repo    repository.Repository[measurementdomain.Measurement]
}

func NewService(p Params) measurementdomain.Service {
	return &Service{
		log:     p.Log.Named("measurement.service"),
		genID:   p.GenID,
		ledger:  p.Ledger,
		audit:   p.Audit,
		metrics: p.Metrics,
		repo:    repository.ProvideStore[measurementdomain.Measurement](p.DB),
	}
}

func (s *Service) RecordScan(ctx context.Context, req measurementdomain.RecordScanRequest) (*measurementdomain.Measurement, error) {
	ident, ok := identity.FromContext(ctx)
	if !ok {
		return nil, identity.ErrUnauthorized
	}
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, measurementdomain.ErrInvalidOrganization
	}

	if !hasAnyMetric(req) {
		return nil, measurementdomain.ErrMissingMetrics
	}

	valid := true
	if req.Valid != nil {
		valid = *req.Valid
	}

	// The quota gate goes first: a scan over the plan limit never reaches
	// storage.
	if err := s.ledger.RecordScan(ctx, orgID, ident.UserID, valid, req.AITokensUsed); err != nil {
		if err == ledgerdomain.ErrScanLimitReached {
			return nil, measurementdomain.ErrScanLimitReached
		}
		return nil, err
	}

	now := time.Now().UTC()
	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	scan := &measurementdomain.Measurement{
		ID:            s.genID.Generate(),
		UserID:        ident.UserID,
		CapturedAt:    capturedAt,
		HeartRate:     req.HeartRate,
		SDNN:          req.SDNN,
		RMSSD:         req.RMSSD,
		Stress:        req.Stress,
		Fatigue:       req.Fatigue,
		CognitiveLoad: req.CognitiveLoad,
		Recovery:      req.Recovery,
		WellnessIndex: req.WellnessIndex,
		BioAge:        req.BioAge,
		CVRiskScore:   req.CVRiskScore,
		CVRiskLevel:   req.CVRiskLevel,
		Valid:         valid,
		RawPayload:    datatypes.JSONMap(req.RawPayload),
		CreatedAt:     now,
	}

	if err := s.repo.Create(ctx, scan); err != nil {
		s.log.Error("store measurement",
			zap.String("user_id", ident.UserID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordScan(ctx, orgID.String(), valid)

	actorID := ident.UserID.String()
	targetID := scan.ID.String()
	_ = s.audit.Record(ctx, &orgID, ident.Role, &actorID, "scan.recorded", "measurement", &targetID, map[string]any{
		"valid":       valid,
		"captured_at": capturedAt.Format(time.RFC3339),
	})

	return scan, nil
}

func (s *Service) ListOwn(ctx context.Context, req measurementdomain.ListScansRequest) (measurementdomain.ListScansResponse, error) {
	ident, ok := identity.FromContext(ctx)
	if !ok {
		return measurementdomain.ListScansResponse{}, identity.ErrUnauthorized
	}

	if req.PageToken != "" {
		if _, err := pagination.DecodeCursor(req.PageToken); err != nil {
			return measurementdomain.ListScansResponse{}, measurementdomain.ErrInvalidPageToken
		}
	}

	rows, err := s.repo.Find(ctx,
		&measurementdomain.Measurement{UserID: ident.UserID},
		option.WithOrder("created_at desc, id desc"),
		option.ApplyPagination(req.Pagination),
	)
	if err != nil {
		return measurementdomain.ListScansResponse{}, err
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	pageInfo, rows := pagination.BuildCursorPageInfo(rows, size, func(scan *measurementdomain.Measurement) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        scan.ID.String(),
			CreatedAt: scan.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	scans := make([]measurementdomain.Measurement, 0, len(rows))
	for _, row := range rows {
		scans = append(scans, *row)
	}

	return measurementdomain.ListScansResponse{
		PageInfo: *pageInfo,
		Scans:    scans,
	}, nil
}

func hasAnyMetric(req measurementdomain.RecordScanRequest) bool {
	for _, v := range []*float64{
		req.HeartRate, req.SDNN, req.RMSSD, req.Stress, req.Fatigue,
		req.CognitiveLoad, req.Recovery, req.WellnessIndex, req.BioAge,
		req.CVRiskScore,
	} {
		if v != nil {
			return true
		}
	}
	return len(req.RawPayload) > 0
}
