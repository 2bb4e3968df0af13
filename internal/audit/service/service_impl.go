package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/wellkit/vitals/internal/audit/domain"
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

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[auditdomain.AuditLog]
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[auditdomain.AuditLog](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, orgID *snowflake.ID, actorRole string, actorID *string, action, targetType string, targetID *string, metadata map[string]any) error {
	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		ActorRole:  strings.TrimSpace(actorRole),
		ActorID:    actorID,
		Action:     strings.TrimSpace(action),
		TargetType: strings.TrimSpace(targetType),
		TargetID:   targetID,
		Metadata:   datatypes.JSONMap(metadata),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if orgID == 0 {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidOrganization
	}
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	if req.PageToken != "" {
		if _, err := pagination.DecodeCursor(req.PageToken); err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
	}

	opts := []option.QueryOption{
		option.WithWhere("org_id = ?", orgID),
		option.WithOrder("created_at desc, id desc"),
		option.ApplyPagination(req.Pagination),
	}
	if action := strings.TrimSpace(req.Action); action != "" {
		opts = append(opts, option.WithWhere("action = ?", action))
	}
	if targetType := strings.TrimSpace(req.TargetType); targetType != "" {
		opts = append(opts, option.WithWhere("target_type = ?", targetType))
	}
	if req.StartAt != nil {
		opts = append(opts, option.WithWhere("created_at >= ?", *req.StartAt))
	}
	if req.EndAt != nil {
		opts = append(opts, option.WithWhere("created_at <= ?", *req.EndAt))
	}

	rows, err := s.repo.Find(ctx, &auditdomain.AuditLog{}, opts...)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	pageInfo, rows := pagination.BuildCursorPageInfo(rows, size, func(entry *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        entry.ID.String(),
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	logs := make([]auditdomain.AuditLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, *row)
	}

	return auditdomain.ListAuditLogResponse{
		PageInfo:  *pageInfo,
		AuditLogs: logs,
	}, nil
}
