package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/wellkit/vitals/internal/audit/domain"
	"github.com/wellkit/vitals/internal/orgcontext"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, auditdomain.ErrInvalidOrganization)
		return
	}

	var req auditdomain.ListAuditLogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
