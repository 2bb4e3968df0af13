package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wellkit/vitals/internal/orgcontext"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"
)

// UsageSummary returns the organization's consumption metrics and
// trailing monthly summaries.
func (s *Server) UsageSummary(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ledgerdomain.ErrInvalidOrganization)
		return
	}

	ctx := c.Request.Context()
	sub, err := s.ledgerSvc.ActiveSubscription(ctx, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	current, err := s.ledgerSvc.CurrentMonthUsage(ctx, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summaries, err := s.ledgerSvc.MonthlySummaries(ctx, orgID, 12)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"consumption":       ledgerdomain.ComputeConsumptionMetrics(sub, current),
		"monthly_summaries": summaries,
	})
}
