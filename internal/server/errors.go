package server

import (
	"errors"
	"net/http"

	auditdomain "github.com/wellkit/vitals/internal/audit/domain"
	dashboarddomain "github.com/wellkit/vitals/internal/dashboard/domain"
	"github.com/wellkit/vitals/internal/identity"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
	ledgerdomain "github.com/wellkit/vitals/internal/usageledger/domain"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal", Message: "internal error"}

	case errors.Is(err, ErrUnauthorized), errors.Is(err, identity.ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "authentication required"}

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "insufficient role"}

	// Scope errors: the caller's profile lacks the attribute this view
	// needs. Distinguishable from transient failures so the client can
	// show "contact your administrator" instead of "try again".
	case errors.Is(err, dashboarddomain.ErrNotAssigned):
		return http.StatusBadRequest, errorPayload{Type: "scope", Message: "not assigned to a department or organization"}
	case errors.Is(err, dashboarddomain.ErrProfileNotFound):
		return http.StatusNotFound, errorPayload{Type: "scope", Message: "profile not found"}

	case errors.Is(err, measurementdomain.ErrScanLimitReached),
		errors.Is(err, ledgerdomain.ErrScanLimitReached),
		errors.Is(err, ledgerdomain.ErrAnalysisLimitReached):
		return http.StatusTooManyRequests, errorPayload{Type: "quota", Message: "subscription limit reached"}

	case errors.Is(err, ledgerdomain.ErrNoActiveSubscription):
		return http.StatusForbidden, errorPayload{Type: "quota", Message: "no active subscription"}

	case errors.Is(err, measurementdomain.ErrMissingMetrics),
		errors.Is(err, measurementdomain.ErrInvalidOrganization),
		errors.Is(err, measurementdomain.ErrInvalidPageToken),
		errors.Is(err, ledgerdomain.ErrInvalidOrganization),
		errors.Is(err, ledgerdomain.ErrInvalidScope),
		errors.Is(err, auditdomain.ErrInvalidOrganization),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "resource not found"}

	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal", Message: "internal error"}
	}
}

// classifyErrorForLog buckets errors for the request log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server", payload.Type
	case status >= http.StatusBadRequest:
		return "client", payload.Type
	default:
		return "", payload.Type
	}
}
