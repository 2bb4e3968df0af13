package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wellkit/vitals/internal/identity"
	"github.com/wellkit/vitals/internal/observability/obscontext"
	"github.com/wellkit/vitals/internal/orgcontext"
	profiledomain "github.com/wellkit/vitals/internal/profile/domain"
)

// AuthRequired resolves the bearer token and injects the caller identity
// and tenant scope into the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ident, err := s.resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := identity.WithIdentity(c.Request.Context(), ident)
		ctx = obscontext.WithActor(ctx, ident.Role, ident.UserID.String())
		if ident.OrgID != nil {
			ctx = orgcontext.WithScope(ctx, orgcontext.Scope{OrgID: *ident.OrgID})
			ctx = obscontext.WithOrgID(ctx, ident.OrgID.String())
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole gates a route to the given roles. Platform admins pass
// every gate.
func RequireRole(roles ...profiledomain.Role) gin.HandlerFunc {
	allowed := make(map[profiledomain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		ident, ok := identity.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		role := profiledomain.Role(ident.Role)
		if role == profiledomain.RoleAdminPlatform {
			c.Next()
			return
		}
		if _, ok := allowed[role]; !ok {
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
