package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wellkit/vitals/internal/identity"
)

func (s *Server) EmployeeDashboard(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.dashboardSvc.EmployeeView(c.Request.Context(), ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) LeaderDashboard(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.dashboardSvc.LeaderView(c.Request.Context(), ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) HRDashboard(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.dashboardSvc.HRView(c.Request.Context(), ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) AdminDashboard(c *gin.Context) {
	ident, ok := identity.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.dashboardSvc.AdminView(c.Request.Context(), ident.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
