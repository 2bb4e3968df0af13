package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
)

func (s *Server) RecordScan(c *gin.Context) {
	var req measurementdomain.RecordScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	scan, err := s.measurementSvc.RecordScan(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, scan)
}

func (s *Server) ListScans(c *gin.Context) {
	var req measurementdomain.ListScansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.measurementSvc.ListOwn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
