package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hemocore/internal/core"
)

func (s *Server) handleInventorySummary(c *gin.Context) {
	report, err := s.svc.Availability(c.Request.Context(), c.Query("organization_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": report})
}

func (s *Server) handleInventoryDetailed(c *gin.Context) {
	lots, err := s.svc.DetailedInventory(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

func (s *Server) handleDonationTrends(c *gin.Context) {
	trends, err := s.svc.DonationTrends(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trends": trends})
}

func (s *Server) handleRequestStats(c *gin.Context) {
	stats, err := s.svc.RequestStats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) handleListCamps(c *gin.Context) {
	camps, err := s.svc.ListCamps(c.Request.Context(), core.CampStatus(c.Query("status")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"camps": camps})
}

func (s *Server) handleGetCamp(c *gin.Context) {
	camp, err := s.svc.GetCamp(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"camp": camp})
}
