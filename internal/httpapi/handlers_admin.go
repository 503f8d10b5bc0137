package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hemocore/internal/core"
)

func (s *Server) handleDashboard(c *gin.Context) {
	counts, err := s.svc.Dashboard(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboard": counts})
}

func (s *Server) handleListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, total, err := s.svc.ListUsers(c.Request.Context(), core.Role(c.Query("role")), page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
}

type orgApprovalRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

func (s *Server) handleOrgApproval(c *gin.Context) {
	var req orgApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	org, err := s.svc.SetOrganizationApproval(c.Request.Context(), c.Param("orgId"), *req.Approved)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization": org})
}

func (s *Server) handleListRequests(c *gin.Context) {
	page, limit := pageParams(c)
	list, total, err := s.svc.ListRequests(c.Request.Context(), core.RequestStatus(c.Query("status")), page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": list, "total": total})
}

func (s *Server) handleAllLedger(c *gin.Context) {
	page, limit := pageParams(c)
	entries, total, err := s.svc.ListLedgerEntries(c.Request.Context(), c.Query("organization_id"), page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries, "total": total})
}

func (s *Server) handleDonorStats(c *gin.Context) {
	stats, err := s.svc.DonorStatistics(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	if err := s.svc.DeleteUser(c.Request.Context(), c.Param("userId")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
