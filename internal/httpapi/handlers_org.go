package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hemocore/internal/adapters/reports"
	"hemocore/internal/core"
	"hemocore/pkg/domain"
)

func (s *Server) handlePendingRequests(c *gin.Context) {
	list, err := s.svc.ListPendingRequests(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": list})
}

type resolveRequestBody struct {
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"adminNotes"`
}

func (s *Server) handleResolveRequest(c *gin.Context) {
	var req resolveRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	orgID, _ := callerID(c)
	resolved, err := s.svc.ResolveRequest(c.Request.Context(), c.Param("requestId"), core.RequestStatus(req.Status), orgID, req.AdminNotes)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": resolved})
}

func (s *Server) handleOrgInventory(c *gin.Context) {
	orgID, _ := callerID(c)
	lots, err := s.svc.ListInventory(c.Request.Context(), orgID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

type addLotRequest struct {
	BloodGroup string     `json:"blood_group" binding:"required"`
	Units      int        `json:"units" binding:"required"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (s *Server) handleAddLot(c *gin.Context) {
	var req addLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	orgID, _ := callerID(c)
	var expires time.Time
	if req.ExpiresAt != nil {
		expires = *req.ExpiresAt
	}
	lot, err := s.svc.AddInventoryLot(c.Request.Context(), orgID, domain.BloodGroup(req.BloodGroup), req.Units, expires)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lot": lot})
}

type updateLotRequest struct {
	Units     *int       `json:"units"`
	Status    *string    `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (s *Server) handleUpdateLot(c *gin.Context) {
	var req updateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	orgID, _ := callerID(c)
	patch := core.LotPatch{Units: req.Units, ExpiresAt: req.ExpiresAt}
	if req.Status != nil {
		status := domain.LotStatus(*req.Status)
		patch.Status = &status
	}
	lot, err := s.svc.UpdateInventoryLot(c.Request.Context(), orgID, c.Param("lotId"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lot": lot})
}

func (s *Server) handleDeleteLot(c *gin.Context) {
	orgID, _ := callerID(c)
	if err := s.svc.DeleteInventoryLot(c.Request.Context(), orgID, c.Param("lotId")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleOrgLedger(c *gin.Context) {
	orgID, _ := callerID(c)
	page, limit := pageParams(c)
	entries, total, err := s.svc.ListLedgerEntries(c.Request.Context(), orgID, page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries, "total": total})
}

func (s *Server) handleUnverifiedDonors(c *gin.Context) {
	donors, err := s.svc.ListUnverifiedDonors(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donors": donors})
}

type verifyDonorRequest struct {
	BloodGroup string `json:"blood_group" binding:"required"`
	Verified   *bool  `json:"verified"`
}

func (s *Server) handleVerifyDonor(c *gin.Context) {
	var req verifyDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}
	donor, err := s.svc.VerifyDonorBloodGroup(c.Request.Context(), c.Param("donorId"), domain.BloodGroup(req.BloodGroup), verified)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donor": donor})
}

func (s *Server) handleCreateCamp(c *gin.Context) {
	var camp core.BloodCamp
	if err := c.ShouldBindJSON(&camp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	orgID, _ := callerID(c)
	created, err := s.svc.CreateCamp(c.Request.Context(), orgID, camp)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"camp": created})
}

func (s *Server) handleUpdateCamp(c *gin.Context) {
	var patch core.BloodCamp
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	orgID, _ := callerID(c)
	camp, err := s.svc.UpdateCamp(c.Request.Context(), orgID, c.Param("id"), func(current *core.BloodCamp) error {
		if patch.Title != "" {
			current.Title = patch.Title
		}
		if patch.Description != "" {
			current.Description = patch.Description
		}
		if !patch.Date.IsZero() {
			current.Date = patch.Date
		}
		if patch.StartTime != "" {
			current.StartTime = patch.StartTime
		}
		if patch.EndTime != "" {
			current.EndTime = patch.EndTime
		}
		if patch.Venue != "" {
			current.Venue = patch.Venue
		}
		if patch.Address != "" {
			current.Address = patch.Address
		}
		if patch.ContactPerson != "" {
			current.ContactPerson = patch.ContactPerson
		}
		if patch.ContactNumber != "" {
			current.ContactNumber = patch.ContactNumber
		}
		if patch.TargetUnits != 0 {
			current.TargetUnits = patch.TargetUnits
		}
		if patch.Requirements != "" {
			current.Requirements = patch.Requirements
		}
		if patch.Status != "" {
			current.Status = patch.Status
		}
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"camp": camp})
}

func (s *Server) handleDeleteCamp(c *gin.Context) {
	orgID, _ := callerID(c)
	if err := s.svc.DeleteCamp(c.Request.Context(), orgID, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCampRegistrations(c *gin.Context) {
	orgID, _ := callerID(c)
	regs, err := s.svc.CampRegistrations(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": regs})
}

type registrationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) handleUpdateRegistration(c *gin.Context) {
	var req registrationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	orgID, _ := callerID(c)
	camp, err := s.svc.UpdateRegistrationStatus(c.Request.Context(), orgID, c.Param("id"), c.Param("donorId"), core.RegistrationStatus(req.Status))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"camp": camp})
}

type archiveRequest struct {
	Kinds   []string `json:"kinds"`
	Formats []string `json:"formats"`
}

func (s *Server) handleArchiveReports(c *gin.Context) {
	if s.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "unavailable", "message": "report archival not configured"})
		return
	}
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	input := reports.Input{}
	for _, k := range req.Kinds {
		input.Kinds = append(input.Kinds, reports.Kind(k))
	}
	for _, f := range req.Formats {
		input.Formats = append(input.Formats, reports.Format(f))
	}
	if id, ok := callerID(c); ok {
		input.RequestedBy = id
	}
	record, err := s.exporter.EnqueueArchive(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"archive": record})
}

func (s *Server) handleGetArchive(c *gin.Context) {
	if s.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "unavailable", "message": "report archival not configured"})
		return
	}
	record, ok := s.exporter.GetArchive(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "archive job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"archive": record})
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
