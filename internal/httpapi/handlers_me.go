package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hemocore/internal/core"
	"hemocore/pkg/domain"
)

func (s *Server) handleProfile(c *gin.Context) {
	id, _ := callerID(c)
	user, err := s.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type profileUpdateRequest struct {
	Name           *string  `json:"name"`
	Phone          *string  `json:"phone"`
	Address        *string  `json:"address"`
	Age            *int     `json:"age"`
	WeightKG       *float64 `json:"weight_kg"`
	MedicalHistory *string  `json:"medical_history"`
	HospitalName   *string  `json:"hospital_name"`
	LicenseNumber  *string  `json:"license_number"`
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	id, _ := callerID(c)
	user, err := s.svc.UpdateUser(c.Request.Context(), id, func(u *core.User) error {
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Phone != nil {
			u.Phone = *req.Phone
		}
		if req.Address != nil {
			u.Address = *req.Address
		}
		if req.Age != nil {
			u.Age = *req.Age
		}
		if req.WeightKG != nil {
			u.WeightKG = *req.WeightKG
		}
		if req.MedicalHistory != nil {
			u.MedicalHistory = *req.MedicalHistory
		}
		if req.HospitalName != nil {
			u.HospitalName = *req.HospitalName
		}
		if req.LicenseNumber != nil {
			u.LicenseNumber = *req.LicenseNumber
		}
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type donationOfferRequest struct {
	Units   int    `json:"units" binding:"required"`
	Reason  string `json:"reason"`
	Contact string `json:"contact_number"`
}

func (s *Server) handleDonationOffer(c *gin.Context) {
	var req donationOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	id, _ := callerID(c)
	offer, err := s.svc.SubmitDonationOffer(c.Request.Context(), id, req.Units, req.Reason, req.Contact)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": offer})
}

type bloodRequestBody struct {
	BloodGroup    string     `json:"blood_group" binding:"required"`
	Units         int        `json:"units" binding:"required"`
	Urgency       string     `json:"urgency"`
	Reason        string     `json:"reason"`
	PatientName   string     `json:"patient_name"`
	HospitalName  string     `json:"hospital_name"`
	ContactNumber string     `json:"contact_number"`
	RequiredBy    *time.Time `json:"required_by"`
}

func (s *Server) handleBloodRequest(c *gin.Context) {
	var req bloodRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	id, _ := callerID(c)
	created, err := s.svc.SubmitBloodRequest(c.Request.Context(), id, core.BloodRequestParams{
		BloodGroup:    domain.BloodGroup(req.BloodGroup),
		Units:         req.Units,
		Urgency:       domain.Urgency(req.Urgency),
		Reason:        req.Reason,
		PatientName:   req.PatientName,
		HospitalName:  req.HospitalName,
		ContactNumber: req.ContactNumber,
		RequiredBy:    req.RequiredBy,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": created})
}

func (s *Server) handleOwnRequests(c *gin.Context) {
	id, _ := callerID(c)
	list, err := s.svc.ListRequestsByRequester(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": list})
}

func (s *Server) handleDonationHistory(c *gin.Context) {
	id, _ := callerID(c)
	entries, err := s.svc.DonationHistory(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": entries})
}

func (s *Server) handleCampRegister(c *gin.Context) {
	id, _ := callerID(c)
	camp, err := s.svc.RegisterForCamp(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"camp": camp})
}

func (s *Server) handleRegisteredCamps(c *gin.Context) {
	id, _ := callerID(c)
	camps, err := s.svc.CampsForDonor(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"camps": camps})
}
