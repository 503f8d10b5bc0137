package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hemocore/internal/core"
	"hemocore/pkg/domain"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`

	BloodGroup     string  `json:"blood_group"`
	Age            int     `json:"age"`
	WeightKG       float64 `json:"weight_kg"`
	MedicalHistory string  `json:"medical_history"`

	HospitalName  string `json:"hospital_name"`
	LicenseNumber string `json:"license_number"`

	OrganizationName string `json:"organization_name"`
	OrganizationType string `json:"organization_type"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	user, err := s.svc.RegisterUser(c.Request.Context(), core.User{
		Name:             req.Name,
		Email:            req.Email,
		PasswordHash:     hash,
		Role:             core.Role(req.Role),
		Phone:            req.Phone,
		Address:          req.Address,
		BloodGroup:       domain.BloodGroup(req.BloodGroup),
		Age:              req.Age,
		WeightKG:         req.WeightKG,
		MedicalHistory:   req.MedicalHistory,
		HospitalName:     req.HospitalName,
		LicenseNumber:    req.LicenseNumber,
		OrganizationName: req.OrganizationName,
		OrganizationType: domain.OrganizationType(req.OrganizationType),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	token, expires, err := s.jwt.Issue(user)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{Token: token, ExpiresAt: expires, User: user})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	user, err := s.svc.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil || !CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": "invalid credentials"})
		return
	}
	token, expires, err := s.jwt.Issue(user)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, ExpiresAt: expires, User: user})
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "message": err.Error()})
		return
	}
	id, _ := callerID(c)
	user, err := s.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !CheckPassword(user.PasswordHash, req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": "invalid credentials"})
		return
	}
	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.svc.SetPasswordHash(c.Request.Context(), user.ID, hash); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_changed"})
}
