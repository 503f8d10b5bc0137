// Package httpapi exposes the blood bank service over a gin REST surface.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"hemocore/docs/schema/openapi"
	"hemocore/internal/adapters/reports"
	"hemocore/internal/core"
)

// Server wires the core service, report exporter, and auth layer into a
// gin router.
type Server struct {
	svc      *core.Service
	exporter *reports.Exporter
	jwt      *JWTService
	auth     *AuthMiddleware
	log      logrus.FieldLogger
	engine   *gin.Engine
}

// NewServer builds the router. The exporter may be nil; report routes then
// answer 503.
func NewServer(cfg Config, svc *core.Service, exporter *reports.Exporter, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	jwtService := NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	s := &Server{
		svc:      svc,
		exporter: exporter,
		jwt:      jwtService,
		auth:     NewAuthMiddleware(jwtService),
		log:      log.WithField("component", "httpapi"),
	}
	s.engine = s.buildRouter()
	return s
}

// Handler returns the http handler for serving or tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// JWT exposes the token service, used by the command wiring and tests.
func (s *Server) JWT() *JWTService {
	return s.jwt
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openapi.Spec())
	})

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.PUT("/password", s.auth.RequireAuth(), s.handleChangePassword)

	api.GET("/inventory/summary", s.handleInventorySummary)
	api.GET("/inventory/detailed", s.auth.RequireAuth(), s.handleInventoryDetailed)

	analytics := api.Group("/analytics")
	analytics.GET("/blood-availability", s.handleInventorySummary)
	analytics.GET("/donation-trends", s.handleDonationTrends)
	analytics.GET("/request-stats", s.handleRequestStats)

	api.GET("/camps", s.handleListCamps)
	api.GET("/camps/:id", s.handleGetCamp)

	donor := api.Group("/donor", s.auth.RequireAuth(), s.auth.RequireRole(core.RoleDonor))
	donor.GET("/profile", s.handleProfile)
	donor.PUT("/profile", s.handleUpdateProfile)
	donor.POST("/donation-request", s.handleDonationOffer)
	donor.POST("/blood-request", s.handleBloodRequest)
	donor.GET("/requests", s.handleOwnRequests)
	donor.GET("/donation-history", s.handleDonationHistory)
	donor.POST("/camps/:id/register", s.handleCampRegister)
	donor.GET("/camps/registered", s.handleRegisteredCamps)

	hospital := api.Group("/hospital", s.auth.RequireAuth(), s.auth.RequireRole(core.RoleHospital))
	hospital.GET("/profile", s.handleProfile)
	hospital.PUT("/profile", s.handleUpdateProfile)
	hospital.POST("/blood-request", s.handleBloodRequest)
	hospital.GET("/requests", s.handleOwnRequests)
	hospital.GET("/request-history", s.handleOwnRequests)

	org := api.Group("/organization", s.auth.RequireAuth(), s.auth.RequireRole(core.RoleOrganization))
	org.GET("/profile", s.handleProfile)
	org.PUT("/profile", s.handleUpdateProfile)
	org.GET("/requests/pending", s.handlePendingRequests)
	org.PUT("/requests/:requestId/status", s.handleResolveRequest)
	org.GET("/inventory", s.handleOrgInventory)
	org.POST("/inventory", s.handleAddLot)
	org.PUT("/inventory/:lotId", s.handleUpdateLot)
	org.DELETE("/inventory/:lotId", s.handleDeleteLot)
	org.GET("/transactions", s.handleOrgLedger)
	org.GET("/donors/unverified", s.handleUnverifiedDonors)
	org.PUT("/donors/:donorId/verify", s.handleVerifyDonor)
	org.POST("/camps", s.handleCreateCamp)
	org.PUT("/camps/:id", s.handleUpdateCamp)
	org.DELETE("/camps/:id", s.handleDeleteCamp)
	org.GET("/camps/:id/registrations", s.handleCampRegistrations)
	org.PUT("/camps/:id/registrations/:donorId", s.handleUpdateRegistration)
	org.POST("/reports/archive", s.handleArchiveReports)
	org.GET("/reports/archive/:id", s.handleGetArchive)

	admin := api.Group("/admin", s.auth.RequireAuth(), s.auth.RequireRole(core.RoleAdmin))
	admin.GET("/dashboard", s.handleDashboard)
	admin.GET("/users", s.handleListUsers)
	admin.PUT("/organizations/:orgId/approval", s.handleOrgApproval)
	admin.GET("/requests", s.handleListRequests)
	admin.GET("/transactions", s.handleAllLedger)
	admin.GET("/analytics/donors", s.handleDonorStats)
	admin.DELETE("/users/:userId", s.handleDeleteUser)

	return router
}
