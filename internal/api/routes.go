package api

import (
	"net/http" // HTTP status codes

	"group_savings/internal/ledger"     // Savings ledger
	"group_savings/internal/middleware" // Auth middleware
	"group_savings/internal/otp"        // Password reset codes

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the services the HTTP layer is wired to
type Deps struct {
	DB        *gorm.DB       // Relational store
	Redis     *redis.Client  // Optional cache and revocation list
	Ledger    *ledger.Ledger // Savings ledger
	OTP       *otp.Service   // Password reset codes
	JWTSecret string         // Token signing key
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }) // Liveness
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))                                         // Prometheus scrape

	// Auth routes
	auth := r.Group("/auth")
	auth.POST("/signup", SignUpHandler(d.DB))              // Registration endpoint
	auth.POST("/signin", SignInHandler(d.DB, d.JWTSecret)) // Login endpoint
	auth.POST("/otp", RequestOTPHandler(d.OTP))            // Reset code request
	auth.POST("/otp/verify", VerifyOTPHandler(d.OTP))      // Reset code verification

	// Member routes (protected by JWT)
	jwt := middleware.JWTAuthMiddleware(d.JWTSecret, d.Redis)
	authed := r.Group("")
	authed.Use(jwt)
	authed.POST("/auth/signout", SignOutHandler(d.Redis))                 // Revoke current token
	authed.GET("/me", GetMeHandler(d.DB))                                 // Current profile
	authed.PUT("/me", UpdateMeHandler(d.DB))                              // Update current profile
	authed.GET("/members", ListMembersHandler(d.DB))                      // Member list
	authed.GET("/members/:id", GetMemberHandler(d.DB))                    // Member detail
	authed.GET("/groups", ListGroupsHandler(d.DB))                        // Group list
	authed.GET("/payments", MyPaymentsHandler(d.DB))                      // Own payments
	authed.GET("/savings", GetSavingsHandler(d.DB, d.Ledger))             // Group balance
	authed.GET("/savings/history", SavingsHistoryHandler(d.DB, d.Ledger)) // Group history
	authed.GET("/projects", ListProjectsHandler(d.DB))                    // Project list
	authed.GET("/projects/:id", GetProjectHandler(d.DB))                  // Project detail

	// Admin routes (protected, admin only)
	admin := r.Group("/admin")
	admin.Use(jwt, middleware.AdminOnlyMiddleware(d.DB))
	admin.DELETE("/members/:id", DeleteMemberHandler(d.DB))       // Remove member
	admin.PUT("/members/:id/group", SetMemberGroupHandler(d.DB))  // Move member
	admin.POST("/members/:id/admin", GrantAdminHandler(d.DB))     // Grant admin
	admin.DELETE("/members/:id/admin", RevokeAdminHandler(d.DB))  // Revoke admin
	admin.GET("/admin-rights", ListAdminRightsHandler(d.DB))      // Grant log
	admin.POST("/groups", CreateGroupHandler(d.DB))               // Create group
	admin.GET("/payments", ListPaymentsHandler(d.DB))             // All payments
	admin.POST("/payments", CreatePaymentHandler(d.Ledger))       // Record payment
	admin.PATCH("/payments/:id", UpdatePaymentHandler(d.Ledger))  // Update payment
	admin.DELETE("/payments/:id", DeletePaymentHandler(d.Ledger)) // Delete payment
	admin.PUT("/savings", UpdateSavingsHandler(d.Ledger))         // Manual balance override
	admin.POST("/projects", CreateProjectHandler(d.DB))           // Create project
	admin.PUT("/projects/:id", UpdateProjectHandler(d.DB))        // Update project
	admin.DELETE("/projects/:id", DeleteProjectHandler(d.DB))     // Delete project
}
