package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/handler"
	"github.com/noah-isme/trainersamay-api/internal/middleware"
	"github.com/noah-isme/trainersamay-api/internal/models"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Availability *handler.AvailabilityHandler
	Sessions     *handler.SessionHandler
	Reports      *handler.ReportHandler
	Metrics      *handler.MetricsHandler
}

// Dependencies are the cross-cutting pieces route middleware needs.
type Dependencies struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditSink
	Logger *zap.Logger
}

// Register mounts observability endpoints at the root and the API under prefix.
func Register(r *gin.Engine, prefix string, h Handlers, deps Dependencies) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	auth := middleware.JWT(deps.Tokens)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), middleware.Self)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", auth, h.Auth.Logout)
	authGroup.GET("/me", auth, h.Auth.Me)

	users := api.Group("/users", auth)
	users.GET("", adminOnly, h.Users.List)
	users.POST("", adminOnly, h.Users.Create)
	users.GET("/:id", adminOnly, h.Users.Get)
	users.PUT("/:id", adminOnly, h.Users.Update)
	users.DELETE("/:id", adminOnly, h.Users.Delete)
	users.PATCH("/:id/change-password", adminOrSelf, h.Users.ChangePassword)
	users.PUT("/:id/profile", adminOrSelf, h.Users.UpdateProfile)

	api.GET("/trainers", auth, h.Users.Trainers)

	availability := api.Group("/availabilities", auth)
	availability.GET("", h.Availability.List)
	availability.GET("/trainers", h.Availability.Trainers)
	availability.POST("/check", h.Availability.Check)
	availability.GET("/:id", adminOrSelf, h.Availability.Get)
	availability.PUT("/:id", adminOrSelf, h.Availability.Replace)

	sessions := api.Group("/sessions", auth)
	sessions.GET("", h.Sessions.List)
	sessions.GET("/upcoming", h.Sessions.Upcoming)
	sessions.POST("", h.Sessions.Create)
	sessions.GET("/:id", h.Sessions.Get)
	sessions.PUT("/:id", h.Sessions.Update)
	sessions.PATCH("/:id", h.Sessions.Update)
	sessions.PATCH("/:id/status", h.Sessions.UpdateStatus)
	sessions.DELETE("/:id", h.Sessions.Delete)

	reports := api.Group("/reports", auth, middleware.WithResponseMeta())
	reports.GET("/sessions", h.Reports.Sessions)
	reports.GET("/summary", h.Reports.Summary)
	reports.GET("/dashboard", h.Reports.Dashboard)
	reports.GET("/export", middleware.Audit(deps.Audit, deps.Logger, models.AuditActionReportExport, "reports"), h.Reports.Export)

	api.GET("/metrics/summary", auth, adminOnly, h.Metrics.Snapshot)
}
