package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"portal/internal/app/middleware"
)

// RegisterAPIRoutes registers the REST routes. Every route except login and
// the health check requires a signed-in user; write permissions are checked
// per operation.
func (h *APIHandler) RegisterAPIRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	api := router.Group("/api")
	signedIn := authMiddleware.WithAuthCheck()

	services := api.Group("/services")
	services.Use(signedIn)
	{
		services.GET("", h.GetServices)
		services.POST("", h.CreateService)
		services.GET("/expiring", h.GetExpiringServices)
		services.POST("/bulk", h.BulkOperate)
		services.GET("/:id", h.GetService)
		services.PUT("/:id", h.UpdateService)
		services.DELETE("/:id", h.DeleteService)
		services.PUT("/:id/status", h.ChangeServiceStatus)
		services.POST("/:id/renew", h.RenewService)
		services.GET("/:id/renewals", h.GetServiceRenewals)
	}

	renewals := api.Group("/renewals")
	renewals.Use(signedIn)
	{
		renewals.GET("", h.GetRenewals)
		renewals.GET("/:id", h.GetRenewal)
		renewals.PUT("/:id", h.EditRenewal)
		renewals.DELETE("/:id", h.DeleteRenewal)
		renewals.PUT("/:id/complete", h.CompleteRenewal)
		renewals.PUT("/:id/fail", h.FailRenewal)
	}

	alerts := api.Group("/alerts")
	alerts.Use(signedIn)
	{
		alerts.GET("/schedule", h.GetAlertSchedule)
		alerts.GET("/due", h.GetDueReminders)
	}

	api.GET("/bulk-reports/:key", signedIn, h.GetBulkReport)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.AuthHandler.LoginUser)
		auth.POST("/logout", signedIn, h.AuthHandler.LogoutUser)
		auth.GET("/profile", signedIn, h.AuthHandler.GetUserProfile)
	}

	router.GET("/ping", h.Ping)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// RegisterMetrics exposes the collectors of gatherer at path.
func RegisterMetrics(router *gin.Engine, path string, gatherer prometheus.Gatherer) {
	router.GET(path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
