package server

import (
	"github.com/claimpilot/backend/internal/server/middleware"
	"github.com/claimpilot/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Claim analysis routes
	apiRoutes.POST("/claims/analyze", routes.AnalyzeClaimHandler, middleware.RequirePermission("claims.analyze"))

	// Evidence document routes
	apiRoutes.POST("/evidence", routes.UploadEvidenceHandler, middleware.RequirePermission("evidence.upload"))
	apiRoutes.DELETE("/evidence", routes.DeleteEvidenceHandler, middleware.RequirePermission("evidence.delete"))
}
