package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/url-sentinel/internal/telemetry"
)

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, handler *Handler, tel *telemetry.Provider) {
	// Health and readiness checks
	router.GET("/health", handler.HealthCheck)
	router.GET("/ready", handler.ReadyCheck)

	if tel != nil {
		router.GET("/metrics", gin.WrapH(tel.Handler()))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict", handler.Predict)   // POST /api/v1/predict
		v1.POST("/feedback", handler.Feedback) // POST /api/v1/feedback
		v1.POST("/analyze", handler.Analyze)   // POST /api/v1/analyze

		// Training endpoints
		v1.POST("/retrain", handler.Retrain) // POST /api/v1/retrain
		v1.POST("/train", handler.Train)     // POST /api/v1/train
		v1.POST("/ingest", handler.Ingest)   // POST /api/v1/ingest
		v1.POST("/extract", handler.Extract) // POST /api/v1/extract

		// Statistics endpoints
		stats := v1.Group("/stats")
		{
			stats.GET("", handler.GetStats)                  // GET /api/v1/stats
			stats.GET("/training", handler.GetTrainingStats) // GET /api/v1/stats/training
		}
	}
}
