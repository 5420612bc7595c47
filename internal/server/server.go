package server

import (
	"time"

	"github.com/anmicius0/euvat-checker/internal/config"
	"github.com/anmicius0/euvat-checker/internal/metrics"
	"github.com/anmicius0/euvat-checker/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the Gin router with the configured API handlers.
// m may be nil, in which case no metrics endpoint is mounted.
func NewRouter(cfg *config.Config, jobStore *config.JobStore, batchManager *BatchManager, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	handler := newHandler(cfg, jobStore, batchManager)

	router.GET(HealthEndpoint, handler.health)
	if m != nil {
		router.GET(MetricsEndpoint, gin.WrapH(m.Handler()))
	}

	batches := router.Group(BatchesPath, authMiddleware(cfg.APIToken))
	batches.POST("", handler.submitBatch)
	batches.GET("/:id", handler.getBatchStatus)

	return router
}

// requestLogger logs one structured line per request once the handler chain returns.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String(utils.FieldPath, c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		log := utils.WithComponent("http")
		if c.Writer.Status() >= 500 {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
