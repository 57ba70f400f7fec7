package handler

import (
	"time"

	"github.com/Koyo-os/questionnaire-service/pkg/health"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter mounts the questionnaire routes and the health check
func NewRouter(h *Handler, checker *health.HealthChecker, logger *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(logger))

	h.Register(r)
	r.GET("/health", gin.WrapF(checker.HealthCheck))

	return r
}

func accessLog(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
