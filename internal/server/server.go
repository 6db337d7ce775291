package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/faytonn/clobx/internal/engine"
	"github.com/faytonn/clobx/internal/stream"
	"github.com/faytonn/clobx/pkg/config"
)

// Server owns the gin engine and its dependency on the exchange engine.
type Server struct {
	router *gin.Engine
	eng    *engine.Engine
	logger *zap.Logger
}

// New builds a Server with every route registered. cfg.Server.Mode
// selects gin's release/debug mode.
func New(eng *engine.Engine, str *stream.Hub, cfg *config.Config, logger *zap.Logger) *Server {
	gin.SetMode(ginModeFor(cfg.Server.Mode))
	router := gin.New()
	router.Use(gin.Recovery(), loggingMiddleware(logger), rateLimitMiddleware(cfg.Trading.RateLimitPerSec, cfg.Trading.RateLimitBurst))

	s := &Server{router: router, eng: eng, logger: logger}
	s.registerHealth()
	s.registerAuthRoutes()
	s.registerV2OrderRoutes()
	s.registerV1OrderRoutes()
	s.registerBalanceRoutes()
	str.RegisterRoutes(router, eng)
	return s
}

// Router returns the underlying gin engine for http.Server.Handler.
func (s *Server) Router() *gin.Engine { return s.router }

func ginModeFor(mode string) string {
	if mode == "" {
		return gin.ReleaseMode
	}
	return mode
}

// loggingMiddleware logs every request at Info with latency and status.
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// rateLimitMiddleware throttles requests per remote address with a
// token bucket.
func rateLimitMiddleware(perSec, burst int) gin.HandlerFunc {
	limiters := newLimiterSet(rate.Limit(perSec), burst)
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatus(429)
			return
		}
		c.Next()
	}
}
