package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates the admin HTTP engine with all routes configured.
// An empty apiKey leaves the /api group unauthenticated.
func NewServer(handler *Handler, apiKey string, gatherer prometheus.Gatherer, log *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(requestLogger(log.With("component", "http")))
	r.Use(gin.Recovery())

	setupRoutes(r, handler, apiKey, gatherer, log)
	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiKey string, gatherer prometheus.Gatherer, log *slog.Logger) {
	r.GET("/health", handler.Health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	if apiKey != "" {
		api.Use(authMiddleware(apiKey))
		log.Info("admin api enabled with authentication")
	} else {
		log.Warn("admin api enabled without authentication (ADMIN_API_KEY not set)")
	}
	{
		api.GET("/scheduler", handler.SchedulerStatus)
		api.POST("/scheduler", handler.ControlScheduler)
		api.POST("/bot/test", handler.TestBot)
		api.POST("/news/send", handler.SendNews)
		api.GET("/news/recent", handler.RecentNews)
	}
}

// authMiddleware accepts the key from X-API-Key or Authorization: Bearer.
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
