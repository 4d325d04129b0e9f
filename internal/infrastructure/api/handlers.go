package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/usecase"
)

// Handler serves the admin endpoints.
type Handler struct {
	scheduler SchedulerControl
	news      NewsService
	logger    *slog.Logger
}

// NewHandler wires the scheduler and pipeline into HTTP handlers.
func NewHandler(scheduler SchedulerControl, news NewsService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{scheduler: scheduler, news: news, logger: log.With("component", "api")}
}

func (h *Handler) Health(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"scheduler": gin.H{"running": h.scheduler.Running()},
	}
	if count, err := h.news.SentCount(c.Request.Context()); err == nil {
		health["sent_total"] = count
	} else {
		health["status"] = "degraded"
		h.logger.Warn("health: dedup store unavailable", "error", err)
	}
	c.JSON(http.StatusOK, health)
}

func (h *Handler) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.scheduler.Running()})
}

func (h *Handler) ControlScheduler(c *gin.Context) {
	var req schedulerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": `Invalid action. Use "start" or "stop".`})
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case "start":
		if err := h.scheduler.Start(ctx); err != nil {
			h.logger.Error("scheduler start failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error controlling scheduler", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Scheduler started successfully", "running": h.scheduler.Running()})
	case "stop":
		if err := h.scheduler.Stop(ctx); err != nil {
			h.logger.Error("scheduler stop failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error controlling scheduler", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Scheduler stopped successfully", "running": h.scheduler.Running()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": `Invalid action. Use "start" or "stop".`})
	}
}

func (h *Handler) TestBot(c *gin.Context) {
	if err := h.news.SendTest(c.Request.Context()); err != nil {
		h.logger.Error("bot test failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Test failed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test successful", "status": "sent"})
}

func (h *Handler) SendNews(c *gin.Context) {
	var req sendNewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.ArticleURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Article URL is required"})
		return
	}

	article := domain.Article{
		ID:       req.ArticleURL,
		Title:    req.Title,
		URL:      req.ArticleURL,
		ImageURL: req.ImageURL,
	}

	status, err := h.news.Publish(c.Request.Context(), article, req.Summary)
	switch {
	case err == nil && status == usecase.StatusDuplicate:
		c.JSON(http.StatusConflict, gin.H{"message": "This news has already been sent", "status": "duplicate"})
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "News sent successfully", "status": "sent"})
	case status == usecase.StatusSent:
		var perr *domain.PersistenceError
		if errors.As(err, &perr) {
			c.JSON(http.StatusOK, gin.H{"message": "News sent but not recorded", "status": "sent", "warning": err.Error()})
			return
		}
		fallthrough
	default:
		h.logger.Error("send news failed", "url", req.ArticleURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error sending news", "error": err.Error()})
	}
}

func (h *Handler) RecentNews(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be an integer"})
			return
		}
		limit = n
	}

	records, err := h.news.RecentlySent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("recent news failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching recent news", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": records, "count": len(records)})
}
