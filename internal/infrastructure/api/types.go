package api

import (
	"context"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/usecase"
)

// SchedulerControl starts and stops recurring pipeline runs.
type SchedulerControl interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
}

// NewsService is the slice of the pipeline exposed to operators.
type NewsService interface {
	Publish(ctx context.Context, article domain.Article, summary string) (usecase.PublishStatus, error)
	RecentlySent(ctx context.Context, limit int) ([]domain.SentRecord, error)
	SentCount(ctx context.Context) (int, error)
	SendTest(ctx context.Context) error
}

type schedulerRequest struct {
	Action string `json:"action"`
}

type sendNewsRequest struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	ImageURL   string `json:"imageUrl"`
	ArticleURL string `json:"articleUrl"`
}
