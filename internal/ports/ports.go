package ports

import (
	"context"
	"time"

	"NewsRelay/internal/domain"
)

// ArticleSource pulls the current batch of candidate articles from upstream providers.
// A nil error with an empty slice is a quiet cycle; a non-nil error means the fetch failed.
type ArticleSource interface {
	FetchLatest(ctx context.Context) ([]domain.Article, error)
}

// DedupStore remembers which article URLs were already delivered.
type DedupStore interface {
	IsSent(ctx context.Context, url string) (bool, error)
	MarkSent(ctx context.Context, url, title string) error
	RecentlySent(ctx context.Context, limit int) ([]domain.SentRecord, error)
	Count(ctx context.Context) (int, error)
}

// Summarizer turns raw article text into a short digest.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Notifier publishes messages to the messaging channel.
type Notifier interface {
	SendUpdate(ctx context.Context, msg domain.Message) error
	TestConnection(ctx context.Context) bool
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
	Running() bool
}
