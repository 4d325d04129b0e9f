package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"NewsRelay/internal/content"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/metrics"
	"NewsRelay/internal/ports"
)

const (
	defaultFallbackLength = 200
	maxTitleWidth         = 256
	testMessageText       = "<b>Test Message</b>\n\nThis is a test message from your news bot."
	testMessageURL        = "https://example.com"
	ellipsis              = "..."
)

// PublishStatus is the outcome of a single publish step.
type PublishStatus string

const (
	StatusSent      PublishStatus = "sent"
	StatusDuplicate PublishStatus = "duplicate"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Store      ports.DedupStore
	Summarizer ports.Summarizer
	Notifier   ports.Notifier
	Metrics    *metrics.Pipeline
	Logger     *slog.Logger
}

// PipelineOptions tunes pacing, fallback and overlap behaviour.
type PipelineOptions struct {
	DeliveryDelay  time.Duration
	FallbackLength int
	AllowOverlap   bool
	Location       *time.Location
}

// RunReport summarises one pipeline run.
type RunReport struct {
	RunID             string
	StartedAt         time.Time
	Duration          time.Duration
	Fetched           int
	Skipped           int
	Delivered         int
	Failed            int
	Fallbacks         int
	PersistenceErrors int
	FetchErr          error
	Overlapped        bool
}

// Pipeline implements the news ingestion workflow:
// fetch, filter, summarize, deliver, record.
type Pipeline struct {
	source     ports.ArticleSource
	store      ports.DedupStore
	summarizer ports.Summarizer
	notifier   ports.Notifier
	metrics    *metrics.Pipeline
	logger     *slog.Logger

	deliveryDelay  time.Duration
	fallbackLength int
	allowOverlap   bool
	location       *time.Location

	running  atomic.Bool
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	newRunID func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	delay := max(opts.DeliveryDelay, 0)
	fallback := opts.FallbackLength
	if fallback <= 0 {
		fallback = defaultFallbackLength
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Pipeline{
		source:         deps.Source,
		store:          deps.Store,
		summarizer:     deps.Summarizer,
		notifier:       deps.Notifier,
		metrics:        deps.Metrics,
		logger:         log.With("component", "pipeline"),
		deliveryDelay:  delay,
		fallbackLength: fallback,
		allowOverlap:   opts.AllowOverlap,
		location:       loc,
		sleep:          sleepContext,
		now:            time.Now,
		newRunID:       uuid.NewString,
	}
}

// Run executes one ingestion cycle. It never returns an error: fetch failures
// end the run early and per-article failures are logged and counted.
func (p *Pipeline) Run(ctx context.Context) RunReport {
	report := RunReport{RunID: p.newRunID(), StartedAt: p.now()}
	log := p.logger.With("run_id", report.RunID)

	if !p.allowOverlap {
		if !p.running.CompareAndSwap(false, true) {
			report.Overlapped = true
			log.Warn("previous run still in progress, skipping")
			p.metrics.RunSkipped()
			return report
		}
		defer p.running.Store(false)
	}

	defer func() {
		report.Duration = p.now().Sub(report.StartedAt)
		outcome := metrics.OutcomeCompleted
		if report.FetchErr != nil {
			outcome = metrics.OutcomeFetchFailed
		}
		p.metrics.RunFinished(outcome, report.Duration)
	}()

	if p.source == nil || p.store == nil || p.notifier == nil {
		report.FetchErr = &domain.FetchError{Err: errors.New("pipeline is not fully wired")}
		log.Error("run aborted", "error", report.FetchErr)
		return report
	}

	log.Info("run started")
	articles, err := p.source.FetchLatest(ctx)
	if err != nil {
		report.FetchErr = err
		log.Error("fetch failed, ending run", "error", err)
		return report
	}
	report.Fetched = len(articles)
	p.metrics.Fetched(len(articles))
	if len(articles) == 0 {
		log.Info("no articles this cycle")
		return report
	}

	attempted := false
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", "error", err)
			break
		}

		alog := log.With("url", article.URL)

		sent, err := p.store.IsSent(ctx, article.URL)
		if err != nil {
			report.PersistenceErrors++
			alog.Error("dedup lookup failed, skipping article", "error", err)
			continue
		}
		if sent {
			report.Skipped++
			p.metrics.Delivery(metrics.ResultDuplicate)
			alog.Debug("already sent")
			continue
		}

		summary, fellBack := p.summarize(ctx, alog, article)
		if fellBack {
			report.Fallbacks++
			p.metrics.Fallback()
		}

		if attempted {
			if err := p.sleep(ctx, p.deliveryDelay); err != nil {
				log.Warn("run cancelled during pacing", "error", err)
				break
			}
		}
		attempted = true

		if err := p.deliverAndRecord(ctx, alog, article, summary); err != nil {
			var perr *domain.PersistenceError
			if errors.As(err, &perr) {
				report.Delivered++
				report.PersistenceErrors++
				continue
			}
			report.Failed++
			continue
		}
		report.Delivered++
	}

	log.Info("run finished",
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"delivered", report.Delivered,
		"failed", report.Failed,
		"fallbacks", report.Fallbacks,
		"persistence_errors", report.PersistenceErrors,
	)
	return report
}

// Publish delivers a single article unless its URL was already sent.
// An empty summary is replaced by the fallback derived from the article.
// When delivery succeeds but recording fails, StatusSent is returned with a
// PersistenceError.
func (p *Pipeline) Publish(ctx context.Context, article domain.Article, summary string) (PublishStatus, error) {
	if strings.TrimSpace(article.URL) == "" {
		return "", errors.New("article url is required")
	}
	if p.store == nil || p.notifier == nil {
		return "", errors.New("pipeline is not fully wired")
	}

	log := p.logger.With("url", article.URL)

	sent, err := p.store.IsSent(ctx, article.URL)
	if err != nil {
		return "", err
	}
	if sent {
		p.metrics.Delivery(metrics.ResultDuplicate)
		log.Info("publish skipped, already sent")
		return StatusDuplicate, nil
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = p.fallback(article, content.PlainText(article.Content))
	}

	if err := p.deliverAndRecord(ctx, log, article, summary); err != nil {
		var perr *domain.PersistenceError
		if errors.As(err, &perr) {
			return StatusSent, err
		}
		return "", err
	}
	return StatusSent, nil
}

// RecentlySent lists delivered articles, newest first.
func (p *Pipeline) RecentlySent(ctx context.Context, limit int) ([]domain.SentRecord, error) {
	if p.store == nil {
		return nil, errors.New("dedup store is not configured")
	}
	return p.store.RecentlySent(ctx, limit)
}

// SentCount returns the number of recorded deliveries.
func (p *Pipeline) SentCount(ctx context.Context) (int, error) {
	if p.store == nil {
		return 0, errors.New("dedup store is not configured")
	}
	return p.store.Count(ctx)
}

// CheckDelivery reports whether the messaging channel accepts our credentials.
func (p *Pipeline) CheckDelivery(ctx context.Context) bool {
	if p.notifier == nil {
		return false
	}
	return p.notifier.TestConnection(ctx)
}

// SendTest verifies the connection and posts a fixed test message.
func (p *Pipeline) SendTest(ctx context.Context) error {
	if !p.CheckDelivery(ctx) {
		return &domain.DeliveryError{Err: errors.New("bot connection test failed")}
	}
	return p.notifier.SendUpdate(ctx, domain.Message{Text: testMessageText, ActionURL: testMessageURL})
}

func (p *Pipeline) summarize(ctx context.Context, log *slog.Logger, article domain.Article) (string, bool) {
	text := content.PlainText(article.Content)
	if p.summarizer == nil || text == "" {
		return p.fallback(article, text), true
	}

	summary, err := p.summarizer.Summarize(ctx, text)
	if err == nil && strings.TrimSpace(summary) == "" {
		err = &domain.SummarizationError{Err: errors.New("empty summary")}
	}
	if err != nil {
		log.Warn("summarization failed, using article text", "error", err)
		return p.fallback(article, text), true
	}
	return strings.TrimSpace(summary), false
}

func (p *Pipeline) fallback(article domain.Article, text string) string {
	if summary := content.Truncate(text, p.fallbackLength); summary != "" {
		return summary
	}
	return strings.TrimSpace(article.Title)
}

// deliverAndRecord sends the message and, only on success, marks the URL sent.
func (p *Pipeline) deliverAndRecord(ctx context.Context, log *slog.Logger, article domain.Article, summary string) error {
	msg := p.buildMessage(article, summary)

	if err := p.notifier.SendUpdate(ctx, msg); err != nil {
		p.metrics.Delivery(metrics.ResultFailed)
		log.Error("delivery failed", "title", article.Title, "error", err)
		return err
	}
	p.metrics.Delivery(metrics.ResultSent)

	if err := p.store.MarkSent(ctx, article.URL, article.Title); err != nil {
		p.metrics.PersistenceError()
		var perr *domain.PersistenceError
		if !errors.As(err, &perr) {
			err = &domain.PersistenceError{Op: "mark_sent", URL: article.URL, Err: err}
		}
		log.Error("CRITICAL: article delivered but not recorded, it may be sent again", "error", err)
		return err
	}

	log.Info("article delivered", "title", article.Title)
	return nil
}

// buildMessage renders title, summary and footer as HTML. The summary is
// shortened so the visible text fits the caption limit for image posts and
// the message limit otherwise.
func (p *Pipeline) buildMessage(article domain.Article, summary string) domain.Message {
	title := content.Truncate(article.Title, maxTitleWidth)

	footer := article.FormatPublishedAt(p.location)
	if source := strings.TrimSpace(article.Source); source != "" {
		footer = source + " · " + footer
	}

	limit := domain.MaxTextLength
	if article.ImageURL != "" {
		limit = domain.MaxCaptionLength
	}
	summary = fitSummary(summary, limit-utf8.RuneCountInString(title)-utf8.RuneCountInString(footer)-4)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>", html.EscapeString(title))
	if summary != "" {
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(summary))
	}
	b.WriteString("\n\n<i>")
	b.WriteString(html.EscapeString(footer))
	b.WriteString("</i>")

	return domain.Message{
		Text:      b.String(),
		Photo:     article.ImageURL,
		ActionURL: article.URL,
	}
}

// fitSummary shortens summary to at most budget characters, ellipsis included.
func fitSummary(summary string, budget int) string {
	summary = strings.TrimSpace(summary)
	if utf8.RuneCountInString(summary) <= budget {
		return summary
	}
	if budget <= len(ellipsis) {
		return ""
	}
	return content.Truncate(summary, budget-len(ellipsis))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
