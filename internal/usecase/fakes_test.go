package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"NewsRelay/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	articles []domain.Article
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeSource) FetchLatest(ctx context.Context) ([]domain.Article, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.articles, f.err
}

type memStore struct {
	mu        sync.Mutex
	records   map[string]domain.SentRecord
	order     []string
	failMark  map[string]bool
	failCheck map[string]bool
}

func newMemStore() *memStore {
	return &memStore{records: map[string]domain.SentRecord{}}
}

func (m *memStore) IsSent(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCheck[url] {
		return false, &domain.PersistenceError{Op: "is_sent", URL: url, Err: errors.New("disk error")}
	}
	_, ok := m.records[url]
	return ok, nil
}

func (m *memStore) MarkSent(_ context.Context, url, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMark[url] {
		return &domain.PersistenceError{Op: "mark_sent", URL: url, Err: errors.New("disk full")}
	}
	if _, ok := m.records[url]; ok {
		return nil
	}
	m.records[url] = domain.SentRecord{URL: url, Title: title, SentAt: time.Now()}
	m.order = append(m.order, url)
	return nil
}

func (m *memStore) RecentlySent(_ context.Context, limit int) ([]domain.SentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.SentRecord{}
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[m.order[i]])
	}
	return out, nil
}

func (m *memStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

type fakeSummarizer struct {
	summary string
	err     error
	inputs  []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	f.inputs = append(f.inputs, text)
	return f.summary, f.err
}

type fakeNotifier struct {
	mu        sync.Mutex
	sent      []domain.Message
	failFor   map[string]bool
	connected bool
}

func (f *fakeNotifier) SendUpdate(_ context.Context, msg domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[msg.ActionURL] {
		return &domain.DeliveryError{StatusCode: 400, Body: "Bad Request"}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) TestConnection(context.Context) bool {
	return f.connected
}

func (f *fakeNotifier) messages() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message(nil), f.sent...)
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}
