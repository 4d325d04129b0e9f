package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/usecase"
)

type stubScheduler struct {
	mu      sync.Mutex
	running bool
}

func (s *stubScheduler) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

func (s *stubScheduler) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *stubScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

type stubNews struct {
	published []domain.Article
	sent      map[string]bool
	publish   error
	testErr   error
	records   []domain.SentRecord
	lastLimit int
}

func (s *stubNews) Publish(_ context.Context, a domain.Article, _ string) (usecase.PublishStatus, error) {
	if s.publish != nil {
		return "", s.publish
	}
	if s.sent[a.URL] {
		return usecase.StatusDuplicate, nil
	}
	s.published = append(s.published, a)
	return usecase.StatusSent, nil
}

func (s *stubNews) RecentlySent(_ context.Context, limit int) ([]domain.SentRecord, error) {
	s.lastLimit = limit
	return s.records, nil
}

func (s *stubNews) SentCount(context.Context) (int, error) { return len(s.records), nil }

func (s *stubNews) SendTest(context.Context) error { return s.testErr }

func newTestServer(apiKey string) (http.Handler, *stubScheduler, *stubNews) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := &stubScheduler{}
	news := &stubNews{sent: map[string]bool{}}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "newsrelay_test_total", Help: "test"}))
	return NewServer(NewHandler(sched, news, log), apiKey, reg, log), sched, news
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSchedulerEndpoints(t *testing.T) {
	t.Parallel()

	h, sched, _ := newTestServer("")

	rec := do(t, h, http.MethodPost, "/api/scheduler", `{"action":"start"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, sched.Running())

	rec = do(t, h, http.MethodGet, "/api/scheduler", "", nil)
	require.Equal(t, true, decode(t, rec)["running"])

	rec = do(t, h, http.MethodPost, "/api/scheduler", `{"action":"stop"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, sched.Running())

	rec = do(t, h, http.MethodPost, "/api/scheduler", `{"action":"pause"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendNewsEndpoint(t *testing.T) {
	t.Parallel()

	h, _, news := newTestServer("")

	rec := do(t, h, http.MethodPost, "/api/news/send", `{"title":"No URL"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"title":"Hello","summary":"World","imageUrl":"https://img/1.jpg","articleUrl":"https://news/1"}`
	rec = do(t, h, http.MethodPost, "/api/news/send", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "sent", decode(t, rec)["status"])
	require.Len(t, news.published, 1)
	require.Equal(t, "https://img/1.jpg", news.published[0].ImageURL)

	news.sent["https://news/1"] = true
	rec = do(t, h, http.MethodPost, "/api/news/send", body, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "duplicate", decode(t, rec)["status"])

	news.publish = &domain.DeliveryError{StatusCode: 400, Body: "bad"}
	rec = do(t, h, http.MethodPost, "/api/news/send", `{"title":"x","articleUrl":"https://news/2"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecentNewsEndpoint(t *testing.T) {
	t.Parallel()

	h, _, news := newTestServer("")
	news.records = []domain.SentRecord{{URL: "https://news/1", Title: "One"}}

	rec := do(t, h, http.MethodGet, "/api/news/recent", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	require.EqualValues(t, 1, out["count"])
	require.Equal(t, 10, news.lastLimit)

	do(t, h, http.MethodGet, "/api/news/recent?limit=3", "", nil)
	require.Equal(t, 3, news.lastLimit)

	rec = do(t, h, http.MethodGet, "/api/news/recent?limit=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBotTestEndpoint(t *testing.T) {
	t.Parallel()

	h, _, news := newTestServer("")

	rec := do(t, h, http.MethodPost, "/api/bot/test", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	news.testErr = errors.New("bot connection test failed")
	rec = do(t, h, http.MethodPost, "/api/bot/test", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestServer("s3cret")

	rec := do(t, h, http.MethodGet, "/api/scheduler", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, key := range []string{"wrong", "s3cre", "s3cret2", "S3CRET"} {
		rec = do(t, h, http.MethodGet, "/api/scheduler", "", map[string]string{"X-API-Key": key})
		require.Equal(t, http.StatusUnauthorized, rec.Code, key)
	}

	rec = do(t, h, http.MethodGet, "/api/scheduler", "", map[string]string{"X-API-Key": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/scheduler", "", map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestServer("")

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	require.Equal(t, "ok", out["status"])

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "newsrelay_test_total")
}
