package lexica

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/scanner"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, "secret", time.Second)
	c.retryWait = time.Millisecond
	return c
}

func TestScanDecodesArrayAndSkipsInvalidEntries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		_, _ = w.Write([]byte(`[
			{"id":"1","title":"Storm hits coast","content":"Body","url":"https://n.example/1","imageUrl":"https://n.example/1.jpg","publishedAt":"2024-03-01T10:00:00Z","source":"Wire"},
			{"title":"No link","url":""},
			{"title":"","url":"https://n.example/untitled"},
			{"title":"Bad date","url":"https://n.example/2","publishedAt":"yesterday"}
		]`))
	}))
	defer srv.Close()

	articles, err := newTestClient(srv.URL).Scan(context.Background(), scanner.Request{SiteName: "lexica"})
	require.NoError(t, err)
	require.Len(t, articles, 2)

	require.Equal(t, "1", articles[0].ID)
	require.Equal(t, "https://n.example/1.jpg", articles[0].ImageURL)
	require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), articles[0].PublishedAt.UTC())

	require.Equal(t, "https://n.example/2", articles[1].ID)
	require.True(t, articles[1].PublishedAt.IsZero())
}

func TestScanDecodesEnvelopeAndForwardsLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("expected limit=5, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"articles":[{"title":"One","url":"https://n.example/1"}]}`))
	}))
	defer srv.Close()

	req := scanner.Request{Options: map[string]string{"limit": "5"}}
	articles, err := newTestClient(srv.URL).Scan(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	require.Equal(t, "One", articles[0].Title)
}

func TestScanEmptyFeedIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	articles, err := newTestClient(srv.URL).Scan(context.Background(), scanner.Request{})
	require.NoError(t, err)
	require.Empty(t, articles)
}

func TestScanRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"title":"Late","url":"https://n.example/late"}]`))
	}))
	defer srv.Close()

	articles, err := newTestClient(srv.URL).Scan(context.Background(), scanner.Request{})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	require.EqualValues(t, 3, calls.Load())
}

func TestScanDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Scan(context.Background(), scanner.Request{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.EqualValues(t, 1, calls.Load())
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/summarize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var payload struct {
			Content   string `json:"content"`
			MaxLength int    `json:"maxLength"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Content != "long text" || payload.MaxLength != 150 {
			t.Errorf("unexpected payload %+v", payload)
		}
		_, _ = w.Write([]byte(`{"summary":"  short text "}`))
	}))
	defer srv.Close()

	summary, err := newTestClient(srv.URL).WithMaxLength(150).Summarize(context.Background(), "long text")
	require.NoError(t, err)
	require.Equal(t, "short text", summary)
}

func TestSummarizeFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"summary":""}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Summarize(context.Background(), "text")
	var serr *domain.SummarizationError
	require.True(t, errors.As(err, &serr), "empty summary must be a SummarizationError")

	_, err = client.Summarize(context.Background(), "   ")
	require.True(t, errors.As(err, &serr), "empty input must be a SummarizationError")
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	if !parseTime("").IsZero() || !parseTime("not a date").IsZero() {
		t.Fatal("expected zero time for missing or invalid values")
	}
	if got := parseTime("Fri, 01 Mar 2024 10:00:00 +0000"); got.IsZero() {
		t.Fatal("RFC1123Z value should parse")
	}
}
