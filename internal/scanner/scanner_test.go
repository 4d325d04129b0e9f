package scanner

import (
	"context"
	"testing"

	"NewsRelay/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string { return s.name }

func (s stubScanner) Scan(context.Context, Request) ([]domain.Article, error) { return nil, nil }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "rss"})
	reg.Register(stubScanner{name: "lexica"})

	if _, err := reg.Resolve("rss"); err != nil {
		t.Fatalf("resolve rss: %v", err)
	}
	if _, err := reg.Resolve("arxiv"); err == nil {
		t.Fatal("expected error for unknown scanner")
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "lexica" || names[1] != "rss" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"limit": "5", "empty": ""}}
	if got := req.Option("limit", "10"); got != "5" {
		t.Fatalf("expected 5, got %s", got)
	}
	if got := req.Option("empty", "10"); got != "10" {
		t.Fatalf("expected default for empty option, got %s", got)
	}
	if got := req.Option("missing", "x"); got != "x" {
		t.Fatalf("expected default, got %s", got)
	}
}
