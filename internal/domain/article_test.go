package domain

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestFormatPublishedAtPlaceholder(t *testing.T) {
	t.Parallel()

	var a Article
	if got := a.FormatPublishedAt(time.UTC); got != DateUnavailable {
		t.Fatalf("expected placeholder, got %q", got)
	}
}

func TestFormatPublishedAtLocation(t *testing.T) {
	t.Parallel()

	a := Article{PublishedAt: time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)}
	if got := a.FormatPublishedAt(nil); got != "04 Mar 2025 10:30" {
		t.Fatalf("unexpected date: %q", got)
	}

	loc := time.FixedZone("UTC+2", 2*60*60)
	if got := a.FormatPublishedAt(loc); got != "04 Mar 2025 12:30" {
		t.Fatalf("unexpected shifted date: %q", got)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	t.Parallel()

	errs := []error{
		&FetchError{Source: "lexica", Err: io.EOF},
		&SummarizationError{Err: io.EOF},
		&DeliveryError{StatusCode: 400, Body: "bad", Err: io.EOF},
		&PersistenceError{Op: "mark sent", URL: "u", Err: io.EOF},
	}
	for _, err := range errs {
		if !errors.Is(err, io.EOF) {
			t.Fatalf("%T does not unwrap to the cause", err)
		}
		if err.Error() == "" {
			t.Fatalf("%T has empty message", err)
		}
	}

	var delivery *DeliveryError
	if !errors.As(errs[2], &delivery) || delivery.StatusCode != 400 {
		t.Fatalf("errors.As failed for delivery error")
	}
}
