package domain

import "fmt"

// FetchError reports that a content provider could not be read.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("fetch articles: %v", e.Err)
	}
	return fmt.Sprintf("fetch articles from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SummarizationError reports a failed summarizer call.
type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarize: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// DeliveryError carries the upstream status and response body of a failed send.
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("deliver: status %d: %s: %v", e.StatusCode, e.Body, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("deliver: status %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("deliver: %v", e.Err)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PersistenceError reports a failed dedup store operation.
type PersistenceError struct {
	Op  string
	URL string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigurationError is returned when a required setting is missing or invalid.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}
