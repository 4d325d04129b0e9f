package domain

import "time"

// DateUnavailable is rendered instead of a publication date that is missing or unparseable.
const DateUnavailable = "Date unavailable"

// Article is a candidate news item fetched from a provider on each poll.
type Article struct {
	ID          string
	Title       string
	Content     string
	URL         string
	ImageURL    string
	Source      string
	PublishedAt time.Time
}

// FormatPublishedAt renders the publication date or the placeholder when it is unknown.
func (a Article) FormatPublishedAt(loc *time.Location) string {
	if a.PublishedAt.IsZero() {
		return DateUnavailable
	}
	if loc == nil {
		loc = time.UTC
	}
	return a.PublishedAt.In(loc).Format("02 Jan 2006 15:04")
}

// SentRecord marks an article URL as delivered. Records are never updated or deleted.
type SentRecord struct {
	URL    string    `json:"url"`
	Title  string    `json:"title"`
	SentAt time.Time `json:"sent_at"`
}

// Visible text limits of a post, counted in characters once markup is parsed.
const (
	MaxCaptionLength = 1024
	MaxTextLength    = 4096
)

// Message is a single outbound post for the messaging channel.
// A message with a Photo is delivered as an image post with Text as caption.
type Message struct {
	Text      string
	Photo     string
	ActionURL string
}
