package cache

import "time"

// Entry is a cached response body. Only successful responses are stored, so
// no status is kept.
type Entry struct {
	Body      []byte    `json:"body"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewEntry wraps a body fetched from url now.
func NewEntry(url string, body []byte) *Entry {
	return &Entry{
		Body:      body,
		URL:       url,
		FetchedAt: time.Now().UTC(),
	}
}

// Age is the time since the body was fetched.
func (e *Entry) Age() time.Duration {
	return time.Since(e.FetchedAt)
}
