// Package analytics records search activity: every answered query becomes a
// SearchEvent that is aggregated in process and, when a broker is
// configured, published in batches to the search-events topic.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// SearchEvent describes one answered query.
type SearchEvent struct {
	Type        EventType `json:"type"`
	Query       string    `json:"query"`
	Terms       []string  `json:"terms"`
	Returned    int       `json:"returned"`
	UsePageRank bool      `json:"use_pagerank"`
	Surface     string    `json:"surface"`
	LatencyMs   int64     `json:"latency_ms"`
	CacheHit    bool      `json:"cache_hit"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}

// NewSearchEvent fills Type from the result count and stamps the time.
func NewSearchEvent(query string, terms []string, returned int, latency time.Duration) SearchEvent {
	typ := EventSearch
	if returned == 0 {
		typ = EventZeroResult
	}
	return SearchEvent{
		Type:      typ,
		Query:     query,
		Terms:     terms,
		Returned:  returned,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
}
