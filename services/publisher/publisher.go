package publisher

import (
	"encoding/json"
	"time"
)

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// HistoryEvent announces that a game's history document was replaced
type HistoryEvent struct {
	RunID       string    `json:"run_id"`
	Game        string    `json:"game"`
	State       string    `json:"state"`
	TotalDraws  int       `json:"total_draws"`
	LatestDate  string    `json:"latest_date,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// EventKey is the stream field name refreshed-history events are published under
func EventKey(game string) string {
	return "history:" + game
}

// Encode serializes the event for Publish
func (e HistoryEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}
