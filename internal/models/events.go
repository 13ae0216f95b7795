// Package models defines the data structures for published events.
package models

// UsageEvent records one usage ledger credit.
type UsageEvent struct {
	EventType string `json:"eventType"`
	ClientID  string `json:"clientId"`
	Date      string `json:"date"`
	Backend   string `json:"backend"`
	Seconds   int64  `json:"seconds"`
	Timestamp int64  `json:"timestamp"`
}

// TranscriptEvent records one successful transcription.
type TranscriptEvent struct {
	EventType       string  `json:"eventType"`
	ClientID        string  `json:"clientId"`
	Backend         string  `json:"backend"`
	Model           string  `json:"model"`
	Format          string  `json:"format"`
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"durationSeconds"`
	Timestamp       int64   `json:"timestamp"`
}
