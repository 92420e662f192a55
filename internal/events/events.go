// Package events publishes run lifecycle events to Kafka and defines the run
// request messages consumed by the asynchronous driver.
package events

import "time"

type Type string

const (
	TypeRunStarted     Type = "run_started"
	TypeChunkProcessed Type = "chunk_processed"
	TypeRunCompleted   Type = "run_completed"
	TypeRunCleared     Type = "run_cleared"
)

// RunEvent describes one step of a suggestion run.
type RunEvent struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Mode        string    `json:"mode"`
	ProcessKey  string    `json:"process_key"`
	Document    string    `json:"document"`
	Processed   int       `json:"processed"`
	Total       int       `json:"total"`
	Suggestions int       `json:"suggestions"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// RunRequest asks a worker to drive a run to completion.
type RunRequest struct {
	ProcessKey string `json:"process_key"`
	Mode       string `json:"mode"`
	DocumentID int64  `json:"document_id"`
	Kind       string `json:"kind"`
	// Keywords is the inbound literal keyword override, ';' separated.
	Keywords  string    `json:"keywords,omitempty"`
	Requested time.Time `json:"requested"`
}

// Sink receives run events. Implementations must not block.
type Sink interface {
	Track(event RunEvent)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Track(RunEvent) {}
