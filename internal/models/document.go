package models

import "time"

// Job statuses, in pipeline order.
const (
	StatusReceived   = "RECEIVED"
	StatusAnalyzing  = "ANALYZING"
	StatusExtracting = "EXTRACTING"
	StatusValidating = "VALIDATING"
	StatusFormatting = "FORMATTING"
	StatusRendering  = "RENDERING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Job is the record of one balance sheet generation run. It is persisted in
// Firestore when a project is configured and kept in memory otherwise.
type Job struct {
	ID           string      `firestore:"-" json:"id"`
	SessionID    string      `firestore:"sessionId,omitempty" json:"sessionId,omitempty"`
	Source       string      `firestore:"source,omitempty" json:"source,omitempty"`
	Filenames    []string    `firestore:"filenames,omitempty" json:"filenames,omitempty"`
	FileHashes   []string    `firestore:"fileHashes,omitempty" json:"fileHashes,omitempty"`
	FileHash     string      `firestore:"fileHash,omitempty" json:"fileHash,omitempty"`
	Status       string      `firestore:"status,omitempty" json:"status"`
	ErrorDetails string      `firestore:"errorDetails,omitempty" json:"errorDetails,omitempty"`
	OutputName   string      `firestore:"outputName,omitempty" json:"outputName,omitempty"`
	Steps        []AgentStep `firestore:"steps,omitempty" json:"steps,omitempty"`
	CreatedAt    time.Time   `firestore:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt    time.Time   `firestore:"updatedAt,omitempty" json:"updatedAt"`
}

// AgentStep is one timed stage of a run, shown on the results page.
type AgentStep struct {
	Label      string `firestore:"label" json:"label"`
	DurationMs int64  `firestore:"durationMs" json:"duration_ms"`
}
