package record

import (
	"time"
)

// Record is the vault entry tracking one story through processing.
// It is the wire form served by the vault service and consumed by clients
type Record struct {
	ID           string     `json:"id"`
	Title        string     `json:"title,omitempty"`
	Status       string     `json:"status,omitempty"`
	ContextBox   string     `json:"contextbox,omitempty"`
	DurationSec  int        `json:"durationSec,omitempty"`
	RecordingURL string     `json:"recordingUrl,omitempty"`
	Transcript   Transcript `json:"transcript"`
	Feedback     Feedback   `json:"feedback"`
	Email        string     `json:"email,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt,omitempty"`
}
