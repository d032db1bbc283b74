package api

import "github.com/welltold/storygo/internal/pkg/record"

// Snapshot - record state pushed to observers in JSON.
// Exists is false when there is no record for the key yet
type Snapshot struct {
	Key    string         `json:"key"`
	Exists bool           `json:"exists"`
	Record *record.Record `json:"record,omitempty"`
}
