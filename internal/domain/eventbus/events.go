package eventbus

import "time"

// Grant lifecycle topics.
const (
	EventGrantStored     = "grant:stored"
	EventGrantRemoved    = "grant:removed"
	EventGrantsRemoved   = "grant:removed_all"
	EventGrantsPruned    = "grant:pruned"
	EventGrantStoreError = "grant:error"
)

// GrantEventData describes a single grant that was written or removed.
type GrantEventData struct {
	Key       string    `json:"key"`
	Type      string    `json:"type"`
	SubjectID string    `json:"subject_id,omitempty"`
	ClientID  string    `json:"client_id"`
	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
}

// FilterEventData describes a bulk operation addressed by a filter.
type FilterEventData struct {
	SubjectID string    `json:"subject_id"`
	ClientID  string    `json:"client_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Type      string    `json:"type,omitempty"`
	Keys      []string  `json:"keys,omitempty"`
	At        time.Time `json:"at"`
}

// ErrorEventData reports a failed store operation.
type ErrorEventData struct {
	Operation string `json:"operation"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}
