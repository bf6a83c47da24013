package model

import (
	"time"

	platformerrors "grant-store/internal/platform/errors"
)

// Well known grant types issued by the identity provider.
const (
	TypeAuthorizationCode = "authorization_code"
	TypeRefreshToken      = "refresh_token"
	TypeReferenceToken    = "reference_token"
	TypeUserConsent       = "user_consent"
	TypeDeviceCode        = "device_code"
	TypeBackChannelAuth   = "ciba"
)

// PersistedGrant is a short lived security artifact held on behalf of a client
// and, optionally, a subject and session.
type PersistedGrant struct {
	Key          string     `json:"key"`
	Type         string     `json:"type"`
	SubjectID    string     `json:"subjectId,omitempty"`
	SessionID    string     `json:"sessionId,omitempty"`
	ClientID     string     `json:"clientId"`
	Description  string     `json:"description,omitempty"`
	CreationTime time.Time  `json:"creationTime"`
	Expiration   *time.Time `json:"expiration,omitempty"`
	ConsumedTime *time.Time `json:"consumedTime,omitempty"`
	Data         string     `json:"data"`
}

// Indexed reports whether the grant takes part in filtered lookups.
func (g PersistedGrant) Indexed() bool {
	return g.SubjectID != ""
}

// ExpiredAt reports whether the grant has an expiration at or before now.
func (g PersistedGrant) ExpiredAt(now time.Time) bool {
	return g.Expiration != nil && !g.Expiration.After(now)
}

// Filter selects grants by exact match on its non-empty fields.
type Filter struct {
	SubjectID string `json:"subjectId,omitempty" form:"subject_id"`
	SessionID string `json:"sessionId,omitempty" form:"session_id"`
	ClientID  string `json:"clientId,omitempty" form:"client_id"`
	Type      string `json:"type,omitempty" form:"type"`
}

// Validate rejects a filter that does not identify a subject.
func (f Filter) Validate() error {
	if f.SubjectID == "" {
		return platformerrors.Invalid("grant.filter", "subject id required")
	}
	return nil
}

// Matches applies the filter to a decoded grant.
func (f Filter) Matches(g PersistedGrant) bool {
	return (f.SubjectID == "" || g.SubjectID == f.SubjectID) &&
		(f.ClientID == "" || g.ClientID == f.ClientID) &&
		(f.SessionID == "" || g.SessionID == f.SessionID) &&
		(f.Type == "" || g.Type == f.Type)
}

// Logger provides the minimal logging contract required by the grant domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
