package model

import (
	"testing"
	"time"

	platformerrors "grant-store/internal/platform/errors"
)

func TestFilterValidate(t *testing.T) {
	if err := (Filter{}).Validate(); !platformerrors.IsKind(err, platformerrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := (Filter{ClientID: "c1", Type: TypeRefreshToken}).Validate(); err == nil {
		t.Fatalf("expected subject-less filter to be rejected")
	}
	if err := (Filter{SubjectID: "u1"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFilterMatches(t *testing.T) {
	g := PersistedGrant{Key: "k", SubjectID: "u1", ClientID: "c1", SessionID: "s1", Type: TypeRefreshToken}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"subject", Filter{SubjectID: "u1"}, true},
		{"subject mismatch", Filter{SubjectID: "u2"}, false},
		{"client session", Filter{SubjectID: "u1", ClientID: "c1", SessionID: "s1"}, true},
		{"session mismatch", Filter{SubjectID: "u1", ClientID: "c1", SessionID: "s2"}, false},
		{"type mismatch", Filter{SubjectID: "u1", Type: TypeAuthorizationCode}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(g); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrantExpiredAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	if (PersistedGrant{}).ExpiredAt(now) {
		t.Error("grant without expiration never expires")
	}
	if !(PersistedGrant{Expiration: &past}).ExpiredAt(now) {
		t.Error("past expiration should be expired")
	}
	if (PersistedGrant{Expiration: &future}).ExpiredAt(now) {
		t.Error("future expiration should be live")
	}
}
