// Package profile answers claim and account-status questions about a subject.
package profile

import (
	"context"

	platformerrors "grant-store/internal/platform/errors"
)

// Claim is a single statement about a subject.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ProfileDataRequest asks for the claims to issue for a subject.
type ProfileDataRequest struct {
	SubjectID           string
	ClientID            string
	Caller              string
	Claims              []Claim
	RequestedClaimTypes []string

	// IssuedClaims is filled in by the service.
	IssuedClaims []Claim
}

// IsActiveRequest asks whether a subject may still receive tokens.
type IsActiveRequest struct {
	SubjectID string
	ClientID  string
	Caller    string

	// IsActive is filled in by the service.
	IsActive bool
}

// Service is implemented by whatever owns user accounts.
type Service interface {
	ProfileData(ctx context.Context, req *ProfileDataRequest) error
	IsActive(ctx context.Context, req *IsActiveRequest) error
}

// DefaultService issues the requested claims it was handed and reports every subject active.
type DefaultService struct{}

func (DefaultService) ProfileData(_ context.Context, req *ProfileDataRequest) error {
	if req == nil {
		return platformerrors.Invalid("profile.data", "request required")
	}
	if len(req.RequestedClaimTypes) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(req.RequestedClaimTypes))
	for _, t := range req.RequestedClaimTypes {
		wanted[t] = struct{}{}
	}
	for _, c := range req.Claims {
		if _, ok := wanted[c.Type]; ok {
			req.IssuedClaims = append(req.IssuedClaims, c)
		}
	}
	return nil
}

func (DefaultService) IsActive(_ context.Context, req *IsActiveRequest) error {
	if req == nil {
		return platformerrors.Invalid("profile.is_active", "request required")
	}
	req.IsActive = true
	return nil
}
