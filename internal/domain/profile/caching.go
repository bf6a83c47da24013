package profile

import (
	"context"
	"errors"
	"time"

	"grant-store/internal/domain/cache"
	platformerrors "grant-store/internal/platform/errors"
)

const defaultExpiration = 10 * time.Minute

// ActiveEntry is what gets cached for an IsActive answer.
type ActiveEntry struct {
	IsActive bool `json:"isActive"`
}

// CachingOptions tunes CachingService. Zero values pick the defaults.
type CachingOptions struct {
	// KeyPrefix is joined to the selected key with ':' when non-empty.
	KeyPrefix string
	// KeySelector picks the cache key for a request; defaults to the subject id.
	KeySelector func(*IsActiveRequest) string
	// ShouldCache decides per request; defaults to always.
	ShouldCache func(*IsActiveRequest) bool
	// Expiration of a cached answer; defaults to 10 minutes.
	Expiration time.Duration
}

func (o CachingOptions) normalize() CachingOptions {
	if o.KeyPrefix != "" {
		o.KeyPrefix += ":"
	}
	if o.KeySelector == nil {
		o.KeySelector = func(req *IsActiveRequest) string { return req.SubjectID }
	}
	if o.ShouldCache == nil {
		o.ShouldCache = func(*IsActiveRequest) bool { return true }
	}
	if o.Expiration <= 0 {
		o.Expiration = defaultExpiration
	}
	return o
}

// CachingService remembers IsActive answers from an inner Service.
type CachingService struct {
	inner   Service
	cache   cache.Cache[ActiveEntry]
	options CachingOptions
	logger  cache.Logger
}

// NewCachingService decorates inner. The logger may be nil.
func NewCachingService(inner Service, c cache.Cache[ActiveEntry], opts CachingOptions, logger cache.Logger) (*CachingService, error) {
	if inner == nil {
		return nil, errors.New("caching profile service requires an inner service")
	}
	if c == nil {
		return nil, errors.New("caching profile service requires a cache")
	}
	return &CachingService{
		inner:   inner,
		cache:   c,
		options: opts.normalize(),
		logger:  logger,
	}, nil
}

// ProfileData is never cached.
func (s *CachingService) ProfileData(ctx context.Context, req *ProfileDataRequest) error {
	return s.inner.ProfileData(ctx, req)
}

func (s *CachingService) IsActive(ctx context.Context, req *IsActiveRequest) error {
	if req == nil {
		return platformerrors.Invalid("profile.is_active", "request required")
	}
	if !s.options.ShouldCache(req) {
		return s.inner.IsActive(ctx, req)
	}

	key := s.options.KeyPrefix + s.options.KeySelector(req)
	entry, err := cache.GetOrLoad(ctx, s.cache, key, s.options.Expiration, func(ctx context.Context) (ActiveEntry, error) {
		if err := s.inner.IsActive(ctx, req); err != nil {
			return ActiveEntry{}, err
		}
		return ActiveEntry{IsActive: req.IsActive}, nil
	}, s.logger)
	if err != nil {
		return err
	}
	req.IsActive = entry.IsActive
	return nil
}

// Options returns the normalized options in effect.
func (s *CachingService) Options() CachingOptions {
	return s.options
}
