package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"grant-store/internal/domain/eventbus"
	"grant-store/internal/domain/grant/model"
	"grant-store/internal/domain/grant/store"
	"grant-store/internal/platform/clock"
	platformerrors "grant-store/internal/platform/errors"
	"grant-store/internal/platform/observability"
)

type (
	// PersistedGrant re-exports the stored entity for callers.
	PersistedGrant = model.PersistedGrant
	// Filter re-exports the lookup criteria.
	Filter = model.Filter
	// Logger re-exports the logging interface used across the domain.
	Logger = model.Logger
)

const (
	defaultCleanupInterval = 5 * time.Minute
	minCleanupInterval     = time.Second
	component              = "grant"
)

// Options encapsulates the dependencies required to construct a Service.
type Options struct {
	Store  store.Store
	Logger Logger
	Events eventbus.Publisher
	Clock  clock.Clock
	// CleanupInterval paces CleanupExpired; a negative value disables the loop.
	CleanupInterval time.Duration
}

// Service is the boundary in front of a grant store: it validates input,
// traces and logs each call once, and publishes lifecycle events.
type Service struct {
	store  store.Store
	logger Logger
	events eventbus.Publisher
	clock  clock.Clock

	cleanupInterval time.Duration
	cleanupStop     chan struct{}
	cleanupDone     chan struct{}
	closeOnce       sync.Once
}

// NewService wires a Service using the supplied options.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("grant service requires a store")
	}
	if opts.Logger == nil {
		return nil, errors.New("grant service requires a logger")
	}
	if opts.Events == nil {
		opts.Events = eventbus.NopPublisher{}
	}

	interval := opts.CleanupInterval
	switch {
	case interval == 0:
		interval = defaultCleanupInterval
	case interval > 0 && interval < minCleanupInterval:
		opts.Logger.Warn("cleanup interval %s too small, using %s", interval, minCleanupInterval)
		interval = minCleanupInterval
	}

	svc := &Service{
		store:           opts.Store,
		logger:          opts.Logger,
		events:          opts.Events,
		clock:           clock.OrSystem(opts.Clock),
		cleanupInterval: interval,
		cleanupStop:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}
	if interval > 0 {
		go svc.runCleanup()
	} else {
		close(svc.cleanupDone)
	}
	return svc, nil
}

// PruneNotifier adapts the store's prune hook onto the event bus.
func PruneNotifier(events eventbus.Publisher, clk clock.Clock) store.PruneFunc {
	clk = clock.OrSystem(clk)
	return func(_ context.Context, filter model.Filter, keys []string) {
		events.PublishAsync(eventbus.EventGrantsPruned, eventbus.FilterEventData{
			SubjectID: filter.SubjectID,
			ClientID:  filter.ClientID,
			SessionID: filter.SessionID,
			Type:      filter.Type,
			Keys:      append([]string(nil), keys...),
			At:        clk.Now(),
		})
	}
}

func (s *Service) runCleanup() {
	defer close(s.cleanupDone)
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.CleanupNow(context.Background()); err != nil {
				s.logger.Warn("grant store cleanup failed: %v", err)
			}
		case <-s.cleanupStop:
			return
		}
	}
}

// Store persists the grant. Type and client are required on top of the key.
func (s *Service) Store(ctx context.Context, grant *PersistedGrant) (err error) {
	if err := validateGrant(grant); err != nil {
		return err
	}
	if grant.CreationTime.IsZero() {
		grant.CreationTime = s.clock.Now()
	}

	ctx, end := observability.StartSpan(ctx, component, "store", grantAttrs(grant)...)
	defer func() { end(err) }()

	if err = s.store.Store(ctx, grant); err != nil {
		s.fail("grant.store", describe(grant), err)
		return err
	}
	s.logger.Debug("stored grant key=%s type=%s subject=%s client=%s", grant.Key, grant.Type, grant.SubjectID, grant.ClientID)
	s.events.PublishAsync(eventbus.EventGrantStored, s.grantEvent(grant))
	return nil
}

// Get returns nil when the grant is unknown or expired.
func (s *Service) Get(ctx context.Context, key string) (grant *PersistedGrant, err error) {
	if key == "" {
		return nil, platformerrors.Invalid("grant.get", "grant key required")
	}

	ctx, end := observability.StartSpan(ctx, component, "get", slog.String("key", key))
	defer func() { end(err) }()

	grant, err = s.store.Get(ctx, key)
	if err != nil {
		s.fail("grant.get", "key="+key, err)
		return nil, err
	}
	return grant, nil
}

// GetAll returns the grants matching filter; without a subject the result is empty.
func (s *Service) GetAll(ctx context.Context, filter Filter) (grants []PersistedGrant, err error) {
	ctx, end := observability.StartSpan(ctx, component, "get_all", filterAttrs(filter)...)
	defer func() { end(err) }()

	grants, err = s.store.GetAll(ctx, filter)
	if err != nil {
		s.fail("grant.get_all", describeFilter(filter), err)
		return nil, err
	}
	observability.RecordMetric(ctx, "grant.get_all.results", float64(len(grants)), map[string]string{"subject": filter.SubjectID})
	return grants, nil
}

// Remove deletes the grant; unknown keys are not an error.
func (s *Service) Remove(ctx context.Context, key string) (err error) {
	if key == "" {
		return platformerrors.Invalid("grant.remove", "grant key required")
	}

	ctx, end := observability.StartSpan(ctx, component, "remove", slog.String("key", key))
	defer func() { end(err) }()

	existing, err := s.store.Get(ctx, key)
	if err != nil {
		s.fail("grant.remove", "key="+key, err)
		return err
	}
	if err = s.store.Remove(ctx, key); err != nil {
		s.fail("grant.remove", "key="+key, err)
		return err
	}
	if existing == nil {
		return nil
	}
	s.logger.Debug("removed grant key=%s", key)
	s.events.PublishAsync(eventbus.EventGrantRemoved, s.grantEvent(existing))
	return nil
}

// RemoveAll deletes every grant matching filter, which must name a subject.
func (s *Service) RemoveAll(ctx context.Context, filter Filter) (err error) {
	if err := filter.Validate(); err != nil {
		return err
	}

	ctx, end := observability.StartSpan(ctx, component, "remove_all", filterAttrs(filter)...)
	defer func() { end(err) }()

	if err = s.store.RemoveAll(ctx, filter); err != nil {
		s.fail("grant.remove_all", describeFilter(filter), err)
		return err
	}
	s.logger.Debug("removed grants %s", describeFilter(filter))
	s.events.PublishAsync(eventbus.EventGrantsRemoved, eventbus.FilterEventData{
		SubjectID: filter.SubjectID,
		ClientID:  filter.ClientID,
		SessionID: filter.SessionID,
		Type:      filter.Type,
		At:        s.clock.Now(),
	})
	return nil
}

// CleanupNow runs one expiry sweep on the backing store.
func (s *Service) CleanupNow(ctx context.Context) (err error) {
	ctx, end := observability.StartSpan(ctx, component, "cleanup")
	defer func() { end(err) }()
	return s.store.CleanupExpired(ctx)
}

// Stats returns debug information from the store backend.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	return s.store.Stats(ctx)
}

// Close stops the cleanup loop and releases the store.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.cleanupStop)
		<-s.cleanupDone
		if closeErr := s.store.Close(context.Background()); closeErr != nil {
			s.logger.Error("failed closing grant store: %v", closeErr)
			err = closeErr
		}
	})
	return err
}

// fail is the single place a store failure is logged and announced.
func (s *Service) fail(op, detail string, err error) {
	s.logger.Error("%s failed %s: %v", op, detail, err)
	s.events.PublishAsync(eventbus.EventGrantStoreError, eventbus.ErrorEventData{
		Operation: op,
		Kind:      string(platformerrors.KindOf(err)),
		Message:   err.Error(),
	})
}

func (s *Service) grantEvent(g *PersistedGrant) eventbus.GrantEventData {
	return eventbus.GrantEventData{
		Key:       g.Key,
		Type:      g.Type,
		SubjectID: g.SubjectID,
		ClientID:  g.ClientID,
		SessionID: g.SessionID,
		At:        s.clock.Now(),
	}
}

func validateGrant(g *PersistedGrant) error {
	switch {
	case g == nil:
		return platformerrors.Invalid("grant.store", "grant required")
	case g.Key == "":
		return platformerrors.Invalid("grant.store", "grant key required")
	case g.ClientID == "":
		return platformerrors.Invalid("grant.store", "client id required")
	case g.Type == "":
		return platformerrors.Invalid("grant.store", "grant type required")
	}
	return nil
}

func grantAttrs(g *PersistedGrant) []slog.Attr {
	return []slog.Attr{
		slog.String("key", g.Key),
		slog.String("type", g.Type),
		slog.String("subject", g.SubjectID),
		slog.String("client", g.ClientID),
		slog.String("session", g.SessionID),
	}
}

func filterAttrs(f Filter) []slog.Attr {
	return []slog.Attr{
		slog.String("subject", f.SubjectID),
		slog.String("client", f.ClientID),
		slog.String("session", f.SessionID),
		slog.String("type", f.Type),
	}
}

func describe(g *PersistedGrant) string {
	return fmt.Sprintf("key=%s subject=%s client=%s type=%s session=%s", g.Key, g.SubjectID, g.ClientID, g.Type, g.SessionID)
}

func describeFilter(f Filter) string {
	return fmt.Sprintf("subject=%s client=%s type=%s session=%s", f.SubjectID, f.ClientID, f.Type, f.SessionID)
}
