package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"grant-store/internal/domain/grant/model"
	"grant-store/internal/platform/clock"
	"grant-store/internal/platform/codec"
	platformerrors "grant-store/internal/platform/errors"
)

const (
	// PTTL replies for a missing key and for a key without expiry.
	ttlMissing    = time.Duration(-2)
	ttlPersistent = time.Duration(-1)

	// minimumTTL stands in for an expiration that is already due; the record
	// is written and then evicted by the server almost immediately.
	minimumTTL = time.Millisecond
)

// MatchFunc decides whether a decoded grant satisfies a filter.
type MatchFunc func(grant model.PersistedGrant, filter model.Filter) bool

// RedisOptions tunes the Redis driver. Zero values fall back to defaults.
type RedisOptions struct {
	KeyPrefix string
	Keys      KeySet
	Match     MatchFunc
	Codec     codec.Codec[model.PersistedGrant]
	Clock     clock.Clock
	OnPrune   PruneFunc
	// CloseClient makes Close release the client as well.
	CloseClient bool
}

type redisStore struct {
	client      redis.UniversalClient
	keys        KeySet
	match       MatchFunc
	codec       codec.Codec[model.PersistedGrant]
	clock       clock.Clock
	onPrune     PruneFunc
	closeClient bool
}

// NewRedis builds the indexed grant store on top of an established client.
func NewRedis(client redis.UniversalClient, opts RedisOptions) (Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis store requires a client")
	}
	s := &redisStore{
		client:      client,
		keys:        opts.Keys,
		match:       opts.Match,
		codec:       opts.Codec,
		clock:       clock.OrSystem(opts.Clock),
		onPrune:     opts.OnPrune,
		closeClient: opts.CloseClient,
	}
	if s.keys == nil {
		s.keys = NewPrefixKeys(opts.KeyPrefix)
	}
	if s.match == nil {
		s.match = func(g model.PersistedGrant, f model.Filter) bool { return f.Matches(g) }
	}
	if s.codec == nil {
		s.codec = codec.JSON[model.PersistedGrant]()
	}
	return s, nil
}

func (s *redisStore) Store(ctx context.Context, grant *model.PersistedGrant) error {
	if grant == nil {
		return platformerrors.Invalid(opStore, "grant required")
	}
	if grant.Key == "" {
		return platformerrors.Invalid(opStore, "grant key required")
	}

	data, err := s.codec.Marshal(*grant)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindCodec, opStore, describeGrant(grant), err)
	}

	grantKey := s.keys.Grant(grant.Key)
	expiresIn, expires := s.expiresIn(grant)

	if !grant.Indexed() {
		if err := s.client.Set(ctx, grantKey, data, expiresIn).Err(); err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, opStore, describeGrant(grant), err)
		}
		return nil
	}

	subjectSet := s.keys.Subject(grant.SubjectID)
	clientSet := s.keys.Client(grant.SubjectID, grant.ClientID)
	typeSet := s.keys.Type(grant.SubjectID, grant.ClientID, grant.Type)
	sessionSet := ""
	if grant.SessionID != "" {
		sessionSet = s.keys.Session(grant.SubjectID, grant.ClientID, grant.SessionID)
	}

	// MULTI cannot branch on server state, so the ratchet decision is taken
	// from TTLs read just before the transaction.
	var subjectTTL, clientTTL, sessionTTL time.Duration
	if expires {
		group, groupCtx := errgroup.WithContext(ctx)
		s.readTTL(groupCtx, group, subjectSet, &subjectTTL)
		s.readTTL(groupCtx, group, clientSet, &clientTTL)
		if sessionSet != "" {
			s.readTTL(groupCtx, group, sessionSet, &sessionTTL)
		}
		if err := group.Wait(); err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, opStore, describeGrant(grant), err)
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, grantKey, data, expiresIn)
		pipe.SAdd(ctx, subjectSet, grantKey)
		pipe.SAdd(ctx, clientSet, grantKey)
		pipe.SAdd(ctx, typeSet, grantKey)
		if sessionSet != "" {
			pipe.SAdd(ctx, sessionSet, grantKey)
		}

		if !expires {
			// a member without expiry keeps its sets alive indefinitely
			pipe.Persist(ctx, subjectSet)
			pipe.Persist(ctx, clientSet)
			pipe.Persist(ctx, typeSet)
			if sessionSet != "" {
				pipe.Persist(ctx, sessionSet)
			}
			return nil
		}

		if extendTTL(subjectTTL, expiresIn) {
			pipe.PExpire(ctx, subjectSet, expiresIn)
		}
		if extendTTL(clientTTL, expiresIn) {
			pipe.PExpire(ctx, clientSet, expiresIn)
		}
		if sessionSet != "" && extendTTL(sessionTTL, expiresIn) {
			pipe.PExpire(ctx, sessionSet, expiresIn)
		}
		pipe.PExpire(ctx, typeSet, expiresIn)
		return nil
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, opStore, describeGrant(grant), err)
	}
	return nil
}

func (s *redisStore) readTTL(ctx context.Context, group *errgroup.Group, key string, dst *time.Duration) {
	group.Go(func() error {
		ttl, err := s.client.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		*dst = ttl
		return nil
	})
}

// extendTTL implements the ratchet: a set's TTL only ever grows.
func extendTTL(current, expiresIn time.Duration) bool {
	switch current {
	case ttlMissing:
		return true
	case ttlPersistent:
		return false
	default:
		return current <= expiresIn
	}
}

// expiresIn returns the record TTL and whether the grant expires at all.
func (s *redisStore) expiresIn(grant *model.PersistedGrant) (time.Duration, bool) {
	if grant.Expiration == nil {
		return 0, false
	}
	ttl := grant.Expiration.Sub(s.clock.Now())
	if ttl < minimumTTL {
		ttl = minimumTTL
	}
	return ttl, true
}

func (s *redisStore) Get(ctx context.Context, key string) (*model.PersistedGrant, error) {
	if key == "" {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, s.keys.Grant(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, platformerrors.Wrap(platformerrors.KindStorage, opGet, "key="+key, err)
	}
	grant, err := s.codec.Unmarshal(raw)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCodec, opGet, "key="+key, err)
	}
	return &grant, nil
}

func (s *redisStore) GetAll(ctx context.Context, filter model.Filter) ([]model.PersistedGrant, error) {
	if filter.SubjectID == "" {
		return []model.PersistedGrant{}, nil
	}

	setKey := IndexFor(s.keys, filter)
	present, missing, err := s.fetchMembers(ctx, setKey)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, opGetAll, describeFilter(filter), err)
	}

	if len(missing) > 0 {
		if err := s.prune(ctx, filter, missing); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindStorage, opGetAll, describeFilter(filter), err)
		}
	}

	grants := make([]model.PersistedGrant, 0, len(present))
	for _, m := range present {
		grant, err := s.codec.Unmarshal([]byte(m.value))
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindCodec, opGetAll, "key="+m.key, err)
		}
		if s.match(grant, filter) {
			grants = append(grants, grant)
		}
	}
	return grants, nil
}

type member struct {
	key   string
	value string
}

// fetchMembers reads an index set and resolves every member with one MGET.
func (s *redisStore) fetchMembers(ctx context.Context, setKey string) ([]member, []string, error) {
	keys, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil && err != redis.Nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		return nil, nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	present := make([]member, 0, len(keys))
	var missing []string
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			missing = append(missing, keys[i])
			continue
		}
		present = append(present, member{key: keys[i], value: str})
	}
	return present, missing, nil
}

// prune drops dangling references from the index families the filter addresses.
func (s *redisStore) prune(ctx context.Context, filter model.Filter, keys []string) error {
	members := toMembers(keys)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, set := range families(s.keys, filter.SubjectID, filter.ClientID, filter.Type, filter.SessionID) {
			pipe.SRem(ctx, set, members...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.onPrune != nil {
		s.onPrune(ctx, filter, keys)
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return platformerrors.Invalid(opRemove, "grant key required")
	}
	grant, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if grant == nil {
		return nil
	}

	grantKey := s.keys.Grant(key)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, grantKey)
		if grant.Indexed() {
			for _, set := range families(s.keys, grant.SubjectID, grant.ClientID, grant.Type, grant.SessionID) {
				pipe.SRem(ctx, set, grantKey)
			}
		}
		return nil
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, opRemove, describeGrant(grant), err)
	}
	return nil
}

func (s *redisStore) RemoveAll(ctx context.Context, filter model.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}

	setKey := IndexFor(s.keys, filter)
	dropSet := exactIndex(filter)

	present, missing, err := s.fetchMembers(ctx, setKey)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, opRemoveAll, describeFilter(filter), err)
	}

	targets := append([]string{}, missing...)
	var owned []ownedMember
	for _, m := range present {
		grant, err := s.codec.Unmarshal([]byte(m.value))
		if err != nil {
			if !dropSet {
				return platformerrors.Wrap(platformerrors.KindCodec, opRemoveAll, "key="+m.key, err)
			}
			// membership of an exact index already selects it
			targets = append(targets, m.key)
			continue
		}
		// a coarser index than the filter is narrowed by the records themselves
		if !dropSet && !s.match(grant, filter) {
			continue
		}
		targets = append(targets, m.key)
		if grant.Indexed() {
			owned = append(owned, ownedMember{key: m.key, grant: grant})
		}
	}
	if len(targets) == 0 {
		return nil
	}

	members := toMembers(targets)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deletes := targets
		if dropSet {
			deletes = append(append([]string{}, targets...), setKey)
		}
		pipe.Del(ctx, deletes...)
		for _, set := range families(s.keys, filter.SubjectID, filter.ClientID, filter.Type, filter.SessionID) {
			pipe.SRem(ctx, set, members...)
		}
		// sibling sets the filter cannot address, such as a grant's type or session set
		for _, o := range owned {
			for _, set := range families(s.keys, o.grant.SubjectID, o.grant.ClientID, o.grant.Type, o.grant.SessionID) {
				pipe.SRem(ctx, set, o.key)
			}
		}
		return nil
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, opRemoveAll, describeFilter(filter), err)
	}
	return nil
}

type ownedMember struct {
	key   string
	grant model.PersistedGrant
}

// exactIndex reports whether the chosen index holds exactly the grants the filter selects.
func exactIndex(f model.Filter) bool {
	hasClient, hasSession, hasType := f.ClientID != "", f.SessionID != "", f.Type != ""
	switch {
	case !hasClient:
		return !hasSession && !hasType
	default:
		return !(hasSession && hasType)
	}
}

func (s *redisStore) CleanupExpired(context.Context) error {
	// Redis handles expiration via TTL.
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	size, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":  DriverRedis,
		"total": size,
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	if s.closeClient {
		return s.client.Close()
	}
	return nil
}

func toMembers(keys []string) []interface{} {
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return members
}

func describeGrant(g *model.PersistedGrant) string {
	return fmt.Sprintf("key=%s subject=%s client=%s type=%s session=%s", g.Key, g.SubjectID, g.ClientID, g.Type, g.SessionID)
}

func describeFilter(f model.Filter) string {
	return fmt.Sprintf("subject=%s client=%s type=%s session=%s", f.SubjectID, f.ClientID, f.Type, f.SessionID)
}
