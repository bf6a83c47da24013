package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grant-store/internal/domain/grant/model"
	"grant-store/internal/platform/clock"
	platformerrors "grant-store/internal/platform/errors"
	"grant-store/internal/platform/storage"
)

type sqliteStore struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewSQLite builds a SQLite-backed grant store. The schema is expected to be
// migrated already (storage.Migrate).
func NewSQLite(db *gorm.DB, clk clock.Clock) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:    db,
		clock: clock.OrSystem(clk),
	}, nil
}

func (s *sqliteStore) Store(ctx context.Context, grant *model.PersistedGrant) error {
	if grant == nil {
		return platformerrors.Invalid(opStore, "grant required")
	}
	if grant.Key == "" {
		return platformerrors.Invalid(opStore, "grant key required")
	}

	record := toRecord(grant)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, opStore, describeGrant(grant), err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (*model.PersistedGrant, error) {
	if key == "" {
		return nil, nil
	}
	var record storage.PersistedGrantRecord
	err := s.db.WithContext(ctx).Where(`"key" = ?`, key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, opGet, "key="+key, err)
	}

	grant := fromRecord(record)
	if grant.ExpiredAt(s.clock.Now()) {
		return nil, nil
	}
	return &grant, nil
}

func (s *sqliteStore) GetAll(ctx context.Context, filter model.Filter) ([]model.PersistedGrant, error) {
	grants := []model.PersistedGrant{}
	if filter.SubjectID == "" {
		return grants, nil
	}

	var records []storage.PersistedGrantRecord
	err := s.scope(ctx, filter).
		Where("(expiration IS NULL OR expiration > ?)", s.clock.Now().UTC()).
		Find(&records).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, opGetAll, describeFilter(filter), err)
	}
	for _, record := range records {
		grants = append(grants, fromRecord(record))
	}
	return grants, nil
}

func (s *sqliteStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return platformerrors.Invalid(opRemove, "grant key required")
	}
	err := s.db.WithContext(ctx).Where(`"key" = ?`, key).Delete(&storage.PersistedGrantRecord{}).Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, opRemove, "key="+key, err)
	}
	return nil
}

func (s *sqliteStore) RemoveAll(ctx context.Context, filter model.Filter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	if err := s.scope(ctx, filter).Delete(&storage.PersistedGrantRecord{}).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, opRemoveAll, describeFilter(filter), err)
	}
	return nil
}

// scope narrows the table to the rows matching every non-empty filter field.
func (s *sqliteStore) scope(ctx context.Context, filter model.Filter) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&storage.PersistedGrantRecord{}).
		Where("subject_id = ?", filter.SubjectID)
	if filter.ClientID != "" {
		tx = tx.Where("client_id = ?", filter.ClientID)
	}
	if filter.SessionID != "" {
		tx = tx.Where("session_id = ?", filter.SessionID)
	}
	if filter.Type != "" {
		tx = tx.Where("type = ?", filter.Type)
	}
	return tx
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Where("expiration IS NOT NULL AND expiration <= ?", s.clock.Now().UTC()).
		Delete(&storage.PersistedGrantRecord{}).
		Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, opCleanup, "expired grants", err)
	}
	return nil
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.PersistedGrantRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":  DriverSQLite,
		"total": total,
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func toRecord(g *model.PersistedGrant) storage.PersistedGrantRecord {
	return storage.PersistedGrantRecord{
		Key:          g.Key,
		Type:         g.Type,
		SubjectID:    g.SubjectID,
		SessionID:    g.SessionID,
		ClientID:     g.ClientID,
		Description:  g.Description,
		CreationTime: g.CreationTime.UTC(),
		Expiration:   utcPtr(g.Expiration),
		ConsumedTime: utcPtr(g.ConsumedTime),
		Data:         g.Data,
	}
}

// utcPtr keeps stored instants in one zone so textual comparisons in SQL hold.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func fromRecord(r storage.PersistedGrantRecord) model.PersistedGrant {
	return model.PersistedGrant{
		Key:          r.Key,
		Type:         r.Type,
		SubjectID:    r.SubjectID,
		SessionID:    r.SessionID,
		ClientID:     r.ClientID,
		Description:  r.Description,
		CreationTime: r.CreationTime,
		Expiration:   r.Expiration,
		ConsumedTime: r.ConsumedTime,
		Data:         r.Data,
	}
}
