package storage

import "time"

// PersistedGrantRecord is the relational row behind a persisted grant.
type PersistedGrantRecord struct {
	Key          string     `gorm:"column:key;primaryKey;type:varchar(200)"`
	Type         string     `gorm:"column:type;type:varchar(50);not null"`
	SubjectID    string     `gorm:"column:subject_id;type:varchar(200)"`
	SessionID    string     `gorm:"column:session_id;type:varchar(100)"`
	ClientID     string     `gorm:"column:client_id;type:varchar(200);not null"`
	Description  string     `gorm:"column:description;type:varchar(200)"`
	CreationTime time.Time  `gorm:"column:creation_time;not null"`
	Expiration   *time.Time `gorm:"column:expiration"`
	ConsumedTime *time.Time `gorm:"column:consumed_time"`
	Data         string     `gorm:"column:data;type:text;not null"`
}

func (PersistedGrantRecord) TableName() string {
	return "persisted_grants"
}
