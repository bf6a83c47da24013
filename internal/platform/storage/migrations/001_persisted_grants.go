package migrations

import (
	"gorm.io/gorm"
)

// Migration001PersistedGrants creates the grant table and its lookup indexes.
type Migration001PersistedGrants struct{}

func (m *Migration001PersistedGrants) Version() string {
	return "001_persisted_grants"
}

func (m *Migration001PersistedGrants) Description() string {
	return "Create persisted_grants table"
}

func (m *Migration001PersistedGrants) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS persisted_grants (
			"key" VARCHAR(200) PRIMARY KEY,
			type VARCHAR(50) NOT NULL,
			subject_id VARCHAR(200),
			session_id VARCHAR(100),
			client_id VARCHAR(200) NOT NULL,
			description VARCHAR(200),
			creation_time DATETIME NOT NULL,
			expiration DATETIME,
			consumed_time DATETIME,
			data TEXT NOT NULL
		)
	`).Error; err != nil {
		return err
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_persisted_grants_subject_client_type ON persisted_grants(subject_id, client_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_persisted_grants_subject_session_type ON persisted_grants(subject_id, session_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_persisted_grants_expiration ON persisted_grants(expiration)`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration001PersistedGrants) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS persisted_grants`).Error
}
