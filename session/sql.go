package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hupe1980/agentrelay/core"
)

// sessionRecord is the row layout of SQLStore. The session is stored as a
// JSON payload; id and active agent are columns for inspection.
type sessionRecord struct {
	ID          string `gorm:"primaryKey;size:191"`
	ActiveAgent string `gorm:"size:191"`
	Payload     string `gorm:"type:text;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (sessionRecord) TableName() string { return "agentrelay_sessions" }

// SQLStore keeps sessions in a relational database through gorm.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the sessions table and returns the store.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// OpenSQL opens a gorm connection. Supported drivers are "sqlite" and
// "postgres".
func OpenSQL(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	return db, nil
}

// Get loads and decodes the session.
func (s *SQLStore) Get(ctx context.Context, id string) (*core.Session, error) {
	var rec sessionRecord

	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
		}

		return nil, fmt.Errorf("select session %s: %w", id, err)
	}

	var sess core.Session
	if err := json.Unmarshal([]byte(rec.Payload), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}

	return &sess, nil
}

// Save inserts or replaces the session row.
func (s *SQLStore) Save(ctx context.Context, sess *core.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}

	rec := sessionRecord{
		ID:          sess.ID,
		ActiveAgent: sess.ActiveAgent,
		Payload:     string(payload),
		CreatedAt:   sess.Created,
		UpdatedAt:   sess.Updated,
	}

	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}

	return nil
}

// Delete removes the session row.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&sessionRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	return nil
}
