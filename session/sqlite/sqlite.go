// Package sqlite persists sessions and their event history in a SQLite
// database via gorm, so conversations survive process restarts.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/santis84/agents/core"
)

// Config configures the SQLite backed session store.
type Config struct {
	Path        string        `mapstructure:"path"`
	InMemory    bool          `mapstructure:"in_memory"`
	EnableWAL   bool          `mapstructure:"enable_wal"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// sessionRecord is the sessions table row. State is a JSON object.
type sessionRecord struct {
	ID        string    `gorm:"primaryKey;size:128"`
	StateJSON string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}

func (sessionRecord) TableName() string { return "sessions" }

// eventRecord is the events table row. Payload holds the full serialized
// event, including polymorphic content parts.
type eventRecord struct {
	ID        uint64    `gorm:"primaryKey"`
	SessionID string    `gorm:"size:128;not null;index:idx_events_session_seq,priority:1"`
	EventID   string    `gorm:"size:64;not null"`
	Author    string    `gorm:"size:128;not null"`
	Payload   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_events_session_seq,priority:2"`
}

func (eventRecord) TableName() string { return "events" }

// Store is a core.SessionStore backed by SQLite. A process wide mutex
// serializes writes, which matches the single-writer model SQLite enforces
// anyway.
type Store struct {
	mu    sync.Mutex
	db    *gorm.DB
	sqlDB *sql.DB
}

// Open opens (or creates) the database, applies pragmas and migrates the
// schema.
func Open(cfg Config) (*Store, error) {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn, err := dsnFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	s := &Store{db: db, sqlDB: sqlDB}

	if cfg.EnableWAL {
		if err := s.db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("enable wal: %w", err)
		}
	}

	if err := s.db.Exec("PRAGMA foreign_keys=ON;").Error; err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := s.db.AutoMigrate(&sessionRecord{}, &eventRecord{}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts a fresh session row, replacing any existing one.
func (s *Store) Create(sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := sessionRecord{ID: sessionID, StateJSON: "{}"}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&eventRecord{}).Error; err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", sessionID, err)
	}

	return core.NewSession(sessionID), nil
}

// Get loads a session and its events; a missing session is created lazily.
func (s *Store) Get(sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec sessionRecord
	err := s.db.First(&rec, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = sessionRecord{ID: sessionID, StateJSON: "{}"}
		if err := s.db.Create(&rec).Error; err != nil {
			return nil, fmt.Errorf("create session %s: %w", sessionID, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	sess := core.NewSession(sessionID)

	state := map[string]any{}
	if rec.StateJSON != "" {
		if err := json.Unmarshal([]byte(rec.StateJSON), &state); err != nil {
			return nil, fmt.Errorf("decode state for session %s: %w", sessionID, err)
		}
	}
	sess.MergeState(state)

	var eventRecs []eventRecord
	if err := s.db.Where("session_id = ?", sessionID).Order("id ASC").Find(&eventRecs).Error; err != nil {
		return nil, fmt.Errorf("load events for session %s: %w", sessionID, err)
	}

	for _, er := range eventRecs {
		var ev core.Event
		if err := json.Unmarshal([]byte(er.Payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", er.EventID, err)
		}
		sess.AddEvent(ev)
	}

	return sess, nil
}

// AppendEvent serializes and inserts one event for the session.
func (s *Store) AppendEvent(sessionID string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSessionLocked(sessionID); err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.ID, err)
	}

	rec := eventRecord{
		SessionID: sessionID,
		EventID:   ev.ID,
		Author:    ev.Author,
		Payload:   string(payload),
	}

	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}

	return nil
}

// ApplyDelta merges a key/value delta into the stored session state.
func (s *Store) ApplyDelta(sessionID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSessionLocked(sessionID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var rec sessionRecord
		if err := tx.First(&rec, "id = ?", sessionID).Error; err != nil {
			return fmt.Errorf("load session %s: %w", sessionID, err)
		}

		state := map[string]any{}
		if rec.StateJSON != "" {
			if err := json.Unmarshal([]byte(rec.StateJSON), &state); err != nil {
				return fmt.Errorf("decode state for session %s: %w", sessionID, err)
			}
		}
		for k, v := range delta {
			state[k] = v
		}

		encoded, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("encode state for session %s: %w", sessionID, err)
		}

		return tx.Model(&sessionRecord{}).Where("id = ?", sessionID).
			Update("state_json", string(encoded)).Error
	})
}

func (s *Store) ensureSessionLocked(sessionID string) error {
	var count int64
	if err := s.db.Model(&sessionRecord{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
		return fmt.Errorf("check session %s: %w", sessionID, err)
	}
	if count == 0 {
		rec := sessionRecord{ID: sessionID, StateJSON: "{}"}
		if err := s.db.Create(&rec).Error; err != nil {
			return fmt.Errorf("create session %s: %w", sessionID, err)
		}
	}
	return nil
}

func dsnFromConfig(cfg Config) (string, error) {
	timeoutMS := int(cfg.BusyTimeout / time.Millisecond)
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}

	if cfg.InMemory {
		return fmt.Sprintf("file:agents?mode=memory&cache=shared&_busy_timeout=%d", timeoutMS), nil
	}

	if cfg.Path == "" {
		return "", errors.New("sqlite path is required when InMemory=false")
	}

	return fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, timeoutMS), nil
}
