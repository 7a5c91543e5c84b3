package stores

import (
	"fmt"

	"gorm.io/gorm"
)

// GORMTraceStore implements TraceStore for SQLite/PostgreSQL via GORM
type GORMTraceStore struct {
	db *gorm.DB
}

// NewGORMTraceStore creates a trace store from an existing GORM database connection
func NewGORMTraceStore(db *gorm.DB) (*GORMTraceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if err := db.AutoMigrate(&CompletionTrace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate completion_traces table: %w", err)
	}

	return &GORMTraceStore{db: db}, nil
}

// SaveTrace saves a single trace
func (s *GORMTraceStore) SaveTrace(trace *CompletionTrace) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Create(trace).Error
}

// GetTracesBySession retrieves all traces for a session, oldest first
func (s *GORMTraceStore) GetTracesBySession(sessionID string) ([]*CompletionTrace, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var traces []*CompletionTrace
	err := s.db.Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&traces).Error

	return traces, err
}

// DeleteTracesBySession removes all traces for a session
func (s *GORMTraceStore) DeleteTracesBySession(sessionID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Where("session_id = ?", sessionID).Delete(&CompletionTrace{}).Error
}

// Ping checks if the database connection is alive
func (s *GORMTraceStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func (s *GORMTraceStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
