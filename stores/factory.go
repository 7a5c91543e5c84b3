package stores

import (
	"fmt"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the database described by config.
func Open(config *StoreConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if config.Options["log"] == "true" {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	switch config.Type {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(config.Connection), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
		}
		return db, nil
	case "postgres":
		dsn := config.Connection
		if dsn == "" {
			dsn = postgresDSNFromOptions(config.Options)
		}
		db, err := gorm.Open(postgres.Open(dsn), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// NewTraceStore opens the configured database and returns a trace store.
// It returns nil, nil when tracing is disabled.
func NewTraceStore(config *StoreConfig) (TraceStore, error) {
	if !config.Enabled() {
		return nil, nil
	}
	db, err := Open(config)
	if err != nil {
		return nil, err
	}
	store, err := NewGORMTraceStore(db)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// postgresDSNFromOptions builds a DSN from the host, port, user, password
// and dbname options.
func postgresDSNFromOptions(options map[string]string) string {
	port, err := strconv.Atoi(options["port"])
	if err != nil || port == 0 {
		port = 5432
	}
	host := options["host"]
	if host == "" {
		host = "localhost"
	}
	return PostgresDSN(host, options["user"], options["password"], options["dbname"], port)
}

// PostgresDSN builds a PostgreSQL DSN from its parts.
func PostgresDSN(host, user, password, dbname string, port int) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
}
