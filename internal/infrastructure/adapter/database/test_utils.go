package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	timeprovider "github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/time"
)

// TestDBManager provides a migrated in-memory sqlite database for tests
type TestDBManager struct {
	Manager      *Manager
	Config       *Config
	Logger       coreport.Logger
	TimeProvider coreport.TimeProvider
}

// NewTestDBManager creates a test database manager backed by a private in-memory sqlite database
func NewTestDBManager(t *testing.T, logger coreport.Logger) *TestDBManager {
	t.Helper()

	timeProvider := timeprovider.NewRealTimeProvider()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())

	config := &Config{
		Driver:        DriverSQLite,
		Path:          fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()[:8]),
		MaxOpenConns:  1,
		MaxIdleConns:  1,
		QueryTimeout:  5 * time.Second,
		LogLevel:      "silent",
		RetryAttempts: 1,
		// zero lifetimes keep the only connection, and with it the in-memory database, alive
		ConnMaxLifetime: 0,
		ConnMaxIdleTime: 0,
		MonitorInterval: time.Hour,
	}

	return &TestDBManager{
		Manager:      NewManager(config, logger, timeProvider, nil),
		Config:       config,
		Logger:       logger,
		TimeProvider: timeProvider,
	}
}

// Open connects, migrates and registers cleanup, returning the database
func (m *TestDBManager) Open(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	db, err := m.Manager.Connect(ctx)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := m.Manager.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := m.Manager.Close(); err != nil {
			t.Logf("Warning: Failed to close test database connection: %v", err)
		}
	})
	return db
}

// TruncateAllTables removes every row from the settlement tables
func (m *TestDBManager) TruncateAllTables(t *testing.T) {
	t.Helper()

	for _, table := range []string{"transactions", "accounts"} {
		if err := m.Manager.DB().Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
}
