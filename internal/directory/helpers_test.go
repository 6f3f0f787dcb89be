package directory

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/database"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testProviderID = "custom-user-provider"

const testRealm Realm = "acme"

func stringPtr(value string) *string {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}

// newSeededStore creates a users table in a temporary SQLite file and returns its settings.
func newSeededStore(t *testing.T, records ...Record) database.ConnectionSettings {
	t.Helper()
	settings := database.ConnectionSettings{
		DriverClass:   database.DriverSQLite,
		ConnectionURL: filepath.Join(t.TempDir(), "users.db"),
	}

	db, err := gorm.Open(sqlite.Open(settings.ConnectionURL), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to unwrap sqlite: %v", err)
	}
	defer sqlDB.Close()

	if err := db.Migrator().CreateTable(&Record{}); err != nil {
		t.Fatalf("failed to create users table: %v", err)
	}
	for index := range records {
		if err := db.Create(&records[index]).Error; err != nil {
			t.Fatalf("failed to seed %s: %v", records[index].Username, err)
		}
	}
	return settings
}

func alphabetRecords() []Record {
	return []Record{
		{
			Username:  "carol",
			FirstName: stringPtr("Carol"),
			LastName:  stringPtr("Danvers"),
			Email:     stringPtr("carol@example.com"),
			Password:  stringPtr("carol-secret"),
			BirthDate: timePtr(time.Date(1968, time.March, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			Username:  "alice",
			FirstName: stringPtr("Alice"),
			LastName:  stringPtr("Liddell"),
			Email:     stringPtr("alice@example.com"),
			Password:  stringPtr("alice-secret"),
			BirthDate: timePtr(time.Date(1852, time.May, 4, 0, 0, 0, 0, time.UTC)),
		},
		{
			Username:  "bob",
			FirstName: stringPtr("Bob"),
			LastName:  stringPtr("Builder"),
			Email:     stringPtr("bob@example.com"),
			Password:  stringPtr("bob-secret"),
		},
	}
}

// countingConnector tracks how many acquired connections are still open.
type countingConnector struct {
	inner database.Connector

	mu       sync.Mutex
	open     int
	acquired int
}

func (c *countingConnector) Connect(ctx context.Context) (*database.Connection, error) {
	conn, err := c.inner.Connect(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.open++
	c.acquired++
	c.mu.Unlock()
	return database.NewConnection(conn.DB(), func() error {
		c.mu.Lock()
		c.open--
		c.mu.Unlock()
		return conn.Close()
	}), nil
}

func (c *countingConnector) openConnections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

type failingConnector struct {
	err error
}

func (c failingConnector) Connect(context.Context) (*database.Connection, error) {
	return nil, c.err
}

func newTestAdapter(t *testing.T, connector database.Connector) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(AdapterConfig{ProviderID: testProviderID, Connector: connector})
	if err != nil {
		t.Fatalf("failed to build adapter: %v", err)
	}
	return adapter
}

func usernames(identities []*Identity) []string {
	names := make([]string, 0, len(identities))
	for _, identity := range identities {
		names = append(names, identity.Username())
	}
	return names
}
