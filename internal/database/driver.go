package database

import (
	"fmt"
	"strings"
	"sync"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	// DriverSQLite selects the embedded, cgo-free SQLite driver.
	DriverSQLite = "sqlite"
	// DriverPostgres selects the PostgreSQL driver.
	DriverPostgres = "postgres"
)

// DriverFactory is a function that creates a gorm.Dialector
type DriverFactory func(dsn string) gorm.Dialector

var (
	driversMu sync.RWMutex

	// driverFactories maps driver names to their factory functions
	driverFactories = map[string]DriverFactory{
		DriverSQLite:   sqlite.Open,
		DriverPostgres: postgres.Open,
	}

	// driverAliases lets configurations written for JDBC-based providers keep their driver class.
	driverAliases = map[string]string{
		"org.h2.Driver":         DriverSQLite,
		"org.sqlite.JDBC":       DriverSQLite,
		"org.postgresql.Driver": DriverPostgres,
	}
)

// ResolveDriver maps a configured driver class or alias onto a registered driver name.
func ResolveDriver(driverClass string) (string, error) {
	name := strings.TrimSpace(driverClass)
	if alias, ok := driverAliases[name]; ok {
		name = alias
	}
	name = strings.ToLower(name)

	driversMu.RLock()
	_, exists := driverFactories[name]
	driversMu.RUnlock()
	if !exists {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driverClass)
	}
	return name, nil
}

// GetDialector returns a GORM dialector for the settings' driver class and DSN
func GetDialector(settings ConnectionSettings) (gorm.Dialector, error) {
	name, err := ResolveDriver(settings.DriverClass)
	if err != nil {
		return nil, err
	}
	dsn, err := settings.DSN(name)
	if err != nil {
		return nil, err
	}

	driversMu.RLock()
	factory := driverFactories[name]
	driversMu.RUnlock()
	return factory(dsn), nil
}

// RegisterDriver allows registering custom database drivers.
// It is meant to be called during process start, before any connector is used.
func RegisterDriver(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	driverFactories[strings.ToLower(strings.TrimSpace(name))] = factory
}
