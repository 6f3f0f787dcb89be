package database

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrMissingConnectionURL indicates the settings carry no connection url.
	ErrMissingConnectionURL = errors.New("database: connection url is required")
	// ErrUnsupportedDriver indicates the driver class is not registered.
	ErrUnsupportedDriver = errors.New("database: unsupported driver")
)

// Connector acquires store connections scoped to a single operation.
type Connector interface {
	Connect(ctx context.Context) (*Connection, error)
}

// Connection is a store handle owned by one operation. Close releases it; repeated calls are no-ops.
type Connection struct {
	db     *gorm.DB
	closer func() error
	once   sync.Once
	err    error
}

// NewConnection wraps a gorm handle with the function that releases it.
func NewConnection(db *gorm.DB, closer func() error) *Connection {
	return &Connection{db: db, closer: closer}
}

// DB exposes the gorm handle bound to the acquiring context.
func (c *Connection) DB() *gorm.DB {
	return c.db
}

// Close releases the underlying pool.
func (c *Connection) Close() error {
	c.once.Do(func() {
		if c.closer != nil {
			c.err = c.closer()
		}
	})
	return c.err
}

// DialectorConnector opens a fresh gorm handle for every Connect call.
type DialectorConnector struct {
	settings ConnectionSettings
	logger   *zap.Logger
}

// NewConnector builds a connector for the provided settings.
func NewConnector(settings ConnectionSettings, logger *zap.Logger) *DialectorConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DialectorConnector{settings: settings, logger: logger}
}

// Connect opens and pings a new store connection.
func (c *DialectorConnector) Connect(ctx context.Context) (*Connection, error) {
	dialector, err := GetDialector(c.settings)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               gormlogger.Discard,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, c.settings.RedactError(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, c.settings.RedactError(err)
	}

	c.logger.Debug("store connection opened", zap.String("driver", c.settings.DriverClass))
	return NewConnection(db.WithContext(ctx), sqlDB.Close), nil
}
