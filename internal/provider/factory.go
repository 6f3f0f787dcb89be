package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/database"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/directory"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProviderID routes composite identifiers back to this provider.
const ProviderID = "custom-user-provider"

// ConnectorFunc builds a connector for a set of connection settings.
type ConnectorFunc func(settings database.ConnectionSettings, logger *zap.Logger) database.Connector

// FactoryConfig describes the dependencies shared by every adapter a Factory creates.
type FactoryConfig struct {
	ID        string
	Logger    *zap.Logger
	Metrics   metrics.Recorder
	Connector ConnectorFunc
	Clock     func() time.Time
}

// Factory validates provider configurations and creates adapters bound to them.
// It is safe for concurrent use.
type Factory struct {
	id           string
	logger       *zap.Logger
	metrics      metrics.Recorder
	connector    ConnectorFunc
	clock        func() time.Time
	bootstrapped sync.Map
	bootstraps   singleflight.Group
}

// NewFactory constructs a factory, filling unset dependencies with defaults.
func NewFactory(cfg FactoryConfig) *Factory {
	id := cfg.ID
	if id == "" {
		id = ProviderID
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	connector := cfg.Connector
	if connector == nil {
		connector = func(settings database.ConnectionSettings, logger *zap.Logger) database.Connector {
			return database.NewConnector(settings, logger)
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger.Info("provider factory created", zap.String("provider_id", id))
	return &Factory{
		id:        id,
		logger:    logger,
		metrics:   recorder,
		connector: connector,
		clock:     clock,
	}
}

// ID returns the stable provider identifier.
func (f *Factory) ID() string {
	return f.id
}

// ConfigProperties returns the configuration schema the host renders.
func (f *Factory) ConfigProperties() []ConfigProperty {
	return Schema()
}

// Create bootstraps the store on first use of a configuration and returns an adapter bound to it.
func (f *Factory) Create(ctx context.Context, cfg Configuration) (*directory.Adapter, error) {
	matcher, err := directory.NewPasswordMatcher(cfg.PasswordEncoding())
	if err != nil {
		return nil, err
	}
	settings := cfg.ConnectionSettings()
	connector := f.connector(settings, f.logger)

	if err := f.bootstrap(ctx, settings, connector); err != nil {
		return nil, err
	}

	return directory.NewAdapter(directory.AdapterConfig{
		ProviderID: f.id,
		Connector:  connector,
		Matcher:    matcher,
		Logger:     f.logger,
		Metrics:    f.metrics,
	})
}

// ValidateConfiguration connects and runs the configured validation query.
func (f *Factory) ValidateConfiguration(ctx context.Context, cfg Configuration) error {
	settings := cfg.ConnectionSettings()
	f.logger.Info("validating provider configuration", zap.Object("configuration", cfg))

	conn, err := f.connector(settings, f.logger).Connect(ctx)
	if err != nil {
		return f.validationFailed(settings, err)
	}
	defer conn.Close()

	if err := conn.DB().Exec(cfg.ValidationQuery()).Error; err != nil {
		return f.validationFailed(settings, err)
	}

	f.metrics.RecordConfigurationValidation(true)
	f.logger.Info("provider configuration validated", zap.String("provider_id", f.id))
	return nil
}

// OnCreate is called by the host after a configuration is first stored.
func (f *Factory) OnCreate(_ context.Context, realm directory.Realm, _ Configuration) {
	f.logger.Debug("provider configuration created", zap.String("provider_id", f.id), zap.Stringer("realm", realm))
}

// OnUpdate is called by the host after a configuration changes.
func (f *Factory) OnUpdate(_ context.Context, realm directory.Realm, _, _ Configuration) {
	f.logger.Debug("provider configuration updated", zap.String("provider_id", f.id), zap.Stringer("realm", realm))
}

func (f *Factory) validationFailed(settings database.ConnectionSettings, cause error) error {
	f.metrics.RecordConfigurationValidation(false)
	err := newValidationError(settings.Redact, cause)
	f.logger.Warn("unable to validate provider configuration", zap.String("error", err.Error()))
	return err
}

func (f *Factory) bootstrap(ctx context.Context, settings database.ConnectionSettings, connector database.Connector) error {
	key := fingerprint(settings)
	if _, done := f.bootstrapped.Load(key); done {
		return nil
	}

	// concurrent first calls for one store share a single migration run.
	_, err, _ := f.bootstraps.Do(key, func() (any, error) {
		if _, done := f.bootstrapped.Load(key); done {
			return nil, nil
		}

		conn, err := connector.Connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("provider: bootstrap store: %w", err)
		}
		defer conn.Close()

		if err := database.ApplyMigrations(conn.DB(), bootstrapMigrations(f.clock), f.logger); err != nil {
			return nil, fmt.Errorf("provider: bootstrap store: %w", settings.RedactError(err))
		}

		f.bootstrapped.Store(key, struct{}{})
		return nil, nil
	})
	return err
}

func fingerprint(settings database.ConnectionSettings) string {
	sum := sha256.Sum256([]byte(settings.DriverClass + "\x00" + settings.ConnectionURL + "\x00" + settings.User))
	return hex.EncodeToString(sum[:])
}
