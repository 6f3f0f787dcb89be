package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/database"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opLookupByUsername   = "lookup_by_username"
	opLookupByEmail      = "lookup_by_email"
	opValidateCredential = "validate_credential"
	opCountUsers         = "count_users"
	opListUsers          = "list_users"
	opSearchUsers        = "search_users"
)

var (
	errMissingProviderID = errors.New("directory: provider id is required")
	errMissingConnector  = errors.New("directory: connector is required")
	noOpLogger           = zap.NewNop()
)

// AdapterConfig describes the dependencies of an Adapter.
type AdapterConfig struct {
	ProviderID string
	Connector  database.Connector
	Matcher    PasswordMatcher
	Logger     *zap.Logger
	Metrics    metrics.Recorder
}

// Adapter translates host lookups into store queries and store rows into identities.
// It holds no mutable state; every operation acquires and releases its own connection.
type Adapter struct {
	providerID string
	connector  database.Connector
	matcher    PasswordMatcher
	logger     *zap.Logger
	metrics    metrics.Recorder
}

// NewAdapter validates cfg and returns an adapter bound to it.
func NewAdapter(cfg AdapterConfig) (*Adapter, error) {
	if cfg.ProviderID == "" {
		return nil, errMissingProviderID
	}
	if cfg.Connector == nil {
		return nil, errMissingConnector
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = PlainTextMatcher{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &Adapter{
		providerID: cfg.ProviderID,
		connector:  cfg.Connector,
		matcher:    matcher,
		logger:     logger,
		metrics:    recorder,
	}, nil
}

// ProviderID returns the provider prefix used in composite identifiers.
func (a *Adapter) ProviderID() string {
	return a.providerID
}

// LookupByID resolves a composite identifier through its external username.
func (a *Adapter) LookupByID(ctx context.Context, realm Realm, id string) (*Identity, error) {
	storageID := ParseStorageID(id)
	a.logger.Debug("lookup by id", zap.Stringer("realm", realm), zap.String("id", id))
	return a.LookupByUsername(ctx, realm, storageID.ExternalID)
}

// LookupByUsername returns the identity with exactly this username, or nil when absent.
func (a *Adapter) LookupByUsername(ctx context.Context, realm Realm, username string) (*Identity, error) {
	a.logger.Debug("lookup by username", zap.Stringer("realm", realm), zap.String("username", username))
	identities, err := a.queryIdentities(ctx, opLookupByUsername, realm, func(db *gorm.DB) *gorm.DB {
		return db.Where("username = ?", username).Limit(1)
	})
	if err != nil || len(identities) == 0 {
		return nil, err
	}
	return identities[0], nil
}

// LookupByEmail returns the identity with exactly this email, or nil when absent.
func (a *Adapter) LookupByEmail(ctx context.Context, realm Realm, email string) (*Identity, error) {
	a.logger.Debug("lookup by email", zap.Stringer("realm", realm), zap.String("email", email))
	identities, err := a.queryIdentities(ctx, opLookupByEmail, realm, func(db *gorm.DB) *gorm.DB {
		return db.Where("email = ?", email).Limit(1)
	})
	if err != nil || len(identities) == 0 {
		return nil, err
	}
	return identities[0], nil
}

// SupportsCredentialKind reports whether kind is exactly the password kind.
func (a *Adapter) SupportsCredentialKind(kind CredentialKind) bool {
	return kind == CredentialKindPassword
}

// IsConfiguredFor is true for every identity when kind is supported; the store has one credential per user.
func (a *Adapter) IsConfiguredFor(_ context.Context, realm Realm, identity *Identity, kind CredentialKind) bool {
	a.logger.Debug("is configured for",
		zap.Stringer("realm", realm),
		zap.String("credential_kind", string(kind)))
	return a.SupportsCredentialKind(kind)
}

// ValidateCredential checks the presented secret against the stored password for the identity's username.
// Unsupported kinds and missing rows are false, not errors.
func (a *Adapter) ValidateCredential(ctx context.Context, realm Realm, identity *Identity, input CredentialInput) (bool, error) {
	if !a.SupportsCredentialKind(input.Kind) {
		a.metrics.RecordCredentialValidation("unsupported")
		return false, nil
	}
	if identity == nil {
		a.metrics.RecordCredentialValidation("invalid")
		return false, nil
	}

	username := ParseStorageID(identity.ID()).ExternalID
	a.logger.Debug("validate credential",
		zap.Stringer("realm", realm),
		zap.String("username", username),
		zap.String("credential_kind", string(input.Kind)))

	var passwords []sql.NullString
	err := a.withConnection(ctx, opValidateCredential, realm, func(db *gorm.DB) error {
		return db.Model(&Record{}).
			Where("username = ?", username).
			Limit(1).
			Pluck(columnPassword, &passwords).
			Error
	})
	if err != nil {
		a.metrics.RecordCredentialValidation(metrics.OutcomeError)
		return false, err
	}
	if len(passwords) == 0 || !passwords[0].Valid {
		a.metrics.RecordCredentialValidation("invalid")
		return false, nil
	}

	valid := a.matcher.Matches(passwords[0].String, input.Secret)
	if valid {
		a.metrics.RecordCredentialValidation("valid")
	} else {
		a.metrics.RecordCredentialValidation("invalid")
	}
	return valid, nil
}

// CountUsers returns the number of rows in the users table.
func (a *Adapter) CountUsers(ctx context.Context, realm Realm) (int64, error) {
	a.logger.Debug("count users", zap.Stringer("realm", realm))
	var count int64
	err := a.withConnection(ctx, opCountUsers, realm, func(db *gorm.DB) error {
		return db.Model(&Record{}).Count(&count).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListUsers returns the first DefaultPageSize users ordered by username.
func (a *Adapter) ListUsers(ctx context.Context, realm Realm) ([]*Identity, error) {
	return a.ListUsersPage(ctx, realm, 0, DefaultPageSize)
}

// ListUsersPage returns users ordered by username within the offset/limit window.
func (a *Adapter) ListUsersPage(ctx context.Context, realm Realm, offset, limit int) ([]*Identity, error) {
	offset, limit = normalizeWindow(offset, limit)
	a.logger.Debug("list users",
		zap.Stringer("realm", realm),
		zap.Int("offset", offset),
		zap.Int("limit", limit))
	return a.queryIdentities(ctx, opListUsers, realm, func(db *gorm.DB) *gorm.DB {
		return db.Order("username").Limit(limit).Offset(offset)
	})
}

// SearchUsers matches usernames against a store-native LIKE pattern within the default window.
func (a *Adapter) SearchUsers(ctx context.Context, realm Realm, pattern string) ([]*Identity, error) {
	return a.SearchUsersPage(ctx, realm, pattern, 0, DefaultPageSize)
}

// SearchUsersPage matches usernames against pattern, passed to the store untouched.
func (a *Adapter) SearchUsersPage(ctx context.Context, realm Realm, pattern string, offset, limit int) ([]*Identity, error) {
	offset, limit = normalizeWindow(offset, limit)
	a.logger.Debug("search users",
		zap.Stringer("realm", realm),
		zap.String("pattern", pattern),
		zap.Int("offset", offset),
		zap.Int("limit", limit))
	return a.queryIdentities(ctx, opSearchUsers, realm, func(db *gorm.DB) *gorm.DB {
		return db.Where("username LIKE ?", pattern).Order("username").Limit(limit).Offset(offset)
	})
}

// SearchUsersByAttributes ignores filters and lists users in the default window.
func (a *Adapter) SearchUsersByAttributes(ctx context.Context, realm Realm, filters map[string]string) ([]*Identity, error) {
	return a.SearchUsersByAttributesPage(ctx, realm, filters, 0, DefaultPageSize)
}

// SearchUsersByAttributesPage ignores filters and lists users in the requested window.
func (a *Adapter) SearchUsersByAttributesPage(ctx context.Context, realm Realm, filters map[string]string, offset, limit int) ([]*Identity, error) {
	a.logger.Debug("attribute filters are not applied", zap.Stringer("realm", realm), zap.Int("filters", len(filters)))
	return a.ListUsersPage(ctx, realm, offset, limit)
}

// GroupMembers is always empty: the store has no groups.
func (a *Adapter) GroupMembers(_ context.Context, _ Realm, _ Group, _, _ int) ([]*Identity, error) {
	return []*Identity{}, nil
}

// SearchByAttribute is always empty.
func (a *Adapter) SearchByAttribute(_ context.Context, _ Realm, _, _ string) ([]*Identity, error) {
	return []*Identity{}, nil
}

// Close releases adapter resources. Connections are per operation, so there is nothing to release.
func (a *Adapter) Close() error {
	a.logger.Debug("directory adapter closed", zap.String("provider_id", a.providerID))
	return nil
}

func (a *Adapter) queryIdentities(ctx context.Context, operation string, realm Realm, scope func(*gorm.DB) *gorm.DB) ([]*Identity, error) {
	identities := []*Identity{}
	err := a.withConnection(ctx, operation, realm, func(db *gorm.DB) error {
		rows, err := scope(db.Model(&Record{}).Select(identityColumns)).Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		scanned, err := scanRows(rows)
		if err != nil {
			return err
		}
		for _, row := range scanned {
			identity, err := mapRow(a.providerID, realm, row)
			if err != nil {
				return err
			}
			identities = append(identities, identity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identities, nil
}

// withConnection runs fn on a connection acquired for this call only and releases it on every exit path.
func (a *Adapter) withConnection(ctx context.Context, operation string, realm Realm, fn func(*gorm.DB) error) (err error) {
	started := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		a.metrics.RecordStoreOperation(operation, outcome, time.Since(started))
	}()

	conn, err := a.connector.Connect(ctx)
	if err != nil {
		a.logError(operation, "connect_failed", err, realm)
		return newStoreError(operation, "connect_failed", err)
	}
	defer a.release(operation, conn)

	if err := fn(conn.DB()); err != nil {
		if isMappingError(err) {
			a.logError(operation, "mapping_failed", err, realm)
			return err
		}
		a.logError(operation, "query_failed", err, realm)
		return newStoreError(operation, "query_failed", err)
	}
	return nil
}

func (a *Adapter) release(operation string, conn *database.Connection) {
	if err := conn.Close(); err != nil {
		a.logger.Warn("store connection release failed",
			zap.String("operation", operation),
			zap.Error(err))
	}
}

func (a *Adapter) logError(operation, reason string, err error, realm Realm, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Stringer("realm", realm),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	a.logger.Error("directory adapter error", attrs...)
}

func isMappingError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrMalformedColumn) ||
		errors.Is(err, ErrIncompleteIdentity)
}

func normalizeWindow(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return offset, limit
}
