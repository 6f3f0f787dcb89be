package directory

import "context"

// DefaultPageSize caps unwindowed listings. Callers asking for "all users" get at most this many.
const DefaultPageSize = 5000

// Group is the host's opaque group handle.
type Group string

// Lookup resolves single identities.
type Lookup interface {
	LookupByID(ctx context.Context, realm Realm, id string) (*Identity, error)
	LookupByUsername(ctx context.Context, realm Realm, username string) (*Identity, error)
	LookupByEmail(ctx context.Context, realm Realm, email string) (*Identity, error)
}

// CredentialValidator negotiates and checks credentials.
type CredentialValidator interface {
	SupportsCredentialKind(kind CredentialKind) bool
	IsConfiguredFor(ctx context.Context, realm Realm, identity *Identity, kind CredentialKind) bool
	ValidateCredential(ctx context.Context, realm Realm, identity *Identity, input CredentialInput) (bool, error)
}

// Query counts, lists and searches identities.
type Query interface {
	CountUsers(ctx context.Context, realm Realm) (int64, error)
	ListUsers(ctx context.Context, realm Realm) ([]*Identity, error)
	ListUsersPage(ctx context.Context, realm Realm, offset, limit int) ([]*Identity, error)
	SearchUsers(ctx context.Context, realm Realm, pattern string) ([]*Identity, error)
	SearchUsersPage(ctx context.Context, realm Realm, pattern string, offset, limit int) ([]*Identity, error)
	SearchUsersByAttributes(ctx context.Context, realm Realm, filters map[string]string) ([]*Identity, error)
	SearchUsersByAttributesPage(ctx context.Context, realm Realm, filters map[string]string, offset, limit int) ([]*Identity, error)
	GroupMembers(ctx context.Context, realm Realm, group Group, offset, limit int) ([]*Identity, error)
	SearchByAttribute(ctx context.Context, realm Realm, name, value string) ([]*Identity, error)
}

// Provider is the full capability set a host binds to.
type Provider interface {
	Lookup
	CredentialValidator
	Query
	Close() error
}

var _ Provider = (*Adapter)(nil)
