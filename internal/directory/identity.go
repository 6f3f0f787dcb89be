package directory

import (
	"errors"
	"fmt"
	"time"
)

// BirthDateLayout is the textual date convention for birth dates.
const BirthDateLayout = "2006-01-02"

// ErrIncompleteIdentity indicates an identity was built without a required field.
var ErrIncompleteIdentity = errors.New("directory: incomplete identity")

// Realm is the host's opaque tenant handle. The adapter only logs it.
type Realm string

// String returns the realm name.
func (r Realm) String() string {
	return string(r)
}

// Identity is the host-facing view of one store row. It is immutable once built.
type Identity struct {
	id        StorageID
	realm     Realm
	username  string
	email     string
	firstName string
	lastName  string
	birthDate *time.Time
}

// ID returns the composite identifier in wire form.
func (i *Identity) ID() string {
	return i.id.String()
}

// StorageID returns the decomposed composite identifier.
func (i *Identity) StorageID() StorageID {
	return i.id
}

// Realm returns the realm the identity was looked up in.
func (i *Identity) Realm() Realm {
	return i.realm
}

// Username returns the store's natural key for the user.
func (i *Identity) Username() string {
	return i.username
}

// Email returns the user's email address.
func (i *Identity) Email() string {
	return i.email
}

// FirstName returns the user's given name.
func (i *Identity) FirstName() string {
	return i.firstName
}

// LastName returns the user's family name.
func (i *Identity) LastName() string {
	return i.lastName
}

// BirthDate returns the stored birth date and whether one is present.
func (i *Identity) BirthDate() (time.Time, bool) {
	if i.birthDate == nil {
		return time.Time{}, false
	}
	return *i.birthDate, true
}

// Attributes exposes the identity as host attributes. birthDate is formatted with BirthDateLayout.
func (i *Identity) Attributes() map[string][]string {
	attributes := map[string][]string{
		"username":  {i.username},
		"email":     {i.email},
		"firstName": {i.firstName},
		"lastName":  {i.lastName},
	}
	if i.birthDate != nil {
		attributes["birthDate"] = []string{i.birthDate.Format(BirthDateLayout)}
	}
	return attributes
}

// IdentityBuilder assembles an Identity field by field. Build validates and returns the value.
type IdentityBuilder struct {
	providerID string
	realm      Realm
	username   string
	email      string
	firstName  string
	lastName   string
	birthDate  *time.Time
}

// NewIdentityBuilder starts an identity keyed by username under providerID.
func NewIdentityBuilder(providerID string, realm Realm, username string) *IdentityBuilder {
	return &IdentityBuilder{providerID: providerID, realm: realm, username: username}
}

func (b *IdentityBuilder) Email(email string) *IdentityBuilder {
	b.email = email
	return b
}

func (b *IdentityBuilder) FirstName(firstName string) *IdentityBuilder {
	b.firstName = firstName
	return b
}

func (b *IdentityBuilder) LastName(lastName string) *IdentityBuilder {
	b.lastName = lastName
	return b
}

// BirthDate sets the birth date; a zero time clears it.
func (b *IdentityBuilder) BirthDate(birthDate time.Time) *IdentityBuilder {
	if birthDate.IsZero() {
		b.birthDate = nil
		return b
	}
	value := birthDate
	b.birthDate = &value
	return b
}

// Build returns the identity or ErrIncompleteIdentity when the provider id or username is empty.
func (b *IdentityBuilder) Build() (*Identity, error) {
	if b.providerID == "" {
		return nil, fmt.Errorf("%w: provider id", ErrIncompleteIdentity)
	}
	if b.username == "" {
		return nil, fmt.Errorf("%w: username", ErrIncompleteIdentity)
	}
	identity := &Identity{
		id:        NewStorageID(b.providerID, b.username),
		realm:     b.realm,
		username:  b.username,
		email:     b.email,
		firstName: b.firstName,
		lastName:  b.lastName,
	}
	if b.birthDate != nil {
		value := *b.birthDate
		identity.birthDate = &value
	}
	return identity, nil
}
