package directory

import "strings"

const storageIDSeparator = ":"

// StorageID is the composite identifier the host uses to route a user back to its provider.
// Its wire form is "<providerId>:<externalId>".
type StorageID struct {
	ProviderID string
	ExternalID string
}

// NewStorageID composes a storage id for an external username.
func NewStorageID(providerID, externalID string) StorageID {
	return StorageID{ProviderID: providerID, ExternalID: externalID}
}

// ParseStorageID splits a composite id on its first separator so external ids containing
// the separator survive the round trip. An id without a separator is a bare external id.
// No trimming or case folding is applied.
func ParseStorageID(id string) StorageID {
	providerID, externalID, found := strings.Cut(id, storageIDSeparator)
	if !found {
		return StorageID{ExternalID: id}
	}
	return StorageID{ProviderID: providerID, ExternalID: externalID}
}

// String renders the wire form.
func (id StorageID) String() string {
	if id.ProviderID == "" {
		return id.ExternalID
	}
	return id.ProviderID + storageIDSeparator + id.ExternalID
}
