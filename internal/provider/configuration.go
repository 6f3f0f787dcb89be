package provider

import (
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/database"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/logging"
	"go.uber.org/zap/zapcore"
)

// Configuration holds the host-owned provider settings keyed by schema property name.
// Blank or missing values fall back to the schema default.
type Configuration map[string]string

// Get returns the value for key, or the schema default when unset.
func (c Configuration) Get(key string) string {
	if value := strings.TrimSpace(c[key]); value != "" {
		return value
	}
	if property, ok := lookupProperty(key); ok {
		return property.DefaultValue
	}
	return ""
}

// ConnectionSettings extracts the store connection settings.
// The password is taken verbatim so leading or trailing spaces survive.
func (c Configuration) ConnectionSettings() database.ConnectionSettings {
	return database.ConnectionSettings{
		DriverClass:   c.Get(KeyDriverClass),
		ConnectionURL: c.Get(KeyConnectionURL),
		User:          c.Get(KeyDBUser),
		Password:      c[KeyDBPassword],
	}
}

// ValidationQuery returns the query used to validate a connection.
func (c Configuration) ValidationQuery() string {
	return c.Get(KeyValidationQuery)
}

// PasswordEncoding returns how stored passwords are encoded.
func (c Configuration) PasswordEncoding() string {
	return c.Get(KeyPasswordEncoding)
}

// MarshalLogObject logs every property with secrets masked.
func (c Configuration) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	keys := make([]string, 0, len(configSchema)+len(c))
	seen := make(map[string]bool, len(configSchema)+len(c))
	for _, property := range configSchema {
		keys = append(keys, property.Name)
		seen[property.Name] = true
	}
	extra := make([]string, 0)
	for key := range c {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	for _, key := range keys {
		property, known := lookupProperty(key)
		if known && property.Secret {
			encoder.AddString(key, logging.Secret(key, c[key]).String)
			continue
		}
		encoder.AddString(key, c.Get(key))
	}
	return nil
}
