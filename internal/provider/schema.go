package provider

import "github.com/MarcoPoloResearchLab/sqldirectory/internal/directory"

// Configuration property names.
const (
	KeyDriverClass      = "driverClass"
	KeyConnectionURL    = "connectionUrl"
	KeyDBUser           = "dbUser"
	KeyDBPassword       = "dbPassword"
	KeyValidationQuery  = "validationQuery"
	KeyPasswordEncoding = "passwordEncoding"
)

// Schema defaults.
const (
	DefaultDriverClass      = "org.h2.Driver"
	DefaultConnectionURL    = "sqldirectory.db"
	DefaultValidationQuery  = "select 1"
	DefaultPasswordEncoding = directory.PasswordEncodingPlain
)

// PropertyTypeString is the only property type the schema uses.
const PropertyTypeString = "String"

// ConfigProperty describes one configuration field rendered by the host.
type ConfigProperty struct {
	Name         string
	Label        string
	Type         string
	DefaultValue string
	HelpText     string
	Secret       bool
}

// configSchema is built once at process start and only read afterwards.
var configSchema = []ConfigProperty{
	{
		Name:         KeyDriverClass,
		Label:        "Driver Class",
		Type:         PropertyTypeString,
		DefaultValue: DefaultDriverClass,
		HelpText:     "Driver name (sqlite, postgres) or a JDBC driver class alias",
	},
	{
		Name:         KeyConnectionURL,
		Label:        "Connection URL",
		Type:         PropertyTypeString,
		DefaultValue: DefaultConnectionURL,
		HelpText:     "URL or DSN used to connect to the user database",
	},
	{
		Name:     KeyDBUser,
		Label:    "Database User",
		Type:     PropertyTypeString,
		HelpText: "Username used to connect to the database",
	},
	{
		Name:     KeyDBPassword,
		Label:    "Database Password",
		Type:     PropertyTypeString,
		HelpText: "Password used to connect to the database",
		Secret:   true,
	},
	{
		Name:         KeyValidationQuery,
		Label:        "SQL Validation Query",
		Type:         PropertyTypeString,
		DefaultValue: DefaultValidationQuery,
		HelpText:     "SQL query used to validate a connection",
	},
	{
		Name:         KeyPasswordEncoding,
		Label:        "Password Encoding",
		Type:         PropertyTypeString,
		DefaultValue: DefaultPasswordEncoding,
		HelpText:     "How stored passwords are encoded: plain or bcrypt",
	},
}

// Schema returns a copy of the configuration schema.
func Schema() []ConfigProperty {
	return append([]ConfigProperty(nil), configSchema...)
}

func lookupProperty(name string) (ConfigProperty, bool) {
	for _, property := range configSchema {
		if property.Name == name {
			return property, true
		}
	}
	return ConfigProperty{}, false
}
