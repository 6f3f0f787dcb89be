package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/provider"
	"github.com/spf13/viper"
)

const (
	envPrefix              = "SQLDIRECTORY"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultLogLevel        = "info"
	defaultHostIssuer      = "sqldirectory-host"
	defaultHostAudience    = "sqldirectory"
	defaultTokenTTLMinutes = 30
)

var errMissingSigningSecret = errors.New("host.signing_secret is required")

// AppConfig captures runtime configuration for the CLI and the HTTP bridge.
type AppConfig struct {
	HTTPAddress       string
	LogLevel          string
	MetricsEnabled    bool
	HostSigningSecret string
	HostIssuer        string
	HostAudience      string
	HostTokenTTL      time.Duration
	Provider          provider.Configuration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("metrics.enabled", true)
	configViper.SetDefault("host.issuer", defaultHostIssuer)
	configViper.SetDefault("host.audience", defaultHostAudience)
	configViper.SetDefault("host.token_ttl_minutes", defaultTokenTTLMinutes)

	configViper.SetDefault("store.driver_class", provider.DefaultDriverClass)
	configViper.SetDefault("store.connection_url", provider.DefaultConnectionURL)
	configViper.SetDefault("store.validation_query", provider.DefaultValidationQuery)
	configViper.SetDefault("store.password_encoding", provider.DefaultPasswordEncoding)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		LogLevel:          configViper.GetString("log.level"),
		MetricsEnabled:    configViper.GetBool("metrics.enabled"),
		HostSigningSecret: configViper.GetString("host.signing_secret"),
		HostIssuer:        configViper.GetString("host.issuer"),
		HostAudience:      configViper.GetString("host.audience"),
		HostTokenTTL:      time.Duration(configViper.GetInt("host.token_ttl_minutes")) * time.Minute,
		Provider: provider.Configuration{
			provider.KeyDriverClass:      configViper.GetString("store.driver_class"),
			provider.KeyConnectionURL:    configViper.GetString("store.connection_url"),
			provider.KeyDBUser:           configViper.GetString("store.db_user"),
			provider.KeyDBPassword:       configViper.GetString("store.db_password"),
			provider.KeyValidationQuery:  configViper.GetString("store.validation_query"),
			provider.KeyPasswordEncoding: configViper.GetString("store.password_encoding"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// RequireHostSecret reports whether the bridge can authenticate host processes.
func (c AppConfig) RequireHostSecret() error {
	if strings.TrimSpace(c.HostSigningSecret) == "" {
		return errMissingSigningSecret
	}
	return nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.Provider[provider.KeyConnectionURL]) == "" {
		return fmt.Errorf("store.connection_url is required")
	}
	if c.HostTokenTTL <= 0 {
		return fmt.Errorf("host.token_ttl_minutes must be positive")
	}
	return nil
}
