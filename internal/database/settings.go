package database

import (
	"fmt"
	"net/url"
	"strings"
)

const redactedSecret = "******"

// ConnectionSettings describes how to reach the backing user store.
type ConnectionSettings struct {
	DriverClass   string
	ConnectionURL string
	User          string
	Password      string
}

// DSN renders the data source name for the resolved driver.
// SQLite uses the connection URL verbatim; PostgreSQL gets the configured credentials injected.
func (s ConnectionSettings) DSN(driver string) (string, error) {
	connectionURL := strings.TrimSpace(s.ConnectionURL)
	if connectionURL == "" {
		return "", ErrMissingConnectionURL
	}
	if driver != DriverPostgres || s.User == "" {
		return connectionURL, nil
	}

	if strings.HasPrefix(connectionURL, "postgres://") || strings.HasPrefix(connectionURL, "postgresql://") {
		parsed, err := url.Parse(connectionURL)
		if err != nil {
			return "", fmt.Errorf("database: invalid connection url: %s", s.Redact(err.Error()))
		}
		if parsed.User == nil {
			if s.Password != "" {
				parsed.User = url.UserPassword(s.User, s.Password)
			} else {
				parsed.User = url.User(s.User)
			}
		}
		return parsed.String(), nil
	}

	dsn := connectionURL + " user=" + quoteKeywordValue(s.User)
	if s.Password != "" {
		dsn += " password=" + quoteKeywordValue(s.Password)
	}
	return dsn, nil
}

// Redact masks the configured password, raw or URL-escaped, wherever it appears in message
// as a whole token. Occurrences glued to letters or digits are part of other words and stay.
func (s ConnectionSettings) Redact(message string) string {
	if s.Password == "" {
		return message
	}
	message = maskToken(message, s.Password)
	return maskToken(message, url.QueryEscape(s.Password))
}

// RedactError masks the configured password in err's message while keeping err reachable through Unwrap.
func (s ConnectionSettings) RedactError(err error) error {
	if err == nil || s.Password == "" {
		return err
	}
	return &redactedError{message: s.Redact(err.Error()), cause: err}
}

type redactedError struct {
	message string
	cause   error
}

func (e *redactedError) Error() string {
	return e.message
}

func (e *redactedError) Unwrap() error {
	return e.cause
}

func maskToken(message, secret string) string {
	var builder strings.Builder
	start := 0
	for {
		index := strings.Index(message[start:], secret)
		if index < 0 {
			break
		}
		index += start
		end := index + len(secret)
		if isWordByte(message, index-1) || isWordByte(message, end) {
			builder.WriteString(message[start : index+1])
			start = index + 1
			continue
		}
		builder.WriteString(message[start:index])
		builder.WriteString(redactedSecret)
		start = end
	}
	builder.WriteString(message[start:])
	return builder.String()
}

func isWordByte(message string, index int) bool {
	if index < 0 || index >= len(message) {
		return false
	}
	c := message[index]
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func quoteKeywordValue(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}
