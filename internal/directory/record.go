package directory

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	columnUsername  = "username"
	columnFirstName = "firstName"
	columnLastName  = "lastName"
	columnEmail     = "email"
	columnPassword  = "password"
	columnBirthDate = "birthDate"
)

var (
	// ErrMissingColumn indicates a row lacked a column required to build an identity.
	ErrMissingColumn = errors.New("directory: missing column")
	// ErrMalformedColumn indicates a column value could not be mapped onto an identity field.
	ErrMalformedColumn = errors.New("directory: malformed column")
)

// identityColumns is the projection every identity query selects.
var identityColumns = []string{columnUsername, columnFirstName, columnLastName, columnEmail, columnBirthDate}

// Record is the backing store row for one user.
type Record struct {
	Username  string     `gorm:"column:username;primaryKey;size:255;not null"`
	FirstName *string    `gorm:"column:firstName;size:255"`
	LastName  *string    `gorm:"column:lastName;size:255"`
	Email     *string    `gorm:"column:email;size:255;index"`
	Password  *string    `gorm:"column:password;size:255"`
	BirthDate *time.Time `gorm:"column:birthDate;type:timestamp"`
}

// TableName binds Record to the users table.
func (Record) TableName() string {
	return "users"
}

// scanRows drains rows into column-keyed maps. Keys are lower-cased so drivers that fold
// identifier case still resolve.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for index := range values {
			pointers[index] = &values[index]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for index, column := range columns {
			row[strings.ToLower(column)] = values[index]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// mapRow builds an identity from a scanned row. It never degrades to a partial identity.
func mapRow(providerID string, realm Realm, row map[string]any) (*Identity, error) {
	username, err := requiredText(row, columnUsername)
	if err != nil {
		return nil, err
	}
	email, err := optionalText(row, columnEmail)
	if err != nil {
		return nil, err
	}
	firstName, err := optionalText(row, columnFirstName)
	if err != nil {
		return nil, err
	}
	lastName, err := optionalText(row, columnLastName)
	if err != nil {
		return nil, err
	}
	birthDate, err := optionalDate(row, columnBirthDate)
	if err != nil {
		return nil, err
	}

	return NewIdentityBuilder(providerID, realm, username).
		Email(email).
		FirstName(firstName).
		LastName(lastName).
		BirthDate(birthDate).
		Build()
}

func lookupColumn(row map[string]any, column string) (any, error) {
	value, ok := row[strings.ToLower(column)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
	}
	return value, nil
}

func requiredText(row map[string]any, column string) (string, error) {
	value, err := optionalText(row, column)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMalformedColumn, column)
	}
	return value, nil
}

func optionalText(row map[string]any, column string) (string, error) {
	value, err := lookupColumn(row, column)
	if err != nil {
		return "", err
	}
	switch typed := value.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	case []byte:
		return string(typed), nil
	default:
		return "", fmt.Errorf("%w: %s has type %T", ErrMalformedColumn, column, value)
	}
}

// optionalDate accepts a native time value or a yyyy-MM-dd string, optionally followed by a
// time part which is discarded.
func optionalDate(row map[string]any, column string) (time.Time, error) {
	value, err := lookupColumn(row, column)
	if err != nil {
		return time.Time{}, err
	}
	switch typed := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return typed, nil
	case string:
		return parseBirthDate(column, typed)
	case []byte:
		return parseBirthDate(column, string(typed))
	default:
		return time.Time{}, fmt.Errorf("%w: %s has type %T", ErrMalformedColumn, column, value)
	}
}

func parseBirthDate(column, value string) (time.Time, error) {
	datePart := value
	if len(value) > len(BirthDateLayout) {
		separator := value[len(BirthDateLayout)]
		if separator != ' ' && separator != 'T' {
			return time.Time{}, fmt.Errorf("%w: %s value %q", ErrMalformedColumn, column, value)
		}
		datePart = value[:len(BirthDateLayout)]
	}
	parsed, err := time.Parse(BirthDateLayout, datePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s value %q", ErrMalformedColumn, column, value)
	}
	return parsed, nil
}
