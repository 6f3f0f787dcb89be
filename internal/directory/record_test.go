package directory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeRow() map[string]any {
	return map[string]any{
		"username":  "alice",
		"firstname": []byte("Alice"),
		"lastname":  "Liddell",
		"email":     nil,
		"birthdate": time.Date(1852, time.May, 4, 0, 0, 0, 0, time.UTC),
	}
}

func TestMapRowBuildsIdentity(t *testing.T) {
	identity, err := mapRow(testProviderID, testRealm, completeRow())
	require.NoError(t, err)

	assert.Equal(t, "alice", identity.Username())
	assert.Equal(t, "Alice", identity.FirstName())
	assert.Equal(t, "Liddell", identity.LastName())
	assert.Equal(t, "", identity.Email())
	assert.Equal(t, testProviderID+":alice", identity.ID())
}

func TestMapRowFailsOnMissingColumns(t *testing.T) {
	for _, column := range []string{"username", "firstname", "lastname", "email", "birthdate"} {
		row := completeRow()
		delete(row, column)

		identity, err := mapRow(testProviderID, testRealm, row)
		assert.Nil(t, identity, column)
		assert.True(t, errors.Is(err, ErrMissingColumn), "%s: %v", column, err)
	}
}

func TestMapRowFailsOnMalformedValues(t *testing.T) {
	cases := map[string]any{
		"username":  nil,
		"email":     42,
		"birthdate": "15/07/1990",
	}
	for column, value := range cases {
		row := completeRow()
		row[column] = value

		identity, err := mapRow(testProviderID, testRealm, row)
		assert.Nil(t, identity, column)
		assert.ErrorIs(t, err, ErrMalformedColumn, column)
	}

	row := completeRow()
	row["birthdate"] = 12345
	_, err := mapRow(testProviderID, testRealm, row)
	assert.ErrorIs(t, err, ErrMalformedColumn)
}

func TestMapRowParsesTextualBirthDates(t *testing.T) {
	for _, value := range []any{"1990-07-15", "1990-07-15 10:30:00", "1990-07-15T10:30:00Z", []byte("1990-07-15")} {
		row := completeRow()
		row["birthdate"] = value

		identity, err := mapRow(testProviderID, testRealm, row)
		require.NoError(t, err, value)
		birthDate, ok := identity.BirthDate()
		require.True(t, ok)
		assert.Equal(t, "1990-07-15", birthDate.Format(BirthDateLayout))
	}
}

func TestNewPasswordMatcher(t *testing.T) {
	plain, err := NewPasswordMatcher("")
	require.NoError(t, err)
	assert.True(t, plain.Matches("secret", "secret"))
	assert.False(t, plain.Matches("secret", "secret2"))

	_, err = NewPasswordMatcher("md5")
	assert.ErrorIs(t, err, ErrUnknownPasswordEncoding)
}
