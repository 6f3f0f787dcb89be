package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestSecretNeverEchoesValue(t *testing.T) {
	field := Secret("db_password", "hunter2")
	if field.String != SecretMask {
		t.Fatalf("expected masked value, got %q", field.String)
	}
	if empty := Secret("db_password", ""); empty.String != "" {
		t.Fatalf("expected empty marker for unset secret, got %q", empty.String)
	}
}
