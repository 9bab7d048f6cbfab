package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"openai_api_key", "sk-123",
		"tenant", "acme",
		"jwt_secret", "shh",
		"database_dsn", "postgres://u:p@h/db",
	})
	if len(out) != 8 {
		t.Fatalf("length: want=8 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api key: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != "acme" {
		t.Fatalf("tenant: want=acme got=%v", out[3])
	}
	if out[5] != "[REDACTED]" || out[7] != "[REDACTED]" {
		t.Fatalf("secret/dsn not redacted: %v", out)
	}
}

func TestSanitizeKVsHashesQuery(t *testing.T) {
	out := sanitizeKVs([]interface{}{"query", "what is the notice period?"})
	got, _ := out[1].(string)
	if !strings.HasPrefix(got, "hash:") {
		t.Fatalf("query: want hash prefix got=%q", got)
	}
	again := sanitizeKVs([]interface{}{"query", "what is the notice period?"})
	if again[1] != got {
		t.Fatalf("hash not stable: %v vs %v", again[1], got)
	}
}

func TestSanitizeKVsOddLengthAndJWT(t *testing.T) {
	jwtLike := "eyJhbGciOiJIUzI1NiJ9.eyJ0ZW5hbnQiOiJhY21lIn0.sig"
	out := sanitizeKVs([]interface{}{"header", jwtLike, "dangling"})
	if out[1] != "[REDACTED]" {
		t.Fatalf("jwt value: want=[REDACTED] got=%v", out[1])
	}
	if out[2] != "dangling" {
		t.Fatalf("dangling key: want=dangling got=%v", out[2])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"development", "production", "test"} {
		log, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		log.With("component", "test").Debug("ok")
	}
}
