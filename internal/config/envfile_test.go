package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnvSetsMissingVariables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "API_BASE_URL=http://localhost:5000\nexport JWT_SECRET=\"top secret\"\n# comment\nBROKEN LINE\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	os.Unsetenv("API_BASE_URL")
	os.Unsetenv("JWT_SECRET")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv error: %v", err)
	}
	if got := os.Getenv("API_BASE_URL"); got != "http://localhost:5000" {
		t.Fatalf("API_BASE_URL = %q", got)
	}
	if got := os.Getenv("JWT_SECRET"); got != "top secret" {
		t.Fatalf("JWT_SECRET = %q, want unquoted value", got)
	}
}

func TestLoadDotEnvDoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("STORE_MODE=postgres\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("STORE_MODE", "memory")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv error: %v", err)
	}
	if got := os.Getenv("STORE_MODE"); got != "memory" {
		t.Fatalf("STORE_MODE = %q, want process value kept", got)
	}
}

func TestLoadDotEnvMissingFileIsFine(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file must not error, got %v", err)
	}
}

func TestParseEnvLine(t *testing.T) {
	if _, _, ok := parseEnvLine("# just a comment"); ok {
		t.Fatal("comments must be skipped")
	}
	if _, _, ok := parseEnvLine("=value-without-key"); ok {
		t.Fatal("empty keys must be skipped")
	}
	key, value, ok := parseEnvLine("  ML_CLIENT_ID='app 1'  ")
	if !ok || key != "ML_CLIENT_ID" || value != "app 1" {
		t.Fatalf("got %q=%q ok=%v", key, value, ok)
	}
}
