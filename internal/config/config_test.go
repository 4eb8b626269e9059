package config

import (
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{
		"PRINCIPIA_API_URL", "PRINCIPIA_DATA_DIR", "PRINCIPIA_LOG_MODE",
		"HTTP_ADDR", "DB_DRIVER", "DB_DSN", "AUTH_HMAC_SECRET",
		"CORS_ORIGINS", "DEVSERVER_SEED", "PRINCIPIA_KEYMAP",
	} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.DBDriver != "sqlite" || !cfg.SeedOnStart {
		t.Fatalf("devserver defaults = %q seed=%v", cfg.DBDriver, cfg.SeedOnStart)
	}
	if cfg.KeymapPath != filepath.Join(cfg.DataDir, "keymap.yaml") {
		t.Fatalf("KeymapPath = %q", cfg.KeymapPath)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PRINCIPIA_API_URL", "https://api.principia.app")
	t.Setenv("DEVSERVER_SEED", "false")
	t.Setenv("CORS_ORIGINS", "https://principia.app, https://app.principia.app")

	cfg := FromEnv()
	if cfg.APIBaseURL != "https://api.principia.app" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.SeedOnStart {
		t.Fatal("SeedOnStart should honor DEVSERVER_SEED=false")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://app.principia.app" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestEnvBool(t *testing.T) {
	cases := []struct {
		val string
		def bool
		out bool
	}{
		{"1", false, true},
		{"yes", false, true},
		{"TRUE", false, true},
		{"0", true, false},
		{"no", true, false},
		{"", true, true},
		{"", false, false},
		{"garbage", true, true},
	}
	for _, c := range cases {
		t.Setenv("PRINCIPIA_TEST_BOOL", c.val)
		if got := envBool("PRINCIPIA_TEST_BOOL", c.def); got != c.out {
			t.Fatalf("envBool(%q, %v) = %v, want %v", c.val, c.def, got, c.out)
		}
	}
}
