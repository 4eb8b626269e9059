package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// APIBaseURL is the backend the client talks to. Defaults to the local
	// devserver so a fresh checkout works offline.
	APIBaseURL string

	// DataDir holds the local cache database and the TUI log file.
	DataDir string

	LogMode string // "dev" | "prod"

	// Devserver settings.
	HTTPAddr    string
	DBDriver    string // sqlite|postgres
	DBDSN       string
	AuthSecret  string
	CORSOrigins []string
	SeedOnStart bool

	// Keybindings override file for the TUI (yaml). Optional.
	KeymapPath string
}

func FromEnv() Config {
	_ = godotenv.Load()

	dataDir := os.Getenv("PRINCIPIA_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataDir = filepath.Join(home, ".principia")
	}

	return Config{
		APIBaseURL:  envOr("PRINCIPIA_API_URL", "http://localhost:8080"),
		DataDir:     dataDir,
		LogMode:     envOr("PRINCIPIA_LOG_MODE", "prod"),
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		DBDriver:    envOr("DB_DRIVER", "sqlite"),
		DBDSN:       envOr("DB_DSN", ""),
		AuthSecret:  envOr("AUTH_HMAC_SECRET", "principia-dev-secret"),
		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		SeedOnStart: envBool("DEVSERVER_SEED", true),
		KeymapPath:  envOr("PRINCIPIA_KEYMAP", filepath.Join(dataDir, "keymap.yaml")),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
