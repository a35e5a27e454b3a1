package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string // sqlite|postgres
	DBDSN    string

	BlobDriver   string // fs|b2
	BlobBasePath string // for fs
	B2KeyID      string
	B2AppKey     string
	B2Bucket     string

	EvidenceMaxBytes int64

	// Empty RedisAddr falls back to the database-backed submission throttle.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GroupSubmitCooldown time.Duration

	EnableLocalAuth bool
	AuthHMACSecret  string
	TokenTTL        time.Duration

	CORSOrigins []string

	CatalogFile string

	LogFormat string // json|text
	LogLevel  string
}

// Load applies the given .env files (default ".env") and reads the environment.
// Already-set variables win over file values; missing files are skipped.
func Load(paths ...string) (Config, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		PublicURL:           os.Getenv("PUBLIC_URL"),
		DBDriver:            envOr("DB_DRIVER", "sqlite"),
		DBDSN:               os.Getenv("DB_DSN"),
		BlobDriver:          envOr("BLOB_DRIVER", "fs"),
		BlobBasePath:        envOr("BLOB_BASE_PATH", "./data"),
		B2KeyID:             os.Getenv("B2_KEY_ID"),
		B2AppKey:            os.Getenv("B2_APP_KEY"),
		B2Bucket:            os.Getenv("B2_BUCKET"),
		EvidenceMaxBytes:    int64(envInt("EVIDENCE_MAX_BYTES", 10<<20)),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             envInt("REDIS_DB", 0),
		GroupSubmitCooldown: envDuration("GROUP_SUBMIT_COOLDOWN", time.Minute),
		EnableLocalAuth:     envBool("ENABLE_LOCAL_AUTH", true),
		AuthHMACSecret:      envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		TokenTTL:            envDuration("TOKEN_TTL", 12*time.Hour),
		CORSOrigins:         csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		CatalogFile:         os.Getenv("CATALOG_FILE"),
		LogFormat:           envOr("LOG_FORMAT", "text"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
	}
}

// Logger builds the process logger from LogFormat and LogLevel.
func (c Config) Logger() *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
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
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d < 0 {
		return def
	}
	return d
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
