package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendBedrock = "bedrock"
	BackendGemini  = "gemini"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port        string
	CorsOrigins []string

	Backend      string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	TextModel    string
	EmbedModel   string
	AIAPIKey     string
	EmbedDim     int

	StoreDriver string
	DatabaseURL string
	SslCertPath string
	SQLitePath  string
	SearchLimit int

	StreamTimeout        time.Duration
	TolerateStreamErrors bool
	StreamEcho           bool
	DegradeOnSearchError bool

	JWTSecret        string
	ClientID         string
	ClientSecretHash string

	BucketName    string
	IngestWorkers int

	LogLevel string
	LogPath  string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		CorsOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		Backend:      strings.ToLower(getEnv("BACKEND", BackendBedrock)),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-1"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "assist.db"),
		SearchLimit: getEnvInt("SEARCH_LIMIT", 5),

		StreamTimeout:        getEnvDuration("STREAM_TIMEOUT", 2*time.Minute),
		TolerateStreamErrors: getEnvBool("STREAM_TOLERATE_ERRORS", false),
		StreamEcho:           getEnvBool("STREAM_ECHO", false),
		DegradeOnSearchError: getEnvBool("RAG_DEGRADE_ON_SEARCH_ERROR", false),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		ClientID:         getEnv("CLIENT_ID", "assist-client"),
		ClientSecretHash: getEnv("CLIENT_SECRET_HASH", ""),

		BucketName:    getEnv("BUCKET_NAME", ""),
		IngestWorkers: getEnvInt("INGEST_WORKERS", 2),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}

	switch cfg.Backend {
	case BackendGemini:
		cfg.TextModel = getEnv("GEN_MODEL", "gemini-1.5-flash")
		cfg.EmbedModel = getEnv("EMBED_MODEL", "text-embedding-004")
		cfg.EmbedDim = getEnvInt("EMBED_DIM", 768)
	default:
		cfg.TextModel = getEnv("BEDROCK_TEXT_MODEL", "anthropic.claude-v2")
		cfg.EmbedModel = getEnv("BEDROCK_EMBED_MODEL", "amazon.titan-embed-text-v1")
		cfg.EmbedDim = getEnvInt("EMBED_DIM", 1536)
	}

	return cfg
}

// Validate reports every required value missing for the selected backend and store.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendBedrock:
		if c.AwsRegion == "" {
			errs = append(errs, errors.New("AWS_REGION not set"))
		}
	case BackendGemini:
		if c.AIAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BACKEND %q", c.Backend))
	}

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL not set"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET not set"))
	}
	if c.SearchLimit <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.SearchLimit))
	}

	return errors.Join(errs...)
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("WARN: %s=%q not a positive duration, using default %s", key, v, def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
