package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

type Config struct {
	Port             string
	MongoURI         string
	DBName           string
	S3Bucket         string
	S3Region         string
	S3AccessKeyID    string
	S3SecretKey      string
	AuthEmail        string
	AuthPass         string
	JWTSecret        string
	MaxUploadMB      int64
	URLExpiryMinutes int64
}

func Load() (*Config, error) {
	maxMB := int64(50)
	if v := getEnv("MAX_UPLOAD_MB", "50"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxMB = n
		}
	}
	expiry := int64(15)
	if v := getEnv("URL_EXPIRY_MINUTES", "15"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			expiry = n
		}
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		MongoURI:         getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:           getEnv("MONGODB_DB", "bookstore"),
		S3Bucket:         getEnv("AWS_S3_BUCKET", ""),
		S3Region:         getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID:    getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AuthEmail:        getEnv("AUTH_EMAIL", "user@example.com"),
		AuthPass:         getEnv("AUTH_PASSWORD", "password"),
		JWTSecret:        getEnv("JWT_SECRET", "change-me-in-production"),
		MaxUploadMB:      maxMB,
		URLExpiryMinutes: expiry,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RequiredEnvVars are checked at startup; the app exits if any are unset.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"MONGODB_DB",
	"JWT_SECRET",
	"AUTH_EMAIL",
	"AUTH_PASSWORD",
	"AWS_S3_BUCKET",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
}

// OptionalEnvVars are logged at startup so you can confirm they are loaded when set.
var OptionalEnvVars = []string{
	"PORT",
	"MAX_UPLOAD_MB",
	"URL_EXPIRY_MINUTES",
}

var secretEnvVars = map[string]bool{
	"JWT_SECRET":            true,
	"AUTH_PASSWORD":         true,
	"AWS_ACCESS_KEY_ID":     true,
	"AWS_SECRET_ACCESS_KEY": true,
}

// ValidateEnv checks that all required env vars are set and logs the status
// of required + optional ones. Exits if any required var is missing.
func ValidateEnv() {
	var missing []string
	for _, key := range RequiredEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
			continue
		}
		log.Debug("env loaded", "key", key)
	}
	if len(missing) > 0 {
		log.Fatal("missing required env (set these in .env or the environment)", "keys", strings.Join(missing, ", "))
	}
	for _, key := range OptionalEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		switch {
		case v == "":
			log.Debug("env not set (optional)", "key", key)
		case secretEnvVars[key]:
			log.Debug("env loaded", "key", key)
		default:
			log.Debug("env loaded", "key", key, "value", v)
		}
	}
	if os.Getenv("JWT_SECRET") == "change-me-in-production" {
		log.Fatal("JWT_SECRET must be set to a strong secret (not the default change-me-in-production)")
	}
}
