package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Environment       string
	LogLevel          string
	DBUrl             string
	SupabaseUrl       string
	SupabaseJWTSecret string
	FrontendURL       string
	SiteURL           string // Base URL used in emailed links (intake page)
	CORSOrigins       []string
	// SMTP Configuration (Brevo), used when no Resend key is set
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromEmail string
	// Resend HTTP API
	ResendAPIKey  string
	ResendBaseURL string
	EmailFrom     string
	TeamEmail     string // Receives beta, credential and workflow notices
	EmailPerSec   float64
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds       int
	RateLimitGlobalThreshold     int
	RateLimitFormThreshold       int
	RateLimitCredentialThreshold int
	UploadsPerMinute             int
	UploadsPerDay                int
	// Notification queue
	NotifyStream      string
	NotifyGroup       string
	NotifyConsumers   int
	NotifyMaxAttempts int
	NotifyBaseBackoff time.Duration
	NotifyMaxBackoff  time.Duration
	// Google Drive relay
	GoogleServiceAccountEmail string
	GooglePrivateKey          string
	GoogleDriveRootFolderID   string
	GoogleTokenURL            string
	GoogleDriveEndpoint       string // Empty means the public Drive API
	MaxUploadBytes            int64
	VideoFetchTimeout         time.Duration
	VideoFetchAllowPrivate    bool
	// Credentials at rest
	CredentialsEncryptionKey string // base64, 32 bytes
	// Optional S3-compatible archive of relayed videos
	ArchiveProvider        string
	ArchiveBucket          string
	ArchiveRegion          string
	ArchiveAccessKeyID     string
	ArchiveSecretAccessKey string
	ArchiveEndpoint        string
	// Security Configuration
	SecurityLogToDB bool
}

const DefaultMaxUploadBytes int64 = 2 * 1024 * 1024 * 1024

func LoadConfig() (*Config, error) {
	// Missing .env is fine outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
		DBUrl:       getEnv("DATABASE_URL", ""),
		// Trailing slash would produce .co//auth
		SupabaseUrl:       strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", getEnv("SUPABASE_JWT_KEY", "")),
		FrontendURL:       strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		SiteURL:           strings.TrimRight(getEnv("SITE_URL", "https://growyourbrand.lovable.app"), "/"),
		CORSOrigins:       getEnvList("CORS_ALLOWED_ORIGINS", nil),
		// SMTP Configuration
		SMTPHost:      getEnv("SMTP_HOST", "smtp-relay.brevo.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail: getEnv("SMTP_FROM_EMAIL", "noreply@bornmadebosses.com"),
		// Resend
		ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
		ResendBaseURL: strings.TrimRight(getEnv("RESEND_BASE_URL", "https://api.resend.com"), "/"),
		EmailFrom:     getEnv("EMAIL_FROM", "GrowYourBrand <onboarding@resend.dev>"),
		TeamEmail:     getEnv("TEAM_EMAIL", "info@bornmadebosses.com"),
		EmailPerSec:   getEnvFloat("EMAIL_SENDS_PER_SECOND", 2),
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Rate Limiting Configuration
		RateLimitWindowSeconds:       getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitGlobalThreshold:     getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100),
		RateLimitFormThreshold:       getEnvInt("RATE_LIMIT_FORM_THRESHOLD", 10),
		RateLimitCredentialThreshold: getEnvInt("RATE_LIMIT_CREDENTIAL_THRESHOLD", 5),
		UploadsPerMinute:             getEnvInt("UPLOADS_PER_MINUTE", 5),
		UploadsPerDay:                getEnvInt("UPLOADS_PER_DAY", 50),
		// Notification queue
		NotifyStream:      getEnv("NOTIFY_STREAM", "autopost:notifications"),
		NotifyGroup:       getEnv("NOTIFY_GROUP", "mailers"),
		NotifyConsumers:   getEnvInt("NOTIFY_CONSUMERS", 2),
		NotifyMaxAttempts: getEnvInt("NOTIFY_MAX_ATTEMPTS", 5),
		NotifyBaseBackoff: getEnvDuration("NOTIFY_BASE_BACKOFF", 2*time.Second),
		NotifyMaxBackoff:  getEnvDuration("NOTIFY_MAX_BACKOFF", 5*time.Minute),
		// Google Drive relay
		GoogleServiceAccountEmail: getEnv("GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
		// Dashboards store the PEM with literal \n sequences
		GooglePrivateKey:        strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		GoogleDriveRootFolderID: getEnv("GOOGLE_DRIVE_ROOT_FOLDER_ID", ""),
		GoogleTokenURL:          getEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		GoogleDriveEndpoint:     getEnv("GOOGLE_DRIVE_ENDPOINT", ""),
		MaxUploadBytes:          getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		VideoFetchTimeout:       getEnvDuration("VIDEO_FETCH_TIMEOUT", 10*time.Minute),
		VideoFetchAllowPrivate:  getEnvBool("VIDEO_FETCH_ALLOW_PRIVATE", false),
		// Credentials
		CredentialsEncryptionKey: getEnv("CREDENTIALS_ENCRYPTION_KEY", ""),
		// Archive
		ArchiveProvider:        getEnv("ARCHIVE_PROVIDER", "aws"),
		ArchiveBucket:          getEnv("ARCHIVE_BUCKET", ""),
		ArchiveRegion:          getEnv("ARCHIVE_REGION", "us-east-1"),
		ArchiveAccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
		ArchiveSecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		ArchiveEndpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
		// Security Configuration
		SecurityLogToDB: getEnvBool("SECURITY_LOG_TO_DB", true),
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Rate limiting and notifications will use in-memory fallback.")
	}
	if cfg.GoogleServiceAccountEmail == "" || cfg.GooglePrivateKey == "" {
		log.Println("WARNING: Google service account not configured. Upload relay will fail.")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || os.Getenv("GIN_MODE") == "release"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings such as "2s" or "5m".
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
