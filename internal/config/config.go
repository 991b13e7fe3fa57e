package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	DBConn         string
	LogLevel       string
	JWTSecret      string
	TokenTTL       time.Duration
	HMACSecret     string
	EncryptionKey  []byte
	PublicURL      string
	GRPCHealthAddr string
	AppVersion     string

	AsaasURL          string
	AsaasAPIKey       string
	AsaasWebhookToken string
	BCBURL            string

	MongoURI string
	MongoDB  string

	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PublicURL string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	CartReminderAfter time.Duration
	PastDueGrace      time.Duration
	CronScheduledTx   string
	CronPastDue       string
	CronCartReminder  string
}

// NewConfig loads configuration from environment variables, optionally seeded from a .env file
func NewConfig() (*Config, error) {
	// A missing .env file is fine, the environment alone is enough.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=finance sslmode=disable"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		HMACSecret:     getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		PublicURL:      getEnv("PUBLIC_URL", "http://localhost:8080"),
		GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ":9090"),
		AppVersion:     getEnv("APP_VERSION", "v1"),

		AsaasURL:          getEnv("ASAAS_URL", "https://sandbox.asaas.com/api/v3"),
		AsaasAPIKey:       getEnv("ASAAS_API_KEY", ""),
		AsaasWebhookToken: getEnv("ASAAS_WEBHOOK_TOKEN", ""),
		BCBURL:            getEnv("BCB_URL", "https://api.bcb.gov.br/dados/serie/bcdata.sgs.432/dados/ultimos/1?formato=xml"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "finance_analytics"),

		S3AccessKey: getEnv("S3_ACCESS_KEY", "admin"),
		S3SecretKey: getEnv("S3_SECRET_KEY", "secretpassword"),
		S3Bucket:    getEnv("S3_BUCKET", "app-assets"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", "http://127.0.0.1:9000/"),
		S3PublicURL: getEnv("S3_PUBLIC_URL", "http://127.0.0.1:9000/app-assets"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@localhost"),

		CronScheduledTx:  getEnv("CRON_SCHEDULED_TX", "@every 1h"),
		CronPastDue:      getEnv("CRON_PAST_DUE", "0 3 * * *"),
		CronCartReminder: getEnv("CRON_CART_REMINDER", "*/30 * * * *"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.AsaasAPIKey != "" && cfg.AsaasWebhookToken == "" {
		return nil, fmt.Errorf("ASAAS_WEBHOOK_TOKEN is required when ASAAS_API_KEY is set")
	}

	key, err := hex.DecodeString(getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"))
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24 or 32 bytes, got %d", len(key))
	}
	cfg.EncryptionKey = key

	if _, err := strconv.Atoi(cfg.SMTPPort); err != nil {
		return nil, fmt.Errorf("SMTP_PORT must be a number: %w", err)
	}

	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CartReminderAfter, err = getDuration("CART_REMINDER_AFTER", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PastDueGrace, err = getDuration("PAST_DUE_GRACE", 0); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
