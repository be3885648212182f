package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	StoreDriver string // "postgres" or "memory"
	DatabaseURL string

	RedisAddr string
	RedisPass string
	RedisDB   int

	JWTSecret  string
	SessionTTL time.Duration

	KafkaBroker string
	KafkaTopic  string

	SMTPHost  string
	SMTPPort  int
	EmailUser string
	EmailPass string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadPreset string

	ReminderSchedule string
}

// Load reads .env when present, then the environment, with defaults for local runs.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file. Using environment variables directly.")
	}
	return &Config{
		Port:        getEnv("PORT", "8000"),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		JWTSecret:  getEnv("JWT_SECRET", "change-me"),
		SessionTTL: getEnvDuration("SESSION_TTL", 72*time.Hour),

		KafkaBroker: os.Getenv("KAFKA_BROKER"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "booking-events"),

		SMTPHost:  os.Getenv("SMTP_HOST"),
		SMTPPort:  getEnvInt("SMTP_PORT", 587),
		EmailUser: os.Getenv("EMAIL_USER"),
		EmailPass: os.Getenv("EMAIL_PASS"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),

		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 18 * * *"),
	}
}

func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }
func (c *Config) KafkaEnabled() bool { return c.KafkaBroker != "" }
func (c *Config) MailEnabled() bool  { return c.SMTPHost != "" }
func (c *Config) UploadEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
