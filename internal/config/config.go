package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	Stripe    StripeConfig
	Mail      MailConfig
	Kafka     KafkaConfig
	Media     MediaConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type MailConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	From        string
	AdminEmail  string
	FrontendURL string
}

// Enabled reports whether an SMTP relay is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether order events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type MediaConfig struct {
	Root    string
	BaseURL string
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessExpiry) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshExpiry) * 24 * time.Hour
}

func Load() *Config {
	// A missing .env is normal in containers; real environment variables still apply.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_DATABASE", "ecommerce_db")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 30)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("STRIPE_CURRENCY", "pen")
	viper.SetDefault("SMTP_PORT", "587")
	viper.SetDefault("MAIL_FROM", "no-reply@techstore.local")
	viper.SetDefault("FRONTEND_URL", "http://localhost:5173")
	viper.SetDefault("KAFKA_TOPIC", "techstore.orders")
	viper.SetDefault("MEDIA_ROOT", "./public")
	viper.SetDefault("MEDIA_BASE_URL", "")

	return &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Env:         viper.GetString("SERVER_ENV"),
			CORSOrigins: splitList(viper.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Stripe: StripeConfig{
			SecretKey: viper.GetString("STRIPE_SECRET_KEY"),
			Currency:  viper.GetString("STRIPE_CURRENCY"),
		},
		Mail: MailConfig{
			Host:        viper.GetString("SMTP_HOST"),
			Port:        viper.GetString("SMTP_PORT"),
			Username:    viper.GetString("SMTP_USERNAME"),
			Password:    viper.GetString("SMTP_PASSWORD"),
			From:        viper.GetString("MAIL_FROM"),
			AdminEmail:  viper.GetString("ADMIN_EMAIL"),
			FrontendURL: viper.GetString("FRONTEND_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Media: MediaConfig{
			Root:    viper.GetString("MEDIA_ROOT"),
			BaseURL: viper.GetString("MEDIA_BASE_URL"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
