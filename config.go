package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "backoffice-service/pkg/aws"
)

// Config holds all configuration for the back-office service.
type Config struct {
	Port   string
	AppEnv string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CategoryCacheTTL time.Duration

	JWTSecret   string
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int

	StripeEnabled    bool
	StripeSecretKey  string
	StripeWebhookKey string
	StripeSuccessURL string
	StripeCancelURL  string
	CashEnabled      bool

	EventBus               string // sns, kafka or none
	PaymentSNSTopicARN     string
	KafkaBrokers           []string
	KafkaTopic             string
	PaymentRequestQueueURL string // SQS queue URL for payment requests

	MetricsEnabled    bool
	MetricsNamespace  string
	CloudWatchEnabled bool
	LogGroup          string
}

// LoadConfig reads configuration from environment variables with optional
// Secrets Manager override.
func LoadConfig() (*Config, error) {
	frontend := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")

	cfg := &Config{
		Port:   getEnv("PORT", "8092"),
		AppEnv: getEnv("APP_ENV", "development"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		CategoryCacheTTL: getEnvDuration("CATEGORY_CACHE_TTL", 10*time.Minute),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", frontend)),
		RateLimit:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateBurst:   getEnvInt("RATE_LIMIT_BURST", 40),

		StripeEnabled:    getEnvBool("STRIPE_ENABLED", true),
		StripeSecretKey:  os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeSuccessURL: getEnv("STRIPE_SUCCESS_URL", frontend+"/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		StripeCancelURL:  getEnv("STRIPE_CANCEL_URL", frontend+"/checkout/cancel"),
		CashEnabled:      getEnvBool("CASH_ENABLED", true),

		EventBus:               strings.ToLower(getEnv("EVENT_BUS", "sns")),
		PaymentSNSTopicARN:     os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		KafkaBrokers:           splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:             getEnv("KAFKA_PAYMENT_TOPIC", "payment-events"),
		PaymentRequestQueueURL: os.Getenv("PAYMENT_REQUEST_QUEUE_URL"),

		MetricsEnabled:    getEnvBool("METRICS_ENABLED", false),
		MetricsNamespace:  getEnv("METRICS_NAMESPACE", "BackOffice"),
		CloudWatchEnabled: getEnvBool("CLOUDWATCH_ENABLED", false),
		LogGroup:          getEnv("CLOUDWATCH_LOG_GROUP", "/backoffice/services"),
	}

	// Override credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			applySecrets(context.Background(), cfg, awspkg.NewSecretsClient(awsCfg, secretPrefix))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const secretPrefix = "backoffice/"

// SecretGetter is the part of the Secrets Manager client LoadConfig uses.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

func applySecrets(ctx context.Context, cfg *Config, sm SecretGetter) {
	if dbjson, err := sm.GetSecret(ctx, "DB_CREDENTIALS"); err == nil && dbjson != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(dbjson), &m); err == nil {
			setIfPresent(&cfg.PostgresUser, m["POSTGRES_USER"])
			setIfPresent(&cfg.PostgresPassword, m["POSTGRES_PASSWORD"])
			setIfPresent(&cfg.PostgresDB, m["POSTGRES_DB"])
			setIfPresent(&cfg.PostgresHost, m["POSTGRES_HOST"])
			setIfPresent(&cfg.PostgresPort, m["POSTGRES_PORT"])
		}
	}
	if v, err := sm.GetSecret(ctx, "STRIPE_API_KEY"); err == nil {
		setIfPresent(&cfg.StripeSecretKey, v)
	}
	if v, err := sm.GetSecret(ctx, "STRIPE_WEBHOOK_SECRET"); err == nil {
		setIfPresent(&cfg.StripeWebhookKey, v)
	}
	if v, err := sm.GetSecret(ctx, "JWT_SECRET"); err == nil {
		setIfPresent(&cfg.JWTSecret, v)
	}
}

func (c *Config) validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.StripeEnabled && c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_API_KEY is required when Stripe is enabled")
	}
	if !c.StripeEnabled && !c.CashEnabled {
		return fmt.Errorf("at least one payment method must be enabled")
	}
	switch c.EventBus {
	case "sns", "none":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENT_BUS=kafka")
		}
	default:
		return fmt.Errorf("unknown EVENT_BUS %q", c.EventBus)
	}
	return nil
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
