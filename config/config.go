package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/database"
	aws_pkg "github.com/Badr070118/lupeti-project-sub000/pkg/aws"
	"github.com/Badr070118/lupeti-project-sub000/providers"
	"github.com/joho/godotenv"
)

// Secrets Manager entries consulted when AWS_USE_SECRETS=true. Both hold a
// JSON object of string values.
const (
	DBSecretName    = "checkout/DB_CREDENTIALS"
	PayTRSecretName = "checkout/PAYTR_CREDENTIALS"
)

// Config holds all settings for the checkout service.
type Config struct {
	Env  string
	Port string

	// StoreCurrency is the single currency carts and orders are priced in.
	StoreCurrency string

	Postgres database.PostgresConfig
	PayTR    providers.PayTRConfig

	JWTSecret           string
	TrustGatewayHeaders bool

	RedisURL       string
	IdempotencyTTL time.Duration

	SNSTopicARN  string
	OTELEndpoint string

	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	CallbackRateLimit  int
	CheckoutRateLimit  int
}

// SecretSource is the subset of the Secrets Manager client used for overrides.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads .env (if present) and the environment, then applies
// Secrets Manager overrides when AWS_USE_SECRETS=true.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	var secrets SecretSource
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config for secrets: %w", err)
		}
		secrets = aws_pkg.NewSecretsClient(awsCfg)
	}
	return Load(ctx, secrets)
}

// Load builds the configuration from the environment. A nil secrets source
// skips the Secrets Manager overrides.
func Load(ctx context.Context, secrets SecretSource) (*Config, error) {
	cfg := &Config{
		Env:           getEnv("ENV", "development"),
		Port:          getEnv("PORT", "8090"),
		StoreCurrency: strings.ToUpper(getEnv("STORE_CURRENCY", "TRY")),
		Postgres: database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: getEnvFromFile("POSTGRES_PASSWORD_FILE", "POSTGRES_PASSWORD", ""),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "Europe/Istanbul"),
		},
		PayTR: providers.PayTRConfig{
			MerchantID:     os.Getenv("PAYTR_MERCHANT_ID"),
			MerchantKey:    getEnvFromFile("PAYTR_MERCHANT_KEY_FILE", "PAYTR_MERCHANT_KEY", ""),
			MerchantSalt:   getEnvFromFile("PAYTR_MERCHANT_SALT_FILE", "PAYTR_MERCHANT_SALT", ""),
			TokenURL:       os.Getenv("PAYTR_TOKEN_URL"),
			IframeBaseURL:  os.Getenv("PAYTR_IFRAME_URL"),
			OkURL:          os.Getenv("PAYTR_OK_URL"),
			FailURL:        os.Getenv("PAYTR_FAIL_URL"),
			TestMode:       getEnvBool("PAYTR_TEST_MODE", false),
			Debug:          getEnvBool("PAYTR_DEBUG_ON", false),
			NoInstallment:  getEnvBool("PAYTR_NO_INSTALLMENT", true),
			MaxInstallment: getEnvInt("PAYTR_MAX_INSTALLMENT", 0),
			TimeoutLimit:   getEnvInt("PAYTR_TIMEOUT_LIMIT", 30),
			Lang:           getEnv("PAYTR_LANG", "tr"),
			HTTPTimeout:    getEnvDuration("PAYTR_HTTP_TIMEOUT", 15*time.Second),
		},
		JWTSecret:           getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", ""),
		TrustGatewayHeaders: getEnvBool("TRUST_GATEWAY_HEADERS", false),
		RedisURL:            os.Getenv("REDIS_URL"),
		IdempotencyTTL:      getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		SNSTopicARN:         os.Getenv("SNS_TOPIC_ARN"),
		OTELEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		CallbackRateLimit:   getEnvInt("CALLBACK_RATE_LIMIT", 120),
		CheckoutRateLimit:   getEnvInt("CHECKOUT_RATE_LIMIT", 20),
	}

	if secrets != nil {
		if err := cfg.applySecrets(ctx, secrets); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applySecrets(ctx context.Context, secrets SecretSource) error {
	db, err := secrets.GetSecretMap(ctx, DBSecretName)
	if err != nil {
		return fmt.Errorf("read %s: %w", DBSecretName, err)
	}
	override(&c.Postgres.Host, db["host"])
	override(&c.Postgres.Port, db["port"])
	override(&c.Postgres.User, db["username"])
	override(&c.Postgres.Password, db["password"])
	override(&c.Postgres.DBName, db["dbname"])

	paytr, err := secrets.GetSecretMap(ctx, PayTRSecretName)
	if err != nil {
		return fmt.Errorf("read %s: %w", PayTRSecretName, err)
	}
	override(&c.PayTR.MerchantID, paytr["merchant_id"])
	override(&c.PayTR.MerchantKey, paytr["merchant_key"])
	override(&c.PayTR.MerchantSalt, paytr["merchant_salt"])
	return nil
}

func (c *Config) validate() error {
	var missing []string
	required := map[string]string{
		"POSTGRES_HOST":       c.Postgres.Host,
		"POSTGRES_USER":       c.Postgres.User,
		"POSTGRES_PASSWORD":   c.Postgres.Password,
		"POSTGRES_DB":         c.Postgres.DBName,
		"PAYTR_MERCHANT_ID":   c.PayTR.MerchantID,
		"PAYTR_MERCHANT_KEY":  c.PayTR.MerchantKey,
		"PAYTR_MERCHANT_SALT": c.PayTR.MerchantSalt,
	}
	for key, val := range required {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.CallbackRateLimit < 1 || c.CheckoutRateLimit < 1 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

func override(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvFromFile prefers the contents of the file named by fileKey, as used
// for Docker secrets.
func getEnvFromFile(fileKey, envKey, fallback string) string {
	if path := os.Getenv(fileKey); path != "" {
		if content, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, fallback)
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
