package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Backend selects the storage implementation for the authority's state and
// the relying party's verification cache.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Env string

	Token        TokenConfig
	IdP          IdPConfig
	RelyingParty RelyingPartyConfig
	Webhook      WebhookConfig
	Redis        RedisConfig
	Database     DatabaseConfig
	CORS         CORSConfig
	Log          LogConfig
}

// TokenConfig governs token minting and verification.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	// Stateless disables the server-side revocation table; tokens then
	// remain valid until natural expiry and logout is a no-op.
	Stateless bool
}

// IdPConfig configures the identity provider process.
type IdPConfig struct {
	Port            int
	IdentityBackend string
	RevocationStore string
}

// RelyingPartyConfig configures a relying-party process.
type RelyingPartyConfig struct {
	Port             int
	Name             string
	AuthorityBaseURL string
	PublicURL        string
	FreshnessWindow  time.Duration
	CacheBackend     string
	VerifyTimeout    time.Duration
}

// WebhookConfig tunes revocation-event delivery to relying parties.
type WebhookConfig struct {
	Endpoints      []string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	DeliveryBuffer int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// With an explicit config file a missing .env surfaces as a
		// path error, not viper.ConfigFileNotFoundError. Either way
		// env-only configuration keeps working.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Token = TokenConfig{
		Secret:    v.GetString("TOKEN_SECRET"),
		Issuer:    v.GetString("TOKEN_ISSUER"),
		TTL:       parseDuration(v.GetString("TOKEN_TTL"), 2*time.Hour),
		Stateless: v.GetBool("TOKEN_STATELESS"),
	}

	cfg.IdP = IdPConfig{
		Port:            v.GetInt("IDP_PORT"),
		IdentityBackend: v.GetString("IDP_IDENTITY_BACKEND"),
		RevocationStore: v.GetString("IDP_REVOCATION_STORE"),
	}

	cfg.RelyingParty = RelyingPartyConfig{
		Port:             v.GetInt("RP_PORT"),
		Name:             v.GetString("RP_NAME"),
		AuthorityBaseURL: v.GetString("RP_AUTHORITY_URL"),
		PublicURL:        v.GetString("RP_PUBLIC_URL"),
		FreshnessWindow:  parseDuration(v.GetString("RP_FRESHNESS_WINDOW"), 2*time.Minute),
		CacheBackend:     v.GetString("RP_CACHE_BACKEND"),
		VerifyTimeout:    parseDuration(v.GetString("RP_VERIFY_TIMEOUT"), 5*time.Second),
	}

	cfg.Webhook = WebhookConfig{
		Endpoints:      splitAndTrim(v.GetString("WEBHOOK_ENDPOINTS")),
		Timeout:        parseDuration(v.GetString("WEBHOOK_TIMEOUT"), 3*time.Second),
		MaxRetries:     v.GetInt("WEBHOOK_MAX_RETRIES"),
		RetryBackoff:   parseDuration(v.GetString("WEBHOOK_RETRY_BACKOFF"), 500*time.Millisecond),
		DeliveryBuffer: v.GetInt("WEBHOOK_DELIVERY_BUFFER"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("TOKEN_ISSUER", "signet-idp")
	v.SetDefault("TOKEN_TTL", "2h")
	v.SetDefault("TOKEN_STATELESS", false)
	v.SetDefault("IDP_PORT", 8000)
	v.SetDefault("IDP_IDENTITY_BACKEND", BackendMemory)
	v.SetDefault("IDP_REVOCATION_STORE", BackendMemory)
	v.SetDefault("RP_PORT", 8001)
	v.SetDefault("RP_NAME", "app1")
	v.SetDefault("RP_AUTHORITY_URL", "http://localhost:8000")
	v.SetDefault("RP_PUBLIC_URL", "http://localhost:8001")
	v.SetDefault("RP_FRESHNESS_WINDOW", "2m")
	v.SetDefault("RP_CACHE_BACKEND", BackendMemory)
	v.SetDefault("RP_VERIFY_TIMEOUT", "5s")
	v.SetDefault("WEBHOOK_TIMEOUT", "3s")
	v.SetDefault("WEBHOOK_MAX_RETRIES", 2)
	v.SetDefault("WEBHOOK_RETRY_BACKOFF", "500ms")
	v.SetDefault("WEBHOOK_DELIVERY_BUFFER", 64)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
