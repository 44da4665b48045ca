package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env" validate:"required"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Store     StoreConfig     `mapstructure:"store"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
	// gRPC health endpoint. Empty disables it.
	GRPCPort     string   `mapstructure:"grpc_port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds" validate:"gte=0"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds" validate:"gte=0"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	// Requests per second per client IP on the public create endpoint. 0 disables limiting.
	CreateRateLimit float64 `mapstructure:"create_rate_limit"`
	CreateBurst     int     `mapstructure:"create_burst" validate:"gte=0"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            string `mapstructure:"port" validate:"required"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name" validate:"required"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

type StoreConfig struct {
	OperationTimeout int `mapstructure:"operation_timeout_seconds" validate:"gte=0"`
	DefaultPageSize  int `mapstructure:"default_page_size" validate:"gte=0"`
	MaxPageSize      int `mapstructure:"max_page_size" validate:"gte=0"`
	StatsCacheTTL    int `mapstructure:"stats_cache_ttl_seconds" validate:"gte=0"`
}

// NATSConfig enables cross-instance fan-out when URL is set.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// KafkaConfig enables the audit stream when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AuthConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Username        string `mapstructure:"username" validate:"required_if=Enabled true"`
	PasswordHash    string `mapstructure:"password_hash" validate:"required_if=Enabled true"`
	JWTSecret       string `mapstructure:"jwt_secret" validate:"required_if=Enabled true"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes" validate:"gte=0"`
}

type CatalogConfig struct {
	Strict   bool             `mapstructure:"strict"`
	Services []CatalogService `mapstructure:"services" validate:"dive"`
}

type CatalogService struct {
	Name    string   `mapstructure:"name" validate:"required"`
	Courses []string `mapstructure:"courses"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func (s StoreConfig) Timeout() time.Duration {
	if s.OperationTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.OperationTimeout) * time.Second
}

func (s StoreConfig) StatsTTL() time.Duration {
	if s.StatsCacheTTL <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.StatsCacheTTL) * time.Second
}

func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// IsDevelopment reports whether internal error details may be shown to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "local" || c.Env == "development" || c.Env == "test"
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Load() (*Config, error) {
	// Get environment from ENV, default to "local"
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")   // Kubernetes mount
	v.AddConfigPath("./configs")  // repo root
	v.AddConfigPath("../configs") // IDE from cmd/
	v.AddConfigPath("../../configs")

	setDefaults(v, env)

	// Config file is optional - continue with ENV variables
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("No config file found (will use ENV variables): %v\n", err)
	}

	// Environment variables take precedence over the config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("nats.url", "NATS_URL")
	_ = v.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("env", env)
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.grpc_port", "")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.create_rate_limit", 2)
	v.SetDefault("server.create_burst", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "registrations")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("store.operation_timeout_seconds", 5)
	v.SetDefault("store.default_page_size", 100)
	v.SetDefault("store.max_page_size", 500)
	v.SetDefault("store.stats_cache_ttl_seconds", 30)
	v.SetDefault("nats.subject", "registrations.created")
	v.SetDefault("kafka.topic", "registrations.audit")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_minutes", 60)
	v.SetDefault("catalog.strict", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
}
