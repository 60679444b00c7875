package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	G2A           G2AConfig           `mapstructure:"g2apay"`
	Skrill        SkrillConfig        `mapstructure:"skrill"`
	Currency      CurrencyConfig      `mapstructure:"currency"`
	Geo           GeoConfig           `mapstructure:"geo"`
	OrderNumber   OrderNumberConfig   `mapstructure:"order_number"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Auth          AuthConfig          `mapstructure:"auth"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
}

// CheckoutConfig carries the orchestration policy knobs: which payment
// methods bear a processing surcharge, how much of the quantity the
// surcharge absorbs, and where the buyer is redirected when checkout
// cannot proceed.
type CheckoutConfig struct {
	SurchargeMethods []string      `mapstructure:"surcharge_methods"`
	SurchargeRate    float64       `mapstructure:"surcharge_rate"`
	DefaultMethod    string        `mapstructure:"default_method"`
	ErrorURL         string        `mapstructure:"error_url"`
	SignInURL        string        `mapstructure:"sign_in_url"`
	RefundLockTTL    time.Duration `mapstructure:"refund_lock_ttl"`
	RefundTimeout    time.Duration `mapstructure:"refund_timeout"`
}

// G2AConfig holds both the live and sandbox credential sets. The sandbox
// switch selects one set atomically at gateway construction; credentials
// and endpoints always change together.
type G2AConfig struct {
	Sandbox              bool   `mapstructure:"sandbox"`
	APIHash              string `mapstructure:"api_hash"`
	Secret               string `mapstructure:"secret"`
	MerchantEmail        string `mapstructure:"merchant_email"`
	SandboxAPIHash       string `mapstructure:"sandbox_api_hash"`
	SandboxSecret        string `mapstructure:"sandbox_secret"`
	SandboxMerchantEmail string `mapstructure:"sandbox_merchant_email"`
	SuccessURL           string `mapstructure:"success_url"`
	FailureURL           string `mapstructure:"failure_url"`
}

// SkrillConfig holds the per-currency merchant accounts and the MQI
// (merchant query interface) password used by the refund protocol.
type SkrillConfig struct {
	Sandbox      bool   `mapstructure:"sandbox"`
	Email        string `mapstructure:"email"`
	EUREmail     string `mapstructure:"eur_email"`
	GBPEmail     string `mapstructure:"gbp_email"`
	SandboxEmail string `mapstructure:"sandbox_email"`
	MQIPassword  string `mapstructure:"mqi_password"`
	NotifyURL    string `mapstructure:"notify_url"`
	ReturnURL    string `mapstructure:"return_url"`
	CancelURL    string `mapstructure:"cancel_url"`
	LogoURL      string `mapstructure:"logo_url"`
}

// CurrencyConfig maps ISO currency codes to their USD rate (USD per unit).
type CurrencyConfig struct {
	Rates map[string]float64 `mapstructure:"rates"`
}

type GeoConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type OrderNumberConfig struct {
	Salt      string `mapstructure:"salt"`
	MinLength int    `mapstructure:"min_length"`
}

type WorkerConfig struct {
	BatchSize          int64         `mapstructure:"batch_size"`
	BlockDuration      time.Duration `mapstructure:"block_duration"`
	OutboxPollInterval time.Duration `mapstructure:"outbox_poll_interval"`
	ConsumerGroup      string        `mapstructure:"consumer_group"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("GOLDSHOP")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/goldshop")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Checkout.SurchargeRate < 0 || c.Checkout.SurchargeRate >= 1 {
		errs = append(errs, fmt.Errorf("checkout.surcharge_rate must be in [0, 1), got %f", c.Checkout.SurchargeRate))
	}
	if c.Checkout.RefundLockTTL <= 0 {
		errs = append(errs, fmt.Errorf("checkout.refund_lock_ttl must be positive"))
	}
	if c.Checkout.RefundTimeout <= 0 {
		errs = append(errs, fmt.Errorf("checkout.refund_timeout must be positive"))
	}
	if c.OrderNumber.Salt == "" {
		errs = append(errs, fmt.Errorf("order_number.salt is required"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
		}
		if !c.G2A.Sandbox && (c.G2A.APIHash == "" || c.G2A.Secret == "") {
			errs = append(errs, fmt.Errorf("g2apay live credentials required in production"))
		}
		if !c.Skrill.Sandbox && (c.Skrill.Email == "" || c.Skrill.MQIPassword == "") {
			errs = append(errs, fmt.Errorf("skrill live credentials required in production"))
		}
	}

	// JWT secret length validation
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit_per_min", 120)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "goldshop")
	v.SetDefault("database.database", "goldshop")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")
	v.SetDefault("redis.session_ttl", "2h")

	// Checkout defaults
	v.SetDefault("checkout.surcharge_methods", []string{"PSC"})
	v.SetDefault("checkout.surcharge_rate", 0.1)
	v.SetDefault("checkout.default_method", "G2APay")
	v.SetDefault("checkout.error_url", "/payment/error")
	v.SetDefault("checkout.sign_in_url", "/sign-in")
	v.SetDefault("checkout.refund_lock_ttl", "30s")
	v.SetDefault("checkout.refund_timeout", "5s")

	// Currency defaults (USD per unit of currency)
	v.SetDefault("currency.rates", map[string]float64{
		"EUR": 1.08,
		"GBP": 1.26,
		"PLN": 0.25,
	})

	// Geo defaults
	v.SetDefault("geo.endpoint", "http://localhost:8085/geoip")
	v.SetDefault("geo.timeout", "2s")

	// Order number defaults
	v.SetDefault("order_number.salt", "goldshop-orders")
	v.SetDefault("order_number.min_length", 8)

	// Worker defaults
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block_duration", "1s")
	v.SetDefault("worker.outbox_poll_interval", "2s")
	v.SetDefault("worker.consumer_group", "order-notifiers")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Auth defaults
	v.SetDefault("auth.jwt_expiry", "24h")

	// Instance ID
	v.SetDefault("instance_id", "goldshop-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
