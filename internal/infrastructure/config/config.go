package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Auth         AuthConfig
	Log          LogConfig
	Logging      RemoteLogConfig
	Event        EventConfig
	HTTP         HTTPConfig
	Swagger      SwaggerConfig
	Telemetry    TelemetryConfig
	Storage      StorageConfig
	Image        ImageConfig
	Notification NotificationConfig
	Payment      PaymentConfig
	Supplier     SupplierConfig
	AI           AIConfig
	Order        OrderConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// RemoteLogConfig configures the central logging service sink
type RemoteLogConfig struct {
	Enabled     bool
	ServiceURL  string
	Timeout     time.Duration
	BufferSize  int
	FallbackDir string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	// Enabled=false runs single-replica with in-memory idempotency and revocation
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// AuthConfig controls how the gateway treats user lookups
type AuthConfig struct {
	// TrustTokenOnLookupFailure admits a valid token when the user store
	// cannot be reached. Not allowed in production.
	TrustTokenOnLookupFailure bool
}

// EventConfig holds event processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	IdempotencyTTL   time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
	MetricsEnabled        bool
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	LogExportEnabled  bool
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
	ProfilingEnabled  bool
	PyroscopeURL      string
}

// StorageConfig selects where uploaded files live
type StorageConfig struct {
	Backend      string // local, s3
	LocalDir     string
	PublicPrefix string
	S3Endpoint   string
	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3PathStyle  bool
}

// ImageConfig holds product image processing limits
type ImageConfig struct {
	MaxUploadBytes   int64
	MainMaxPixels    int
	GalleryMaxPixels int
	MaxSourcePixels  int
	Quality          int
}

// NotificationConfig points at the notification service
type NotificationConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
	// AlertEmail receives back-office alerts such as low stock
	AlertEmail string
}

// PaymentConfig configures the payment gateway client
type PaymentConfig struct {
	Provider      string // payu, stripe
	ServiceURL    string
	ClientID      string
	ClientSecret  string
	WebhookSecret string
	NotifyURL     string
	ContinueURL   string
	CancelURL     string
	Timeout       time.Duration
	StripeKey     string
}

// SupplierConfig configures supplier API calls
type SupplierConfig struct {
	Timeout       time.Duration
	SyncBatchSize int
}

// AIConfig configures the shop assistant model
type AIConfig struct {
	Enabled     bool
	OllamaURL   string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OrderConfig holds checkout pricing rules
type OrderConfig struct {
	TaxRate           float64
	ShippingCost      float64
	FreeShippingOver  float64
	MaxConflictRetry  int
	SagaKeyTTL        time.Duration
	InvoicePDFEnabled bool
	ChromeURL         string
	LowStockThreshold int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOP_ prefix (e.g., SHOP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return build(v)
}

// LoadAndWatch loads the configuration and re-reads it whenever the config
// file changes. onChange receives each successfully validated reload.
func LoadAndWatch(onChange func(*Config), onError func(error)) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	cfg, err := build(v)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := build(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reloading %s: %w", e.Name, err))
			}
			return
		}
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  !v.IsSet("redis.enabled") || v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Auth: AuthConfig{
			TrustTokenOnLookupFailure: v.GetBool("auth.trust_token_on_lookup_failure"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Logging: RemoteLogConfig{
			Enabled:     v.GetBool("logging.enabled"),
			ServiceURL:  v.GetString("logging.service_url"),
			Timeout:     v.GetDuration("logging.timeout"),
			BufferSize:  v.GetInt("logging.buffer_size"),
			FallbackDir: v.GetString("logging.fallback_dir"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
			IdempotencyTTL:   v.GetDuration("event.idempotency_ttl"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
			MetricsEnabled:        v.GetBool("http.metrics_enabled"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			LogExportEnabled:  v.GetBool("telemetry.log_export_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeURL:      v.GetString("telemetry.pyroscope_url"),
		},
		Storage: StorageConfig{
			Backend:      v.GetString("storage.backend"),
			LocalDir:     v.GetString("storage.local_dir"),
			PublicPrefix: v.GetString("storage.public_prefix"),
			S3Endpoint:   v.GetString("storage.s3_endpoint"),
			S3Region:     v.GetString("storage.s3_region"),
			S3Bucket:     v.GetString("storage.s3_bucket"),
			S3AccessKey:  v.GetString("storage.s3_access_key"),
			S3SecretKey:  v.GetString("storage.s3_secret_key"),
			S3PathStyle:  v.GetBool("storage.s3_path_style"),
		},
		Image: ImageConfig{
			MaxUploadBytes:   v.GetInt64("image.max_upload_bytes"),
			MainMaxPixels:    v.GetInt("image.main_max_pixels"),
			GalleryMaxPixels: v.GetInt("image.gallery_max_pixels"),
			MaxSourcePixels:  v.GetInt("image.max_source_pixels"),
			Quality:          v.GetInt("image.quality"),
		},
		Notification: NotificationConfig{
			Enabled:    v.GetBool("notification.enabled"),
			URL:        v.GetString("notification.url"),
			Timeout:    v.GetDuration("notification.timeout"),
			AlertEmail: v.GetString("notification.alert_email"),
		},
		Payment: PaymentConfig{
			Provider:      v.GetString("payment.provider"),
			ServiceURL:    v.GetString("payment.service_url"),
			ClientID:      v.GetString("payment.client_id"),
			ClientSecret:  v.GetString("payment.client_secret"),
			WebhookSecret: v.GetString("payment.webhook_secret"),
			NotifyURL:     v.GetString("payment.notify_url"),
			ContinueURL:   v.GetString("payment.continue_url"),
			CancelURL:     v.GetString("payment.cancel_url"),
			Timeout:       v.GetDuration("payment.timeout"),
			StripeKey:     v.GetString("payment.stripe_key"),
		},
		Supplier: SupplierConfig{
			Timeout:       v.GetDuration("supplier.timeout"),
			SyncBatchSize: v.GetInt("supplier.sync_batch_size"),
		},
		AI: AIConfig{
			Enabled:     v.GetBool("ai.enabled"),
			OllamaURL:   v.GetString("ai.ollama_url"),
			Model:       v.GetString("ai.model"),
			Temperature: v.GetFloat64("ai.temperature"),
			Timeout:     v.GetDuration("ai.timeout"),
		},
		Order: OrderConfig{
			TaxRate:           v.GetFloat64("order.tax_rate"),
			ShippingCost:      v.GetFloat64("order.shipping_cost"),
			FreeShippingOver:  v.GetFloat64("order.free_shipping_over"),
			MaxConflictRetry:  v.GetInt("order.max_conflict_retry"),
			SagaKeyTTL:        v.GetDuration("order.saga_key_ttl"),
			InvoicePDFEnabled: v.GetBool("order.invoice_pdf_enabled"),
			ChromeURL:         v.GetString("order.chrome_url"),
			LowStockThreshold: v.GetInt("order.low_stock_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "flipflop-api"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "flipflop"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "flipflop-api"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Logging.ServiceURL == "" {
		cfg.Logging.ServiceURL = "http://logging-microservice:3367"
	}
	if cfg.Logging.Timeout == 0 {
		cfg.Logging.Timeout = 5 * time.Second
	}
	if cfg.Logging.BufferSize == 0 {
		cfg.Logging.BufferSize = 1024
	}
	if cfg.Logging.FallbackDir == "" {
		cfg.Logging.FallbackDir = "logs"
	}
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 168 * time.Hour
	}
	if cfg.Event.IdempotencyTTL == 0 {
		cfg.Event.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	// No wildcard default for CORS origins: cross-origin requests stay blocked until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.PyroscopeURL == "" {
		cfg.Telemetry.PyroscopeURL = "http://localhost:4040"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "uploads"
	}
	if cfg.Storage.PublicPrefix == "" {
		cfg.Storage.PublicPrefix = "/uploads"
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "eu-central-1"
	}
	if cfg.Image.MaxUploadBytes == 0 {
		cfg.Image.MaxUploadBytes = 5 << 20
	}
	if cfg.Image.MainMaxPixels == 0 {
		cfg.Image.MainMaxPixels = 2000
	}
	if cfg.Image.GalleryMaxPixels == 0 {
		cfg.Image.GalleryMaxPixels = 1000
	}
	if cfg.Image.MaxSourcePixels == 0 {
		cfg.Image.MaxSourcePixels = 40_000_000
	}
	if cfg.Image.Quality == 0 {
		cfg.Image.Quality = 85
	}
	if cfg.Notification.URL == "" {
		cfg.Notification.URL = "http://notification-microservice:3368"
	}
	if cfg.Notification.Timeout == 0 {
		cfg.Notification.Timeout = 10 * time.Second
	}
	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "payu"
	}
	if cfg.Payment.ServiceURL == "" {
		cfg.Payment.ServiceURL = "http://payment-microservice:3468"
	}
	if cfg.Payment.Timeout == 0 {
		cfg.Payment.Timeout = 15 * time.Second
	}
	if cfg.Supplier.Timeout == 0 {
		cfg.Supplier.Timeout = 30 * time.Second
	}
	if cfg.Supplier.SyncBatchSize == 0 {
		cfg.Supplier.SyncBatchSize = 200
	}
	if cfg.AI.OllamaURL == "" {
		cfg.AI.OllamaURL = "http://localhost:11434"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "llama3.1"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60 * time.Second
	}
	if cfg.Order.MaxConflictRetry == 0 {
		cfg.Order.MaxConflictRetry = 3
	}
	if cfg.Order.SagaKeyTTL == 0 {
		cfg.Order.SagaKeyTTL = 24 * time.Hour
	}
	if cfg.Order.LowStockThreshold == 0 {
		cfg.Order.LowStockThreshold = 5
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Storage.Backend != "local" && c.Storage.Backend != "s3" {
		return fmt.Errorf("storage.backend must be 'local' or 's3', got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("storage.s3_bucket is required when storage.backend is 's3'")
	}
	if c.Payment.Provider != "payu" && c.Payment.Provider != "stripe" {
		return fmt.Errorf("payment.provider must be 'payu' or 'stripe', got %q", c.Payment.Provider)
	}
	if c.Payment.Provider == "stripe" && c.Payment.StripeKey == "" {
		return fmt.Errorf("payment.stripe_key is required when payment.provider is 'stripe'")
	}
	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		return fmt.Errorf("image.quality must be between 1 and 100, got %d", c.Image.Quality)
	}
	if c.Order.TaxRate < 0 || c.Order.ShippingCost < 0 {
		return fmt.Errorf("order.tax_rate and order.shipping_cost cannot be negative")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Auth.TrustTokenOnLookupFailure {
			return fmt.Errorf("auth.trust_token_on_lookup_failure must be false in production")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("payment.webhook_secret is required in production")
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled or IP restricted in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
