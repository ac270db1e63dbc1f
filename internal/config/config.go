package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the fraud risk service
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Velocity    VelocityConfig    `mapstructure:"velocity"`
	Geo         GeoConfig         `mapstructure:"geo"`
	Clients     ClientsConfig     `mapstructure:"clients"`
	Resilience  ResilienceConfig  `mapstructure:"resilience"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Security    SecurityConfig    `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers            []string      `mapstructure:"brokers"`
	ConsumerGroup      string        `mapstructure:"consumer_group"`
	TransactionTopic   string        `mapstructure:"transaction_topic"`
	AssessmentsTopic   string        `mapstructure:"assessments_topic"`
	AlertsTopic        string        `mapstructure:"alerts_topic"`
	DomainEventsTopic  string        `mapstructure:"domain_events_topic"`
	CriticalWaitBudget time.Duration `mapstructure:"critical_wait_budget"`
}

// ScoringConfig holds composite-score weights and latency budget
type ScoringConfig struct {
	MLWeight             float64       `mapstructure:"ml_weight"`
	RuleWeight           float64       `mapstructure:"rule_weight"`
	MaxAssessmentLatency time.Duration `mapstructure:"max_assessment_latency"`
}

// VelocityConfig holds velocity counter configuration
type VelocityConfig struct {
	LocalCacheTTL   time.Duration `mapstructure:"local_cache_ttl"`
	LocalCacheMaxMB int           `mapstructure:"local_cache_max_mb"`
}

// GeoConfig holds impossible-travel thresholds
type GeoConfig struct {
	MaxSpeedKmh           float64 `mapstructure:"max_speed_kmh"`
	ZeroElapsedDistanceKm float64 `mapstructure:"zero_elapsed_distance_km"`
}

// ClientsConfig holds endpoints of external collaborators
type ClientsConfig struct {
	MLPredictorURL    string        `mapstructure:"ml_predictor_url"`
	RuleEngineURL     string        `mapstructure:"rule_engine_url"`
	AccountProfileURL string        `mapstructure:"account_profile_url"`
	RuleEngineTimeout time.Duration `mapstructure:"rule_engine_timeout"`
	ProfileCacheTTL   time.Duration `mapstructure:"profile_cache_ttl"`
}

// PolicyConfig holds one resilient client's policy chain parameters
type PolicyConfig struct {
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	BackoffJitter     float64       `mapstructure:"backoff_jitter"`
	FailureRatio      float64       `mapstructure:"failure_ratio"`
	MinRequests       uint32        `mapstructure:"min_requests"`
	OpenTimeout       time.Duration `mapstructure:"open_timeout"`
	HalfOpenMaxCalls  uint32        `mapstructure:"half_open_max_calls"`
}

// ResilienceConfig holds per-dependency policies
type ResilienceConfig struct {
	MLPredictor    PolicyConfig `mapstructure:"ml_predictor"`
	AccountProfile PolicyConfig `mapstructure:"account_profile"`
}

// IdempotencyConfig holds the dedup guard configuration
type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
	Debug         bool    `mapstructure:"debug"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("FRAUD_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/fraud-risk-service")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.metrics_port", 9096)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "fraud_risk_db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.conn_max_lifetime", "30m")

	// Redis defaults (optimized for low latency)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.min_idle_conns", 20)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "fraud-risk-service-group")
	v.SetDefault("kafka.transaction_topic", "banking.transactions.created")
	v.SetDefault("kafka.assessments_topic", "banking.fraud.assessments")
	v.SetDefault("kafka.alerts_topic", "banking.fraud.alerts")
	v.SetDefault("kafka.domain_events_topic", "banking.fraud.events")
	v.SetDefault("kafka.critical_wait_budget", "5s")

	// Scoring defaults
	v.SetDefault("scoring.ml_weight", 0.6)
	v.SetDefault("scoring.rule_weight", 0.4)
	v.SetDefault("scoring.max_assessment_latency", "500ms")

	// Velocity defaults
	v.SetDefault("velocity.local_cache_ttl", "10s")
	v.SetDefault("velocity.local_cache_max_mb", 64)

	// Geo defaults
	v.SetDefault("geo.max_speed_kmh", 900.0)
	v.SetDefault("geo.zero_elapsed_distance_km", 1.0)

	// Client defaults
	v.SetDefault("clients.ml_predictor_url", "http://localhost:8501")
	v.SetDefault("clients.rule_engine_url", "http://localhost:8502")
	v.SetDefault("clients.account_profile_url", "http://localhost:8503")
	v.SetDefault("clients.rule_engine_timeout", "250ms")
	v.SetDefault("clients.profile_cache_ttl", "1h")

	// Resilience defaults: ML predictor
	v.SetDefault("resilience.ml_predictor.max_concurrent", 50)
	v.SetDefault("resilience.ml_predictor.timeout", "200ms")
	v.SetDefault("resilience.ml_predictor.max_retries", 1)
	v.SetDefault("resilience.ml_predictor.initial_backoff", "20ms")
	v.SetDefault("resilience.ml_predictor.max_backoff", "100ms")
	v.SetDefault("resilience.ml_predictor.backoff_multiplier", 2.0)
	v.SetDefault("resilience.ml_predictor.backoff_jitter", 0.1)
	v.SetDefault("resilience.ml_predictor.failure_ratio", 0.5)
	v.SetDefault("resilience.ml_predictor.min_requests", 10)
	v.SetDefault("resilience.ml_predictor.open_timeout", "30s")
	v.SetDefault("resilience.ml_predictor.half_open_max_calls", 3)

	// Resilience defaults: account profile lookup
	v.SetDefault("resilience.account_profile.max_concurrent", 100)
	v.SetDefault("resilience.account_profile.timeout", "150ms")
	v.SetDefault("resilience.account_profile.max_retries", 2)
	v.SetDefault("resilience.account_profile.initial_backoff", "10ms")
	v.SetDefault("resilience.account_profile.max_backoff", "80ms")
	v.SetDefault("resilience.account_profile.backoff_multiplier", 2.0)
	v.SetDefault("resilience.account_profile.backoff_jitter", 0.1)
	v.SetDefault("resilience.account_profile.failure_ratio", 0.5)
	v.SetDefault("resilience.account_profile.min_requests", 10)
	v.SetDefault("resilience.account_profile.open_timeout", "15s")
	v.SetDefault("resilience.account_profile.half_open_max_calls", 3)

	// Idempotency defaults
	v.SetDefault("idempotency.ttl", "24h")

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "fraud-risk-service")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 0.1)
	v.SetDefault("telemetry.debug", false)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
}
