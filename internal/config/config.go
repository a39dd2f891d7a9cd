package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, database connection,
// message brokers, event delivery and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment" validate:"required"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Port the HTTP server will listen on
		Port int `env:"PORT" env-default:"8080" yaml:"port" validate:"min=1,max=65535"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"30s" yaml:"requestTimeout" validate:"gt=0"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath" validate:"startswith=/"`
		// PprofEnabled mounts the profiling endpoints
		PprofEnabled bool `env:"HTTP_PPROF_ENABLED" env-default:"false" yaml:"pprofEnabled"`
	} `yaml:"http"`

	// Postgres contains all database connection related configurations
	Postgres struct {
		Host     string `env:"POSTGRES_HOST" env-default:"localhost" yaml:"host" validate:"required"`
		Port     int    `env:"POSTGRES_PORT" env-default:"5440" yaml:"port" validate:"min=1,max=65535"`
		Database string `env:"POSTGRES_DB" env-default:"api_lang_arena" yaml:"database" validate:"required"`
		Username string `env:"POSTGRES_USER" env-default:"api_lang_user" yaml:"username" validate:"required"`
		Password string `env:"POSTGRES_PASSWORD" env-default:"api_lang_password" yaml:"password"`
		SslMode  string `env:"POSTGRES_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// MaxPoolSize limits the number of open connections to the database
		MaxPoolSize int `env:"DB_MAX_POOL_SIZE" env-default:"10" yaml:"maxPoolSize" validate:"min=1"`
		// MinPoolSize is the number of connections kept open
		MinPoolSize int `env:"DB_MIN_POOL_SIZE" env-default:"1" yaml:"minPoolSize" validate:"min=0,ltefield=MaxPoolSize"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"postgres"`

	// Broker selects the destination of integration events
	Broker struct {
		Kind string `env:"BROKER_KIND" env-default:"rabbitmq" yaml:"kind" validate:"oneof=rabbitmq kafka"`
	} `yaml:"broker"`

	RabbitMQ struct {
		Host     string `env:"RABBITMQ_HOST" env-default:"localhost" yaml:"host"`
		Port     int    `env:"RABBITMQ_PORT" env-default:"5672" yaml:"port"`
		Username string `env:"RABBITMQ_USER" env-default:"guest" yaml:"username"`
		Password string `env:"RABBITMQ_PASSWORD" env-default:"guest" yaml:"password"`
		VHost    string `env:"RABBITMQ_VHOST" env-default:"/" yaml:"vhost"`
		// BillCreatedQueue receives bill.created events
		BillCreatedQueue string `env:"RABBITMQ_BILL_CREATED_QUEUE" env-default:"bill-created" yaml:"billCreatedQueue"`
		// ConfirmTimeout bounds the wait for a publisher confirm
		ConfirmTimeout time.Duration `env:"RABBITMQ_CONFIRM_TIMEOUT" env-default:"5s" yaml:"confirmTimeout"`
	} `yaml:"rabbitmq"`

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS" env-default:"localhost:9092" yaml:"brokers"`
		// BillCreatedTopic receives bill.created events
		BillCreatedTopic  string `env:"KAFKA_BILL_CREATED_TOPIC" env-default:"bill-created" yaml:"billCreatedTopic"`
		Partitions        int32  `env:"KAFKA_PARTITIONS" env-default:"0" yaml:"partitions"`
		ReplicationFactor int16  `env:"KAFKA_REPLICATION_FACTOR" env-default:"0" yaml:"replicationFactor"`
	} `yaml:"kafka"`

	Events struct {
		// Delivery is "direct" (publish during the request) or "outbox"
		// (enqueue in the bill transaction, publish from the worker)
		Delivery string `env:"EVENTS_DELIVERY" env-default:"direct" yaml:"delivery" validate:"oneof=direct outbox"`
		// Source is stamped on every event
		Source string `env:"EVENTS_SOURCE" env-default:"go-api" yaml:"source" validate:"required"`
	} `yaml:"events"`

	Outbox struct {
		// MaxWorkers is the number of concurrent publish jobs
		MaxWorkers int `env:"OUTBOX_MAX_WORKERS" env-default:"10" yaml:"maxWorkers" validate:"min=1"`
		// MaxAttempts before a publish job is discarded
		MaxAttempts int `env:"OUTBOX_MAX_ATTEMPTS" env-default:"25" yaml:"maxAttempts" validate:"min=1"`
	} `yaml:"outbox"`

	// Redis backs the published-event de-duplication. An empty Addr keeps the
	// marks in process memory.
	Redis struct {
		Addr         string        `env:"REDIS_ADDR" env-default:"" yaml:"addr" validate:"omitempty,hostname_port"`
		Password     string        `env:"REDIS_PASSWORD" env-default:"" yaml:"password"`
		DB           int           `env:"REDIS_DB" env-default:"0" yaml:"db" validate:"min=0"`
		PublishedTTL time.Duration `env:"REDIS_PUBLISHED_TTL" env-default:"24h" yaml:"publishedTTL" validate:"gt=0"`
	} `yaml:"redis"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort("", strconv.Itoa(c.HTTP.Port))
}

// Load reads the yaml config file at configPath, when given, then applies
// environment variables and validates the result.
func Load(configPath string) (*Config, error) {
	var cfg Config

	var err error
	if configPath != "" {
		err = cleanenv.ReadConfig(configPath, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
