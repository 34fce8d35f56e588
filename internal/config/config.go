package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// HTTP holds operator HTTP server configuration.
type HTTP struct {
	Host string
	Port int
}

// GRPC holds the health gRPC server configuration.
type GRPC struct {
	Host string
	Port int
}

// Printer configures the link to the printing peripheral.
type Printer struct {
	Driver          string
	Address         string
	Name            string
	Candidates      []string
	DialTimeout     time.Duration
	ConnectCooldown time.Duration
	RetryDelay      time.Duration
}

// Printing holds the print policy knobs.
type Printing struct {
	AutoPrint       bool
	DefaultKind     string
	MaxAutoPrintAge time.Duration
	MaxPrintCount   int
	DuplicateWindow time.Duration
	Columns         int
	Margin          int
	Header          []string
}

// Alerts configures the unprinted-order watchdog.
type Alerts struct {
	Enabled  bool
	Interval time.Duration
}

// Storage selects the key-value backend for durable print state.
type Storage struct {
	Driver    string
	KeyPrefix string
	Redis     Redis
}

// Redis contains redis-specific connection settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Database holds the sql connection used by the sql storage driver.
type Database struct {
	Enabled         bool
	Driver          string
	DSN             string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// Messaging configures the order feed published by the sync collaborator.
type Messaging struct {
	Driver        string
	Enabled       bool
	Kafka         Kafka
	ConsumerGroup string
	Workers       Worker
}

// Kafka holds Kafka connection details.
type Kafka struct {
	Brokers        []string
	ClientID       string
	Topic          string
	CommitInterval time.Duration
	MinBytes       int
	MaxBytes       int
	ConnectTimeout time.Duration
}

// Worker configures the feed consumer.
type Worker struct {
	Enabled bool
}

// Observability contains logging, tracing, and metrics configuration.
type Observability struct {
	ServiceName     string
	Environment     string
	LogLevel        string
	LogEncoding     string
	EnableTracing   bool
	TraceExporter   string
	TraceEndpoint   string
	TraceInsecure   bool
	EnableMetrics   bool
	MetricsExporter string
	PrometheusPath  string
}

// Config wraps all application configuration knobs.
type Config struct {
	HTTP          HTTP
	GRPC          GRPC
	Printer       Printer
	Printing      Printing
	Alerts        Alerts
	Storage       Storage
	Database      Database
	Messaging     Messaging
	Observability Observability
}

// Module wires the configuration loader into the Fx graph.
var Module = fx.Provide(New)

var loadEnvOnce sync.Once

// New builds a Config from environment variables or defaults.
func New() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	cfg := Config{
		HTTP: HTTP{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnvAsInt("HTTP_PORT", 8080),
		},
		GRPC: GRPC{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnvAsInt("GRPC_PORT", 9090),
		},
		Printer: Printer{
			Driver:          getEnv("PRINTER_DRIVER", "tcp"),
			Address:         getEnv("PRINTER_ADDRESS", ""),
			Name:            getEnv("PRINTER_NAME", ""),
			Candidates:      getEnvAsStringSlice("PRINTER_CANDIDATES", nil),
			DialTimeout:     getEnvAsDuration("PRINTER_DIAL_TIMEOUT", 3*time.Second),
			ConnectCooldown: getEnvAsDuration("PRINTER_CONNECT_COOLDOWN", 3*time.Second),
			RetryDelay:      getEnvAsDuration("PRINTER_RETRY_DELAY", 400*time.Millisecond),
		},
		Printing: Printing{
			AutoPrint:       getEnvAsBool("PRINT_AUTO_ENABLED", true),
			DefaultKind:     getEnv("PRINT_DEFAULT_KIND", "kitchen"),
			MaxAutoPrintAge: getEnvAsDuration("PRINT_MAX_AUTO_AGE", 10*time.Minute),
			MaxPrintCount:   getEnvAsInt("PRINT_MAX_COUNT", 2),
			DuplicateWindow: getEnvAsDuration("PRINT_DUPLICATE_WINDOW", 10*time.Second),
			Columns:         getEnvAsInt("TICKET_COLUMNS", 42),
			Margin:          getEnvAsInt("TICKET_MARGIN", 2),
			Header:          getEnvAsStringSlice("TICKET_HEADER", nil),
		},
		Alerts: Alerts{
			Enabled:  getEnvAsBool("ALERTS_ENABLED", true),
			Interval: getEnvAsDuration("ALERTS_INTERVAL", time.Minute),
		},
		Storage: Storage{
			Driver:    getEnv("STORAGE_DRIVER", "memory"),
			KeyPrefix: getEnv("STORAGE_KEY_PREFIX", "printcore:"),
			Redis: Redis{
				Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
		},
		Database: Database{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			DSN:             getEnv("DB_DSN", "file:printcore.db?cache=shared"),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 1),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 0),
		},
		Messaging: Messaging{
			Driver:  getEnv("MESSAGING_DRIVER", "kafka"),
			Enabled: getEnvAsBool("MESSAGING_ENABLED", false),
			Kafka: Kafka{
				Brokers:        getEnvAsStringSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				ClientID:       getEnv("KAFKA_CLIENT_ID", "printcore"),
				Topic:          getEnv("KAFKA_TOPIC", "orders.snapshots"),
				CommitInterval: getEnvAsDuration("KAFKA_COMMIT_INTERVAL", time.Second),
				MinBytes:       getEnvAsInt("KAFKA_MIN_BYTES", 1),
				MaxBytes:       getEnvAsInt("KAFKA_MAX_BYTES", 10e6),
				ConnectTimeout: getEnvAsDuration("KAFKA_CONNECT_TIMEOUT", 5*time.Second),
			},
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "printcore-tablet"),
			Workers: Worker{
				Enabled: getEnvAsBool("WORKER_ENABLED", true),
			},
		},
		Observability: Observability{
			ServiceName:     getEnv("OBS_SERVICE_NAME", "printcore"),
			Environment:     getEnv("OBS_ENVIRONMENT", "local"),
			LogLevel:        getEnv("OBS_LOG_LEVEL", "info"),
			LogEncoding:     getEnv("OBS_LOG_ENCODING", "json"),
			EnableTracing:   getEnvAsBool("OBS_ENABLE_TRACING", false),
			TraceExporter:   getEnv("OBS_TRACE_EXPORTER", "stdout"),
			TraceEndpoint:   getEnv("OBS_OTLP_ENDPOINT", "localhost:4317"),
			TraceInsecure:   getEnvAsBool("OBS_OTLP_INSECURE", true),
			EnableMetrics:   getEnvAsBool("OBS_ENABLE_METRICS", true),
			MetricsExporter: getEnv("OBS_METRICS_EXPORTER", "prometheus"),
			PrometheusPath:  getEnv("OBS_PROMETHEUS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.HTTP.Port <= 0 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.HTTP.Port)
	}

	if cfg.GRPC.Port <= 0 {
		return fmt.Errorf("invalid gRPC port: %d", cfg.GRPC.Port)
	}

	cfg.Printer.Driver = strings.ToLower(strings.TrimSpace(cfg.Printer.Driver))
	switch cfg.Printer.Driver {
	case "tcp", "file":
		// supported
	default:
		return fmt.Errorf("unsupported printer driver: %s", cfg.Printer.Driver)
	}
	if cfg.Printer.ConnectCooldown < 0 {
		cfg.Printer.ConnectCooldown = 3 * time.Second
	}
	if cfg.Printer.RetryDelay < 0 {
		cfg.Printer.RetryDelay = 400 * time.Millisecond
	}

	cfg.Printing.DefaultKind = strings.ToLower(strings.TrimSpace(cfg.Printing.DefaultKind))
	switch cfg.Printing.DefaultKind {
	case "kitchen", "receipt", "both":
		// supported
	default:
		return fmt.Errorf("unsupported default ticket kind: %s", cfg.Printing.DefaultKind)
	}
	if cfg.Printing.MaxPrintCount <= 0 {
		return fmt.Errorf("PRINT_MAX_COUNT must be positive, got %d", cfg.Printing.MaxPrintCount)
	}
	if cfg.Printing.MaxAutoPrintAge <= 0 {
		cfg.Printing.MaxAutoPrintAge = 10 * time.Minute
	}
	if cfg.Printing.DuplicateWindow < 0 {
		cfg.Printing.DuplicateWindow = 10 * time.Second
	}
	if cfg.Printing.Margin < 0 {
		cfg.Printing.Margin = 0
	}
	if cfg.Printing.Columns < 16 {
		return fmt.Errorf("TICKET_COLUMNS too narrow: %d", cfg.Printing.Columns)
	}

	if cfg.Alerts.Interval <= 0 {
		cfg.Alerts.Interval = time.Minute
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch cfg.Storage.Driver {
	case "memory", "redis", "sql":
		// supported
	default:
		return fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == "redis" && cfg.Storage.Redis.Addr == "" {
		return fmt.Errorf("missing REDIS_ADDR for redis storage")
	}

	cfg.Database.Enabled = cfg.Storage.Driver == "sql"
	if cfg.Database.Enabled && cfg.Database.DSN == "" {
		return fmt.Errorf("missing DB_DSN for sql storage")
	}

	cfg.Observability.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Observability.LogLevel))
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	cfg.Observability.LogEncoding = strings.ToLower(strings.TrimSpace(cfg.Observability.LogEncoding))
	if cfg.Observability.LogEncoding == "" {
		cfg.Observability.LogEncoding = "json"
	}
	cfg.Observability.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.TraceExporter))
	if cfg.Observability.TraceExporter == "" {
		cfg.Observability.TraceExporter = "stdout"
	}
	cfg.Observability.MetricsExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.MetricsExporter))
	if cfg.Observability.MetricsExporter == "" {
		cfg.Observability.MetricsExporter = "prometheus"
	}

	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	} else if !strings.HasPrefix(cfg.Observability.PrometheusPath, "/") {
		cfg.Observability.PrometheusPath = "/" + cfg.Observability.PrometheusPath
	}

	if !cfg.Messaging.Enabled {
		cfg.Messaging.Driver = "noop"
	}

	switch cfg.Messaging.Driver {
	case "kafka", "noop":
		// supported
	default:
		return fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}

	if cfg.Messaging.Driver == "kafka" {
		if len(cfg.Messaging.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must be provided")
		}
		if cfg.Messaging.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC must be provided")
		}
		if cfg.Messaging.ConsumerGroup == "" {
			return fmt.Errorf("KAFKA_CONSUMER_GROUP must be provided")
		}
	}

	return nil
}
