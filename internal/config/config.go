package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
// The ingest and dispatch services share one config; each validates the
// credentials it actually needs at startup.
type Config struct {
	// Notification broker (ingest).
	BrokerURL         string
	BrokerClientID    string
	BrokerTopic       string
	NotificationToken string

	// Data platform download resolver (ingest).
	APIToken        string
	ResolveTimeout  time.Duration
	DownloadTimeout time.Duration

	// Distribution channel.
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaGroupID    string

	// Subscriber directory and messaging (dispatch).
	DirectoryBaseURL string
	DirectoryTimeout time.Duration
	TelegramToken    string
	DispatchWorkers  int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	resolveTimeout, err := parseDuration("RESOLVE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := parseDuration("DOWNLOAD_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	directoryTimeout, err := parseDuration("DIRECTORY_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("DISPATCH_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BrokerURL:         envOrDefault("BROKER_URL", "wss://mqtt.dataplatform.knmi.nl:443"),
		BrokerClientID:    envOrDefault("BROKER_CLIENT_ID", "weather-alert-ingest"),
		BrokerTopic:       envOrDefault("BROKER_TOPIC", "dataplatform/file/v1/waarschuwingen_nederland_48h/1.0/#"),
		NotificationToken: os.Getenv("NOTIFICATION_TOKEN"),

		APIToken:        os.Getenv("API_TOKEN"),
		ResolveTimeout:  resolveTimeout,
		DownloadTimeout: downloadTimeout,

		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "weather-alerts"),
		KafkaGroupID:    envOrDefault("KAFKA_GROUP_ID", "alert-dispatch"),

		DirectoryBaseURL: envOrDefault("DIRECTORY_URL", "http://localhost:3000"),
		DirectoryTimeout: directoryTimeout,
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		DispatchWorkers:  workers,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if cfg.BrokerClientID == "" {
		return nil, errors.New("BROKER_CLIENT_ID is required")
	}

	return cfg, nil
}

// ValidateIngest checks the credentials the ingest service needs.
func (c *Config) ValidateIngest() error {
	if c.NotificationToken == "" {
		return errors.New("NOTIFICATION_TOKEN is required")
	}
	if c.APIToken == "" {
		return errors.New("API_TOKEN is required")
	}
	return nil
}

// ValidateDispatch checks the credentials the dispatch service needs.
func (c *Config) ValidateDispatch() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.DirectoryBaseURL == "" {
		return errors.New("DIRECTORY_URL is required")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
