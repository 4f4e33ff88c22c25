package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSynopURL is the IMGW public endpoint returning the latest synoptic
// observations for every Polish station.
const DefaultSynopURL = "https://danepubliczne.imgw.pl/api/data/synop"

// History backends.
const (
	HistoryCSV    = "csv"
	HistorySQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SynopURL        string
	FetchTimeout    time.Duration
	StationsFile    string
	RefreshInterval time.Duration

	HistoryBackend  string
	HistoryPath     string
	HistoryWindow   time.Duration
	HistorySchedule string

	HTTPAddr        string
	DashboardAddr   string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka fan-out of every refreshed snapshot.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	historyWindow, err := parsePositiveDuration("HISTORY_WINDOW", "168h")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(envOrDefault("HISTORY_BACKEND", HistoryCSV))
	defaultHistoryPath := "weather_log.csv"
	if backend == HistorySQLite {
		defaultHistoryPath = "weather_log.db"
	}

	cfg := &Config{
		SynopURL:        envOrDefault("SYNOP_URL", DefaultSynopURL),
		FetchTimeout:    fetchTimeout,
		StationsFile:    envOrDefault("STATIONS_FILE", "stations_coordinates.csv"),
		RefreshInterval: refreshInterval,

		HistoryBackend:  backend,
		HistoryPath:     envOrDefault("HISTORY_PATH", defaultHistoryPath),
		HistoryWindow:   historyWindow,
		HistorySchedule: os.Getenv("HISTORY_SCHEDULE"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		DashboardAddr:   envOrDefault("DASHBOARD_ADDR", ":3000"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "synop-observations"),
	}

	if cfg.SynopURL == "" {
		return nil, errors.New("SYNOP_URL is required")
	}
	if cfg.HistoryBackend != HistoryCSV && cfg.HistoryBackend != HistorySQLite {
		return nil, fmt.Errorf("invalid HISTORY_BACKEND %q: want csv or sqlite", cfg.HistoryBackend)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.LogFormat)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
