// Package config loads settings for gwctl and alertrelay. Values come from,
// in increasing precedence: built-in defaults, an optional YAML file, a .env
// file in the working directory, and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// EnvConfigFile names the YAML file to read when no path is passed to Load.
const EnvConfigFile = "GWCTL_CONFIG"

// Config holds all settings shared by the two binaries.
type Config struct {
	APIURL    string
	LogLevel  string
	LogFormat string

	CredentialBackend string
	CredentialPath    string

	HTTPAddr        string
	ShutdownTimeout time.Duration

	KafkaBrokers    []string
	KafkaAlertTopic string

	AlertPollInterval time.Duration
	AlertSeverity     string
	AlertStates       []string
	AlertDedupSize    int

	TaxonomyCacheSize int
}

// fileConfig is the YAML layout. Durations stay strings so they parse with
// time.ParseDuration like their environment counterparts.
type fileConfig struct {
	APIURL            string   `yaml:"api_url"`
	LogLevel          string   `yaml:"log_level"`
	LogFormat         string   `yaml:"log_format"`
	CredentialBackend string   `yaml:"credential_backend"`
	CredentialPath    string   `yaml:"credential_path"`
	HTTPAddr          string   `yaml:"http_addr"`
	ShutdownTimeout   string   `yaml:"shutdown_timeout"`
	KafkaBrokers      []string `yaml:"kafka_brokers"`
	KafkaAlertTopic   string   `yaml:"kafka_alert_topic"`
	AlertPollInterval string   `yaml:"alert_poll_interval"`
	AlertSeverity     string   `yaml:"alert_severity"`
	AlertStates       []string `yaml:"alert_states"`
	AlertDedupSize    int      `yaml:"alert_dedup_size"`
	TaxonomyCacheSize int      `yaml:"taxonomy_cache_size"`
}

// Defaults returns the built-in settings. LogFormat is "text"; the relay
// switches it to "json" before calling Load.
func Defaults() Config {
	return Config{
		APIURL:            "http://localhost:8000",
		LogLevel:          "info",
		LogFormat:         "text",
		CredentialBackend: "file",
		HTTPAddr:          ":8080",
		ShutdownTimeout:   10 * time.Second,
		KafkaBrokers:      []string{"localhost:9092"},
		KafkaAlertTopic:   "groundwater-alerts",
		AlertPollInterval: time.Minute,
		AlertDedupSize:    1000,
		TaxonomyCacheSize: 256,
	}
}

// Load layers the YAML file at path (or $GWCTL_CONFIG when path is empty),
// .env, and the environment over base, then validates the result. An
// explicit path must exist; a missing $GWCTL_CONFIG file is skipped.
func Load(path string, base Config) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := base
	optional := false
	if path == "" {
		path = os.Getenv(EnvConfigFile)
		optional = true
	}
	if path != "" {
		if err := applyFile(&cfg, path, optional); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.CredentialPath == "" {
		p, err := defaultCredentialPath(cfg.CredentialBackend)
		if err != nil {
			return nil, err
		}
		cfg.CredentialPath = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.APIURL, fc.APIURL)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.CredentialBackend, fc.CredentialBackend)
	setString(&cfg.CredentialPath, fc.CredentialPath)
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.KafkaAlertTopic, fc.KafkaAlertTopic)
	setString(&cfg.AlertSeverity, fc.AlertSeverity)
	if len(fc.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = fc.KafkaBrokers
	}
	if len(fc.AlertStates) > 0 {
		cfg.AlertStates = fc.AlertStates
	}
	if fc.AlertDedupSize != 0 {
		cfg.AlertDedupSize = fc.AlertDedupSize
	}
	if fc.TaxonomyCacheSize != 0 {
		cfg.TaxonomyCacheSize = fc.TaxonomyCacheSize
	}
	if err := setDuration(&cfg.ShutdownTimeout, "shutdown_timeout", fc.ShutdownTimeout); err != nil {
		return err
	}
	return setDuration(&cfg.AlertPollInterval, "alert_poll_interval", fc.AlertPollInterval)
}

func applyEnv(cfg *Config) error {
	cfg.APIURL = sharedcfg.EnvOrDefault("GROUNDWATER_API_URL", sharedcfg.EnvOrDefault("NEXT_PUBLIC_API_URL", cfg.APIURL))
	cfg.LogLevel = sharedcfg.EnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = sharedcfg.EnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.CredentialBackend = sharedcfg.EnvOrDefault("CREDENTIAL_BACKEND", cfg.CredentialBackend)
	cfg.CredentialPath = sharedcfg.EnvOrDefault("CREDENTIAL_PATH", cfg.CredentialPath)
	cfg.HTTPAddr = sharedcfg.EnvOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.KafkaAlertTopic = sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", cfg.KafkaAlertTopic)
	cfg.AlertSeverity = sharedcfg.EnvOrDefault("ALERT_SEVERITY", cfg.AlertSeverity)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}
	// ALERT_STATES uses the same comma-separated list format as KAFKA_BROKERS.
	if v := os.Getenv("ALERT_STATES"); v != "" {
		cfg.AlertStates = sharedcfg.ParseBrokers(v)
	}

	var err error
	if os.Getenv("SHUTDOWN_TIMEOUT") != "" {
		if cfg.ShutdownTimeout, err = sharedcfg.ParseShutdownTimeout(); err != nil {
			return err
		}
	}
	if cfg.AlertPollInterval, err = getDuration("ALERT_POLL_INTERVAL", cfg.AlertPollInterval); err != nil {
		return err
	}
	if cfg.AlertDedupSize, err = getInt("ALERT_DEDUP_SIZE", cfg.AlertDedupSize); err != nil {
		return err
	}
	if cfg.TaxonomyCacheSize, err = getInt("TAXONOMY_CACHE_SIZE", cfg.TaxonomyCacheSize); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings, naming the offending key on failure.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("GROUNDWATER_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	switch strings.ToLower(c.CredentialBackend) {
	case "file", "bolt", "memory":
	default:
		return fmt.Errorf("CREDENTIAL_BACKEND must be file, bolt or memory, got %q", c.CredentialBackend)
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaAlertTopic == "" {
		return errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.AlertPollInterval <= 0 {
		return errors.New("ALERT_POLL_INTERVAL must be positive")
	}
	if c.AlertDedupSize <= 0 {
		return errors.New("ALERT_DEDUP_SIZE must be positive")
	}
	if c.TaxonomyCacheSize <= 0 {
		return errors.New("TAXONOMY_CACHE_SIZE must be positive")
	}
	return nil
}

func defaultCredentialPath(backend string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("CREDENTIAL_PATH is unset and the home directory is unknown: %w", err)
	}
	name := "credentials.json"
	if strings.EqualFold(backend, "bolt") {
		name = "credentials.db"
	}
	return filepath.Join(home, ".config", "gwctl", name), nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q in config file: %w", key, v, err)
	}
	*dst = d
	return nil
}
