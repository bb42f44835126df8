package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the receipt-scan commands.
type Config struct {
	// BackendURL is the base URL of the expense tracker REST API.
	BackendURL string `yaml:"backend_url" validate:"required,url"`
	// APIToken is sent as a bearer token to the backend.
	APIToken string `yaml:"api_token,omitempty"`
	// FiscalHosts is the allow-list of fiscal portal hostnames accepted in scanned codes.
	FiscalHosts []string `yaml:"fiscal_hosts,omitempty" validate:"dive,hostname"`
	// Timeout bounds a single receipt-creation call.
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	// RateLimit caps backend requests per second.
	RateLimit float64 `yaml:"rate_limit,omitempty" validate:"gte=0"`
	// StatsdAddress is the DogStatsD agent address; empty disables metrics.
	StatsdAddress string `yaml:"statsd_addr,omitempty" validate:"omitempty,hostname_port"`
	// ListenAddress is the bind address of the HTTP scan endpoint.
	ListenAddress string `yaml:"listen_addr,omitempty"`
	// LogLevel is the minimum log level name.
	LogLevel string `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn warning error fatal"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "receipt-scan-settings.yaml"

	// DefaultEnvFilename is the optional dotenv file read before overrides are applied.
	DefaultEnvFilename = ".env"

	// DefaultFiscalHost is the national fiscal portal host.
	DefaultFiscalHost = "suf.purs.gov.rs"

	// DefaultTimeout is the default duration of one receipt-creation call.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default number of backend requests per second.
	DefaultRateLimit = 2.0

	// DefaultListenAddress is the default bind address for the scan endpoint.
	DefaultListenAddress = ":8080"

	// DefaultLogLevel is used when log_level is empty.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// EnvBackendURL overrides BackendURL.
	EnvBackendURL = "RECEIPT_SCAN_BACKEND_URL"
	// EnvAPIToken overrides APIToken.
	EnvAPIToken = "RECEIPT_SCAN_API_TOKEN"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBackendScheme is returned when the backend URL is not http(s).
	errBackendScheme = errors.New("backend url must use http or https")

	//nolint:gochecknoglobals // Validator caches struct metadata and is safe for concurrent use.
	structValidator = validator.New(validator.WithRequiredStructEnabled())
)

// Load reads configuration from the provided path, applies environment
// overrides and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := applyEnv(&cfg, DefaultEnvFilename); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// The file may hold the API token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	settings.BackendURL = strings.TrimSpace(settings.BackendURL)

	if err := structValidator.Struct(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	backend, err := url.Parse(settings.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend url: %w", err)
	}

	if backend.Scheme != "http" && backend.Scheme != "https" {
		return errBackendScheme
	}

	if len(settings.FiscalHosts) == 0 {
		settings.FiscalHosts = []string{DefaultFiscalHost}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.RateLimit <= 0 {
		settings.RateLimit = DefaultRateLimit
	}

	if settings.ListenAddress == "" {
		settings.ListenAddress = DefaultListenAddress
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	return nil
}

// applyEnv loads the optional dotenv file and lets the process environment
// override the backend URL and API token.
func applyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		// Existing process variables win over the file.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v, ok := os.LookupEnv(EnvBackendURL); ok && strings.TrimSpace(v) != "" {
		cfg.BackendURL = v
	}

	if v, ok := os.LookupEnv(EnvAPIToken); ok && v != "" {
		cfg.APIToken = v
	}

	return nil
}
