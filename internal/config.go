package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds client settings. Precedence: flags > env > YAML file > defaults.
type Config struct {
	APIURL          string        `yaml:"api_url"`
	Token           string        `yaml:"token"`
	StorePath       string        `yaml:"store"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ChangeDetection string        `yaml:"change_detection"`

	// MaxResponseBytes caps one API response body
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

const (
	envAPIURL          = "WORKSPACE_CHAT_API_URL"
	envToken           = "WORKSPACE_CHAT_TOKEN"
	envStore           = "WORKSPACE_CHAT_STORE"
	envPollInterval    = "WORKSPACE_CHAT_POLL_INTERVAL"
	envRequestTimeout  = "WORKSPACE_CHAT_REQUEST_TIMEOUT"
	envChangeDetection = "WORKSPACE_CHAT_CHANGE_DETECTION"
	envMaxResponse     = "WORKSPACE_CHAT_MAX_RESPONSE_BYTES"

	// DefaultRequestTimeout bounds every API call so a hung request cannot
	// hold the composer's in-flight flag forever.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultMaxResponseBytes is the read limit for one response body
	DefaultMaxResponseBytes int64 = 32 << 20
)

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		APIURL:           "http://localhost:5000",
		StorePath:        defaultStorePath(),
		PollInterval:     DefaultPollInterval,
		RequestTimeout:   DefaultRequestTimeout,
		ChangeDetection:  DetectorLastID,
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

// DefaultConfigDir is where the store and config file live by default
func DefaultConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".workspace-chat"
	}
	return filepath.Join(homeDir, ".workspace-chat")
}

func defaultStorePath() string {
	return filepath.Join(DefaultConfigDir(), "sessions.db")
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// a .env file in the working directory and the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(DefaultConfigDir(), "config.yaml")
	}
	if err := cfg.loadFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			LogDebug("No config file at %s", path)
		} else {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil {
		LogDebug("No .env file found")
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw struct {
		APIURL          string `yaml:"api_url"`
		Token           string `yaml:"token"`
		StorePath       string `yaml:"store"`
		PollInterval    string `yaml:"poll_interval"`
		RequestTimeout  string `yaml:"request_timeout"`
		ChangeDetection string `yaml:"change_detection"`
		MaxResponse     string `yaml:"max_response_bytes"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	setString(&c.APIURL, raw.APIURL)
	setString(&c.Token, raw.Token)
	setString(&c.StorePath, raw.StorePath)
	setString(&c.ChangeDetection, raw.ChangeDetection)
	if err := setDuration(&c.PollInterval, "poll_interval", raw.PollInterval); err != nil {
		return err
	}
	if err := setInt64(&c.MaxResponseBytes, "max_response_bytes", raw.MaxResponse); err != nil {
		return err
	}
	return setDuration(&c.RequestTimeout, "request_timeout", raw.RequestTimeout)
}

func (c *Config) applyEnv() error {
	setString(&c.APIURL, os.Getenv(envAPIURL))
	setString(&c.Token, os.Getenv(envToken))
	setString(&c.StorePath, os.Getenv(envStore))
	setString(&c.ChangeDetection, os.Getenv(envChangeDetection))
	if err := setDuration(&c.PollInterval, envPollInterval, os.Getenv(envPollInterval)); err != nil {
		return err
	}
	if err := setInt64(&c.MaxResponseBytes, envMaxResponse, os.Getenv(envMaxResponse)); err != nil {
		return err
	}
	return setDuration(&c.RequestTimeout, envRequestTimeout, os.Getenv(envRequestTimeout))
}

// Validate checks the settings that would otherwise fail late
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return &ConfigError{Field: "api_url", Err: errors.New("required")}
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return &ConfigError{Field: "api_url", Value: c.APIURL, Err: errors.New("must be an http(s) URL")}
	}
	if c.PollInterval <= 0 {
		return &ConfigError{Field: "poll_interval", Value: c.PollInterval.String(), Err: errors.New("must be positive")}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "request_timeout", Value: c.RequestTimeout.String(), Err: errors.New("must be positive")}
	}
	if c.MaxResponseBytes <= 0 {
		return &ConfigError{Field: "max_response_bytes", Value: strconv.FormatInt(c.MaxResponseBytes, 10), Err: errors.New("must be positive")}
	}
	if _, err := NewChangeDetector(c.ChangeDetection); err != nil {
		return &ConfigError{Field: "change_detection", Value: c.ChangeDetection, Err: err}
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return &ConfigError{Field: field, Value: v, Err: err}
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return &ConfigError{Field: field, Value: v, Err: err}
	}
	*dst = d
	return nil
}
