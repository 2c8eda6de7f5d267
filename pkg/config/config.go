package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvDomain      = "WIKI_DOMAIN"
	EnvAPIEndpoint = "WIKI_API_ENDPOINT"
	EnvUserAgent   = "WIKI_USER_AGENT"
)

// Config holds the application configuration.
type Config struct {
	Wiki    WikiConfig    `yaml:"wiki"`
	Request RequestConfig `yaml:"request"`
	Log     LogConfig     `yaml:"log"`
}

// WikiConfig describes the MediaWiki installation to query.
type WikiConfig struct {
	Domain         string `yaml:"domain"`
	APIEndpoint    string `yaml:"api_endpoint"` // full URL; overrides domain + script_path
	ScriptPath     string `yaml:"script_path"`
	UserAgent      string `yaml:"user_agent"`
	MaxResultLimit int    `yaml:"max_result_limit"` // page-size ceiling granted by the server
	GroupQueryMax  int    `yaml:"group_query_max"`  // titles per batched request
}

// Endpoint returns the api.php URL.
func (w WikiConfig) Endpoint() string {
	if w.APIEndpoint != "" {
		return w.APIEndpoint
	}
	return "https://" + w.Domain + "/" + strings.TrimPrefix(w.ScriptPath, "/")
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Gap     Duration      `yaml:"gap"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings    `yaml:"server"`
	Requests LogSettings    `yaml:"requests"`
	Rotation RotationConfig `yaml:"rotation"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// RotationConfig controls log file rotation.
type RotationConfig struct {
	MaxSize    ByteSize `yaml:"max_size"`
	MaxBackups int      `yaml:"max_backups"`
	MaxAge     Duration `yaml:"max_age"`
	Compress   bool     `yaml:"compress"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Wiki: WikiConfig{
			Domain:         "en.wikipedia.org",
			ScriptPath:     "w/api.php",
			MaxResultLimit: 500,
			GroupQueryMax:  50,
		},
		Request: RequestConfig{
			Retries: 5,
			Timeout: Duration(2 * time.Minute),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/wikiquery.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Rotation: RotationConfig{
				MaxSize:    100 * MB,
				MaxBackups: 3,
				MaxAge:     Duration(4 * Week),
				Compress:   true,
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// A .env file next to the config is loaded into the environment first;
// variables already set in the process environment take precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Env overrides are applied in memory only, never written back.
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDomain); v != "" {
		cfg.Wiki.Domain = v
	}
	if v := os.Getenv(EnvAPIEndpoint); v != "" {
		cfg.Wiki.APIEndpoint = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		cfg.Wiki.UserAgent = v
	}
}

var domainPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+(:[0-9]+)?$`)

// Validate reports settings the client cannot work with.
func (c *Config) Validate() error {
	if c.Wiki.APIEndpoint == "" && !domainPattern.MatchString(c.Wiki.Domain) {
		return fmt.Errorf("invalid wiki domain '%s'", c.Wiki.Domain)
	}
	if c.Wiki.MaxResultLimit < 1 {
		return fmt.Errorf("max_result_limit must be positive, got %d", c.Wiki.MaxResultLimit)
	}
	if c.Wiki.GroupQueryMax < 1 {
		return fmt.Errorf("group_query_max must be positive, got %d", c.Wiki.GroupQueryMax)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# wikiquery configuration
# -----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Size: B, KB, MB, GB
# Environment overrides: ` + EnvDomain + `, ` + EnvAPIEndpoint + `, ` + EnvUserAgent + `

`)
	data = append(header, data...)

	reLimit := regexp.MustCompile(`(?m)^(\s+)max_result_limit:`)
	data = reLimit.ReplaceAll(data, []byte("${1}# 500 for regular accounts, 5000 for bots\n${1}max_result_limit:"))

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: DEBUG, INFO, WARN, ERROR\n${1}level:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
