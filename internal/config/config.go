package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen          = "127.0.0.1:8080"
	defaultTimezone        = "Local"
	defaultDataDir         = "./var/journeycal"
	defaultRefreshCron     = "0 * * * *"
	defaultRecurrenceMonth = 6
	defaultLLMModel        = "gemini-1.5-flash-latest"
	defaultLLMEndpoint     = "https://generativelanguage.googleapis.com/v1beta/models"
)

// SubscriptionConfig describes a calendar feed whose events are proposed as
// drafts on every refresh.
type SubscriptionConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS endpoint.
	URL string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API. The
// username doubles as the identity every stored row belongs to.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LLMConfig configures natural-language event extraction.
type LLMConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Model    string `yaml:"model" json:"model"`
	// APIKey is normally left empty in the file and supplied through the
	// GEMINI_API_KEY environment variable (or .env).
	APIKey string `yaml:"api_key,omitempty" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to render imported times as wall-clock
	// HH:MM values. "Local" means the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DataDir holds the SQLite database and the subscription cache.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// RefreshCron is a cron-style schedule string (e.g. "0 * * * *") used
	// for periodic subscription refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// RecurrenceDefaultMonths is how far a recurring import without UNTIL
	// is expanded.
	RecurrenceDefaultMonths int `yaml:"recurrence_default_months" json:"recurrence_default_months"`

	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	LLM LLMConfig `yaml:"llm" json:"llm"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                  defaultListen,
		Timezone:                defaultTimezone,
		LogLevel:                "info",
		DataDir:                 defaultDataDir,
		RefreshCron:             defaultRefreshCron,
		RecurrenceDefaultMonths: defaultRecurrenceMonth,
		Subscriptions:           []SubscriptionConfig{},
		LLM: LLMConfig{
			Endpoint: defaultLLMEndpoint,
			Model:    defaultLLMModel,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.RecurrenceDefaultMonths <= 0 {
		c.RecurrenceDefaultMonths = defaultRecurrenceMonth
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	for i := range c.Subscriptions {
		s := &c.Subscriptions[i]
		if s.ID == "" {
			if s.Name != "" {
				s.ID = s.Name
			} else {
				s.ID = s.URL
			}
		}
	}
	if c.LLM.Endpoint == "" {
		c.LLM.Endpoint = defaultLLMEndpoint
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
}

// DatabasePath is the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "journeycal.db")
}

// CacheDir is where fetched subscription bodies are kept.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "ics-cache")
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist a default config is written with 0600 perms
// and returned. Otherwise the YAML is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
// The API key is never persisted.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	onDisk := *cfg
	onDisk.LLM.APIKey = ""
	data, err := yaml.Marshal(&onDisk)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".journeycal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
