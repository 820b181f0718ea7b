package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the console and the mock API. Values
// come from, in increasing priority: defaults, the YAML file, the process
// environment (optionally seeded from .env files).
type Config struct {
	App     App     `yaml:"app"`
	Client  Client  `yaml:"client"`
	MockAPI MockAPI `yaml:"mockapi"`
}

type App struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"` // DEV | STAGING | PROD
	LogLevel string `yaml:"log_level"`
}

// Client configures the console side.
type Client struct {
	APIBaseURL      string        `yaml:"api_base_url"`
	CredentialsFile string        `yaml:"credentials_file"`
	RequestTimeout  time.Duration `yaml:"request_timeout"` // 0 disables the per-request deadline
	LogoutTimeout   time.Duration `yaml:"logout_timeout"`
	GroupCacheTTL   time.Duration `yaml:"group_cache_ttl"`
}

// MockAPI configures the development stand-in for the remote API.
type MockAPI struct {
	Port           string        `yaml:"port"`
	TokenSecret    string        `yaml:"token_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	AllowedOrigins []string      `yaml:"cors_allowed_origins"`
	Seed           bool          `yaml:"seed"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: App{
			Name:     "MFI Console",
			Env:      "DEV",
			LogLevel: "info",
		},
		Client: Client{
			APIBaseURL:      "http://localhost:8080/api",
			CredentialsFile: defaultCredentialsFile(),
			RequestTimeout:  15 * time.Second,
			LogoutTimeout:   5 * time.Second,
			GroupCacheTTL:   5 * time.Minute,
		},
		MockAPI: MockAPI{
			Port:           "8080",
			TokenSecret:    "dev-secret-change-me",
			TokenTTL:       12 * time.Hour,
			AllowedOrigins: []string{"*"},
			Seed:           true,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	loadDotEnv(".env", ".env."+strings.ToLower(GetEnv(envVar, "dev")))

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Client.APIBaseURL == "" {
		return errors.New("config: client.api_base_url is required")
	}
	if c.Client.CredentialsFile == "" {
		return errors.New("config: client.credentials_file is required")
	}
	if c.Client.RequestTimeout < 0 || c.Client.LogoutTimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	return nil
}

// IsDev reports whether the app runs in the development environment.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.App.Env, "DEV")
}

// GetPort returns the listen address for the mock API (":8080").
func (m MockAPI) GetPort() string {
	port := m.Port
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = ":" + port
	}
	return port
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".mfi-console", "credentials.json")
	}
	return filepath.Join(home, ".mfi-console", "credentials.json")
}

func loadDotEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		// godotenv.Load never overrides variables that are already set.
		_ = godotenv.Load(f)
	}
}
