package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL  = "https://api.igdb.com"
	defaultTokenURL = "https://id.twitch.tv/oauth2/token"
	defaultPort     = "8080"
	defaultTimeout  = 10 * time.Second
)

// Config holds application configuration.
type Config struct {
	IGDB    IGDBConfig    `yaml:"igdb"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// IGDBConfig configures the game catalog and its Twitch credentials.
type IGDBConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	Platforms    []int         `yaml:"platforms"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LoggingConfig mirrors logging.Config for the YAML file.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		IGDB: IGDBConfig{
			BaseURL:   defaultBaseURL,
			TokenURL:  defaultTokenURL,
			Platforms: []int{130, 471},
			Timeout:   defaultTimeout,
		},
		Server: ServerConfig{Port: defaultPort},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// configPaths returns the list of paths to search for config file.
func configPaths() []string {
	paths := []string{
		".nxpresence.yaml",
		".nxpresence.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "nxpresence", "config.yaml"),
			filepath.Join(home, ".config", "nxpresence", "config.yml"),
			filepath.Join(home, ".nxpresence.yaml"),
		)
	}

	return paths
}

// envFiles returns the .env locations consulted for credentials.
func envFiles() []string {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), ".env"))
	}
	return paths
}

// Load loads configuration from file or returns defaults.
// Priority: env > .env file > config file (NXPRESENCE_CONFIG or search paths) > defaults
func Load() (*Config, error) {
	loadDotEnv()

	cfg := DefaultConfig()

	if envPath := os.Getenv("NXPRESENCE_CONFIG"); envPath != "" {
		if err := cfg.loadFromFile(envPath); err != nil {
			return nil, err
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// loadDotEnv loads the first .env file found. Variables already present in
// the environment are not overwritten.
func loadDotEnv() {
	for _, path := range envFiles() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Path from user configuration
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvOverrides() {
	if id := os.Getenv("TWITCH_CLIENT_ID"); id != "" {
		c.IGDB.ClientID = id
	}
	if secret := os.Getenv("TWITCH_CLIENT_SECRET"); secret != "" {
		c.IGDB.ClientSecret = secret
	}
	if port := os.Getenv("NXPRESENCE_PORT"); port != "" {
		c.Server.Port = port
	}
	if level := os.Getenv("NXPRESENCE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// HasCredentials reports whether both Twitch client id and secret are set.
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.IGDB.ClientID) != "" && strings.TrimSpace(c.IGDB.ClientSecret) != ""
}

// GetBaseURL returns the IGDB API host, applying defaults.
func (c *Config) GetBaseURL() string {
	if c.IGDB.BaseURL != "" {
		return strings.TrimRight(c.IGDB.BaseURL, "/")
	}
	return defaultBaseURL
}

// GetTokenURL returns the OAuth token endpoint, applying defaults.
func (c *Config) GetTokenURL() string {
	if c.IGDB.TokenURL != "" {
		return c.IGDB.TokenURL
	}
	return defaultTokenURL
}

// GetPlatforms returns the IGDB platform ids searches are scoped to.
func (c *Config) GetPlatforms() []int {
	if len(c.IGDB.Platforms) > 0 {
		return c.IGDB.Platforms
	}
	return []int{130, 471}
}

// GetTimeout returns the HTTP client timeout for IGDB and Twitch calls.
func (c *Config) GetTimeout() time.Duration {
	if c.IGDB.Timeout > 0 {
		return c.IGDB.Timeout
	}
	return defaultTimeout
}

// GetPort returns the HTTP API port.
func (c *Config) GetPort() string {
	if c.Server.Port != "" {
		return c.Server.Port
	}
	return defaultPort
}

// Redacted returns a copy safe to print: the client secret is masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.IGDB.Platforms = append([]int(nil), c.IGDB.Platforms...)
	if out.IGDB.ClientSecret != "" {
		out.IGDB.ClientSecret = "********"
	}
	return &out
}
