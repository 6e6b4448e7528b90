package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server          ServerConfig              `json:"server"`
	Database        DatabaseConfig            `json:"database"`
	Providers       map[string]ProviderConfig `json:"providers"`
	DefaultProvider string                    `json:"default_provider"`
	DefaultModel    string                    `json:"default_model"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

type ProviderConfig struct {
	Type         string                 `json:"type"`
	Name         string                 `json:"name"`
	BaseURL      string                 `json:"base_url,omitempty"`
	APIKey       string                 `json:"api_key,omitempty"`
	Models       []string               `json:"models"`
	DefaultModel string                 `json:"default_model"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".mydrawer"))
	}

	// Set defaults
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "mydrawer")
	viper.SetDefault("database.database", "mydrawer")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("default_provider", "openai")
	viper.SetDefault("default_model", "gpt-5.2")

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := createDefaultConfig()
			loadEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Load environment variables
	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func createDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 3000,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "mydrawer",
			Password: "",
			Database: "mydrawer",
			SSLMode:  "disable",
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Type:         "openai",
				Name:         "OpenAI",
				Models:       []string{"gpt-5.3", "gpt-5.2", "gpt-5-mini", "gpt-4o", "gpt-4o-mini"},
				DefaultModel: "gpt-5.2",
			},
			"anthropic": {
				Type:         "anthropic",
				Name:         "Anthropic",
				Models:       []string{"claude-opus-4-6", "claude-sonnet-4-5-20250929", "claude-haiku-4-5-20251001"},
				DefaultModel: "claude-sonnet-4-5-20250929",
			},
			"google": {
				Type:         "openai-compatible",
				Name:         "Google",
				BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
				Models:       []string{"gemini-3-pro-preview", "gemini-3-flash-preview", "gemini-2.5-flash"},
				DefaultModel: "gemini-2.5-flash",
			},
			"mistral": {
				Type:         "openai-compatible",
				Name:         "Mistral",
				BaseURL:      "https://api.mistral.ai",
				Models:       []string{"mistral-large-latest", "mistral-medium-latest", "mistral-small-latest"},
				DefaultModel: "mistral-large-latest",
			},
			"groq": {
				Type:         "openai-compatible",
				Name:         "Groq",
				BaseURL:      "https://api.groq.com/openai",
				Models:       []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
				DefaultModel: "llama-3.3-70b-versatile",
			},
			"custom": {
				Type:         "openai-compatible",
				Name:         "Custom",
				BaseURL:      "http://localhost:1234",
				Models:       []string{}, // Discovered from the user's endpoint
				DefaultModel: "",
			},
		},
		DefaultProvider: "openai",
	}
}

func loadEnvOverrides(cfg *Config) {
	// Override with environment variables
	if port := os.Getenv("MYDRAWER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if host := os.Getenv("MYDRAWER_HOST"); host != "" {
		cfg.Server.Host = host
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	// Per-provider API keys: MYDRAWER_OPENAI_API_KEY, MYDRAWER_GROQ_API_KEY, ...
	for id, pc := range cfg.Providers {
		env := "MYDRAWER_" + strings.ReplaceAll(strings.ToUpper(id), "-", "_") + "_API_KEY"
		if key := os.Getenv(env); key != "" {
			pc.APIKey = key
			cfg.Providers[id] = pc
		}
	}
}

func (c *Config) Save() error {
	return viper.WriteConfig()
}
