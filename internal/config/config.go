package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port      string `yaml:"port"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Import struct {
		BatchSize int `yaml:"batch_size"`
	} `yaml:"import"`
	Prelabel struct {
		Enabled    bool   `yaml:"enabled"`
		APIKey     string `yaml:"api_key"`
		ModelName  string `yaml:"model_name"`
		MaxRetries int    `yaml:"max_retries"`
		User       string `yaml:"user"`
	} `yaml:"prelabel"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = ":8080"
	}

	if config.Import.BatchSize == 0 {
		config.Import.BatchSize = 500
	}

	if config.Prelabel.ModelName == "" {
		config.Prelabel.ModelName = "gemini-2.0-flash-exp"
	}

	if config.Prelabel.MaxRetries == 0 {
		config.Prelabel.MaxRetries = 3
	}

	if config.Prelabel.User == "" {
		config.Prelabel.User = "prelabel@annotto"
	}

	// Expand environment variables in secrets
	config.Database.URL = os.ExpandEnv(config.Database.URL)
	config.Server.JWTSecret = os.ExpandEnv(config.Server.JWTSecret)
	config.Prelabel.APIKey = os.ExpandEnv(config.Prelabel.APIKey)

	return config, nil
}
