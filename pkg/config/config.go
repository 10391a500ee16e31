package config

import (
	"errors"
	"io/fs"

	"github.com/spf13/viper"
)

type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type BackendConfig struct {
	// URL is the backend root; the api client appends /api itself.
	URL string `mapstructure:"url"`
	// K is how many chunks the backend retrieves per query.
	K int `mapstructure:"k"`
}

type DatabaseConfig struct {
	Path        string `mapstructure:"path"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type UploadConfig struct {
	MaxFiles int `mapstructure:"max_files"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("backend.url", "http://localhost:8000")
	v.SetDefault("backend.k", 5)
	v.SetDefault("database.path", "docchat.db")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("upload.max_files", 2)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file; the client runs fine on pure defaults
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Get environment variable overrides
	if url := v.GetString("BACKEND_URL"); url != "" {
		config.Backend.URL = url
	}

	if dbPath := v.GetString("DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	return &config, nil
}
