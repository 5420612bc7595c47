// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Config holds the application's configuration, loaded from .env and the environment.
type Config struct {
	ViesURL        string        `validate:"required,url"`
	APIHost        string        `validate:"required"`
	Port           int           `validate:"required,min=1,max=65535"`
	APIToken       string        `validate:"required"`
	RequestTimeout time.Duration `validate:"gt=0"`
	// TimeUnit is the base wait of the batch scheduler; pacing and backoff are multiples of it.
	TimeUnit    time.Duration `validate:"gt=0"`
	PacingUnits int           `validate:"min=0"`
	MaxRetries  int           `validate:"min=0,max=20"`
	LogLevel    string
	LogFile     string
}

// Load loads and validates the application configuration from DefaultConfigFile.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom loads configuration from the given .env file, overridden by environment
// variables. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetDefault("VIES_URL", DefaultViesURL)
	v.SetDefault("API_HOST", "127.0.0.1")
	v.SetDefault("PORT", 5000)
	v.SetDefault("REQUEST_TIMEOUT", DefaultRequestTimeout)
	v.SetDefault("TIME_UNIT", DefaultTimeUnit)
	v.SetDefault("PACING_UNITS", DefaultPacingUnits)
	v.SetDefault("MAX_RETRIES", DefaultMaxRetries)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "app.log")

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	appConfig := &Config{
		ViesURL:        v.GetString("VIES_URL"),
		APIHost:        v.GetString("API_HOST"),
		Port:           v.GetInt("PORT"),
		APIToken:       v.GetString("API_TOKEN"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		TimeUnit:       v.GetDuration("TIME_UNIT"),
		PacingUnits:    v.GetInt("PACING_UNITS"),
		MaxRetries:     v.GetInt("MAX_RETRIES"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFile:        v.GetString("LOG_FILE"),
	}

	if err := validate.Struct(appConfig); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return appConfig, nil
}
