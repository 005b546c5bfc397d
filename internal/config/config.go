package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned by Validate when no OpenAI credential is configured
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY missing")

// Config holds all configuration for the application
type Config struct {
	Device  DeviceConfig
	OpenAI  OpenAIConfig
	Gallery GalleryConfig
	Log     LogConfig
	UI      UIConfig
}

// DeviceConfig holds DreamCaster upload target configuration
type DeviceConfig struct {
	URL                      string `validate:"required,url"`
	Dir                      string `validate:"required"`
	TolerateMalformedHeaders bool
	UploadTimeout            int `validate:"gt=0"` // seconds
	SetTimeout               int `validate:"gt=0"` // seconds
}

// OpenAIConfig holds image generation backend configuration
type OpenAIConfig struct {
	APIKey        string
	Model         string `validate:"required"`
	FallbackModel string `validate:"required"`
	BaseURL       string `validate:"required,url"`
	Timeout       int    `validate:"gt=0"` // seconds
}

// GalleryConfig holds local output configuration
type GalleryConfig struct {
	Dir string `validate:"required"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `validate:"oneof=debug info warn error dpanic panic fatal"`
	File  string // empty disables the file sink
}

// UIConfig holds terminal presentation configuration
type UIConfig struct {
	StylesPath string // optional styles.yaml merged over the built-in catalog
	BannerDir  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Device: DeviceConfig{
			URL:                      getEnv("DREAMCASTER_URL", "http://192.168.1.239"),
			Dir:                      getEnv("DREAMCASTER_PATH", "/image"),
			TolerateMalformedHeaders: getEnvAsBool("DREAMCASTER_TOLERATE_MALFORMED_HEADERS", true),
			UploadTimeout:            getEnvAsInt("DREAMCASTER_UPLOAD_TIMEOUT", 60),
			SetTimeout:               getEnvAsInt("DREAMCASTER_SET_TIMEOUT", 30),
		},
		OpenAI: OpenAIConfig{
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			Model:         getEnv("OPENAI_IMAGE_MODEL", "gpt-4o"),
			FallbackModel: getEnv("OPENAI_FALLBACK_IMAGE_MODEL", "gpt-image-1"),
			BaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:       getEnvAsInt("OPENAI_TIMEOUT", 120),
		},
		Gallery: GalleryConfig{
			Dir: getEnv("GALLERY_DIR", "gallery"),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
			File:  getEnv("LOG_FILE", "dreamcaster.log"),
		},
		UI: UIConfig{
			StylesPath: getEnv("DREAMCASTER_STYLES", ""),
			BannerDir:  getEnv("DREAMCASTER_BANNER_DIR", "res/banners"),
		},
	}

	return cfg, nil
}

// Validate checks field constraints first, then reports a missing API key
// as ErrMissingAPIKey. Commands that never generate may ignore that error.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return ErrMissingAPIKey
	}

	return nil
}

// OpenAITimeout returns the generation backend timeout
func (c *Config) OpenAITimeout() time.Duration {
	return secondsToDuration(c.OpenAI.Timeout)
}

// UploadTimeout returns the device upload timeout
func (c *Config) UploadTimeout() time.Duration {
	return secondsToDuration(c.Device.UploadTimeout)
}

// SetTimeout returns the device activate timeout
func (c *Config) SetTimeout() time.Duration {
	return secondsToDuration(c.Device.SetTimeout)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
