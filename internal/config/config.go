package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phishing-scanner/")
	v.AddConfigPath("$HOME/.phishing-scanner")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISHING_SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:1025")
	v.SetDefault("server.domain", "localhost")
	v.SetDefault("server.max_message_bytes", 30*1024*1024)
	v.SetDefault("server.max_recipients", 50)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.process_timeout", "30s")

	// Classifier defaults
	v.SetDefault("classifier.type", "http")
	v.SetDefault("classifier.model_version", "model-b")
	v.SetDefault("classifier.endpoint", "http://127.0.0.1:8081/classify")
	v.SetDefault("classifier.timeout", "10s")
	v.SetDefault("classifier.static_label", "legitimate")
	v.SetDefault("classifier.static_confidence", 1.0)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Trust defaults
	v.SetDefault("trust.whitelisted_domains", []string{
		"google.com",
		"gmail.com",
		"redditmail.com",
		"reddit.com",
		"github.com",
		"microsoft.com",
		"amazon.com",
		"paypal.com",
		"apple.com",
		"linkedin.com",
		"twitter.com",
		"facebook.com",
		"instagram.com",
	})

	// Storage defaults
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.sqlite_path", "/data/phishing_scanner.db")
	v.SetDefault("storage.mysql_dsn", "user:password@tcp(localhost:3306)/phishing_scanner?parseTime=true")

	// Reply defaults
	v.SetDefault("reply.enabled", false)
	v.SetDefault("reply.host", "localhost")
	v.SetDefault("reply.port", 25)
	v.SetDefault("reply.from_address", "phishing-scanner@localhost")
	v.SetDefault("reply.timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
