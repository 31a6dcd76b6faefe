package config

import (
	"reflect"
	"strings"

	"country-feed-sync/core/database"
	"country-feed-sync/core/logger"
	"country-feed-sync/core/storage"
	"country-feed-sync/feature/feed"
	"country-feed-sync/feature/mapping"
	"country-feed-sync/feature/shopify"
	"country-feed-sync/feature/syncer"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Shopify holds configuration for the Admin GraphQL API.
	Shopify shopify.Config `mapstructure:"shopify"`
	// Storage holds configuration for the upload-target object store.
	Storage storage.Config `mapstructure:"storage"`
	// Database holds configuration for the sync state database.
	Database database.Config `mapstructure:"database"`
	// Mapping holds configuration for country/location resolution.
	Mapping mapping.Config `mapstructure:"mapping"`
	// Feed holds configuration for feed generation and upload.
	Feed feed.Config `mapstructure:"feed"`
	// Sync holds orchestration options.
	Sync syncer.Config `mapstructure:"sync"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
}

// Validate checks every sub-configuration that can fail fast, before any
// remote call is made.
func (c *Config) Validate() error {
	if err := c.Shopify.Validate(); err != nil {
		return err
	}
	if err := c.Mapping.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Feed.Validate()
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SHOPIFY_TOKEN -> shopify.token)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
