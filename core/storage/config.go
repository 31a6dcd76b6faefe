package storage

import "fmt"

// Config holds configuration for the upload-target object store.
type Config struct {
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket feed files are uploaded to.
	Bucket string `mapstructure:"bucket" default:"feeds"`
	// Prefix is the object key prefix under which feed files live.
	Prefix string `mapstructure:"prefix" default:""`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Enabled toggles uploading entirely. When false, feed files are only
	// written locally.
	Enabled bool `mapstructure:"enabled" default:"false"`
}

// Validate reports configuration errors. A disabled store needs nothing;
// an enabled one must be complete before any remote call is attempted.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("storage endpoint is required when storage is enabled")
	}
	if c.Bucket == "" {
		return fmt.Errorf("storage bucket is required when storage is enabled")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("storage access_key and secret_key must both be set when storage is enabled")
	}
	return nil
}
