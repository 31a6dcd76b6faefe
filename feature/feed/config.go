package feed

import "fmt"

// Config holds configuration for feed file generation and upload.
type Config struct {
	// OutputDir is the directory feed files are written to.
	OutputDir string `mapstructure:"output_dir" default:"output"`
	// Prefix is the feed filename prefix; the country code and extension
	// follow it, e.g. country_feed_DE.csv.
	Prefix string `mapstructure:"prefix" default:"country_feed_"`
	// Extension is the feed filename extension.
	Extension string `mapstructure:"extension" default:".csv"`
	// Region is the store region embedded in every row identifier.
	Region string `mapstructure:"region" default:"US"`
	// IncludeOverride adds a country override column between id and
	// availability. Some feed consumers require it.
	IncludeOverride bool `mapstructure:"include_override" default:"false"`
	// UploadConcurrency bounds parallel file uploads.
	UploadConcurrency int `mapstructure:"upload_concurrency" default:"3"`
	// UploadRetries is the number of retry attempts per file after the
	// initial try.
	UploadRetries int `mapstructure:"upload_retries" default:"3"`
	// UploadRetryInitialSeconds is the first retry delay; subsequent delays
	// grow exponentially.
	UploadRetryInitialSeconds int `mapstructure:"upload_retry_initial_seconds" default:"2"`
}

// Filename returns the feed filename for a country code.
func (c Config) Filename(countryCode string) string {
	return c.Prefix + countryCode + c.Extension
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("feed output_dir is required")
	}
	if c.Prefix == "" {
		return fmt.Errorf("feed prefix is required")
	}
	if c.UploadConcurrency < 1 {
		return fmt.Errorf("feed upload_concurrency must be at least 1")
	}
	if c.UploadRetries < 0 {
		return fmt.Errorf("feed upload_retries must not be negative")
	}
	return nil
}
