// Package config provides configuration management for the feed sync tool.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Shopify: store id, Admin API token, bulk polling intervals
//   - Storage: S3/MinIO credentials, bucket and key prefix for feed uploads
//   - Database: sync state database (SQLite file or MySQL connection)
//   - Mapping: country mode and target country allow-list
//   - Feed: output directory, filename shape, upload concurrency and retries
//   - Sync: default mode and checkpoint skew
//   - Log: logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Shopify.StoreID)
package config
