package shopify

import "fmt"

// Config holds configuration for the Shopify Admin API.
type Config struct {
	// StoreID is the myshopify.com store subdomain.
	StoreID string `mapstructure:"store_id" default:""`
	// Token is the Admin API access token.
	Token string `mapstructure:"token" default:""`
	// APIVersion is the Admin GraphQL API version.
	APIVersion string `mapstructure:"api_version" default:"2024-07"`
	// Endpoint overrides the derived GraphQL endpoint URL. Used in tests.
	Endpoint string `mapstructure:"endpoint" default:""`
	// TimeoutSeconds is the per-request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// PollIntervalSeconds is the bulk operation poll interval.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" default:"30"`
	// PollInitialDelaySeconds is the delay before the first status poll.
	// The backend needs a moment to register a freshly submitted job.
	PollInitialDelaySeconds int `mapstructure:"poll_initial_delay_seconds" default:"10"`
	// DownloadTimeoutSeconds is the timeout for fetching the result file.
	DownloadTimeoutSeconds int `mapstructure:"download_timeout_seconds" default:"300"`
	// TempDir is where downloaded result files are staged.
	TempDir string `mapstructure:"temp_dir" default:"temp"`
}

// GraphQLEndpoint returns the Admin GraphQL URL for the configured store,
// unless an explicit endpoint override is set.
func (c Config) GraphQLEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", c.StoreID, c.APIVersion)
}

// Validate reports configuration errors that make any remote call pointless.
func (c Config) Validate() error {
	if c.Endpoint != "" {
		return nil
	}
	if c.StoreID == "" {
		return fmt.Errorf("shopify store_id is required")
	}
	if c.Token == "" {
		return fmt.Errorf("shopify token is required")
	}
	if len(c.Token) < 20 {
		return fmt.Errorf("shopify token appears to be invalid (too short)")
	}
	return nil
}
