package linked

// Config holds configuration for fetching page sources.
type Config struct {
	// BaseURL hosts GET /source/{org}/{repo}/{ref}/{path}.
	BaseURL string `mapstructure:"base_url" default:"https://admin.hlx.page"`
	// APIToken is sent as "Authorization: token <APIToken>" when set.
	APIToken string `mapstructure:"api_token" default:""`
	// Concurrency bounds parallel page fetches.
	Concurrency int `mapstructure:"concurrency" default:"10"`
	// TimeoutSeconds bounds each HTTP request; 0 leaves it to the transport.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"0"`
}
