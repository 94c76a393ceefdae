package logclient

// Config holds configuration for the remote log endpoints.
type Config struct {
	// BaseURL is the admin service hosting /{log}/{org}/{repo}/{ref}.
	BaseURL string `mapstructure:"base_url" default:"https://admin.hlx.page"`
	// APIToken is sent as "Authorization: token <APIToken>" when set.
	APIToken string `mapstructure:"api_token" default:""`
	// PageSize is the limit requested per page.
	PageSize int `mapstructure:"page_size" default:"1000"`
	// TimeoutSeconds bounds each HTTP request; 0 leaves it to the transport.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"0"`
}
