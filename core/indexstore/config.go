package indexstore

// Backend names.
const (
	BackendObject = "object"
	BackendSQL    = "sql"
)

// Config holds configuration for index persistence.
type Config struct {
	// Backend selects the store: "object" (storage bucket) or "sql" (database).
	Backend string `mapstructure:"backend" default:"object"`
	// Prefix is the object key prefix under which each site's index lives.
	Prefix string `mapstructure:"prefix" default:".media-index"`
	// CacheTTLSeconds is how long a built index is served from memory.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"300"`
}
