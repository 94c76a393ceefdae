package progress

// Config holds configuration for progressive snapshots.
type Config struct {
	// DisplayCap is the maximum number of rows in one snapshot.
	DisplayCap int `mapstructure:"display_cap" default:"500"`
}
