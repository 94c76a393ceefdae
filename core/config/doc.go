// Package config provides configuration management for the media index.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Storage: S3/MinIO credentials and bucket settings (object index backend)
//   - Database: MySQL/SQLite connection details (SQL index backend)
//   - Log: Logging level, format and optional file rotation
//   - Logs: audit/media log endpoint, token and page size
//   - Linked: page source endpoint and fetch concurrency
//   - Reconcile: media/fragment folders and content URL template
//   - Index: backend selection, storage prefix, in-memory cache TTL
//   - Progress: display cap of progressive snapshots
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Index.Backend)
package config
