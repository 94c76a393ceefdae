// Package server holds the HTTP server configuration.
//
// While the main application entry point handles the server startup, this package
// defines the configuration structure for the listen port, the API key guarding
// the index endpoints, and the request body limit.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings
// and by cmd/start to configure Fiber and the auth middleware.
package server
