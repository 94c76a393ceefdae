// Package metrics defines the Prometheus collectors exported by the media index.
//
// Collectors are registered with the default registry at init time via promauto;
// cmd/start exposes them on GET /metrics.
package metrics
