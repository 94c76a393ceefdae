// Package middleware groups the Fiber middleware mounted by the start command.
//
// # Components
//
//   - rayid: assigns every request a ray id (reusing X-Ray-ID when the caller
//     sends one) and stores it in the request locals for logging.
//   - httpmetrics: counts requests and observes latency per route pattern for
//     the /metrics endpoint.
//   - auth: rejects requests without the configured X-API-Key. An empty key
//     disables the check.
//
// Order matters: rayid runs first so the request log and metrics can see it,
// and auth runs after the public /metrics and /swagger routes are mounted.
package middleware
