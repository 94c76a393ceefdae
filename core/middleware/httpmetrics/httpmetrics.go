package httpmetrics

import (
	"strconv"
	"strings"
	"time"

	"media-index/core/metrics"

	"github.com/gofiber/fiber/v2"
)

// Config holds configuration for the metrics middleware.
type Config struct {
	// SkipPaths are path prefixes that are not recorded.
	SkipPaths []string
}

// DefaultConfig skips the metrics and documentation endpoints.
func DefaultConfig() Config {
	return Config{SkipPaths: []string{"/metrics", "/swagger"}}
}

// New returns a middleware recording request counts and latencies by route.
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, p := range cfg.SkipPaths {
			if strings.HasPrefix(c.Path(), p) {
				return c.Next()
			}
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		// Route patterns keep label cardinality bounded.
		route := c.Route().Path
		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
