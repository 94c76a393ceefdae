// Package logger builds the application's zap logger.
//
// Console output is development-styled (ISO8601 timestamps, colored levels)
// when Format is "console" and production JSON otherwise. When File is set,
// a second JSON core writes to a lumberjack-rotated file so long builds
// leave a trail after the terminal is gone.
//
// # Request Correlation
//
// WithRayID reads the ray id stored by the rayid middleware from a Fiber
// context and attaches it as a field, so every log line of one request (and
// of the build it triggers) can be grouped.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", File: "logs/media-index.log"})
//	log.Info("Server started")
//
//	l := logger.WithRayID(log, c)
//	l.Error("Build failed", zap.Error(err))
package logger
