package logger

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("Production JSON", func(t *testing.T) {
		l, err := New(&Config{Level: "info", Format: "json"})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("Debug Console", func(t *testing.T) {
		l, err := New(&Config{Level: "debug", Format: "console"})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("Warn Level", func(t *testing.T) {
		l, err := New(&Config{Level: "warn"})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("File Sink", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "index.log")
		l, err := New(&Config{Level: "info", File: file, MaxSizeMB: 1})
		require.NoError(t, err)

		l.Info("build finished", zap.String("site", "org/repo"))
		_ = l.Sync()

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "build finished")
		assert.Contains(t, string(data), `"site":"org/repo"`)
	})
}

func TestWithRayID(t *testing.T) {
	app := fiber.New()
	base := zap.NewNop()

	var got *zap.Logger
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals("ray_id", "abc")
		got = WithRayID(base, c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotNil(t, got)
}
