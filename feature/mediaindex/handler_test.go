package mediaindex

import (
	"net/http/httptest"
	"testing"
	"time"

	"media-index/core/indexstore"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupApp(t *testing.T, store *memStore, source *logSource) *fiber.App {
	t.Helper()
	feature := NewFeature(newTestIndexer(t, store, source), zap.NewNop())
	assert.Equal(t, "mediaindex", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	require.NoError(t, feature.Load(app))
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target string, out any) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHandler_BuildAndQuery(t *testing.T) {
	store := newMemStore()
	source := &logSource{}
	source.add("/a", "h1", 100)
	source.add("/b", "h1", 110)
	source.add("/b", "h2", 110)
	app := setupApp(t, store, source)

	var built BuildResponse
	code := doRequest(t, app, "POST", "/index/org/repo/build?user=alice", &built)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "full", built.Mode)
	assert.True(t, built.HasChanges)
	assert.Equal(t, 3, built.EntriesCount)
	assert.Equal(t, "alice", store.meta[testSite.ID].LastRefreshBy)

	var where Where
	require.Equal(t, fiber.StatusOK, doRequest(t, app, "GET", "/index/org/repo/where?hash=h1", &where))
	assert.True(t, where.Used)
	assert.Equal(t, []string{"/a", "/b"}, where.Pages)

	var unknown Where
	require.Equal(t, fiber.StatusOK, doRequest(t, app, "GET", "/index/org/repo/where?hash=nope", &unknown))
	assert.False(t, unknown.Used)
	assert.False(t, unknown.Known)

	var usage UsageResponse
	require.Equal(t, fiber.StatusOK, doRequest(t, app, "GET", "/index/org/repo/usage?page=/b.md", &usage))
	assert.Equal(t, "/b", usage.Page)
	assert.Equal(t, []string{"h1", "h2"}, usage.Hashes)

	var rows MediaResponse
	require.Equal(t, fiber.StatusOK, doRequest(t, app, "GET", "/index/org/repo/media?doc=/b&status=referenced", &rows))
	assert.Equal(t, 2, rows.Total)

	var status Status
	require.Equal(t, fiber.StatusOK, doRequest(t, app, "GET", "/index/org/repo/status", &status))
	require.NotNil(t, status.Meta)
	assert.Equal(t, 3, status.Meta.EntriesCount)
	assert.Equal(t, "incremental", string(status.NextMode))
	assert.Nil(t, status.Lock)
}

func TestHandler_BuildErrors(t *testing.T) {
	t.Run("Lock held", func(t *testing.T) {
		store := newMemStore()
		store.locks[testSite.ID] = indexstore.Lock{Timestamp: time.Now().UnixMilli(), Locked: true}
		app := setupApp(t, store, &logSource{})

		assert.Equal(t, fiber.StatusConflict, doRequest(t, app, "POST", "/index/org/repo/build", nil))
	})

	t.Run("Incremental without watermark", func(t *testing.T) {
		app := setupApp(t, newMemStore(), &logSource{})
		assert.Equal(t, fiber.StatusBadRequest, doRequest(t, app, "POST", "/index/org/repo/build?mode=incremental", nil))
	})

	t.Run("Unknown mode", func(t *testing.T) {
		app := setupApp(t, newMemStore(), &logSource{})
		assert.Equal(t, fiber.StatusBadRequest, doRequest(t, app, "POST", "/index/org/repo/build?mode=fast", nil))
	})
}

func TestHandler_QueryErrors(t *testing.T) {
	app := setupApp(t, newMemStore(), &logSource{})

	var body map[string]string
	assert.Equal(t, fiber.StatusNotFound, doRequest(t, app, "GET", "/index/org/repo/media", &body))
	assert.Contains(t, body["error"], "index not found")

	assert.Equal(t, fiber.StatusBadRequest, doRequest(t, app, "GET", "/index/org/repo/usage", nil))
	assert.Equal(t, fiber.StatusBadRequest, doRequest(t, app, "GET", "/index/org/repo/where", nil))
	assert.Equal(t, fiber.StatusBadRequest, doRequest(t, app, "GET", "/index/org/repo/media?status=bogus", nil))

	var status Status
	require.Equal(t, fiber.StatusOK, doRequest(t, app, "GET", "/index/org/repo/status", &status))
	assert.Nil(t, status.Meta)
	assert.Equal(t, "full", string(status.NextMode))
}
