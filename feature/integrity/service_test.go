package integrity

import (
	"context"
	"testing"

	"media-index/core/database"
	"media-index/core/indexstore"
	"media-index/core/media"
	"media-index/core/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSQLStore(t *testing.T) (indexstore.Store, *gorm.DB) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	store, err := indexstore.New(indexstore.Config{Backend: indexstore.BackendSQL}, nil, "", db)
	require.NoError(t, err)
	return store, db
}

func seedSite(t *testing.T, store indexstore.Store, org, repo string) {
	entries := []media.Entry{
		{Hash: "h1", Doc: "/a", Status: media.StatusReferenced},
		{Hash: "h1", Doc: "/b", Status: media.StatusReferenced},
		{Hash: "h2", Status: media.StatusUnused},
	}
	usage := indexstore.BuildUsage(entries)
	meta := indexstore.NewMeta(entries, usage, 1000, "api", "full")
	require.NoError(t, store.SaveIndex(context.Background(), media.NewSite(org, repo, ""), entries, usage, meta))
}

func TestService_CheckIndex(t *testing.T) {
	store, db := setupSQLStore(t)
	seedSite(t, store, "org", "repo")
	svc := NewService(nil, "bucket", ".media-index", store, db, zap.NewNop())

	report, err := svc.CheckIndex(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, "org/repo", report.Site)
	assert.Equal(t, 3, report.Entries)
}

func TestService_CheckIndex_DriftedMeta(t *testing.T) {
	store, db := setupSQLStore(t)
	seedSite(t, store, "org", "repo")
	require.NoError(t, db.Exec("UPDATE index_meta SET entries_count = 7 WHERE site = ?", "org/repo").Error)
	svc := NewService(nil, "bucket", ".media-index", store, db, zap.NewNop())

	report, err := svc.CheckIndex(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{"entriesCount: meta 7, table 3"}, report.MetaMismatches)
}

func TestService_CheckIndex_NotFound(t *testing.T) {
	store, db := setupSQLStore(t)
	svc := NewService(nil, "bucket", ".media-index", store, db, zap.NewNop())

	_, err := svc.CheckIndex(context.Background(), "org", "missing")
	assert.True(t, indexstore.IsNotFound(err))
}

func TestService_CheckSchema(t *testing.T) {
	store, db := setupSQLStore(t)

	report, err := NewService(nil, "", "", store, db, zap.NewNop()).CheckSchema()
	require.NoError(t, err)
	assert.True(t, report.Matched)

	_, err = NewService(nil, "", "", store, nil, zap.NewNop()).CheckSchema()
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestService_CheckStorage_NoClient(t *testing.T) {
	store, _ := setupSQLStore(t)
	_, err := NewService(nil, "", "", store, nil, zap.NewNop()).CheckStorage(context.Background())
	assert.Error(t, err)

	mockClient := new(mocks.Client)
	mockClient.On("BucketExists", context.Background(), "bucket").Return(false, nil)
	report, err := NewService(mockClient, "bucket", ".media-index", store, nil, zap.NewNop()).CheckStorage(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Exists)
}
