package indexstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"media-index/core/storage/mocks"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testBucket   = "media-index"
	indexKey     = ".media-index/org/repo/media-index.json"
	metaKey      = ".media-index/org/repo/media-index-meta.json"
	lockKey      = ".media-index/org/repo/media-index-lock.json"
	noSuchKeyMsg = "The specified key does not exist."
)

var errNoSuchKey = minio.ErrorResponse{Code: "NoSuchKey", Message: noSuchKeyMsg, StatusCode: 404}

func TestObjectStore_SaveAndLoad(t *testing.T) {
	mockClient := new(mocks.Client)
	store := NewObjectStore(mockClient, testBucket, ".media-index")
	ctx := context.Background()

	objects := map[string][]byte{}
	capture := func(args mock.Arguments) {
		data, _ := io.ReadAll(args.Get(3).(io.Reader))
		objects[args.String(2)] = data
	}
	mockClient.On("PutObject", mock.Anything, testBucket, indexKey, mock.Anything, mock.Anything, mock.Anything).
		Run(capture).Return(minio.UploadInfo{}, nil).Once()
	mockClient.On("PutObject", mock.Anything, testBucket, metaKey, mock.Anything, mock.Anything, mock.Anything).
		Run(capture).Return(minio.UploadInfo{}, nil).Once()

	entries := sampleEntries()
	usage := BuildUsage(entries)
	meta := NewMeta(entries, usage, 5000, "test", "full")
	require.NoError(t, store.SaveIndex(ctx, testSite, entries, usage, meta))
	mockClient.AssertExpectations(t)

	// The stored document keeps the multi-sheet layout with string-encoded hashes.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(objects[indexKey], &raw))
	assert.Equal(t, []any{"media", "usage"}, raw[":names"])
	assert.EqualValues(t, 3, raw[":version"])
	usageSheet := raw["usage"].(map[string]any)
	firstRow := usageSheet["data"].([]any)[0].(map[string]any)
	assert.Equal(t, `["h1","h2"]`, firstRow["hashes"])

	// Each load opens the object again.
	for _, key := range []string{indexKey, indexKey, metaKey} {
		mockClient.On("GetObject", mock.Anything, testBucket, key, mock.Anything).
			Return(io.NopCloser(bytes.NewReader(objects[key])), nil).Once()
	}

	gotEntries, err := store.LoadEntries(ctx, testSite)
	require.NoError(t, err)
	assert.Equal(t, entries, gotEntries)

	gotUsage, err := store.LoadUsage(ctx, testSite)
	require.NoError(t, err)
	assert.Equal(t, usage, gotUsage)

	gotMeta, err := store.LoadMeta(ctx, testSite)
	require.NoError(t, err)
	assert.Equal(t, meta, *gotMeta)
}

func TestObjectStore_NotFound(t *testing.T) {
	mockClient := new(mocks.Client)
	store := NewObjectStore(mockClient, testBucket, ".media-index")
	ctx := context.Background()

	mockClient.On("GetObject", mock.Anything, testBucket, metaKey, mock.Anything).Return(nil, errNoSuchKey)
	mockClient.On("GetObject", mock.Anything, testBucket, indexKey, mock.Anything).
		Return(io.NopCloser(&failingReader{err: errNoSuchKey}), nil)
	mockClient.On("StatObject", mock.Anything, testBucket, indexKey, mock.Anything).
		Return(minio.ObjectInfo{}, errNoSuchKey)

	_, err := store.LoadMeta(ctx, testSite)
	assert.True(t, IsNotFound(err))

	_, err = store.LoadEntries(ctx, testSite)
	assert.True(t, IsNotFound(err))

	_, err = store.LastModified(ctx, testSite)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestObjectStore_LastModified(t *testing.T) {
	mockClient := new(mocks.Client)
	store := NewObjectStore(mockClient, testBucket, ".media-index")
	modified := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mockClient.On("StatObject", mock.Anything, testBucket, indexKey, mock.Anything).
		Return(minio.ObjectInfo{Key: indexKey, LastModified: modified}, nil)

	got, err := store.LastModified(context.Background(), testSite)
	require.NoError(t, err)
	assert.Equal(t, modified, got)
}

func TestObjectStore_Lock(t *testing.T) {
	mockClient := new(mocks.Client)
	store := NewObjectStore(mockClient, testBucket, ".media-index")
	ctx := context.Background()

	var written []byte
	mockClient.On("PutObject", mock.Anything, testBucket, lockKey, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written, _ = io.ReadAll(args.Get(3).(io.Reader))
		}).Return(minio.UploadInfo{}, nil)
	mockClient.On("RemoveObject", mock.Anything, testBucket, lockKey, mock.Anything).Return(nil)

	require.NoError(t, store.WriteLock(ctx, testSite, Lock{Timestamp: 42, Locked: true, Owner: "b1"}))
	assert.JSONEq(t, `{"timestamp":42,"locked":true,"owner":"b1"}`, string(written))

	mockClient.On("GetObject", mock.Anything, testBucket, lockKey, mock.Anything).
		Return(io.NopCloser(bytes.NewReader(written)), nil)
	lock, err := store.ReadLock(ctx, testSite)
	require.NoError(t, err)
	assert.Equal(t, &Lock{Timestamp: 42, Locked: true, Owner: "b1"}, lock)

	require.NoError(t, store.DeleteLock(ctx, testSite))
	mockClient.AssertExpectations(t)
}

func TestObjectStore_DeleteLockErrors(t *testing.T) {
	mockClient := new(mocks.Client)
	store := NewObjectStore(mockClient, testBucket, ".media-index")

	mockClient.On("RemoveObject", mock.Anything, testBucket, lockKey, mock.Anything).Return(errors.New("denied")).Once()
	assert.ErrorContains(t, store.DeleteLock(context.Background(), testSite), "denied")

	mockClient.On("RemoveObject", mock.Anything, testBucket, lockKey, mock.Anything).Return(errNoSuchKey).Once()
	assert.NoError(t, store.DeleteLock(context.Background(), testSite))
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
