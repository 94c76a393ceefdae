package checks

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"media-index/core/indexstore"
	"media-index/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// StorageReport describes the index bucket.
type StorageReport struct {
	Bucket string   `json:"bucket"`
	Exists bool     `json:"exists"`
	Prefix string   `json:"prefix"`
	Sites  []string `json:"sites"`
}

// CheckStorage verifies that the bucket exists and lists the sites that have
// a persisted index under prefix.
func CheckStorage(ctx context.Context, client storage.Client, bucket, prefix string) (*StorageReport, error) {
	report := &StorageReport{Bucket: bucket, Prefix: prefix, Sites: []string{}}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report.Exists = exists
	if !exists {
		return report, nil
	}

	listPrefix := strings.Trim(prefix, "/")
	if listPrefix != "" {
		listPrefix += "/"
	}
	opts := minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: true,
	}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list index objects: %w", obj.Err)
		}
		if path.Base(obj.Key) != indexstore.IndexObject {
			continue
		}
		site := strings.TrimPrefix(path.Dir(obj.Key), listPrefix)
		report.Sites = append(report.Sites, site)
	}
	sort.Strings(report.Sites)
	return report, nil
}

// FixStorage creates the bucket.
func FixStorage(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger) error {
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		logger.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	logger.Info("Created missing bucket", zap.String("bucket", bucket))
	return nil
}
