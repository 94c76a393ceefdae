package indexstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"media-index/core/media"
	"media-index/core/storage"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
)

// Object names under {prefix}/{site}/.
const (
	IndexObject = "media-index.json"
	MetaObject  = "media-index-meta.json"
	LockObject  = "media-index-lock.json"

	sheetVersion = 3
	sheetType    = "multi-sheet"
	sheetMedia   = "media"
	sheetUsage   = "usage"
)

// sheet is one table of a multi-sheet document.
type sheet[T any] struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Data   []T `json:"data"`
}

// usageCell is a usage row as stored: hashes is a JSON array in a string cell.
type usageCell struct {
	Page   string `json:"page"`
	Hashes string `json:"hashes"`
}

type sheetDocument struct {
	Names   []string           `json:":names"`
	Version int                `json:":version"`
	Type    string             `json:":type"`
	Media   sheet[media.Entry] `json:"media"`
	Usage   sheet[usageCell]   `json:"usage"`
}

// ObjectStore keeps each site's index as JSON objects in a storage bucket.
type ObjectStore struct {
	client storage.Client
	bucket string
	prefix string
}

// NewObjectStore creates an object store.
func NewObjectStore(client storage.Client, bucket, prefix string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, prefix: prefix}
}

// ObjectKey returns the key of a per-site object.
func (s *ObjectStore) ObjectKey(site media.Site, name string) string {
	return path.Join(s.prefix, site.ID, name)
}

// LoadEntries reads the media sheet.
func (s *ObjectStore) LoadEntries(ctx context.Context, site media.Site) ([]media.Entry, error) {
	doc, err := s.loadDocument(ctx, site)
	if err != nil {
		return nil, err
	}
	return doc.Media.Data, nil
}

// LoadUsage reads the usage sheet.
func (s *ObjectStore) LoadUsage(ctx context.Context, site media.Site) ([]UsagePage, error) {
	doc, err := s.loadDocument(ctx, site)
	if err != nil {
		return nil, err
	}
	usage := make([]UsagePage, 0, len(doc.Usage.Data))
	for _, cell := range doc.Usage.Data {
		var hashes []string
		if cell.Hashes != "" {
			if err := json.Unmarshal([]byte(cell.Hashes), &hashes); err != nil {
				return nil, fmt.Errorf("failed to decode hashes of %s: %w", cell.Page, err)
			}
		}
		usage = append(usage, UsagePage{Page: cell.Page, Hashes: hashes})
	}
	return usage, nil
}

// LoadMeta reads the metadata record.
func (s *ObjectStore) LoadMeta(ctx context.Context, site media.Site) (*Meta, error) {
	var meta Meta
	if err := s.getJSON(ctx, s.ObjectKey(site, MetaObject), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SaveIndex writes the sheet document, then the metadata record.
func (s *ObjectStore) SaveIndex(ctx context.Context, site media.Site, entries []media.Entry, usage []UsagePage, meta Meta) error {
	if entries == nil {
		entries = []media.Entry{}
	}
	cells := make([]usageCell, 0, len(usage))
	for _, u := range usage {
		hashes := u.Hashes
		if hashes == nil {
			hashes = []string{}
		}
		encoded, err := json.Marshal(hashes)
		if err != nil {
			return fmt.Errorf("failed to encode hashes of %s: %w", u.Page, err)
		}
		cells = append(cells, usageCell{Page: u.Page, Hashes: string(encoded)})
	}

	doc := sheetDocument{
		Names:   []string{sheetMedia, sheetUsage},
		Version: sheetVersion,
		Type:    sheetType,
		Media:   sheet[media.Entry]{Total: len(entries), Limit: len(entries), Data: entries},
		Usage:   sheet[usageCell]{Total: len(cells), Limit: len(cells), Data: cells},
	}

	if err := s.putJSON(ctx, s.ObjectKey(site, IndexObject), doc); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	if err := s.putJSON(ctx, s.ObjectKey(site, MetaObject), meta); err != nil {
		return fmt.Errorf("failed to save index metadata: %w", err)
	}
	return nil
}

// LastModified stats the sheet document.
func (s *ObjectStore) LastModified(ctx context.Context, site media.Site) (time.Time, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.ObjectKey(site, IndexObject), minio.StatObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("failed to stat index: %w", err)
	}
	return info.LastModified, nil
}

// ReadLock reads the lock record.
func (s *ObjectStore) ReadLock(ctx context.Context, site media.Site) (*Lock, error) {
	var lock Lock
	if err := s.getJSON(ctx, s.ObjectKey(site, LockObject), &lock); err != nil {
		return nil, err
	}
	return &lock, nil
}

// WriteLock writes the lock record.
func (s *ObjectStore) WriteLock(ctx context.Context, site media.Site, lock Lock) error {
	if err := s.putJSON(ctx, s.ObjectKey(site, LockObject), lock); err != nil {
		return fmt.Errorf("failed to write lock: %w", err)
	}
	return nil
}

// DeleteLock removes the lock record.
func (s *ObjectStore) DeleteLock(ctx context.Context, site media.Site) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.ObjectKey(site, LockObject), minio.RemoveObjectOptions{})
	if err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("failed to delete lock: %w", err)
	}
	return nil
}

func (s *ObjectStore) loadDocument(ctx context.Context, site media.Site) (*sheetDocument, error) {
	var doc sheetDocument
	if err := s.getJSON(ctx, s.ObjectKey(site, IndexObject), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// getJSON decodes an object into v. The storage client opens objects lazily,
// so a missing key may only surface while reading.
func (s *ObjectStore) getJSON(ctx context.Context, key string, v any) error {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStore) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
