package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/joaovfcarvalho/robo-bordero/internal/gcp"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

// GCSCache stores entries as gs://<bucket>/<prefix>/<id>.json, which lets the
// CLI and the cloud functions share one cache.
type GCSCache struct {
	bucket *storage.BucketHandle
	prefix string
	log    *logger.Logger

	mu sync.Mutex
	// index holds the ids present in the bucket once Preload succeeded; nil
	// means unknown and every Get goes to GCS.
	index map[string]struct{}
}

func NewGCSCache(client *storage.Client, bucketName, prefix string, log *logger.Logger) *GCSCache {
	if prefix == "" {
		prefix = "cache"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GCSCache{bucket: client.Bucket(bucketName), prefix: prefix, log: log}
}

func (c *GCSCache) objectName(id string) string {
	return path.Join(c.prefix, id+".json")
}

// Preload lists the cache prefix once so that misses no longer cost a GET per
// document. It returns the number of entries found.
func (c *GCSCache) Preload(ctx context.Context) (int, error) {
	index := make(map[string]struct{})
	it := c.bucket.Objects(ctx, &storage.Query{Prefix: c.prefix + "/"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to list cache objects under %s: %w", c.prefix, err)
		}
		if id, ok := idFromObject(c.prefix, attrs.Name); ok {
			index[id] = struct{}{}
		}
	}
	c.mu.Lock()
	c.index = index
	c.mu.Unlock()
	return len(index), nil
}

// idFromObject is the inverse of objectName.
func idFromObject(prefix, name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, prefix+"/")
	if !ok || strings.Contains(rest, "/") {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, ".json")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (c *GCSCache) known(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		return true
	}
	_, ok := c.index[id]
	return ok
}

func (c *GCSCache) Get(ctx context.Context, id string) (*models.BorderoExtract, bool) {
	if !c.known(id) {
		return nil, false
	}
	data, err := gcp.ReadGCSObject(ctx, c.bucket, c.objectName(id))
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotExist) {
			c.log.Warn("Failed to read cache object", "documentId", id, "object", c.objectName(id), "error", err)
		}
		return nil, false
	}
	return decode(c.log, id, data)
}

func (c *GCSCache) Put(ctx context.Context, id string, extract *models.BorderoExtract) error {
	data, err := json.Marshal(extract)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", id, err)
	}
	if err := gcp.OverwriteGCSObject(ctx, c.bucket, c.objectName(id), "application/json", bytes.NewReader(data)); err != nil {
		return err
	}
	c.mu.Lock()
	if c.index != nil {
		c.index[id] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}
