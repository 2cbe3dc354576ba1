package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joaovfcarvalho/robo-bordero/internal/models"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

// FileCache stores entries as <dir>/<id>.json.
type FileCache struct {
	dir string
	log *logger.Logger
}

func NewFileCache(dir string, log *logger.Logger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FileCache{dir: dir, log: log}, nil
}

func (c *FileCache) path(id string) string {
	return filepath.Join(c.dir, id+".json")
}

func (c *FileCache) Get(_ context.Context, id string) (*models.BorderoExtract, bool) {
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("Failed to read cache entry", "documentId", id, "error", err)
		}
		return nil, false
	}
	return decode(c.log, id, data)
}

func (c *FileCache) Put(_ context.Context, id string, extract *models.BorderoExtract) error {
	data, err := json.MarshalIndent(extract, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(c.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file for %s: %w", id, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache entry %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache entry %s: %w", id, err)
	}
	if err := os.Rename(tmpName, c.path(id)); err != nil {
		return fmt.Errorf("failed to commit cache entry %s: %w", id, err)
	}
	return nil
}

// decode treats anything that is not a JSON object of the expected shape as a miss.
func decode(log *logger.Logger, id string, data []byte) (*models.BorderoExtract, bool) {
	var extract models.BorderoExtract
	if err := json.Unmarshal(data, &extract); err != nil {
		log.Warn("Ignoring corrupt cache entry", "documentId", id, "error", err)
		return nil, false
	}
	return &extract, true
}
