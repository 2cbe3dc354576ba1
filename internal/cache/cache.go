// Package cache keeps the raw successful extraction results keyed by document
// identifier, so a document already answered by the model is never sent again.
//
// The cache is advisory. A miss or a corrupt entry is reported as "not
// cached" and writes are best-effort; the summary store stays the authority
// on what has been processed.
package cache

import (
	"context"

	"github.com/joaovfcarvalho/robo-bordero/internal/models"
)

type Cache interface {
	// Get returns the cached extraction for id, or false on a miss or a
	// corrupt entry.
	Get(ctx context.Context, id string) (*models.BorderoExtract, bool)
	// Put stores extract under id, replacing any previous entry.
	Put(ctx context.Context, id string, extract *models.BorderoExtract) error
}
