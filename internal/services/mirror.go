package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/joaovfcarvalho/robo-bordero/internal/models"
)

// StatusMirror copies summary records to a Firestore collection, one document
// per borderô keyed by its identifier. Writes are Sets, so mirroring the same
// record twice is harmless.
type StatusMirror struct {
	collection *firestore.CollectionRef
}

func NewStatusMirror(client *firestore.Client, collectionName string) *StatusMirror {
	return &StatusMirror{collection: client.Collection(collectionName)}
}

func (m *StatusMirror) Record(ctx context.Context, runID string, rec models.SummaryRecord) error {
	doc := mirrorDocument(runID, rec, time.Now())
	if _, err := m.collection.Doc(rec.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to mirror %s to firestore: %w", rec.ID, err)
	}
	return nil
}

func mirrorDocument(runID string, rec models.SummaryRecord, now time.Time) models.Document {
	return models.Document{
		DocumentID:   rec.ID,
		Status:       string(rec.Status),
		ErrorDetails: rec.ErrorLog,
		PDFPath:      rec.PDFPath,
		Summary:      rec.ToRow(),
		RunID:        runID,
		UpdatedAt:    now,
	}
}
