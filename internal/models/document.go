package models

import "time"

// Document represents the Firestore mirror of a processed borderô. The summary
// CSV stays the store of record; this copy only serves dashboards and audits.
type Document struct {
	DocumentID   string            `firestore:"documentId"`
	Status       string            `firestore:"status"`
	ErrorDetails string            `firestore:"errorDetails,omitempty"`
	PDFPath      string            `firestore:"pdfPath,omitempty"`
	Summary      map[string]string `firestore:"summary,omitempty"`
	RunID        string            `firestore:"runId,omitempty"` // For traceability
	UpdatedAt    time.Time         `firestore:"updatedAt"`
}
