package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient returns the client behind the borderô status mirror,
// which keeps one document per processed borderô for dashboards that cannot
// read the CSV stores.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewFirestoreClient: PROJECT_ID is required for the status mirror")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client for project %s: %w", projectID, err)
	}
	return client, nil
}
