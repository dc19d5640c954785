package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient opens the default database of the project that keeps the
// balance sheet job records. The bucket trigger looks up input hashes there
// before paying for a run, and the web app records each upload's phases.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("PROJECT_ID must be set to track jobs in Firestore")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client for job records: %w", err)
	}
	return client, nil
}
