package jobs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/adityasasidhar/Document-ocr/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreTracker stores one document per job in a collection.
type FirestoreTracker struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreTracker(client *firestore.Client, collection string) *FirestoreTracker {
	return &FirestoreTracker{client: client, collection: collection}
}

func (t *FirestoreTracker) Start(ctx context.Context, job *models.Job) (string, error) {
	record := *job
	if record.Status == "" {
		record.Status = models.StatusReceived
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	docRef, _, err := t.client.Collection(t.collection).Add(ctx, record)
	if err != nil {
		return "", fmt.Errorf("failed to create job document: %w", err)
	}
	return docRef.ID, nil
}

func (t *FirestoreTracker) update(ctx context.Context, id string, updates ...firestore.Update) error {
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now()})
	if _, err := t.client.Collection(t.collection).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	return nil
}

func (t *FirestoreTracker) SetStatus(ctx context.Context, id, status string) error {
	return t.update(ctx, id, firestore.Update{Path: "status", Value: status})
}

func (t *FirestoreTracker) Complete(ctx context.Context, id, outputName string, steps []models.AgentStep) error {
	return t.update(ctx, id,
		firestore.Update{Path: "status", Value: models.StatusCompleted},
		firestore.Update{Path: "outputName", Value: outputName},
		firestore.Update{Path: "steps", Value: steps},
	)
}

func (t *FirestoreTracker) Fail(ctx context.Context, id, details string, steps []models.AgentStep) error {
	return t.update(ctx, id,
		firestore.Update{Path: "status", Value: models.StatusFailed},
		firestore.Update{Path: "errorDetails", Value: details},
		firestore.Update{Path: "steps", Value: steps},
	)
}

func (t *FirestoreTracker) Get(ctx context.Context, id string) (*models.Job, error) {
	snap, err := t.client.Collection(t.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	var job models.Job
	if err := snap.DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	job.ID = snap.Ref.ID
	return &job, nil
}

// FindByHash needs only the single-field index on fileHash. Failed jobs
// are dropped after the query.
func (t *FirestoreTracker) FindByHash(ctx context.Context, fileHash string) (*models.Job, error) {
	docs, err := t.client.Collection(t.collection).
		Where("fileHash", "==", fileHash).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	found := make([]models.Job, 0, len(docs))
	for _, doc := range docs {
		var job models.Job
		if err := doc.DataTo(&job); err != nil {
			return nil, fmt.Errorf("failed to decode job %s: %w", doc.Ref.ID, err)
		}
		job.ID = doc.Ref.ID
		found = append(found, job)
	}
	return firstActive(found), nil
}
