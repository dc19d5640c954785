// Package jobs records the progress of balance sheet runs.
package jobs

import (
	"context"
	"errors"

	"github.com/adityasasidhar/Document-ocr/internal/models"
)

var ErrJobNotFound = errors.New("job not found")

// Tracker persists job records. FindByHash returns nil, nil when no job with
// that input hash exists.
type Tracker interface {
	Start(ctx context.Context, job *models.Job) (string, error)
	SetStatus(ctx context.Context, id, status string) error
	Complete(ctx context.Context, id, outputName string, steps []models.AgentStep) error
	Fail(ctx context.Context, id, details string, steps []models.AgentStep) error
	Get(ctx context.Context, id string) (*models.Job, error)
	FindByHash(ctx context.Context, fileHash string) (*models.Job, error)
}

// firstActive returns the first job that has not failed. A failed input may
// be submitted again.
func firstActive(jobs []models.Job) *models.Job {
	for i := range jobs {
		if jobs[i].Status != models.StatusFailed {
			return &jobs[i]
		}
	}
	return nil
}
