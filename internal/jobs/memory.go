package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/models"
	"github.com/google/uuid"
)

// MemoryTracker keeps jobs for the life of the process.
type MemoryTracker struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
	now  func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		jobs: make(map[string]*models.Job),
		now:  time.Now,
	}
}

func (t *MemoryTracker) Start(_ context.Context, job *models.Job) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := *job
	stored.ID = uuid.NewString()
	if stored.Status == "" {
		stored.Status = models.StatusReceived
	}
	stored.CreatedAt = t.now()
	stored.UpdatedAt = stored.CreatedAt
	t.jobs[stored.ID] = &stored
	return stored.ID, nil
}

func (t *MemoryTracker) update(id string, fn func(*models.Job)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	fn(job)
	job.UpdatedAt = t.now()
	return nil
}

func (t *MemoryTracker) SetStatus(_ context.Context, id, status string) error {
	return t.update(id, func(j *models.Job) { j.Status = status })
}

func (t *MemoryTracker) Complete(_ context.Context, id, outputName string, steps []models.AgentStep) error {
	return t.update(id, func(j *models.Job) {
		j.Status = models.StatusCompleted
		j.OutputName = outputName
		j.Steps = append([]models.AgentStep(nil), steps...)
	})
}

func (t *MemoryTracker) Fail(_ context.Context, id, details string, steps []models.AgentStep) error {
	return t.update(id, func(j *models.Job) {
		j.Status = models.StatusFailed
		j.ErrorDetails = details
		j.Steps = append([]models.AgentStep(nil), steps...)
	})
}

func (t *MemoryTracker) Get(_ context.Context, id string) (*models.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

// FindByHash ignores failed jobs.
func (t *MemoryTracker) FindByHash(_ context.Context, fileHash string) (*models.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matches []models.Job
	for _, job := range t.jobs {
		if job.FileHash == fileHash {
			matches = append(matches, *job)
		}
	}
	return firstActive(matches), nil
}
