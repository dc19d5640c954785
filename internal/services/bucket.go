package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/gcp"
	"github.com/adityasasidhar/Document-ocr/internal/jobs"
	"github.com/adityasasidhar/Document-ocr/internal/models"
	"github.com/adityasasidhar/Document-ocr/internal/render"
)

// ObjectStore reads source objects and writes outputs that must not be
// overwritten.
type ObjectStore interface {
	Read(ctx context.Context, bucket, name string, maxBytes int64) ([]byte, error)
	Exists(ctx context.Context, bucket, name string) (bool, error)
	WriteOnce(ctx context.Context, bucket, name string, data []byte, contentType string) error
}

// WorkflowTrigger hands a finished job to a follow-up workflow.
type WorkflowTrigger interface {
	TriggerWorkflow(ctx context.Context, payload any) (string, error)
}

type BucketConfig struct {
	OutputBucket string
	MaxFileSize  int64
}

// BucketFunction generates a balance sheet for every PDF finalized in a
// bucket. Outputs are named after the input hash, so redelivered events are
// harmless.
type BucketFunction struct {
	generator *Generator
	objects   ObjectStore
	tracker   jobs.Tracker
	workflow  WorkflowTrigger
	config    BucketConfig
	now       func() time.Time
}

// NewBucketFunction wires the trigger; workflow may be nil.
func NewBucketFunction(generator *Generator, objects ObjectStore, tracker jobs.Tracker, workflow WorkflowTrigger, config BucketConfig) *BucketFunction {
	return &BucketFunction{
		generator: generator,
		objects:   objects,
		tracker:   tracker,
		workflow:  workflow,
		config:    config,
		now:       time.Now,
	}
}

const outputPrefix = "bilanci/"

func outputObjects(fileHash string) (pdfName, textName string) {
	return outputPrefix + fileHash + ".pdf", outputPrefix + fileHash + ".txt"
}

// isOwnOutput reports whether the event is for a file this function wrote.
func (f *BucketFunction) isOwnOutput(e models.GCSEvent) bool {
	return e.Bucket == f.config.OutputBucket && strings.HasPrefix(e.Name, outputPrefix)
}

// ProcessFile handles one object-finalized event.
func (f *BucketFunction) ProcessFile(ctx context.Context, e models.GCSEvent) (*models.BucketResult, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	if !allowedFile(e.Name) {
		logCtx.Info("Not a PDF. Skipping.")
		return &models.BucketResult{Status: "SKIPPED"}, nil
	}
	if f.isOwnOutput(e) {
		logCtx.Info("Generated balance sheet. Skipping.")
		return &models.BucketResult{Status: "SKIPPED"}, nil
	}

	data, err := f.objects.Read(ctx, e.Bucket, e.Name, f.config.MaxFileSize)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return nil, err
	}
	doc, err := NewDocument(path.Base(e.Name), data)
	if err != nil {
		logCtx.Error("Source object is not a usable PDF", "error", err)
		return nil, err
	}
	logCtx = logCtx.With("fileHash", doc.Hash)

	pdfName, textName := outputObjects(doc.Hash)
	result := &models.BucketResult{
		OutputURI: gcp.ObjectURI(f.config.OutputBucket, pdfName),
		TextURI:   gcp.ObjectURI(f.config.OutputBucket, textName),
	}

	existing, err := f.tracker.FindByHash(ctx, doc.Hash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return nil, err
	}
	if existing != nil {
		logCtx.Info("Duplicate file detected. Skipping.", "existingJobId", existing.ID)
		result.JobID = existing.ID
		result.Status = existing.Status
		return result, nil
	}

	jobID, err := f.tracker.Start(ctx, &models.Job{
		Source:     gcp.ObjectURI(e.Bucket, e.Name),
		Filenames:  []string{e.Name},
		FileHashes: []string{doc.Hash},
		FileHash:   doc.Hash,
		Status:     models.StatusReceived,
	})
	if err != nil {
		logCtx.Error("Failed to create job record", "error", err)
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}
	result.JobID = jobID
	logCtx = logCtx.With("jobId", jobID)
	logCtx.Info("Created job record.")

	tel := NewTelemetry()
	done, err := f.outputsExist(ctx, pdfName, textName)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, tel, "failed to check for existing outputs", err)
	}
	if done {
		// A previous attempt got as far as the hand-off.
		logCtx.Info("Outputs already exist. Skipping generation.")
	} else if err := f.generate(ctx, logCtx, jobID, tel, doc, pdfName, textName); err != nil {
		return nil, err
	}

	result.Status = models.StatusCompleted
	if f.workflow != nil {
		execution, err := f.workflow.TriggerWorkflow(ctx, result)
		if err != nil {
			return nil, f.handleError(ctx, logCtx, jobID, tel, "failed to trigger workflow execution", err)
		}
		logCtx.Info("Hand-off to workflow complete.", "execution", execution)
	}
	if err := f.tracker.Complete(ctx, jobID, result.OutputURI, tel.Steps); err != nil {
		logCtx.Warn("Failed to mark job completed", "error", err)
	}

	logCtx.Info("Balance sheet generated.", "output", result.OutputURI)
	return result, nil
}

func (f *BucketFunction) outputsExist(ctx context.Context, names ...string) (bool, error) {
	for _, name := range names {
		ok, err := f.objects.Exists(ctx, f.config.OutputBucket, name)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// generate runs the model phases and writes the PDF and its text backup.
func (f *BucketFunction) generate(ctx context.Context, logCtx *slog.Logger, jobID string, tel *Telemetry, doc Document, pdfName, textName string) error {
	generated, err := f.generator.GenerateDocuments(ctx, []Document{doc}, func(ctx context.Context, status string) {
		if err := f.tracker.SetStatus(ctx, jobID, status); err != nil {
			logCtx.Warn("Failed to update job status", "status", status, "error", err)
		}
	})
	if err != nil {
		return f.handleError(ctx, logCtx, jobID, tel, "failed to generate balance sheet", err)
	}
	tel.Step("AI analysis (Claude)")

	if err := f.tracker.SetStatus(ctx, jobID, models.StatusRendering); err != nil {
		logCtx.Warn("Failed to update job status", "status", models.StatusRendering, "error", err)
	}
	pdf, err := render.Bytes(generated.Text, f.now())
	if err != nil {
		return f.handleError(ctx, logCtx, jobID, tel, "failed to render PDF", err)
	}
	if err := f.objects.WriteOnce(ctx, f.config.OutputBucket, pdfName, pdf, pdfMediaType); err != nil {
		return f.handleError(ctx, logCtx, jobID, tel, "failed to save PDF", err)
	}
	tel.Step("PDF generation")
	if err := f.objects.WriteOnce(ctx, f.config.OutputBucket, textName, []byte(generated.Text), "text/plain; charset=utf-8"); err != nil {
		return f.handleError(ctx, logCtx, jobID, tel, "failed to save text backup", err)
	}
	tel.Step("Save text backup")
	return nil
}

func (f *BucketFunction) handleError(ctx context.Context, logCtx *slog.Logger, jobID string, tel *Telemetry, message string, originalErr error) error {
	fullError := fmt.Errorf("%s: %w", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.tracker.Fail(context.WithoutCancel(ctx), jobID, fullError.Error(), tel.Steps); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", err)
	}
	return fullError
}
