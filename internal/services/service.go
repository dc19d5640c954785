package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/jobs"
	"github.com/adityasasidhar/Document-ocr/internal/models"
	"github.com/adityasasidhar/Document-ocr/internal/render"
	"github.com/adityasasidhar/Document-ocr/internal/storage"
)

// Upload is one file from the upload form.
type Upload struct {
	Filename string
	// Size is the declared size in bytes; negative when unknown.
	Size    int64
	Content io.Reader
}

// ValidationError is a problem with the request itself. Message is shown to
// the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Limits struct {
	MaxFiles    int
	MaxFileSize int64
}

// Outcome describes a run. Telemetry is filled in even when Process fails.
type Outcome struct {
	JobID      string
	OutputName string
	TextName   string
	Text       string
	Telemetry  *Telemetry
}

// OutputName is the generated PDF for a session.
func OutputName(sessionID string) string {
	return sessionID + "_bilancio.pdf"
}

// TextName is the plain-text backup for a session.
func TextName(sessionID string) string {
	return sessionID + "_bilancio.txt"
}

// BalanceSheetService runs an upload from the web form through the
// generator and stores the result for download.
type BalanceSheetService struct {
	generator *Generator
	uploads   *storage.LocalStore
	outputs   storage.Store
	tracker   jobs.Tracker
	limits    Limits
	now       func() time.Time
}

func NewBalanceSheetService(generator *Generator, uploads *storage.LocalStore, outputs storage.Store, tracker jobs.Tracker, limits Limits) *BalanceSheetService {
	return &BalanceSheetService{
		generator: generator,
		uploads:   uploads,
		outputs:   outputs,
		tracker:   tracker,
		limits:    limits,
		now:       time.Now,
	}
}

func (s *BalanceSheetService) Limits() Limits {
	return s.limits
}

// ValidateUploads checks the count, extension and declared size of every
// file before anything is written.
func (s *BalanceSheetService) ValidateUploads(uploads []Upload) error {
	if len(uploads) == 0 || uploads[0].Filename == "" {
		return &ValidationError{Message: "No files selected. Please choose at least one PDF file."}
	}
	if len(uploads) > s.limits.MaxFiles {
		return &ValidationError{Message: fmt.Sprintf("Too many files. Maximum %d files allowed.", s.limits.MaxFiles)}
	}
	for _, u := range uploads {
		if !allowedFile(u.Filename) {
			return &ValidationError{Message: fmt.Sprintf("Invalid file type: %s. Only PDF files are allowed.", u.Filename)}
		}
		if u.Size > s.limits.MaxFileSize {
			return s.tooLarge(u.Filename, u.Size)
		}
	}
	return nil
}

func (s *BalanceSheetService) tooLarge(filename string, size int64) error {
	return &ValidationError{Message: fmt.Sprintf("File %s is too large (%.1fMB). Maximum size is %.0fMB.",
		filename, float64(size)/(1024*1024), float64(s.limits.MaxFileSize)/(1024*1024))}
}

func allowedFile(filename string) bool {
	ext := filepath.Ext(filename)
	return ext != "" && strings.EqualFold(ext, ".pdf")
}

// Process saves the uploads, generates the balance sheet, renders it and
// stores the PDF and its text backup under the session's output names.
// Uploads are removed only when everything succeeded.
func (s *BalanceSheetService) Process(ctx context.Context, sessionID string, uploads []Upload, tel *Telemetry) (*Outcome, error) {
	if tel == nil {
		tel = NewTelemetry()
	}
	outcome := &Outcome{Telemetry: tel}
	logCtx := slog.With("sessionId", sessionID)

	if err := s.ValidateUploads(uploads); err != nil {
		return outcome, err
	}

	saved, docs, err := s.saveUploads(ctx, logCtx, sessionID, uploads)
	if err != nil {
		if len(saved) > 0 {
			logCtx.Warn("Uploaded files preserved for debugging.", "files", saved)
		}
		return outcome, err
	}
	tel.Log(fmt.Sprintf("Saved %d file(s) to disk.", len(saved)))
	tel.Step("Files uploaded and saved")

	hashes := make([]string, len(docs))
	filenames := make([]string, len(uploads))
	for i, d := range docs {
		hashes[i] = d.Hash
		filenames[i] = uploads[i].Filename
	}
	jobID, err := s.tracker.Start(ctx, &models.Job{
		SessionID:  sessionID,
		Source:     "web",
		Filenames:  filenames,
		FileHashes: hashes,
		FileHash:   CombinedHash(docs),
		Status:     models.StatusReceived,
	})
	if err != nil {
		logCtx.Error("Failed to create job record", "error", err)
		return outcome, fmt.Errorf("failed to create job record: %w", err)
	}
	outcome.JobID = jobID
	logCtx = logCtx.With("jobId", jobID)

	if err := s.run(ctx, logCtx, sessionID, docs, outcome); err != nil {
		s.handleError(ctx, logCtx, jobID, tel, err)
		logCtx.Warn("Uploaded files preserved for debugging.", "files", saved)
		return outcome, err
	}

	if err := s.tracker.Complete(ctx, jobID, outcome.OutputName, tel.Steps); err != nil {
		logCtx.Warn("Failed to mark job completed", "error", err)
	}
	for _, name := range saved {
		if err := s.uploads.Delete(ctx, name); err != nil {
			logCtx.Warn("Could not clean up uploaded file", "file", name, "error", err)
		}
	}
	logCtx.Info("Balance sheet generated.", "output", outcome.OutputName)
	return outcome, nil
}

func (s *BalanceSheetService) run(ctx context.Context, logCtx *slog.Logger, sessionID string, docs []Document, outcome *Outcome) error {
	tel := outcome.Telemetry

	tel.Log("Sending documents to Claude for analysis...")
	result, err := s.generator.GenerateDocuments(ctx, docs, s.phaseHook(logCtx, outcome.JobID))
	if err != nil {
		return err
	}
	outcome.Text = result.Text
	tel.Step("AI analysis (Claude)")
	tel.Log("Received structured balance sheet from Claude.")

	s.setStatus(ctx, logCtx, outcome.JobID, models.StatusRendering)
	pdf, err := render.Bytes(result.Text, s.now())
	if err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	outputName := OutputName(sessionID)
	if err := s.outputs.Save(ctx, outputName, pdf, pdfMediaType); err != nil {
		return fmt.Errorf("failed to save PDF: %w", err)
	}
	outcome.OutputName = outputName
	tel.Step("PDF generation")
	tel.Log(fmt.Sprintf("PDF generated at %s.", s.outputs.Location(outputName)))

	textName := TextName(sessionID)
	if err := s.outputs.Save(ctx, textName, []byte(result.Text), "text/plain; charset=utf-8"); err != nil {
		return fmt.Errorf("failed to save text backup: %w", err)
	}
	outcome.TextName = textName
	tel.Step("Save text backup")
	tel.Log(fmt.Sprintf("Saved text backup at %s.", s.outputs.Location(textName)))

	tel.Step("Finalize & prepare download")
	tel.Log("Finalized processing and prepared download link.")
	return nil
}

// saveUploads writes each upload as <sessionID>_<secure name> and returns
// the stored names alongside the parsed documents.
func (s *BalanceSheetService) saveUploads(ctx context.Context, logCtx *slog.Logger, sessionID string, uploads []Upload) ([]string, []Document, error) {
	saved := make([]string, 0, len(uploads))
	docs := make([]Document, 0, len(uploads))
	for _, u := range uploads {
		data, err := io.ReadAll(io.LimitReader(u.Content, s.limits.MaxFileSize+1))
		if err != nil {
			return saved, nil, fmt.Errorf("failed to read upload %s: %w", u.Filename, err)
		}
		if int64(len(data)) > s.limits.MaxFileSize {
			return saved, nil, s.tooLarge(u.Filename, int64(len(data)))
		}

		filename := SecureFilename(u.Filename)
		if filename == "" {
			filename = "document.pdf"
		}
		name := sessionID + "_" + filename
		if err := s.uploads.Save(ctx, name, data, pdfMediaType); err != nil {
			logCtx.Error("Error saving file", "file", name, "dir", s.uploads.Dir(), "writable", storage.Writable(s.uploads.Dir()), "error", err)
			return saved, nil, fmt.Errorf("Could not save file %s. Please try again.", filename)
		}
		saved = append(saved, name)

		doc, err := NewDocument(u.Filename, data)
		if err != nil {
			return saved, nil, &ValidationError{Message: err.Error()}
		}
		doc.Name = name
		docs = append(docs, doc)
	}
	return saved, docs, nil
}

func (s *BalanceSheetService) phaseHook(logCtx *slog.Logger, jobID string) PhaseHook {
	return func(ctx context.Context, status string) {
		s.setStatus(ctx, logCtx, jobID, status)
	}
}

func (s *BalanceSheetService) setStatus(ctx context.Context, logCtx *slog.Logger, jobID, status string) {
	logCtx.Info("Job status changed.", "status", status)
	if err := s.tracker.SetStatus(ctx, jobID, status); err != nil {
		logCtx.Warn("Failed to update job status", "status", status, "error", err)
	}
}

func (s *BalanceSheetService) handleError(ctx context.Context, logCtx *slog.Logger, jobID string, tel *Telemetry, originalErr error) {
	logCtx.Error("Balance sheet generation failed", "error", originalErr)
	// The request context may already be cancelled; the record still has to
	// say FAILED.
	if err := s.tracker.Fail(context.WithoutCancel(ctx), jobID, originalErr.Error(), tel.Steps); err != nil {
		logCtx.Error("CRITICAL: Failed to mark job FAILED after a processing error.", "updateError", err)
	}
}

// IsValidationError reports whether err is a user input problem.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
