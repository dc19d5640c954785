package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/jobs"
	"github.com/adityasasidhar/Document-ocr/internal/llm"
	"github.com/adityasasidhar/Document-ocr/internal/models"
	"github.com/adityasasidhar/Document-ocr/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	service *BalanceSheetService
	client  *scriptedClient
	uploads *storage.LocalStore
	outputs *storage.LocalStore
	tracker *jobs.MemoryTracker
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		client:  happyClient(),
		uploads: storage.NewLocalStore(t.TempDir()),
		outputs: storage.NewLocalStore(t.TempDir()),
		tracker: jobs.NewMemoryTracker(),
	}
	f.service = NewBalanceSheetService(
		NewGenerator(f.client, testGeneratorConfig),
		f.uploads, f.outputs, f.tracker,
		Limits{MaxFiles: 5, MaxFileSize: 1 << 20},
	)
	f.service.now = func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) }
	return f
}

func upload(name string, data []byte) Upload {
	return Upload{Filename: name, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestValidateUploads(t *testing.T) {
	f := newServiceFixture(t)
	pdf := []byte("%PDF-1.4")

	tests := []struct {
		name    string
		uploads []Upload
		want    string
	}{
		{"none", nil, "No files selected. Please choose at least one PDF file."},
		{"empty filename", []Upload{upload("", pdf)}, "No files selected. Please choose at least one PDF file."},
		{"too many", []Upload{upload("1.pdf", pdf), upload("2.pdf", pdf), upload("3.pdf", pdf), upload("4.pdf", pdf), upload("5.pdf", pdf), upload("6.pdf", pdf)}, "Too many files. Maximum 5 files allowed."},
		{"wrong type", []Upload{upload("a.pdf", pdf), upload("bilancio.docx", pdf)}, "Invalid file type: bilancio.docx. Only PDF files are allowed."},
		{"no extension", []Upload{upload("pdf", pdf)}, "Invalid file type: pdf. Only PDF files are allowed."},
		{"too large", []Upload{{Filename: "big.pdf", Size: 3 << 20}}, "File big.pdf is too large (3.0MB). Maximum size is 1MB."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.service.ValidateUploads(tt.uploads)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.want, verr.Message)
		})
	}

	assert.NoError(t, f.service.ValidateUploads([]Upload{upload("Bilancio.PDF", pdf)}))
}

func TestProcessSuccess(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	outcome, err := f.service.Process(ctx, "abc123", []Upload{
		upload("bilancio 2024.pdf", testPDF(t, 2)),
		upload("nota.pdf", testPDF(t, 1)),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "abc123_bilancio.pdf", outcome.OutputName)
	assert.Equal(t, "abc123_bilancio.txt", outcome.TextName)
	assert.Contains(t, outcome.Text, "TOTALE ATTIVO")

	labels := make([]string, 0, len(outcome.Telemetry.Steps))
	for _, s := range outcome.Telemetry.Steps {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{
		"Files uploaded and saved",
		"AI analysis (Claude)",
		"PDF generation",
		"Save text backup",
		"Finalize & prepare download",
	}, labels)
	assert.Contains(t, outcome.Telemetry.Logs, "Saved 2 file(s) to disk.")
	assert.Contains(t, outcome.Telemetry.Logs, "Finalized processing and prepared download link.")

	rc, err := f.outputs.Open(ctx, outcome.OutputName)
	require.NoError(t, err)
	pdf, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	rc, err = f.outputs.Open(ctx, outcome.TextName)
	require.NoError(t, err)
	text, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, outcome.Text, string(text))

	assert.Empty(t, dirEntries(t, f.uploads.Dir()), "uploads are removed after success")

	job, err := f.tracker.Get(ctx, outcome.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)
	assert.Equal(t, "abc123", job.SessionID)
	assert.Equal(t, []string{"bilancio 2024.pdf", "nota.pdf"}, job.Filenames)
	assert.Len(t, job.FileHashes, 2)
	assert.Len(t, job.Steps, 5)
}

func TestProcessFailureKeepsUploads(t *testing.T) {
	f := newServiceFixture(t)
	f.client.errs = map[int]error{1: &llm.APIError{StatusCode: 400, Message: "bad request"}}
	ctx := context.Background()

	outcome, err := f.service.Process(ctx, "sess", []Upload{upload("bilancio.pdf", testPDF(t, 1))}, nil)
	require.Error(t, err)
	var apiErr *llm.APIError
	assert.True(t, errors.As(err, &apiErr))

	require.NotNil(t, outcome)
	require.Len(t, outcome.Telemetry.Steps, 1)
	assert.Equal(t, "Files uploaded and saved", outcome.Telemetry.Steps[0].Label)
	assert.Empty(t, outcome.OutputName)

	assert.Equal(t, []string{"sess_bilancio.pdf"}, dirEntries(t, f.uploads.Dir()))
	assert.Empty(t, dirEntries(t, f.outputs.Dir()))

	job, err := f.tracker.Get(ctx, outcome.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, job.Status)
	assert.Contains(t, job.ErrorDetails, "bad request")
}

func TestProcessRejectsInvalidContent(t *testing.T) {
	f := newServiceFixture(t)

	outcome, err := f.service.Process(context.Background(), "sess", []Upload{upload("bilancio.pdf", []byte("not a pdf"))}, nil)
	assert.True(t, IsValidationError(err))
	assert.Empty(t, outcome.JobID)
	assert.Zero(t, f.client.calls())
}

func TestProcessOversizedStream(t *testing.T) {
	f := newServiceFixture(t)
	big := bytes.Repeat([]byte("x"), (1<<20)+10)

	_, err := f.service.Process(context.Background(), "sess", []Upload{{Filename: "big.pdf", Size: -1, Content: bytes.NewReader(big)}}, nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "is too large")
}

func TestTelemetrySteps(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tel := &Telemetry{now: func() time.Time { return clock }, stageStart: clock}

	clock = clock.Add(250 * time.Millisecond)
	tel.Step("one")
	clock = clock.Add(time.Second)
	tel.Step("two")
	tel.Log("done")

	assert.Equal(t, []models.AgentStep{{Label: "one", DurationMs: 250}, {Label: "two", DurationMs: 1000}}, tel.Steps)
	assert.Equal(t, []string{"done"}, tel.Logs)
}
