// Package handler serves the upload form, runs uploads through the balance
// sheet service and hands the result back for download.
package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adityasasidhar/Document-ocr/internal/llm"
	"github.com/adityasasidhar/Document-ocr/internal/models"
	"github.com/adityasasidhar/Document-ocr/internal/services"
	"github.com/adityasasidhar/Document-ocr/internal/session"
	"github.com/adityasasidhar/Document-ocr/internal/storage"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const downloadName = "bilancio_completo.pdf"

// Processor is the part of services.BalanceSheetService the handlers use.
type Processor interface {
	Process(ctx context.Context, sessionID string, uploads []services.Upload, tel *services.Telemetry) (*services.Outcome, error)
	Limits() services.Limits
}

type Options struct {
	UploadDir string
	// OutputDir is empty when outputs are not kept on the local disk.
	OutputDir        string
	APIKeyConfigured bool
	Serverless       bool
}

type Handler struct {
	proc     Processor
	outputs  storage.Store
	sessions *session.Manager
	opts     Options
}

func New(proc Processor, outputs storage.Store, sessions *session.Manager, opts Options) *Handler {
	return &Handler{proc: proc, outputs: outputs, sessions: sessions, opts: opts}
}

type indexPage struct {
	CSRFToken     string
	MaxFiles      int
	MaxFileSizeMB int64
}

type resultsPage struct {
	Success     bool
	Error       string
	Filename    string
	DownloadURL string
	Steps       []models.AgentStep
	Logs        []string
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(r)
	sess.EnsureID()
	token := sess.EnsureCSRF()
	if err := h.sessions.Save(w, sess); err != nil {
		h.InternalError(w, r)
		return
	}
	limits := h.proc.Limits()
	render(w, http.StatusOK, "index.html", indexPage{
		CSRFToken:     token,
		MaxFiles:      limits.MaxFiles,
		MaxFileSizeMB: limits.MaxFileSize / (1024 * 1024),
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	tel := services.NewTelemetry()
	tel.Log("Session started. Validating request and security token...")
	fail := func(status int, message string) {
		render(w, status, "results.html", resultsPage{Error: message, Steps: tel.Steps, Logs: tel.Logs})
	}

	limits := h.proc.Limits()
	r.Body = http.MaxBytesReader(w, r.Body, int64(limits.MaxFiles+1)*limits.MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(http.StatusBadRequest, fmt.Sprintf("Upload too large. Maximum size is %dMB per file.", limits.MaxFileSize/(1024*1024)))
			return
		}
		if !h.csrfValid(r) {
			fail(http.StatusForbidden, "Invalid security token. Please refresh and try again.")
			return
		}
		fail(http.StatusBadRequest, "No files uploaded. Please select at least one PDF file.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if !h.csrfValid(r) {
		fail(http.StatusForbidden, "Invalid security token. Please refresh and try again.")
		return
	}
	sess := h.sessions.Load(r)

	headers, present := r.MultipartForm.File["files"]
	if !present {
		// An empty file input arrives as a plain form value.
		if _, ok := r.MultipartForm.Value["files"]; !ok {
			fail(http.StatusBadRequest, "No files uploaded. Please select at least one PDF file.")
			return
		}
	}

	sess.EnsureID()
	logCtx := slog.With("sessionId", sess.SessionID)

	uploads, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		logCtx.Error("Failed to open uploaded file", "error", err)
		fail(http.StatusInternalServerError, "Error processing files: "+err.Error())
		return
	}

	outcome, err := h.proc.Process(r.Context(), sess.SessionID, uploads, tel)
	if err != nil {
		if serr := h.sessions.Save(w, sess); serr != nil {
			logCtx.Warn("Failed to save session", "error", serr)
		}
		if services.IsValidationError(err) {
			fail(http.StatusBadRequest, err.Error())
			return
		}
		logCtx.Error("Error during processing", "error", err)
		fail(http.StatusInternalServerError, friendlyError(err, limits.MaxFiles))
		return
	}

	sess.OutputFile = outcome.OutputName
	sess.RotateCSRF()
	if err := h.sessions.Save(w, sess); err != nil {
		logCtx.Error("Failed to save session", "error", err)
		fail(http.StatusInternalServerError, "Error processing files: "+err.Error())
		return
	}
	render(w, http.StatusOK, "results.html", resultsPage{
		Success:     true,
		Filename:    outcome.OutputName,
		DownloadURL: "/download/" + outcome.OutputName,
		Steps:       tel.Steps,
		Logs:        tel.Logs,
	})
}

func (h *Handler) csrfValid(r *http.Request) bool {
	return session.CSRFValid(h.sessions.Load(r), r.FormValue("csrf_token"))
}

func openUploads(headers []*multipart.FileHeader) ([]services.Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		files = append(files, f)
		uploads = append(uploads, services.Upload{Filename: fh.Filename, Size: fh.Size, Content: f})
	}
	return uploads, closeAll, nil
}

func friendlyError(err error, maxFiles int) string {
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		return "API configuration error. Please contact the administrator."
	case errors.Is(err, services.ErrTooManyFiles):
		return fmt.Sprintf("Too many files. Please upload maximum %d PDF files.", maxFiles)
	case strings.Contains(strings.ToLower(err.Error()), "too large"):
		return err.Error()
	default:
		return "Error processing files: " + err.Error()
	}
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	sess := h.sessions.Load(r)
	if sess.SessionID == "" || filename != sess.OutputFile {
		render(w, http.StatusForbidden, "results.html", resultsPage{
			Error: "Invalid download request. Please generate a new balance sheet.",
		})
		return
	}

	f, err := h.outputs.Open(r.Context(), filename)
	if errors.Is(err, storage.ErrNotExist) {
		render(w, http.StatusNotFound, "results.html", resultsPage{
			Error: "File not found. It may have been deleted. Please generate a new balance sheet.",
		})
		return
	}
	if err != nil {
		slog.Error("Error during download", "file", filename, "error", err)
		render(w, http.StatusInternalServerError, "results.html", resultsPage{
			Error: "Error downloading file: " + err.Error(),
		})
		return
	}
	defer f.Close()

	slog.Info("Downloading", "file", filename)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		slog.Warn("Download interrupted", "file", filename, "error", err)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "DocumentOCR"})
}

// FixDirs recreates the working directories after they vanished, which
// happens on serverless hosts that recycle /tmp.
func (h *Handler) FixDirs(w http.ResponseWriter, r *http.Request) {
	dirs := []string{h.opts.UploadDir}
	if h.opts.OutputDir != "" {
		dirs = append(dirs, h.opts.OutputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error", "message": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"message":       "Directories recreated",
		"upload_folder": h.opts.UploadDir,
		"output_folder": h.outputFolder(),
		"upload_exists": dirExists(h.opts.UploadDir),
		"output_exists": h.opts.OutputDir == "" || dirExists(h.opts.OutputDir),
	})
}

// Test reports the configuration as seen by the running instance.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	apiKey := "missing"
	if h.opts.APIKeyConfigured {
		apiKey = "configured"
	}

	var fileCreation any = true
	testFile := filepath.Join(h.opts.UploadDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		fileCreation = "Failed: " + err.Error()
	} else {
		os.Remove(testFile)
	}

	outputExists := h.opts.OutputDir == "" || dirExists(h.opts.OutputDir)
	outputWritable := h.opts.OutputDir == "" || storage.Writable(h.opts.OutputDir)
	limits := h.proc.Limits()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"api_key":            apiKey,
		"upload_folder":      h.opts.UploadDir,
		"upload_exists":      dirExists(h.opts.UploadDir),
		"upload_writable":    storage.Writable(h.opts.UploadDir),
		"output_folder":      h.outputFolder(),
		"output_exists":      outputExists,
		"output_writable":    outputWritable,
		"file_creation_test": fileCreation,
		"serverless":         h.opts.Serverless,
		"go_version":         runtime.Version(),
		"max_file_size_mb":   float64(limits.MaxFileSize) / (1024 * 1024),
	})
}

func (h *Handler) outputFolder() string {
	if h.opts.OutputDir != "" {
		return h.opts.OutputDir
	}
	return h.outputs.Location("")
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusNotFound, "results.html", resultsPage{Error: "Page not found."})
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusMethodNotAllowed, "results.html", resultsPage{Error: "Method not allowed."})
}

func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusInternalServerError, "results.html", resultsPage{Error: "Internal server error. Please try again."})
}

func render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error. Please try again.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
